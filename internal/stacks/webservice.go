package stacks

import (
	"github.com/stackrig-io/stackrig/internal/resource"
)

// WebserviceParams configures the REST test host deployment. SubnetID is
// the pre-resolved public-tier subnet; the caller fails before the
// pipeline starts when zero or several subnets carry the tag.
type WebserviceParams struct {
	NamePrefix   string
	Name         string
	AMI          string
	InstanceType string
	KeyName      string
	PublicKey    string
	VpcID        string
	SubnetID     string
}

// Webservice builds the key pair, security group, and instance whose
// user data installs the HTTP service.
func Webservice(p WebserviceParams) ([]resource.Spec, error) {
	if p.Name == "" {
		p.Name = p.NamePrefix + "rest-instance"
	}
	if p.KeyName == "" {
		p.KeyName = p.NamePrefix + "rest-key"
	}

	userData, err := WebserviceUserData()
	if err != nil {
		return nil, err
	}

	keyProps := map[string]any{}
	if p.PublicKey != "" {
		keyProps["publicKey"] = p.PublicKey
	}

	return []resource.Spec{
		{
			Step:  "key-pair",
			Kind:  resource.KeyPair,
			Key:   p.KeyName,
			Props: keyProps,
		},
		{
			Step: "security-group",
			Kind: resource.SecurityGroup,
			Key:  p.NamePrefix + "rest-sg",
			Props: map[string]any{
				"vpcId":       p.VpcID,
				"description": "HTTP + SSH access for REST test host",
				"ingress": []map[string]any{
					{"protocol": "tcp", "fromPort": 22, "toPort": 22, "cidr": "0.0.0.0/0", "description": "SSH"},
					{"protocol": "tcp", "fromPort": 80, "toPort": 80, "cidr": "0.0.0.0/0", "description": "HTTP"},
				},
			},
		},
		{
			Step: "instance",
			Kind: resource.ComputeInstance,
			Key:  p.Name,
			Props: map[string]any{
				"ami":               p.AMI,
				"instanceType":      p.InstanceType,
				"keyName":           p.KeyName,
				"subnetId":          p.SubnetID,
				"securityGroupIds":  []string{resource.Ref("security-group")},
				"associatePublicIp": true,
				"userData":          userData,
			},
			DependsOn: []string{"key-pair", "security-group"},
		},
	}, nil
}
