package stacks

import (
	"github.com/stackrig-io/stackrig/internal/resource"
)

// InstanceParams configures a standalone instance deployment. SubnetID
// and SecurityGroupID arrive pre-resolved: the caller looks up the
// public subnet and the named security group and fails before the
// pipeline starts when either is missing or ambiguous.
type InstanceParams struct {
	NamePrefix      string
	Name            string
	AMI             string
	InstanceType    string
	KeyName         string
	PublicKey       string
	SubnetID        string
	SecurityGroupID string
}

// Instance builds the key pair plus single-instance pipeline.
func Instance(p InstanceParams) []resource.Spec {
	if p.Name == "" {
		p.Name = p.NamePrefix + "ec2-instance"
	}
	if p.KeyName == "" {
		p.KeyName = p.NamePrefix + "ec2-key"
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
			Step: "instance",
			Kind: resource.ComputeInstance,
			Key:  p.Name,
			Props: map[string]any{
				"ami":               p.AMI,
				"instanceType":      p.InstanceType,
				"keyName":           p.KeyName,
				"subnetId":          p.SubnetID,
				"securityGroupIds":  []string{p.SecurityGroupID},
				"associatePublicIp": true,
			},
			DependsOn: []string{"key-pair"},
		},
	}
}
