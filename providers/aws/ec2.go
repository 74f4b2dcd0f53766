package aws

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/resource"
)

func filter(name string, values ...string) types.Filter {
	return types.Filter{Name: &name, Values: values}
}

func nameFilter(key string) []types.Filter {
	return []types.Filter{filter("tag:Name", key)}
}

// nameTags builds the tag specification applied at create time: the Name
// tag that addresses the resource, plus any extra tags.
func nameTags(rt types.ResourceType, key string, extra map[string]string) []types.TagSpecification {
	name := "Name"
	tags := []types.Tag{{Key: &name, Value: &key}}
	for k, v := range extra {
		tags = append(tags, types.Tag{Key: &k, Value: &v})
	}
	return []types.TagSpecification{{ResourceType: rt, Tags: tags}}
}

// exactlyOne insists a lookup by name resolved unambiguously. Several
// matches means something was created outside this tool's naming
// discipline, and guessing between them would be worse than stopping.
func exactlyOne(kind resource.Kind, key string, ids []string) (string, error) {
	switch len(ids) {
	case 0:
		return "", cloud.Errorf(resource.NotFound, "%s %q not found", kind, key)
	case 1:
		return ids[0], nil
	}
	return "", cloud.Errorf(resource.Inconsistent, "%s %q matches %d resources", kind, key, len(ids))
}

func (p *Provider) tagEC2(ctx context.Context, providerID string, tags map[string]string) error {
	ec2Tags := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		ec2Tags = append(ec2Tags, types.Tag{Key: &k, Value: &v})
	}
	_, err := p.ec2Client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{providerID},
		Tags:      ec2Tags,
	})
	return classify(err)
}

type ingressRule struct {
	Protocol    string `json:"protocol"`
	FromPort    int32  `json:"fromPort"`
	ToPort      int32  `json:"toPort"`
	Cidr        string `json:"cidr"`
	Description string `json:"description,omitempty"`
}

type securityGroupConfig struct {
	VpcID       string        `json:"vpcId"`
	Description string        `json:"description"`
	Ingress     []ingressRule `json:"ingress,omitempty"`
}

func (p *Provider) createSecurityGroup(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired securityGroupConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	resp, err := p.ec2Client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:         &key,
		Description:       &desired.Description,
		VpcId:             &desired.VpcID,
		TagSpecifications: nameTags(types.ResourceTypeSecurityGroup, key, nil),
	})
	if err != nil {
		return "", classify(err)
	}
	groupID := *resp.GroupId

	if len(desired.Ingress) > 0 {
		permissions := make([]types.IpPermission, 0, len(desired.Ingress))
		for _, rule := range desired.Ingress {
			permissions = append(permissions, types.IpPermission{
				IpProtocol: &rule.Protocol,
				FromPort:   &rule.FromPort,
				ToPort:     &rule.ToPort,
				IpRanges: []types.IpRange{
					{CidrIp: &rule.Cidr, Description: &rule.Description},
				},
			})
		}
		_, err = p.ec2Client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       &groupID,
			IpPermissions: permissions,
		})
		if err != nil {
			return "", classify(err)
		}
	}
	return groupID, nil
}

// FindSecurityGroup resolves a security group by its group name,
// optionally scoped to a VPC. Group names are what CreateSecurityGroup
// enforces uniqueness on, so the lookup filters on group-name rather
// than the Name tag.
func (p *Provider) FindSecurityGroup(ctx context.Context, name, vpcID string) (string, error) {
	filters := []types.Filter{filter("group-name", name)}
	if vpcID != "" {
		filters = append(filters, filter("vpc-id", vpcID))
	}
	resp, err := p.ec2Client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: filters,
	})
	if err != nil {
		return "", classify(err)
	}
	ids := make([]string, 0, len(resp.SecurityGroups))
	for _, sg := range resp.SecurityGroups {
		ids = append(ids, *sg.GroupId)
	}
	return exactlyOne(resource.SecurityGroup, name, ids)
}

type keyPairConfig struct {
	PublicKey string `json:"publicKey,omitempty"`
}

// createKeyPair imports the given public key, or has EC2 generate a pair
// when none is supplied. In the generate case the private key exists
// exactly once, in the create response, so a key material sink is
// mandatory: losing that response means losing the key.
func (p *Provider) createKeyPair(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired keyPairConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	if desired.PublicKey != "" {
		resp, err := p.ec2Client.ImportKeyPair(ctx, &ec2.ImportKeyPairInput{
			KeyName:           &key,
			PublicKeyMaterial: []byte(desired.PublicKey),
			TagSpecifications: nameTags(types.ResourceTypeKeyPair, key, nil),
		})
		if err != nil {
			return "", classify(err)
		}
		return *resp.KeyPairId, nil
	}

	if p.keySink == nil {
		return "", cloud.Errorf(resource.ProviderError,
			"no key material sink registered; refusing to create key pair %q and drop its only private key", key)
	}

	resp, err := p.ec2Client.CreateKeyPair(ctx, &ec2.CreateKeyPairInput{
		KeyName:           &key,
		KeyType:           types.KeyTypeRsa,
		KeyFormat:         types.KeyFormatPem,
		TagSpecifications: nameTags(types.ResourceTypeKeyPair, key, nil),
	})
	if err != nil {
		return "", classify(err)
	}
	if err := p.keySink(key, []byte(*resp.KeyMaterial)); err != nil {
		return "", cloud.Errorf(resource.ProviderError,
			"key pair %q created but persisting its private key failed: %v", key, err)
	}
	return *resp.KeyPairId, nil
}

func (p *Provider) findKeyPair(ctx context.Context, key string) (string, error) {
	resp, err := p.ec2Client.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{
		KeyNames: []string{key},
	})
	if err != nil {
		return "", classify(err)
	}
	ids := make([]string, 0, len(resp.KeyPairs))
	for _, kp := range resp.KeyPairs {
		ids = append(ids, *kp.KeyPairId)
	}
	return exactlyOne(resource.KeyPair, key, ids)
}

type instanceConfig struct {
	AMI               string   `json:"ami"`
	InstanceType      string   `json:"instanceType"`
	KeyName           string   `json:"keyName,omitempty"`
	SubnetID          string   `json:"subnetId,omitempty"`
	SecurityGroupIDs  []string `json:"securityGroupIds,omitempty"`
	AssociatePublicIp bool     `json:"associatePublicIp,omitempty"`
	InstanceProfile   string   `json:"instanceProfile,omitempty"`
	UserData          string   `json:"userData,omitempty"`
}

func (p *Provider) createInstance(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired instanceConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	input := &ec2.RunInstancesInput{
		ImageId:           &desired.AMI,
		InstanceType:      types.InstanceType(desired.InstanceType),
		MinCount:          func(i int32) *int32 { return &i }(1),
		MaxCount:          func(i int32) *int32 { return &i }(1),
		TagSpecifications: nameTags(types.ResourceTypeInstance, key, nil),
	}
	if desired.KeyName != "" {
		input.KeyName = &desired.KeyName
	}
	if desired.SubnetID != "" {
		// Public IP assignment lives on the network interface, so the
		// subnet and security groups ride along on interface zero.
		input.NetworkInterfaces = []types.InstanceNetworkInterfaceSpecification{
			{
				DeviceIndex:              func(i int32) *int32 { return &i }(0),
				SubnetId:                 &desired.SubnetID,
				AssociatePublicIpAddress: &desired.AssociatePublicIp,
				Groups:                   desired.SecurityGroupIDs,
			},
		}
	} else if len(desired.SecurityGroupIDs) > 0 {
		input.SecurityGroupIds = desired.SecurityGroupIDs
	}
	if desired.InstanceProfile != "" {
		input.IamInstanceProfile = &types.IamInstanceProfileSpecification{
			Name: &desired.InstanceProfile,
		}
	}
	if desired.UserData != "" {
		encoded := base64.StdEncoding.EncodeToString([]byte(desired.UserData))
		input.UserData = &encoded
	}

	resp, err := p.ec2Client.RunInstances(ctx, input)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Instances) == 0 {
		return "", cloud.Errorf(resource.ProviderError, "run instances %q returned no instances", key)
	}
	return *resp.Instances[0].InstanceId, nil
}

func (p *Provider) findInstance(ctx context.Context, key string) (string, error) {
	resp, err := p.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			filter("tag:Name", key),
			filter("instance-state-name", "pending", "running", "stopping", "stopped"),
		},
	})
	if err != nil {
		return "", classify(err)
	}
	var ids []string
	for _, reservation := range resp.Reservations {
		for _, inst := range reservation.Instances {
			ids = append(ids, *inst.InstanceId)
		}
	}
	return exactlyOne(resource.ComputeInstance, key, ids)
}

func (p *Provider) instanceRunning(ctx context.Context, id string) (bool, error) {
	resp, err := p.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return false, classify(err)
	}
	for _, reservation := range resp.Reservations {
		for _, inst := range reservation.Instances {
			switch inst.State.Name {
			case types.InstanceStateNameRunning:
				return true, nil
			case types.InstanceStateNamePending:
				return false, nil
			default:
				return false, cloud.Errorf(resource.ProviderError,
					"instance %s is in state %s", id, inst.State.Name)
			}
		}
	}
	return false, cloud.Errorf(resource.NotFound, "instance %s not found", id)
}

// PublicAddress returns the instance's public IP, falling back to its
// public DNS name when no address is assigned yet.
func (p *Provider) PublicAddress(ctx context.Context, id string) (string, error) {
	resp, err := p.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return "", classify(err)
	}
	for _, reservation := range resp.Reservations {
		for _, inst := range reservation.Instances {
			if inst.PublicIpAddress != nil && *inst.PublicIpAddress != "" {
				return *inst.PublicIpAddress, nil
			}
			if inst.PublicDnsName != nil && *inst.PublicDnsName != "" {
				return *inst.PublicDnsName, nil
			}
			return "", cloud.Errorf(resource.NotFound, "instance %s has no public address", id)
		}
	}
	return "", cloud.Errorf(resource.NotFound, "instance %s not found", id)
}

type profileAssociationConfig struct {
	InstanceID string `json:"instanceId"`
	Profile    string `json:"profile"`
}

// createProfileAssociation attaches an instance profile to a running
// instance. EC2 reports an already-associated instance as IncorrectState,
// which for this resource means the slot is taken by an existing
// association, so the conflict is surfaced as a duplicate and the
// existing association gets adopted.
func (p *Provider) createProfileAssociation(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired profileAssociationConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	resp, err := p.ec2Client.AssociateIamInstanceProfile(ctx, &ec2.AssociateIamInstanceProfileInput{
		InstanceId: &desired.InstanceID,
		IamInstanceProfile: &types.IamInstanceProfileSpecification{
			Name: &desired.Profile,
		},
	})
	if err != nil {
		err = classify(err)
		if cloudErr, ok := err.(*cloud.Error); ok && cloudErr.Kind == resource.Conflict {
			return "", &cloud.Error{
				Kind:    resource.DuplicateExists,
				Code:    cloudErr.Code,
				Message: cloudErr.Message,
				Err:     cloudErr.Err,
			}
		}
		return "", err
	}
	return *resp.IamInstanceProfileAssociation.AssociationId, nil
}

func (p *Provider) findProfileAssociation(ctx context.Context, key string) (string, error) {
	resp, err := p.ec2Client.DescribeIamInstanceProfileAssociations(ctx, &ec2.DescribeIamInstanceProfileAssociationsInput{
		Filters: []types.Filter{
			filter("instance-id", key),
			filter("state", "associating", "associated"),
		},
	})
	if err != nil {
		return "", classify(err)
	}
	ids := make([]string, 0, len(resp.IamInstanceProfileAssociations))
	for _, assoc := range resp.IamInstanceProfileAssociations {
		ids = append(ids, *assoc.AssociationId)
	}
	return exactlyOne(resource.ProfileAssociation, key, ids)
}
