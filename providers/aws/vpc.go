package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/resource"
)

type networkConfig struct {
	CidrBlock    string `json:"cidrBlock"`
	DnsSupport   bool   `json:"dnsSupport"`
	DnsHostnames bool   `json:"dnsHostnames"`
}

func (p *Provider) createNetwork(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired networkConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	resp, err := p.ec2Client.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock:         &desired.CidrBlock,
		TagSpecifications: nameTags(types.ResourceTypeVpc, key, nil),
	})
	if err != nil {
		return "", classify(err)
	}
	vpcID := *resp.Vpc.VpcId

	// DNS attributes are separate calls, one attribute each.
	if desired.DnsSupport {
		_, err = p.ec2Client.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:            &vpcID,
			EnableDnsSupport: &types.AttributeBooleanValue{Value: func(b bool) *bool { return &b }(true)},
		})
		if err != nil {
			return "", classify(err)
		}
	}
	if desired.DnsHostnames {
		_, err = p.ec2Client.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:              &vpcID,
			EnableDnsHostnames: &types.AttributeBooleanValue{Value: func(b bool) *bool { return &b }(true)},
		})
		if err != nil {
			return "", classify(err)
		}
	}
	return vpcID, nil
}

func (p *Provider) findNetwork(ctx context.Context, key string) (string, error) {
	resp, err := p.ec2Client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: nameFilter(key),
	})
	if err != nil {
		return "", classify(err)
	}
	ids := make([]string, 0, len(resp.Vpcs))
	for _, v := range resp.Vpcs {
		ids = append(ids, *v.VpcId)
	}
	return exactlyOne(resource.Network, key, ids)
}

type subnetConfig struct {
	VpcID            string `json:"vpcId"`
	CidrBlock        string `json:"cidrBlock"`
	AvailabilityZone string `json:"availabilityZone,omitempty"`
	MapPublicIp      bool   `json:"mapPublicIp,omitempty"`
	Tier             string `json:"tier,omitempty"`
}

func (p *Provider) createSubnet(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired subnetConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	var extra map[string]string
	if desired.Tier != "" {
		extra = map[string]string{"Tier": desired.Tier}
	}

	input := &ec2.CreateSubnetInput{
		VpcId:             &desired.VpcID,
		CidrBlock:         &desired.CidrBlock,
		TagSpecifications: nameTags(types.ResourceTypeSubnet, key, extra),
	}
	if desired.AvailabilityZone != "" {
		input.AvailabilityZone = &desired.AvailabilityZone
	}

	resp, err := p.ec2Client.CreateSubnet(ctx, input)
	if err != nil {
		return "", classify(err)
	}
	subnetID := *resp.Subnet.SubnetId

	if desired.MapPublicIp {
		_, err = p.ec2Client.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            &subnetID,
			MapPublicIpOnLaunch: &types.AttributeBooleanValue{Value: func(b bool) *bool { return &b }(true)},
		})
		if err != nil {
			return "", classify(err)
		}
	}
	return subnetID, nil
}

func (p *Provider) findSubnet(ctx context.Context, key string) (string, error) {
	resp, err := p.ec2Client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: nameFilter(key),
	})
	if err != nil {
		return "", classify(err)
	}
	ids := make([]string, 0, len(resp.Subnets))
	for _, s := range resp.Subnets {
		ids = append(ids, *s.SubnetId)
	}
	return exactlyOne(resource.Subnet, key, ids)
}

// FindPublicSubnet returns the one subnet in the VPC that assigns public
// IPs on launch. Zero or several matches is an error: the caller cannot
// guess where an instance belongs.
func (p *Provider) FindPublicSubnet(ctx context.Context, vpcID string) (string, error) {
	resp, err := p.ec2Client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []types.Filter{
			filter("vpc-id", vpcID),
			filter("map-public-ip-on-launch", "true"),
		},
	})
	if err != nil {
		return "", classify(err)
	}
	switch len(resp.Subnets) {
	case 0:
		return "", cloud.Errorf(resource.NotFound, "no public subnet in VPC %s", vpcID)
	case 1:
		return *resp.Subnets[0].SubnetId, nil
	}
	return "", cloud.Errorf(resource.Inconsistent,
		"%d public subnets in VPC %s, expected exactly one", len(resp.Subnets), vpcID)
}

// FindSubnetByTier returns the one subnet in the VPC tagged Tier=tier.
func (p *Provider) FindSubnetByTier(ctx context.Context, vpcID, tier string) (string, error) {
	resp, err := p.ec2Client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []types.Filter{
			filter("vpc-id", vpcID),
			filter("tag:Tier", tier),
		},
	})
	if err != nil {
		return "", classify(err)
	}
	switch len(resp.Subnets) {
	case 0:
		return "", cloud.Errorf(resource.NotFound, "no subnet tagged Tier=%s in VPC %s", tier, vpcID)
	case 1:
		return *resp.Subnets[0].SubnetId, nil
	}
	return "", cloud.Errorf(resource.Inconsistent,
		"%d subnets tagged Tier=%s in VPC %s, expected exactly one", len(resp.Subnets), tier, vpcID)
}

type internetGatewayConfig struct {
	VpcID string `json:"vpcId"`
}

func (p *Provider) createInternetGateway(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired internetGatewayConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	resp, err := p.ec2Client.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{
		TagSpecifications: nameTags(types.ResourceTypeInternetGateway, key, nil),
	})
	if err != nil {
		return "", classify(err)
	}
	igwID := *resp.InternetGateway.InternetGatewayId

	if desired.VpcID != "" {
		_, err = p.ec2Client.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
			InternetGatewayId: &igwID,
			VpcId:             &desired.VpcID,
		})
		if err != nil {
			return "", classify(err)
		}
	}
	return igwID, nil
}

func (p *Provider) findInternetGateway(ctx context.Context, key string) (string, error) {
	resp, err := p.ec2Client.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{
		Filters: nameFilter(key),
	})
	if err != nil {
		return "", classify(err)
	}
	ids := make([]string, 0, len(resp.InternetGateways))
	for _, igw := range resp.InternetGateways {
		ids = append(ids, *igw.InternetGatewayId)
	}
	return exactlyOne(resource.InternetGateway, key, ids)
}

func (p *Provider) createElasticIP(ctx context.Context, key string) (string, error) {
	resp, err := p.ec2Client.AllocateAddress(ctx, &ec2.AllocateAddressInput{
		Domain:            types.DomainTypeVpc,
		TagSpecifications: nameTags(types.ResourceTypeElasticIp, key, nil),
	})
	if err != nil {
		return "", classify(err)
	}
	return *resp.AllocationId, nil
}

func (p *Provider) findElasticIP(ctx context.Context, key string) (string, error) {
	resp, err := p.ec2Client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{
		Filters: nameFilter(key),
	})
	if err != nil {
		return "", classify(err)
	}
	ids := make([]string, 0, len(resp.Addresses))
	for _, a := range resp.Addresses {
		ids = append(ids, *a.AllocationId)
	}
	return exactlyOne(resource.ElasticIP, key, ids)
}

type natGatewayConfig struct {
	SubnetID     string `json:"subnetId"`
	AllocationID string `json:"allocationId"`
}

func (p *Provider) createNatGateway(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired natGatewayConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	resp, err := p.ec2Client.CreateNatGateway(ctx, &ec2.CreateNatGatewayInput{
		SubnetId:          &desired.SubnetID,
		AllocationId:      &desired.AllocationID,
		TagSpecifications: nameTags(types.ResourceTypeNatgateway, key, nil),
	})
	if err != nil {
		return "", classify(err)
	}
	// Routes can reference the NAT gateway while it is still pending, so
	// the ID is returned without waiting for the available state.
	return *resp.NatGateway.NatGatewayId, nil
}

func (p *Provider) findNatGateway(ctx context.Context, key string) (string, error) {
	resp, err := p.ec2Client.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		Filter: []types.Filter{
			filter("tag:Name", key),
			filter("state", "pending", "available"),
		},
	})
	if err != nil {
		return "", classify(err)
	}
	ids := make([]string, 0, len(resp.NatGateways))
	for _, nat := range resp.NatGateways {
		ids = append(ids, *nat.NatGatewayId)
	}
	return exactlyOne(resource.NatGateway, key, ids)
}

func (p *Provider) natGatewayAvailable(ctx context.Context, id string) (bool, error) {
	resp, err := p.ec2Client.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		NatGatewayIds: []string{id},
	})
	if err != nil {
		return false, classify(err)
	}
	for _, nat := range resp.NatGateways {
		switch nat.State {
		case types.NatGatewayStateAvailable:
			return true, nil
		case types.NatGatewayStatePending:
			return false, nil
		default:
			return false, cloud.Errorf(resource.ProviderError,
				"nat gateway %s is in state %s", id, nat.State)
		}
	}
	return false, cloud.Errorf(resource.NotFound, "nat gateway %s not found", id)
}

type routeTableConfig struct {
	VpcID        string   `json:"vpcId"`
	Destination  string   `json:"destination,omitempty"`
	GatewayID    string   `json:"gatewayId,omitempty"`
	NatGatewayID string   `json:"natGatewayId,omitempty"`
	SubnetIDs    []string `json:"subnetIds,omitempty"`
}

// createRouteTable builds the table, its default route, and the subnet
// associations in one step. The route target is either an internet
// gateway or a NAT gateway, never both.
func (p *Provider) createRouteTable(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired routeTableConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	resp, err := p.ec2Client.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
		VpcId:             &desired.VpcID,
		TagSpecifications: nameTags(types.ResourceTypeRouteTable, key, nil),
	})
	if err != nil {
		return "", classify(err)
	}
	rtID := *resp.RouteTable.RouteTableId

	if desired.Destination != "" {
		input := &ec2.CreateRouteInput{
			RouteTableId:         &rtID,
			DestinationCidrBlock: &desired.Destination,
		}
		if desired.GatewayID != "" {
			input.GatewayId = &desired.GatewayID
		}
		if desired.NatGatewayID != "" {
			input.NatGatewayId = &desired.NatGatewayID
		}
		if _, err := p.ec2Client.CreateRoute(ctx, input); err != nil {
			return "", classify(err)
		}
	}

	for _, subnetID := range desired.SubnetIDs {
		_, err := p.ec2Client.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
			RouteTableId: &rtID,
			SubnetId:     &subnetID,
		})
		if err != nil {
			return "", classify(err)
		}
	}
	return rtID, nil
}

func (p *Provider) findRouteTable(ctx context.Context, key string) (string, error) {
	resp, err := p.ec2Client.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: nameFilter(key),
	})
	if err != nil {
		return "", classify(err)
	}
	ids := make([]string, 0, len(resp.RouteTables))
	for _, rt := range resp.RouteTables {
		ids = append(ids, *rt.RouteTableId)
	}
	return exactlyOne(resource.RouteTable, key, ids)
}
