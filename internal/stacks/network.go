// Package stacks builds the resource pipelines the CLI runs. Each
// builder returns the ordered specs for one deployment, with later
// steps referencing earlier ones through ref:// placeholders.
package stacks

import (
	"github.com/stackrig-io/stackrig/internal/resource"
)

// NetworkParams configures the base network stack.
type NetworkParams struct {
	NamePrefix        string
	Region            string
	CidrBlock         string
	PublicSubnetCidr  string
	PrivateSubnetCidr string
	AvailabilityZone  string
}

// Network builds a VPC with an internet gateway, one public and one
// private subnet in the same availability zone, a NAT gateway for the
// private side, and a route table per subnet. The security group is
// ensured before the subnets so the public subnet can carry a
// PublicSecurityGroup tag pointing at it.
func Network(p NetworkParams) []resource.Spec {
	if p.CidrBlock == "" {
		p.CidrBlock = "10.0.0.0/16"
	}
	if p.PublicSubnetCidr == "" {
		p.PublicSubnetCidr = "10.0.1.0/24"
	}
	if p.PrivateSubnetCidr == "" {
		p.PrivateSubnetCidr = "10.0.2.0/24"
	}
	if p.AvailabilityZone == "" {
		p.AvailabilityZone = p.Region + "a"
	}

	return []resource.Spec{
		{
			Step: "network",
			Kind: resource.Network,
			Key:  p.NamePrefix + "vpc",
			Props: map[string]any{
				"cidrBlock":    p.CidrBlock,
				"dnsSupport":   true,
				"dnsHostnames": true,
			},
		},
		{
			Step: "internet-gateway",
			Kind: resource.InternetGateway,
			Key:  p.NamePrefix + "igw",
			Props: map[string]any{
				"vpcId": resource.Ref("network"),
			},
			DependsOn: []string{"network"},
		},
		{
			Step: "security-group",
			Kind: resource.SecurityGroup,
			Key:  p.NamePrefix + "public-sg",
			Props: map[string]any{
				"vpcId":       resource.Ref("network"),
				"description": "Public access for public subnet resources",
				"ingress": []map[string]any{
					{"protocol": "tcp", "fromPort": 22, "toPort": 22, "cidr": "0.0.0.0/0", "description": "SSH from internet"},
					{"protocol": "tcp", "fromPort": 80, "toPort": 80, "cidr": "0.0.0.0/0", "description": "HTTP from internet"},
					{"protocol": "tcp", "fromPort": 443, "toPort": 443, "cidr": "0.0.0.0/0", "description": "HTTPS from internet"},
				},
			},
			DependsOn: []string{"network"},
		},
		{
			Step: "public-subnet",
			Kind: resource.Subnet,
			Key:  p.NamePrefix + "public-subnet",
			Props: map[string]any{
				"vpcId":            resource.Ref("network"),
				"cidrBlock":        p.PublicSubnetCidr,
				"availabilityZone": p.AvailabilityZone,
				"mapPublicIp":      true,
				"tier":             "public",
			},
			DependsOn: []string{"network", "security-group"},
			Tags: map[string]string{
				"PublicSecurityGroup": resource.Ref("security-group"),
			},
		},
		{
			Step: "private-subnet",
			Kind: resource.Subnet,
			Key:  p.NamePrefix + "private-subnet",
			Props: map[string]any{
				"vpcId":            resource.Ref("network"),
				"cidrBlock":        p.PrivateSubnetCidr,
				"availabilityZone": p.AvailabilityZone,
				"tier":             "private",
			},
			DependsOn: []string{"network"},
		},
		{
			Step: "elastic-ip",
			Kind: resource.ElasticIP,
			Key:  p.NamePrefix + "nat-eip",
		},
		{
			Step: "nat-gateway",
			Kind: resource.NatGateway,
			Key:  p.NamePrefix + "nat-1",
			Props: map[string]any{
				"subnetId":     resource.Ref("public-subnet"),
				"allocationId": resource.Ref("elastic-ip"),
			},
			DependsOn: []string{"public-subnet", "elastic-ip"},
		},
		{
			Step: "public-routes",
			Kind: resource.RouteTable,
			Key:  p.NamePrefix + "public-rt",
			Props: map[string]any{
				"vpcId":       resource.Ref("network"),
				"destination": "0.0.0.0/0",
				"gatewayId":   resource.Ref("internet-gateway"),
				"subnetIds":   []string{resource.Ref("public-subnet")},
			},
			DependsOn: []string{"network", "internet-gateway", "public-subnet"},
		},
		{
			Step: "private-routes",
			Kind: resource.RouteTable,
			Key:  p.NamePrefix + "private-rt",
			Props: map[string]any{
				"vpcId":        resource.Ref("network"),
				"destination":  "0.0.0.0/0",
				"natGatewayId": resource.Ref("nat-gateway"),
				"subnetIds":    []string{resource.Ref("private-subnet")},
			},
			DependsOn: []string{"network", "nat-gateway", "private-subnet"},
		},
	}
}
