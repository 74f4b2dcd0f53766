package stacks

import (
	"testing"

	"github.com/stackrig-io/stackrig/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepIndex(specs []resource.Spec) map[string]resource.Spec {
	m := make(map[string]resource.Spec, len(specs))
	for _, s := range specs {
		m[s.Step] = s
	}
	return m
}

func stepOrder(specs []resource.Spec) []string {
	order := make([]string, len(specs))
	for i, s := range specs {
		order[i] = s.Step
	}
	return order
}

func TestNetwork_StepOrderAndNames(t *testing.T) {
	specs := Network(NetworkParams{NamePrefix: "pf1-", Region: "eu-central-1"})

	assert.Equal(t, []string{
		"network", "internet-gateway", "security-group",
		"public-subnet", "private-subnet",
		"elastic-ip", "nat-gateway",
		"public-routes", "private-routes",
	}, stepOrder(specs))

	steps := stepIndex(specs)
	assert.Equal(t, "pf1-vpc", steps["network"].Key)
	assert.Equal(t, "pf1-igw", steps["internet-gateway"].Key)
	assert.Equal(t, "pf1-public-sg", steps["security-group"].Key)
	assert.Equal(t, "pf1-public-subnet", steps["public-subnet"].Key)
	assert.Equal(t, "pf1-private-subnet", steps["private-subnet"].Key)
	assert.Equal(t, "pf1-nat-eip", steps["elastic-ip"].Key)
	assert.Equal(t, "pf1-nat-1", steps["nat-gateway"].Key)
	assert.Equal(t, "pf1-public-rt", steps["public-routes"].Key)
	assert.Equal(t, "pf1-private-rt", steps["private-routes"].Key)
}

func TestNetwork_Defaults(t *testing.T) {
	steps := stepIndex(Network(NetworkParams{NamePrefix: "pf1-", Region: "eu-central-1"}))

	network := steps["network"]
	assert.Equal(t, "10.0.0.0/16", network.Props["cidrBlock"])
	assert.Equal(t, true, network.Props["dnsSupport"])
	assert.Equal(t, true, network.Props["dnsHostnames"])

	public := steps["public-subnet"]
	assert.Equal(t, "10.0.1.0/24", public.Props["cidrBlock"])
	assert.Equal(t, "eu-central-1a", public.Props["availabilityZone"])
	assert.Equal(t, true, public.Props["mapPublicIp"])
	assert.Equal(t, "public", public.Props["tier"])

	private := steps["private-subnet"]
	assert.Equal(t, "10.0.2.0/24", private.Props["cidrBlock"])
	assert.Equal(t, "private", private.Props["tier"])
	// Only the public subnet auto-assigns addresses.
	assert.NotContains(t, private.Props, "mapPublicIp")
}

func TestNetwork_RefsThreadTheTopology(t *testing.T) {
	steps := stepIndex(Network(NetworkParams{NamePrefix: "pf1-", Region: "eu-central-1"}))

	assert.Equal(t, resource.Ref("network"), steps["internet-gateway"].Props["vpcId"])
	assert.Equal(t, resource.Ref("network"), steps["public-subnet"].Props["vpcId"])

	nat := steps["nat-gateway"]
	assert.Equal(t, resource.Ref("public-subnet"), nat.Props["subnetId"])
	assert.Equal(t, resource.Ref("elastic-ip"), nat.Props["allocationId"])

	public := steps["public-routes"]
	assert.Equal(t, resource.Ref("internet-gateway"), public.Props["gatewayId"])
	assert.Equal(t, "0.0.0.0/0", public.Props["destination"])
	assert.Equal(t, []string{resource.Ref("public-subnet")}, public.Props["subnetIds"])

	private := steps["private-routes"]
	assert.Equal(t, resource.Ref("nat-gateway"), private.Props["natGatewayId"])
	assert.Equal(t, []string{resource.Ref("private-subnet")}, private.Props["subnetIds"])
}

func TestNetwork_PublicSubnetTaggedWithSecurityGroup(t *testing.T) {
	steps := stepIndex(Network(NetworkParams{NamePrefix: "pf1-", Region: "eu-central-1"}))

	public := steps["public-subnet"]
	require.Contains(t, public.Tags, "PublicSecurityGroup")
	assert.Equal(t, resource.Ref("security-group"), public.Tags["PublicSecurityGroup"])
	// The tag can only resolve if the group is ensured first.
	assert.Contains(t, public.DependsOn, "security-group")
}

func TestNetwork_SecurityGroupOpensWebAndSSH(t *testing.T) {
	steps := stepIndex(Network(NetworkParams{NamePrefix: "pf1-", Region: "eu-central-1"}))

	sg := steps["security-group"]
	rules, ok := sg.Props["ingress"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, rules, 3)

	ports := make([]int, len(rules))
	for i, r := range rules {
		ports[i] = r["fromPort"].(int)
		assert.Equal(t, "tcp", r["protocol"])
		assert.Equal(t, "0.0.0.0/0", r["cidr"])
	}
	assert.Equal(t, []int{22, 80, 443}, ports)
}

func TestNetwork_CustomCidrsRespected(t *testing.T) {
	steps := stepIndex(Network(NetworkParams{
		NamePrefix:       "team9-",
		Region:           "us-west-2",
		CidrBlock:        "172.16.0.0/16",
		PublicSubnetCidr: "172.16.10.0/24",
		AvailabilityZone: "us-west-2c",
	}))

	assert.Equal(t, "172.16.0.0/16", steps["network"].Props["cidrBlock"])
	assert.Equal(t, "172.16.10.0/24", steps["public-subnet"].Props["cidrBlock"])
	assert.Equal(t, "us-west-2c", steps["public-subnet"].Props["availabilityZone"])
	// Unset CIDRs still default.
	assert.Equal(t, "10.0.2.0/24", steps["private-subnet"].Props["cidrBlock"])
}
