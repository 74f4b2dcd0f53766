package stacks

import (
	"testing"

	"github.com/stackrig-io/stackrig/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebservice_StepLayout(t *testing.T) {
	specs, err := Webservice(WebserviceParams{
		NamePrefix:   "pf1-",
		AMI:          "ami-004e960cde33f9146",
		InstanceType: "t3.micro",
		VpcID:        "vpc-111",
		SubnetID:     "subnet-222",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"key-pair", "security-group", "instance"}, stepOrder(specs))

	steps := stepIndex(specs)
	assert.Equal(t, "pf1-rest-key", steps["key-pair"].Key)
	assert.Equal(t, "pf1-rest-sg", steps["security-group"].Key)
	assert.Equal(t, "pf1-rest-instance", steps["instance"].Key)
	assert.Equal(t, "vpc-111", steps["security-group"].Props["vpcId"])
}

func TestWebservice_OpensSSHAndHTTPOnly(t *testing.T) {
	specs, err := Webservice(WebserviceParams{NamePrefix: "pf1-", VpcID: "vpc-111"})
	require.NoError(t, err)

	sg := stepIndex(specs)["security-group"]
	rules, ok := sg.Props["ingress"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, rules, 2)
	assert.Equal(t, 22, rules[0]["fromPort"])
	assert.Equal(t, 80, rules[1]["fromPort"])
}

func TestWebservice_InstanceCarriesRenderedUserData(t *testing.T) {
	specs, err := Webservice(WebserviceParams{NamePrefix: "pf1-", SubnetID: "subnet-222"})
	require.NoError(t, err)

	instance := stepIndex(specs)["instance"]
	assert.Equal(t, resource.ComputeInstance, instance.Kind)
	assert.Equal(t, "subnet-222", instance.Props["subnetId"])
	assert.Equal(t, []string{resource.Ref("security-group")}, instance.Props["securityGroupIds"])
	assert.ElementsMatch(t, instance.DependsOn, []string{"key-pair", "security-group"})

	userData, ok := instance.Props["userData"].(string)
	require.True(t, ok)
	assert.Contains(t, userData, "/opt/rest_app/app.py")
	assert.Contains(t, userData, "flask gunicorn")
}
