package stacks

import (
	"testing"

	"github.com/stackrig-io/stackrig/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrant_StepLayoutAndDefaults(t *testing.T) {
	specs := Grant(GrantParams{
		NamePrefix: "pf1-",
		InstanceID: "i-0abc123",
		Bucket:     "deploy-dag-cafe0123",
	})

	assert.Equal(t, []string{"iam-role", "instance-profile", "role-attachment", "profile-association"},
		stepOrder(specs))

	steps := stepIndex(specs)
	assert.Equal(t, "pf1-ec2-s3-role", steps["iam-role"].Key)
	assert.Equal(t, "pf1-ec2-s3-profile", steps["instance-profile"].Key)
	assert.True(t, steps["instance-profile"].WaitAvailable)
}

func TestGrant_RoleGetsReadWriteAccess(t *testing.T) {
	steps := stepIndex(Grant(GrantParams{NamePrefix: "pf1-", InstanceID: "i-0abc123", Bucket: "data-bucket"}))

	role := steps["iam-role"]
	assert.Equal(t, "data-bucket", role.Props["bucket"])
	assert.Equal(t, "readwrite", role.Props["access"])
}

func TestGrant_AssociationTargetsTheInstance(t *testing.T) {
	steps := stepIndex(Grant(GrantParams{NamePrefix: "pf1-", InstanceID: "i-0abc123", Bucket: "data-bucket"}))

	assoc := steps["profile-association"]
	require.Equal(t, resource.ProfileAssociation, assoc.Kind)
	assert.Equal(t, "i-0abc123", assoc.Key)
	assert.Equal(t, "i-0abc123", assoc.Props["instanceId"])
	assert.Equal(t, "pf1-ec2-s3-profile", assoc.Props["profile"])
	assert.ElementsMatch(t, assoc.DependsOn, []string{"instance-profile", "role-attachment"})
}

func TestGrant_ExplicitNamesOverrideDefaults(t *testing.T) {
	steps := stepIndex(Grant(GrantParams{
		NamePrefix:  "pf1-",
		InstanceID:  "i-0abc123",
		Bucket:      "data-bucket",
		RoleName:    "custom-role",
		ProfileName: "custom-profile",
	}))

	assert.Equal(t, "custom-role", steps["iam-role"].Key)
	assert.Equal(t, "custom-profile", steps["instance-profile"].Key)
	assert.Equal(t, "custom-profile", steps["profile-association"].Props["profile"])
}
