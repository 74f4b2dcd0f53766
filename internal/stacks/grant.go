package stacks

import (
	"github.com/stackrig-io/stackrig/internal/resource"
)

// GrantParams configures the pipeline that gives a running instance
// read/write access to one bucket.
type GrantParams struct {
	NamePrefix  string
	InstanceID  string
	Bucket      string
	RoleName    string
	ProfileName string
}

// Grant builds the role, profile, attachment, and association steps.
// The profile waits for availability before the association step needs
// it; the attachment tolerates the conflict a re-run produces when the
// profile already carries the role.
func Grant(p GrantParams) []resource.Spec {
	if p.RoleName == "" {
		p.RoleName = p.NamePrefix + "ec2-s3-role"
	}
	if p.ProfileName == "" {
		p.ProfileName = p.NamePrefix + "ec2-s3-profile"
	}

	return []resource.Spec{
		{
			Step: "iam-role",
			Kind: resource.IamRole,
			Key:  p.RoleName,
			Props: map[string]any{
				"description": "EC2 S3 access role",
				"bucket":      p.Bucket,
				"access":      "readwrite",
			},
		},
		{
			Step:          "instance-profile",
			Kind:          resource.IamInstanceProfile,
			Key:           p.ProfileName,
			DependsOn:     []string{"iam-role"},
			WaitAvailable: true,
		},
		{
			Step: "role-attachment",
			Kind: resource.RoleAttachment,
			Key:  p.ProfileName,
			Props: map[string]any{
				"profile": p.ProfileName,
				"role":    p.RoleName,
			},
			DependsOn:  []string{"iam-role", "instance-profile"},
			BestEffort: true,
			Tolerates:  []resource.ErrorKind{resource.Conflict},
		},
		{
			Step: "profile-association",
			Kind: resource.ProfileAssociation,
			Key:  p.InstanceID,
			Props: map[string]any{
				"instanceId": p.InstanceID,
				"profile":    p.ProfileName,
			},
			DependsOn: []string{"instance-profile", "role-attachment"},
		},
	}
}
