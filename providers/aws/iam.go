package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/resource"
)

// ec2AssumeRolePolicy is the trust policy every role created here
// carries: EC2 instances may assume the role, nothing else may.
const ec2AssumeRolePolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"Service": "ec2.amazonaws.com"},
      "Action": "sts:AssumeRole"
    }
  ]
}`

type policyStatement struct {
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource []string `json:"Resource"`
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// bucketPolicyDocument builds the inline policy granting a role access
// to one bucket. Read access covers listing the bucket and fetching
// objects; readwrite adds put and delete.
func bucketPolicyDocument(bucket, access string) (string, error) {
	bucketARN := "arn:aws:s3:::" + bucket
	objectActions := []string{"s3:GetObject"}
	if access == "readwrite" {
		objectActions = append(objectActions, "s3:PutObject", "s3:DeleteObject")
	}
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{
			{Effect: "Allow", Action: []string{"s3:ListBucket"}, Resource: []string{bucketARN}},
			{Effect: "Allow", Action: objectActions, Resource: []string{bucketARN + "/*"}},
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", cloud.Errorf(resource.ProviderError, "encoding bucket policy: %v", err)
	}
	return string(raw), nil
}

func iamNameTags(key string) []types.Tag {
	name := "Name"
	return []types.Tag{{Key: &name, Value: &key}}
}

type roleConfig struct {
	Description string `json:"description,omitempty"`
	Bucket      string `json:"bucket,omitempty"`
	Access      string `json:"access,omitempty"`
}

// createRole creates an EC2-assumable role and, when a bucket is named,
// attaches an inline policy granting access to it. IAM names are unique
// per account, so the role name doubles as the provider ID.
func (p *Provider) createRole(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired roleConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	policy := ec2AssumeRolePolicy
	input := &iam.CreateRoleInput{
		RoleName:                 &key,
		AssumeRolePolicyDocument: &policy,
		Tags:                     iamNameTags(key),
	}
	if desired.Description != "" {
		input.Description = &desired.Description
	}
	if _, err := p.iamClient.CreateRole(ctx, input); err != nil {
		return "", classify(err)
	}

	if desired.Bucket != "" {
		policyName := fmt.Sprintf("%s-s3-access", key)
		document, err := bucketPolicyDocument(desired.Bucket, desired.Access)
		if err != nil {
			return "", err
		}
		_, err = p.iamClient.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
			RoleName:       &key,
			PolicyName:     &policyName,
			PolicyDocument: &document,
		})
		if err != nil {
			return "", classify(err)
		}
	}
	return key, nil
}

func (p *Provider) findRole(ctx context.Context, key string) (string, error) {
	if _, err := p.iamClient.GetRole(ctx, &iam.GetRoleInput{RoleName: &key}); err != nil {
		return "", classify(err)
	}
	return key, nil
}

func (p *Provider) createInstanceProfile(ctx context.Context, key string) (string, error) {
	_, err := p.iamClient.CreateInstanceProfile(ctx, &iam.CreateInstanceProfileInput{
		InstanceProfileName: &key,
		Tags:                iamNameTags(key),
	})
	if err != nil {
		return "", classify(err)
	}
	return key, nil
}

func (p *Provider) findInstanceProfile(ctx context.Context, key string) (string, error) {
	_, err := p.iamClient.GetInstanceProfile(ctx, &iam.GetInstanceProfileInput{
		InstanceProfileName: &key,
	})
	if err != nil {
		return "", classify(err)
	}
	return key, nil
}

// instanceProfileAvailable reports whether the profile is visible yet.
// IAM is eventually consistent: a freshly created profile can take a few
// seconds to become usable by RunInstances.
func (p *Provider) instanceProfileAvailable(ctx context.Context, id string) (bool, error) {
	_, err := p.iamClient.GetInstanceProfile(ctx, &iam.GetInstanceProfileInput{
		InstanceProfileName: &id,
	})
	if err != nil {
		return false, classify(err)
	}
	return true, nil
}

type roleAttachmentConfig struct {
	Profile string `json:"profile"`
	Role    string `json:"role"`
}

func attachmentID(profile, role string) string {
	return profile + ":" + role
}

// createRoleAttachment puts the role into the instance profile. An
// instance profile holds at most one role; attaching to an occupied
// profile surfaces as LimitExceeded, which classification maps to
// Conflict.
func (p *Provider) createRoleAttachment(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired roleAttachmentConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	_, err := p.iamClient.AddRoleToInstanceProfile(ctx, &iam.AddRoleToInstanceProfileInput{
		InstanceProfileName: &desired.Profile,
		RoleName:            &desired.Role,
	})
	if err != nil {
		return "", classify(err)
	}
	return attachmentID(desired.Profile, desired.Role), nil
}

func (p *Provider) findRoleAttachment(ctx context.Context, key string) (string, error) {
	resp, err := p.iamClient.GetInstanceProfile(ctx, &iam.GetInstanceProfileInput{
		InstanceProfileName: &key,
	})
	if err != nil {
		return "", classify(err)
	}
	for _, role := range resp.InstanceProfile.Roles {
		return attachmentID(key, *role.RoleName), nil
	}
	return "", cloud.Errorf(resource.NotFound, "instance profile %q carries no role", key)
}

func (p *Provider) tagRole(ctx context.Context, providerID string, tags map[string]string) error {
	iamTags := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		iamTags = append(iamTags, types.Tag{Key: &k, Value: &v})
	}
	_, err := p.iamClient.TagRole(ctx, &iam.TagRoleInput{
		RoleName: &providerID,
		Tags:     iamTags,
	})
	return classify(err)
}

func (p *Provider) tagInstanceProfile(ctx context.Context, providerID string, tags map[string]string) error {
	iamTags := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		iamTags = append(iamTags, types.Tag{Key: &k, Value: &v})
	}
	_, err := p.iamClient.TagInstanceProfile(ctx, &iam.TagInstanceProfileInput{
		InstanceProfileName: &providerID,
		Tags:                iamTags,
	})
	return classify(err)
}
