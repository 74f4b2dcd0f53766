package stacks

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/stackrig-io/stackrig/internal/resource"
)

// SchedulerParams configures the workflow-scheduler deployment: a
// definitions bucket seeded with one DAG, an instance profile granting
// the host read access to it, and an instance that installs the
// scheduler on boot.
type SchedulerParams struct {
	NamePrefix   string
	Region       string
	Bucket       string
	AMI          string
	InstanceType string
	KeyName      string
	PublicKey    string
	VpcID        string
	SubnetID     string
}

// RandomBucketName generates a deploy-dag-<8 hex chars> bucket name for
// runs that do not supply one.
func RandomBucketName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating bucket name: %w", err)
	}
	return "deploy-dag-" + id.String()[:8], nil
}

// Scheduler builds the scheduler pipeline. The instance profile step
// waits for availability because IAM propagation lags behind creation
// and RunInstances rejects a profile it cannot see yet. The role
// attachment is best-effort: a profile that already carries the role
// reports a conflict, which an idempotent re-run tolerates.
func Scheduler(p SchedulerParams) ([]resource.Spec, error) {
	if p.Bucket == "" {
		bucket, err := RandomBucketName()
		if err != nil {
			return nil, err
		}
		p.Bucket = bucket
	}
	if p.KeyName == "" {
		p.KeyName = p.NamePrefix + "airflow-key"
	}
	roleName := p.NamePrefix + "airflow-ec2-role"
	profileName := roleName + "-profile"

	userData, err := SchedulerUserData(p.Bucket)
	if err != nil {
		return nil, err
	}

	keyProps := map[string]any{}
	if p.PublicKey != "" {
		keyProps["publicKey"] = p.PublicKey
	}

	return []resource.Spec{
		{
			Step: "bucket",
			Kind: resource.Bucket,
			Key:  p.Bucket,
			Props: map[string]any{
				"region": p.Region,
			},
		},
		{
			Step: "seed-dag",
			Kind: resource.BucketObject,
			Key:  p.Bucket + "/dags/sample_s3_dag.py",
			Props: map[string]any{
				"body":        SampleDAG,
				"contentType": "text/x-python",
			},
			DependsOn: []string{"bucket"},
		},
		{
			Step:  "key-pair",
			Kind:  resource.KeyPair,
			Key:   p.KeyName,
			Props: keyProps,
		},
		{
			Step: "security-group",
			Kind: resource.SecurityGroup,
			Key:  p.NamePrefix + "airflow-sg",
			Props: map[string]any{
				"vpcId":       p.VpcID,
				"description": "Airflow EC2 access",
				"ingress": []map[string]any{
					{"protocol": "tcp", "fromPort": 22, "toPort": 22, "cidr": "0.0.0.0/0", "description": "SSH"},
					{"protocol": "tcp", "fromPort": 8080, "toPort": 8080, "cidr": "0.0.0.0/0", "description": "Airflow UI"},
				},
			},
		},
		{
			Step: "iam-role",
			Kind: resource.IamRole,
			Key:  roleName,
			Props: map[string]any{
				"description": "Access S3 DAG bucket for Airflow EC2 host",
				"bucket":      p.Bucket,
				"access":      "read",
			},
			DependsOn: []string{"bucket"},
		},
		{
			Step:          "instance-profile",
			Kind:          resource.IamInstanceProfile,
			Key:           profileName,
			DependsOn:     []string{"iam-role"},
			WaitAvailable: true,
		},
		{
			Step: "role-attachment",
			Kind: resource.RoleAttachment,
			Key:  profileName,
			Props: map[string]any{
				"profile": profileName,
				"role":    roleName,
			},
			DependsOn:  []string{"iam-role", "instance-profile"},
			BestEffort: true,
			Tolerates:  []resource.ErrorKind{resource.Conflict},
		},
		{
			Step: "instance",
			Kind: resource.ComputeInstance,
			Key:  p.NamePrefix + "airflow-ec2",
			Props: map[string]any{
				"ami":               p.AMI,
				"instanceType":      p.InstanceType,
				"keyName":           p.KeyName,
				"subnetId":          p.SubnetID,
				"securityGroupIds":  []string{resource.Ref("security-group")},
				"associatePublicIp": true,
				"instanceProfile":   profileName,
				"userData":          userData,
			},
			DependsOn: []string{"seed-dag", "key-pair", "security-group", "instance-profile", "role-attachment"},
		},
	}, nil
}
