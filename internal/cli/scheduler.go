package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackrig-io/stackrig/internal/config"
	"github.com/stackrig-io/stackrig/internal/stacks"
)

var (
	schedulerBucket    string
	schedulerAMI       string
	schedulerType      string
	schedulerKeyName   string
	schedulerVpcID     string
	schedulerSubnetID  string
	schedulerImportKey bool
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Deploy the workflow scheduler host",
	Long: `Ensures a definitions bucket seeded with a sample DAG, a key pair, a
security group opening SSH and the scheduler UI, an IAM role and
instance profile granting the host read access to the bucket, and the
instance itself, whose user data installs the scheduler and syncs
definitions from the bucket on boot.`,
	RunE: runScheduler,
}

func init() {
	schedulerCmd.Flags().StringVar(&schedulerBucket, "bucket", "", "Definitions bucket (default deploy-dag-<random>)")
	schedulerCmd.Flags().StringVar(&schedulerAMI, "ami", "", "AMI ID (default from configuration)")
	schedulerCmd.Flags().StringVar(&schedulerType, "instance-type", config.DefaultSchedulerType, "Instance type")
	schedulerCmd.Flags().StringVar(&schedulerKeyName, "key-name", "", "Key pair name (default <prefix>airflow-key)")
	schedulerCmd.Flags().StringVar(&schedulerVpcID, "vpc", "", "VPC ID (default: the VPC named <prefix>vpc)")
	schedulerCmd.Flags().StringVar(&schedulerSubnetID, "subnet-id", "", "Subnet ID (default: the VPC's public subnet)")
	schedulerCmd.Flags().BoolVar(&schedulerImportKey, "import-key", false, "Generate the key pair locally and import its public half")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	provider, err := newProvider(ctx)
	if err != nil {
		return err
	}

	vpcID, err := resolveVpc(ctx, provider, schedulerVpcID)
	if err != nil {
		return err
	}

	subnetID := schedulerSubnetID
	if subnetID == "" {
		subnetID, err = provider.FindPublicSubnet(ctx, vpcID)
		if err != nil {
			return err
		}
	}

	keyName := schedulerKeyName
	if keyName == "" {
		keyName = settings.NamePrefix + "airflow-key"
	}
	publicKey, err := resolveKeyMaterial(schedulerImportKey, keyName)
	if err != nil {
		return err
	}

	specs, err := stacks.Scheduler(stacks.SchedulerParams{
		NamePrefix:   settings.NamePrefix,
		Region:       settings.Region,
		Bucket:       schedulerBucket,
		AMI:          defaultString(schedulerAMI, settings.AMI),
		InstanceType: schedulerType,
		KeyName:      keyName,
		PublicKey:    publicKey,
		VpcID:        vpcID,
		SubnetID:     subnetID,
	})
	if err != nil {
		return err
	}
	return runPipeline(ctx, provider, specs)
}
