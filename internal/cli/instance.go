package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackrig-io/stackrig/internal/stacks"
)

var (
	instanceName      string
	instanceAMI       string
	instanceType      string
	instanceKeyName   string
	instanceSG        string
	instanceVpcID     string
	instanceSubnetID  string
	instanceImportKey bool
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Launch a single instance in the public subnet",
	Long: `Ensures a key pair and launches one instance into the VPC's public
subnet, attached to an existing named security group. The subnet is
found by its map-public-ip attribute; zero or several public subnets
is an error, as is a missing security group.`,
	RunE: runInstance,
}

func init() {
	instanceCmd.Flags().StringVar(&instanceName, "name", "", "Name tag for the instance (default <prefix>ec2-instance)")
	instanceCmd.Flags().StringVar(&instanceAMI, "ami", "", "AMI ID (default from configuration)")
	instanceCmd.Flags().StringVar(&instanceType, "instance-type", "", "Instance type (default from configuration)")
	instanceCmd.Flags().StringVar(&instanceKeyName, "key-name", "", "Key pair name (default <prefix>ec2-key)")
	instanceCmd.Flags().StringVar(&instanceSG, "security-group", "", "Existing security group name (default <prefix>public-sg)")
	instanceCmd.Flags().StringVar(&instanceVpcID, "vpc", "", "VPC ID (default: the VPC named <prefix>vpc)")
	instanceCmd.Flags().StringVar(&instanceSubnetID, "subnet-id", "", "Subnet ID (default: the VPC's public subnet)")
	instanceCmd.Flags().BoolVar(&instanceImportKey, "import-key", false, "Generate the key pair locally and import its public half")
}

func runInstance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	provider, err := newProvider(ctx)
	if err != nil {
		return err
	}

	vpcID, err := resolveVpc(ctx, provider, instanceVpcID)
	if err != nil {
		return err
	}

	subnetID := instanceSubnetID
	if subnetID == "" {
		subnetID, err = provider.FindPublicSubnet(ctx, vpcID)
		if err != nil {
			return err
		}
	}

	sgName := instanceSG
	if sgName == "" {
		sgName = settings.NamePrefix + "public-sg"
	}
	sgID, err := provider.FindSecurityGroup(ctx, sgName, vpcID)
	if err != nil {
		return err
	}

	keyName := instanceKeyName
	if keyName == "" {
		keyName = settings.NamePrefix + "ec2-key"
	}
	publicKey, err := resolveKeyMaterial(instanceImportKey, keyName)
	if err != nil {
		return err
	}

	specs := stacks.Instance(stacks.InstanceParams{
		NamePrefix:      settings.NamePrefix,
		Name:            instanceName,
		AMI:             defaultString(instanceAMI, settings.AMI),
		InstanceType:    defaultString(instanceType, settings.InstanceType),
		KeyName:         keyName,
		PublicKey:       publicKey,
		SubnetID:        subnetID,
		SecurityGroupID: sgID,
	})
	return runPipeline(ctx, provider, specs)
}
