package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackrig-io/stackrig/internal/stacks"
)

var (
	webserviceName      string
	webserviceAMI       string
	webserviceType      string
	webserviceKeyName   string
	webserviceVpcID     string
	webserviceImportKey bool
)

var webserviceCmd = &cobra.Command{
	Use:   "webservice",
	Short: "Deploy the REST test host",
	Long: `Ensures a key pair, a security group opening SSH and HTTP, and an
instance in the subnet tagged Tier=public whose user data installs the
Flask app behind Gunicorn and Nginx. Exactly one public-tier subnet
must exist in the VPC.`,
	RunE: runWebservice,
}

func init() {
	webserviceCmd.Flags().StringVar(&webserviceName, "name", "", "Name tag for the instance (default <prefix>rest-instance)")
	webserviceCmd.Flags().StringVar(&webserviceAMI, "ami", "", "AMI ID (default from configuration)")
	webserviceCmd.Flags().StringVar(&webserviceType, "instance-type", "", "Instance type (default from configuration)")
	webserviceCmd.Flags().StringVar(&webserviceKeyName, "key-name", "", "Key pair name (default <prefix>rest-key)")
	webserviceCmd.Flags().StringVar(&webserviceVpcID, "vpc", "", "VPC ID (default: the VPC named <prefix>vpc)")
	webserviceCmd.Flags().BoolVar(&webserviceImportKey, "import-key", false, "Generate the key pair locally and import its public half")
}

func runWebservice(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	provider, err := newProvider(ctx)
	if err != nil {
		return err
	}

	vpcID, err := resolveVpc(ctx, provider, webserviceVpcID)
	if err != nil {
		return err
	}

	subnetID, err := provider.FindSubnetByTier(ctx, vpcID, "public")
	if err != nil {
		return err
	}

	keyName := webserviceKeyName
	if keyName == "" {
		keyName = settings.NamePrefix + "rest-key"
	}
	publicKey, err := resolveKeyMaterial(webserviceImportKey, keyName)
	if err != nil {
		return err
	}

	specs, err := stacks.Webservice(stacks.WebserviceParams{
		NamePrefix:   settings.NamePrefix,
		Name:         webserviceName,
		AMI:          defaultString(webserviceAMI, settings.AMI),
		InstanceType: defaultString(webserviceType, settings.InstanceType),
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
