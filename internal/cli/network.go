package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackrig-io/stackrig/internal/stacks"
)

var (
	networkCidr        string
	networkPublicCidr  string
	networkPrivateCidr string
	networkAZ          string
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Ensure the base network exists",
	Long: `Builds the VPC with DNS enabled, an attached internet gateway, one
public and one private subnet in the same availability zone, a NAT
gateway for private egress, and a route table per subnet. Re-running
adopts everything that already exists.`,
	RunE: runNetwork,
}

func init() {
	networkCmd.Flags().StringVar(&networkCidr, "cidr", "10.0.0.0/16", "VPC CIDR block")
	networkCmd.Flags().StringVar(&networkPublicCidr, "public-cidr", "10.0.1.0/24", "Public subnet CIDR block")
	networkCmd.Flags().StringVar(&networkPrivateCidr, "private-cidr", "10.0.2.0/24", "Private subnet CIDR block")
	networkCmd.Flags().StringVar(&networkAZ, "availability-zone", "", "Availability zone for both subnets (default <region>a)")
}

func runNetwork(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	provider, err := newProvider(ctx)
	if err != nil {
		return err
	}

	specs := stacks.Network(stacks.NetworkParams{
		NamePrefix:        settings.NamePrefix,
		Region:            settings.Region,
		CidrBlock:         networkCidr,
		PublicSubnetCidr:  networkPublicCidr,
		PrivateSubnetCidr: networkPrivateCidr,
		AvailabilityZone:  networkAZ,
	})
	return runPipeline(ctx, provider, specs)
}
