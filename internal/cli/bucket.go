package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackrig-io/stackrig/internal/stacks"
)

var bucketName string

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Ensure a bucket exists",
	Long: `Creates the named bucket in the configured region, adopting it when
this account already owns it.`,
	RunE: runBucket,
}

func init() {
	bucketCmd.Flags().StringVar(&bucketName, "name", "", "Globally unique bucket name")
	bucketCmd.MarkFlagRequired("name")
}

func runBucket(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	provider, err := newProvider(ctx)
	if err != nil {
		return err
	}
	return runPipeline(ctx, provider, stacks.Bucket(bucketName, settings.Region))
}
