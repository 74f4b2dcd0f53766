package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackrig-io/stackrig/internal/stacks"
)

var (
	grantInstanceID  string
	grantBucket      string
	grantRoleName    string
	grantProfileName string
)

var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant an instance access to a bucket",
	Long: `Creates or reuses an IAM role with read/write access to the bucket,
wraps it in an instance profile, waits for the profile to become
visible, and associates it with the running instance. An instance that
already carries a profile is left untouched.`,
	RunE: runGrant,
}

func init() {
	grantCmd.Flags().StringVar(&grantInstanceID, "instance-id", "", "Target instance ID")
	grantCmd.MarkFlagRequired("instance-id")
	grantCmd.Flags().StringVar(&grantBucket, "bucket", "", "Bucket the instance gets access to")
	grantCmd.MarkFlagRequired("bucket")
	grantCmd.Flags().StringVar(&grantRoleName, "role-name", "", "IAM role name (default <prefix>ec2-s3-role)")
	grantCmd.Flags().StringVar(&grantProfileName, "profile-name", "", "Instance profile name (default <prefix>ec2-s3-profile)")
}

func runGrant(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	provider, err := newProvider(ctx)
	if err != nil {
		return err
	}

	specs := stacks.Grant(stacks.GrantParams{
		NamePrefix:  settings.NamePrefix,
		InstanceID:  grantInstanceID,
		Bucket:      grantBucket,
		RoleName:    grantRoleName,
		ProfileName: grantProfileName,
	})
	return runPipeline(ctx, provider, specs)
}
