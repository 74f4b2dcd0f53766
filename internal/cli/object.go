package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackrig-io/stackrig/internal/logging"
	"github.com/stackrig-io/stackrig/internal/resource"
	"github.com/stackrig-io/stackrig/internal/stacks"
)

var objectCmd = &cobra.Command{
	Use:   "object",
	Short: "Upload or download bucket objects",
}

var (
	putBucket      string
	putKey         string
	putFile        string
	putContentType string
)

var objectPutCmd = &cobra.Command{
	Use:   "put",
	Short: "Upload one object",
	Long: `Uploads a file to the bucket. Without --file a small timestamped CSV
sample is generated and uploaded.`,
	RunE: runObjectPut,
}

var (
	getBucket string
	getKey    string
	getFile   string
)

var objectGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Download one object",
	Long:  `Downloads an object and prints it, or writes it to --file.`,
	RunE:  runObjectGet,
}

func init() {
	objectCmd.AddCommand(objectPutCmd)
	objectCmd.AddCommand(objectGetCmd)

	objectPutCmd.Flags().StringVar(&putBucket, "bucket", "", "Target bucket")
	objectPutCmd.MarkFlagRequired("bucket")
	objectPutCmd.Flags().StringVar(&putKey, "key", "sample-data.csv", "Object key")
	objectPutCmd.Flags().StringVar(&putFile, "file", "", "File to upload (default: generated sample CSV)")
	objectPutCmd.Flags().StringVar(&putContentType, "content-type", "text/csv", "Content type of the object")

	objectGetCmd.Flags().StringVar(&getBucket, "bucket", "", "Source bucket")
	objectGetCmd.MarkFlagRequired("bucket")
	objectGetCmd.Flags().StringVar(&getKey, "key", "sample-data.csv", "Object key")
	objectGetCmd.Flags().StringVar(&getFile, "file", "", "Write the object here instead of stdout")
}

func runObjectPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	body := stacks.SampleCSV()
	if putFile != "" {
		raw, err := os.ReadFile(putFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", putFile, err)
		}
		body = raw
	}

	provider, err := newProvider(ctx)
	if err != nil {
		return err
	}

	specs := []resource.Spec{
		{
			Step: "object",
			Kind: resource.BucketObject,
			Key:  putBucket + "/" + putKey,
			Props: map[string]any{
				"body":        string(body),
				"contentType": putContentType,
			},
		},
	}
	return runPipeline(ctx, provider, specs)
}

func runObjectGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	provider, err := newProvider(ctx)
	if err != nil {
		return err
	}

	body, err := provider.GetObject(ctx, getBucket, getKey)
	if err != nil {
		return err
	}

	if getFile != "" {
		if err := os.WriteFile(getFile, body, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", getFile, err)
		}
		logging.Info("object downloaded", "bucket", getBucket, "key", getKey, "path", getFile)
		return nil
	}
	_, err = os.Stdout.Write(body)
	return err
}
