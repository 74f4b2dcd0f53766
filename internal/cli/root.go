package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackrig-io/stackrig/internal/config"
	"github.com/stackrig-io/stackrig/internal/logging"
)

var (
	cfgFile       string
	flagRegion    string
	flagPrefix    string
	flagLogLevel  string
	flagLogFormat string
	flagOutput    string
	flagTimeout   time.Duration
)

// settings carries the effective configuration for the invoked command,
// resolved by the root command before any RunE fires.
var settings config.Settings

// activeCommand names the command being executed, for the run history.
var activeCommand string

// cancelTimeout releases the command-wide deadline once the command is
// done.
var cancelTimeout context.CancelFunc

var rootCmd = &cobra.Command{
	Use:   "stackrig",
	Short: "Idempotent AWS deployment pipelines",
	Long: `Stackrig provisions small AWS deployments as ordered, idempotent
pipelines: every resource is ensured to exist, re-runs adopt what a
previous run created, and the first unrecoverable step stops the run.

Stacks provided:
  • network — VPC, subnets, gateways, and routing
  • instance / webservice / scheduler — EC2 hosts with their key pairs,
    security groups, and IAM wiring
  • bucket / object / grant — S3 storage and instance access to it`,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cancelTimeout != nil {
			cancelTimeout()
		}
	},
}

// The pre-run hook is attached in init rather than in the composite
// literal: its body reaches initializeConfig, which reads rootCmd, and
// that reference inside the literal is an initialization cycle.
func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		activeCommand = cmd.Name()
		if err := initializeConfig(); err != nil {
			return err
		}
		if settings.Timeout > 0 {
			ctx, cancel := context.WithTimeout(cmd.Context(), settings.Timeout)
			cancelTimeout = cancel
			cmd.SetContext(ctx)
		}
		return nil
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default is stackrig.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "AWS region")
	rootCmd.PersistentFlags().StringVar(&flagPrefix, "name-prefix", "", "Prefix for every identifying resource name")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "", "Report format (text, json)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "Overall command timeout (default 30m; 0 disables)")

	rootCmd.AddCommand(networkCmd)
	rootCmd.AddCommand(instanceCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(webserviceCmd)
	rootCmd.AddCommand(bucketCmd)
	rootCmd.AddCommand(objectCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeConfig resolves settings from defaults, the optional config
// file, STACKRIG_* environment variables, and any flags the user set,
// then brings up logging. Flags win over everything else.
func initializeConfig() error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}

	flags := rootCmd.PersistentFlags()
	v.BindPFlag("region", flags.Lookup("region"))
	v.BindPFlag("name_prefix", flags.Lookup("name-prefix"))
	v.BindPFlag("log_level", flags.Lookup("log-level"))
	v.BindPFlag("log_format", flags.Lookup("log-format"))
	v.BindPFlag("output", flags.Lookup("output"))
	v.BindPFlag("timeout", flags.Lookup("timeout"))

	settings, err = config.Load(v)
	if err != nil {
		return err
	}

	logging.Init(settings.LogLevel, settings.LogFormat)
	return nil
}
