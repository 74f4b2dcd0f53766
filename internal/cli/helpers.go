package cli

import (
	"context"
	"os"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/engine"
	"github.com/stackrig-io/stackrig/internal/keygen"
	"github.com/stackrig-io/stackrig/internal/logging"
	"github.com/stackrig-io/stackrig/internal/resource"
	"github.com/stackrig-io/stackrig/internal/stacks"
	"github.com/stackrig-io/stackrig/providers/aws"
)

// newProvider builds the AWS provider for the effective settings and
// verifies the credentials up front so a pipeline never starts half
// authorized. Generated private keys land as <name>.pem in the working
// directory.
func newProvider(ctx context.Context) (*aws.Provider, error) {
	opts := []aws.Option{
		aws.WithKeyMaterialSink(stacks.PEMSink(".")),
	}
	if settings.AccessKeyID != "" {
		opts = append(opts, aws.WithStaticCredentials(
			settings.AccessKeyID, settings.SecretAccessKey, settings.SessionToken))
	}

	provider, err := aws.New(ctx, settings.Region, opts...)
	if err != nil {
		return nil, err
	}

	account, arn, err := provider.CallerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	logging.Debug("aws credentials resolved", "account", account, "caller", arn)
	return provider, nil
}

// runPipeline executes the specs, prints the report, and surfaces the
// fatal outcome, if any, as the command error.
func runPipeline(ctx context.Context, client cloud.ControlPlaneClient, specs []resource.Spec) error {
	pipe := engine.New(client, engine.WithWaitPolicy(engine.WaitPolicy{
		MaxAttempts: settings.Wait.Attempts,
		Delay:       settings.Wait.Delay(),
		Multiplier:  settings.Wait.Multiplier,
	}))

	run := pipe.Run(ctx, specs)
	appendHistory(activeCommand, run)
	if err := renderRun(os.Stdout, run, settings.Output); err != nil {
		return err
	}
	return run.Err()
}

// resolveVpc returns the explicit VPC ID or finds the stack's VPC by its
// prefixed name.
func resolveVpc(ctx context.Context, provider *aws.Provider, vpcID string) (string, error) {
	if vpcID != "" {
		return vpcID, nil
	}
	return provider.Find(ctx, resource.Network, settings.NamePrefix+"vpc")
}

// resolveKeyMaterial generates a key pair locally when importing was
// requested, writes the private half as <keyName>.pem, and returns the
// public half for the key pair step. Without import the control plane
// generates the pair and the provider's sink persists it.
func resolveKeyMaterial(importKey bool, keyName string) (string, error) {
	if !importKey {
		return "", nil
	}
	pair, err := keygen.GenerateRSA(keygen.DefaultBits)
	if err != nil {
		return "", err
	}
	path := keyName + ".pem"
	if err := stacks.WritePrivateKey(path, pair.PrivateKeyPEM); err != nil {
		return "", err
	}
	logging.Info("generated key pair locally", "key", keyName, "path", path)
	return string(pair.AuthorizedKey), nil
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
