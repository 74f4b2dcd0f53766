package engine

import (
	"context"
	"time"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/logging"
	"github.com/stackrig-io/stackrig/internal/resource"
)

// WaitPolicy bounds the availability poll that runs after steps which
// request one. Exactly MaxAttempts probes are made. Delay separates
// consecutive probes and grows by Multiplier after each wait when
// Multiplier is above 1.
type WaitPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
}

// DefaultWaitPolicy covers the propagation delay of IAM-style resources:
// two probes thirty seconds apart.
func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		MaxAttempts: 2,
		Delay:       30 * time.Second,
		Multiplier:  1,
	}
}

// WaitAvailable polls until the resource reports available. A NotFound
// probe counts as "not visible yet"; any other probe error aborts the
// wait immediately. When the attempt budget is exhausted the resource is
// declared unavailable with a Timeout error and no further probes are
// made.
func WaitAvailable(ctx context.Context, client cloud.ControlPlaneClient, kind resource.Kind, providerID string, policy WaitPolicy) error {
	if policy.MaxAttempts < 1 {
		policy = DefaultWaitPolicy()
	}

	delay := policy.Delay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		ok, err := client.CheckAvailable(ctx, kind, providerID)
		if err != nil && !cloud.IsKind(err, resource.NotFound) {
			return err
		}
		if ok {
			logging.Debug("resource available", "kind", kind, "id", providerID, "attempt", attempt)
			return nil
		}
		if attempt == policy.MaxAttempts {
			break
		}

		logging.Debug("resource not yet available",
			"kind", kind, "id", providerID, "attempt", attempt, "next_probe_in", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if policy.Multiplier > 1 {
			delay = time.Duration(float64(delay) * policy.Multiplier)
		}
	}

	return cloud.Errorf(resource.Timeout, "%s %q not available after %d attempts",
		kind, providerID, policy.MaxAttempts)
}
