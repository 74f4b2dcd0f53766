package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitAvailable_ReturnsOnFirstReadyProbe(t *testing.T) {
	m := cloud.NewMemory()
	ctx := context.Background()

	id := m.Seed(resource.NatGateway, "pf1-nat-1")

	policy := WaitPolicy{MaxAttempts: 5, Delay: time.Millisecond, Multiplier: 1}
	err := WaitAvailable(ctx, m, resource.NatGateway, id, policy)

	require.NoError(t, err)
	assert.Equal(t, 1, m.CheckCalls(id))
}

func TestWaitAvailable_ExhaustsExactlyMaxAttempts(t *testing.T) {
	m := cloud.NewMemory()
	ctx := context.Background()

	id := m.Seed(resource.IamInstanceProfile, "pf1-profile")
	m.SetNeverAvailable(id)

	policy := WaitPolicy{MaxAttempts: 3, Delay: time.Millisecond, Multiplier: 1}
	err := WaitAvailable(ctx, m, resource.IamInstanceProfile, id, policy)

	require.Error(t, err)
	assert.True(t, cloud.IsKind(err, resource.Timeout))
	assert.Contains(t, err.Error(), "not available after 3 attempts")
	// No probe beyond the budget, and no trailing sleep either.
	assert.Equal(t, 3, m.CheckCalls(id))
}

func TestWaitAvailable_SucceedsMidBudget(t *testing.T) {
	m := cloud.NewMemory()
	ctx := context.Background()

	id := m.Seed(resource.ComputeInstance, "pf1-ec2")
	m.SetAvailableAfter(id, 2)

	policy := WaitPolicy{MaxAttempts: 4, Delay: time.Millisecond, Multiplier: 1}
	err := WaitAvailable(ctx, m, resource.ComputeInstance, id, policy)

	require.NoError(t, err)
	assert.Equal(t, 3, m.CheckCalls(id))
}

func TestWaitAvailable_NotFoundProbeMeansNotVisibleYet(t *testing.T) {
	m := cloud.NewMemory()
	ctx := context.Background()

	// The ID does not resolve at all: IAM reads propagate slowly enough
	// that a freshly created profile can be invisible to GetInstanceProfile.
	policy := WaitPolicy{MaxAttempts: 2, Delay: time.Millisecond, Multiplier: 1}
	err := WaitAvailable(ctx, m, resource.IamInstanceProfile, "profile-not-yet-visible", policy)

	require.Error(t, err)
	// Exhaustion reports Timeout, not the NotFound the probes saw.
	assert.True(t, cloud.IsKind(err, resource.Timeout))
	assert.Equal(t, 2, m.CheckCalls("profile-not-yet-visible"))
}

type failingChecker struct {
	cloud.ControlPlaneClient
	err    error
	probes int
}

func (f *failingChecker) CheckAvailable(ctx context.Context, kind resource.Kind, providerID string) (bool, error) {
	f.probes++
	return false, f.err
}

func TestWaitAvailable_NonNotFoundProbeErrorAborts(t *testing.T) {
	probe := cloud.NewError(resource.ProviderError, "RequestLimitExceeded", "throttled")
	client := &failingChecker{ControlPlaneClient: cloud.NewMemory(), err: probe}

	policy := WaitPolicy{MaxAttempts: 5, Delay: time.Millisecond, Multiplier: 1}
	err := WaitAvailable(context.Background(), client, resource.NatGateway, "nat-123", policy)

	require.Error(t, err)
	assert.True(t, cloud.IsKind(err, resource.ProviderError))
	assert.Equal(t, 1, client.probes)
}

func TestWaitAvailable_ZeroPolicyFallsBackToDefault(t *testing.T) {
	m := cloud.NewMemory()
	id := m.Seed(resource.Bucket, "deploy-dag-1a2b")

	// MaxAttempts 0 would otherwise probe nothing and hang callers that
	// rely on at least one check.
	err := WaitAvailable(context.Background(), m, resource.Bucket, id, WaitPolicy{})

	require.NoError(t, err)
	assert.Equal(t, 1, m.CheckCalls(id))
}

func TestWaitAvailable_CancelledContextStopsBetweenProbes(t *testing.T) {
	m := cloud.NewMemory()
	id := m.Seed(resource.NatGateway, "pf1-nat-1")
	m.SetNeverAvailable(id)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := WaitPolicy{MaxAttempts: 3, Delay: time.Hour, Multiplier: 1}
	err := WaitAvailable(ctx, m, resource.NatGateway, id, policy)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, m.CheckCalls(id))
}

func TestDefaultWaitPolicy(t *testing.T) {
	p := DefaultWaitPolicy()
	assert.Equal(t, 2, p.MaxAttempts)
	assert.Equal(t, 30*time.Second, p.Delay)
	assert.Equal(t, 1.0, p.Multiplier)
}
