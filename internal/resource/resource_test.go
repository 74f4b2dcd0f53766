package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_RoundTrip(t *testing.T) {
	ref := Ref("network")
	assert.Equal(t, "ref://network", ref)

	step, ok := ParseRef(ref)
	require.True(t, ok)
	assert.Equal(t, "network", step)
}

func TestParseRef_RejectsNonRefs(t *testing.T) {
	_, ok := ParseRef("vpc-0a1b2c")
	assert.False(t, ok)

	// The bare prefix names no step.
	_, ok = ParseRef("ref://")
	assert.False(t, ok)

	_, ok = ParseRef("")
	assert.False(t, ok)
}

func TestSpec_OutcomeConstructors(t *testing.T) {
	spec := Spec{Step: "network", Kind: Network, Key: "pf1-vpc"}

	created := spec.Created("vpc-111")
	assert.Equal(t, StatusCreated, created.Status)
	assert.Equal(t, "vpc-111", created.Handle.ProviderID)
	assert.True(t, created.Handle.Created)

	reused := spec.Reused("vpc-222")
	assert.Equal(t, StatusReused, reused.Status)
	assert.Equal(t, "vpc-222", reused.Handle.ProviderID)
	assert.False(t, reused.Handle.Created)

	failed := spec.Failed(Timeout, errors.New("probe budget exhausted"))
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, Timeout, failed.ErrKind)
	assert.Equal(t, "probe budget exhausted", failed.Detail)
}

func TestRun_HandleSkipsWarnedAndFailed(t *testing.T) {
	run := &Run{}
	run.Append(Outcome{Step: "a", Status: StatusCreated, Handle: Handle{ProviderID: "id-a", Created: true}})
	run.Append(Outcome{Step: "b", Status: StatusWarned})
	run.Append(Outcome{Step: "c", Status: StatusReused, Handle: Handle{ProviderID: "id-c"}})
	run.Append(Outcome{Step: "d", Status: StatusFailed})

	h, ok := run.Handle("a")
	require.True(t, ok)
	assert.Equal(t, "id-a", h.ProviderID)

	h, ok = run.Handle("c")
	require.True(t, ok)
	assert.Equal(t, "id-c", h.ProviderID)

	// A warned step completed but produced no receipt to reference.
	_, ok = run.Handle("b")
	assert.False(t, ok)

	_, ok = run.Handle("d")
	assert.False(t, ok)

	_, ok = run.Handle("absent")
	assert.False(t, ok)
}

func TestRun_CompletedCountsWarned(t *testing.T) {
	run := &Run{}
	run.Append(Outcome{Step: "a", Status: StatusCreated})
	run.Append(Outcome{Step: "b", Status: StatusWarned})
	run.Append(Outcome{Step: "c", Status: StatusFailed})

	assert.True(t, run.Completed("a"))
	assert.True(t, run.Completed("b"))
	assert.False(t, run.Completed("c"))
	assert.False(t, run.Completed("absent"))
}

func TestRun_ErrNamesTheFatalStep(t *testing.T) {
	run := &Run{}
	run.Append(Outcome{Step: "bucket", Kind: Bucket, Key: "deploy-dag-1a2b", Status: StatusCreated})
	run.Append(Outcome{
		Step:    "instance",
		Kind:    ComputeInstance,
		Key:     "pf1-ec2",
		Status:  StatusFailed,
		ErrKind: ProviderError,
		Detail:  "ProviderError: InsufficientInstanceCapacity: no capacity",
	})

	require.True(t, run.Failed())
	err := run.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step instance (ComputeInstance "pf1-ec2")`)
	assert.Contains(t, err.Error(), "InsufficientInstanceCapacity")
}

func TestRun_ErrNilWhenNoFatalOutcome(t *testing.T) {
	run := &Run{}
	run.Append(Outcome{Step: "a", Status: StatusCreated})
	run.Append(Outcome{Step: "b", Status: StatusWarned})

	assert.False(t, run.Failed())
	assert.NoError(t, run.Err())
}

func TestRun_Count(t *testing.T) {
	run := &Run{}
	run.Append(Outcome{Step: "a", Status: StatusCreated})
	run.Append(Outcome{Step: "b", Status: StatusCreated})
	run.Append(Outcome{Step: "c", Status: StatusReused})
	run.Append(Outcome{Step: "d", Status: StatusWarned})

	assert.Equal(t, 2, run.Count(StatusCreated))
	assert.Equal(t, 1, run.Count(StatusReused))
	assert.Equal(t, 1, run.Count(StatusWarned))
	assert.Equal(t, 0, run.Count(StatusFailed))
}
