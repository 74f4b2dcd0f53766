package cloud

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stackrig-io/stackrig/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_FormatsCodeWhenPresent(t *testing.T) {
	err := NewError(resource.DuplicateExists, "InvalidGroup.Duplicate", "group already exists")
	assert.Equal(t, "DuplicateExists: InvalidGroup.Duplicate: group already exists", err.Error())

	err = Errorf(resource.NotFound, "subnet %q not found", "pf1-public-subnet")
	assert.Equal(t, `NotFound: subnet "pf1-public-subnet" not found`, err.Error())
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &Error{Kind: resource.ProviderError, Message: "describe failed", Err: cause}

	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, resource.ErrorKind(""), KindOf(nil))
	assert.Equal(t, resource.Timeout, KindOf(Errorf(resource.Timeout, "gave up")))

	// Classified errors stay classified through wrapping.
	wrapped := fmt.Errorf("ensuring bucket: %w", Errorf(resource.Conflict, "already associated"))
	assert.Equal(t, resource.Conflict, KindOf(wrapped))

	// Anything unclassified is a provider error.
	assert.Equal(t, resource.ProviderError, KindOf(errors.New("boom")))
}

func TestIsKind(t *testing.T) {
	err := Errorf(resource.NotFound, "nothing here")

	assert.True(t, IsKind(err, resource.NotFound))
	assert.False(t, IsKind(err, resource.DuplicateExists))
	assert.False(t, IsKind(nil, resource.NotFound))
}

func TestMemory_CreateEnforcesKeyUniqueness(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Create(ctx, resource.Network, "pf1-vpc", map[string]any{"cidrBlock": "10.0.0.0/16"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = m.Create(ctx, resource.Network, "pf1-vpc", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, resource.DuplicateExists))

	// Same key under a different kind is a different resource.
	_, err = m.Create(ctx, resource.Bucket, "pf1-vpc", nil)
	assert.NoError(t, err)
}

func TestMemory_FindSeededResource(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	seeded := m.Seed(resource.Subnet, "pf1-public-subnet")

	id, err := m.Find(ctx, resource.Subnet, "pf1-public-subnet")
	require.NoError(t, err)
	assert.Equal(t, seeded, id)

	_, err = m.Find(ctx, resource.Subnet, "pf1-private-subnet")
	assert.True(t, IsKind(err, resource.NotFound))
}

func TestMemory_TagAccumulates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Create(ctx, resource.Network, "pf1-vpc", nil)
	require.NoError(t, err)

	require.NoError(t, m.Tag(ctx, resource.Network, id, map[string]string{"Tier": "public"}))
	require.NoError(t, m.Tag(ctx, resource.Network, id, map[string]string{"Owner": "stackrig"}))

	tags := m.TagsOf(resource.Network, "pf1-vpc")
	assert.Equal(t, "public", tags["Tier"])
	assert.Equal(t, "stackrig", tags["Owner"])

	err = m.Tag(ctx, resource.Network, "vpc-missing", map[string]string{"a": "b"})
	assert.True(t, IsKind(err, resource.NotFound))
}

func TestMemory_AvailabilityScript(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Create(ctx, resource.IamInstanceProfile, "pf1-profile", nil)
	require.NoError(t, err)

	m.SetAvailableAfter(id, 2)

	ready, err := m.CheckAvailable(ctx, resource.IamInstanceProfile, id)
	require.NoError(t, err)
	assert.False(t, ready)

	ready, err = m.CheckAvailable(ctx, resource.IamInstanceProfile, id)
	require.NoError(t, err)
	assert.False(t, ready)

	ready, err = m.CheckAvailable(ctx, resource.IamInstanceProfile, id)
	require.NoError(t, err)
	assert.True(t, ready)

	assert.Equal(t, 3, m.CheckCalls(id))
}

func TestMemory_CheckAvailableUnknownIDIsNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.CheckAvailable(context.Background(), resource.NatGateway, "nat-missing")
	assert.True(t, IsKind(err, resource.NotFound))
}
