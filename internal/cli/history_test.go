package cli

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stackrig-io/stackrig/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir, which needs a newer toolchain than the
// one this module builds with.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestAppendHistory_RecordsOneLinePerRun(t *testing.T) {
	chdir(t, t.TempDir())

	appendHistory("network", testRun())
	appendHistory("network", testRun())

	data, err := os.ReadFile(historyPath())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry historyEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "network", entry.Command)
	assert.NotEmpty(t, entry.Timestamp)
	assert.NotEmpty(t, entry.User)
	assert.Equal(t, 1, entry.Summary["created"])
	assert.Equal(t, 1, entry.Summary["reused"])
	require.Len(t, entry.Steps, 3)
	assert.Equal(t, "vpc-0a1b2c", entry.Steps[0].ID)
	// Successful runs carry no error.
	assert.Empty(t, entry.Error)
}

func TestAppendHistory_CapturesFatalOutcome(t *testing.T) {
	chdir(t, t.TempDir())

	run := &resource.Run{}
	run.Append(resource.Outcome{
		Step: "instance", Kind: resource.ComputeInstance, Key: "pf1-ec2",
		Status:  resource.StatusFailed,
		ErrKind: resource.ProviderError,
		Detail:  "ProviderError: UnauthorizedOperation: not allowed",
	})

	appendHistory("instance", run)

	data, err := os.ReadFile(historyPath())
	require.NoError(t, err)

	var entry historyEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, 1, entry.Summary["failed"])
	assert.Contains(t, entry.Error, "UnauthorizedOperation")
}
