package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v, err := NewViper("")
	require.NoError(t, err)

	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "eu-central-1", s.Region)
	assert.Equal(t, "pf1-", s.NamePrefix)
	assert.Equal(t, "ami-004e960cde33f9146", s.AMI)
	assert.Equal(t, "t3.micro", s.InstanceType)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "text", s.LogFormat)
	assert.Equal(t, "text", s.Output)
	assert.Equal(t, 2, s.Wait.Attempts)
	assert.Equal(t, 30, s.Wait.DelaySeconds)
	assert.Equal(t, 30*time.Second, s.Wait.Delay())
	assert.Equal(t, 1.0, s.Wait.Multiplier)
	assert.Equal(t, 30*time.Minute, s.Timeout)
}

func TestLoad_TimeoutParsesDurations(t *testing.T) {
	t.Setenv("STACKRIG_TIMEOUT", "5m")

	v, err := NewViper("")
	require.NoError(t, err)

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.Timeout)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "stackrig.yaml")
	content := `region: us-west-2
name_prefix: team9-
wait:
  attempts: 5
  delay_seconds: 10
  multiplier: 2
`
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o644))

	v, err := NewViper(cfg)
	require.NoError(t, err)

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", s.Region)
	assert.Equal(t, "team9-", s.NamePrefix)
	assert.Equal(t, 5, s.Wait.Attempts)
	assert.Equal(t, 10*time.Second, s.Wait.Delay())
	assert.Equal(t, 2.0, s.Wait.Multiplier)
	// Keys the file does not set keep their defaults.
	assert.Equal(t, "t3.micro", s.InstanceType)
}

func TestNewViper_MissingExplicitFileIsAnError(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("STACKRIG_REGION", "eu-west-1")
	t.Setenv("STACKRIG_WAIT_ATTEMPTS", "7")

	v, err := NewViper("")
	require.NoError(t, err)

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", s.Region)
	assert.Equal(t, 7, s.Wait.Attempts)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	v, err := NewViper("")
	require.NoError(t, err)

	s, err := Load(v)
	require.NoError(t, err)

	s.AMI = "not-an-ami"
	err = Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Settings.AMI")
	assert.Contains(t, err.Error(), "startswith")

	s, _ = Load(v)
	s.LogLevel = "verbose"
	err = Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Settings.LogLevel")

	s, _ = Load(v)
	s.Wait.Attempts = 0
	err = Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Settings.Wait.Attempts")
}

func TestValidate_StaticCredentialsComeInPairs(t *testing.T) {
	v, err := NewViper("")
	require.NoError(t, err)

	s, err := Load(v)
	require.NoError(t, err)

	s.AccessKeyID = "AKIAEXAMPLE"
	err = Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SecretAccessKey")

	s.SecretAccessKey = "secret"
	assert.NoError(t, Validate(s))

	// The session token alone never forces the pair.
	s, _ = Load(v)
	s.SessionToken = "token"
	assert.NoError(t, Validate(s))
}
