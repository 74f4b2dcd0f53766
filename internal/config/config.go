// Package config resolves runtime settings from defaults, an optional
// config file, STACKRIG_* environment variables, and bound CLI flags, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. STACKRIG_REGION.
const EnvPrefix = "STACKRIG"

const (
	DefaultRegion           = "eu-central-1"
	DefaultNamePrefix       = "pf1-"
	DefaultAMI              = "ami-004e960cde33f9146"
	DefaultInstanceType     = "t3.micro"
	DefaultSchedulerType    = "t3.medium"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultOutput           = "text"
	DefaultWaitAttempts     = 2
	DefaultWaitDelaySeconds = 30
	DefaultTimeout          = 30 * time.Minute
)

// Settings is the effective configuration for one command invocation.
type Settings struct {
	Region       string `mapstructure:"region" validate:"required"`
	NamePrefix   string `mapstructure:"name_prefix" validate:"required"`
	AMI          string `mapstructure:"ami" validate:"required,startswith=ami-"`
	InstanceType string `mapstructure:"instance_type" validate:"required"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`
	Output    string `mapstructure:"output" validate:"oneof=text json"`

	// Timeout bounds one whole command invocation. Zero disables the
	// bound.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`

	// Static credentials override the SDK's default chain when set.
	// Both halves are required together.
	AccessKeyID     string `mapstructure:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`
	SessionToken    string `mapstructure:"session_token"`

	Wait WaitSettings `mapstructure:"wait"`
}

// WaitSettings bounds the availability poll. Attempts is the exact number
// of probes; DelaySeconds separates consecutive probes and grows by
// Multiplier when it is above 1.
type WaitSettings struct {
	Attempts     int     `mapstructure:"attempts" validate:"gte=1,lte=60"`
	DelaySeconds int     `mapstructure:"delay_seconds" validate:"gte=1,lte=600"`
	Multiplier   float64 `mapstructure:"multiplier" validate:"gte=1,lte=10"`
}

func (w WaitSettings) Delay() time.Duration {
	return time.Duration(w.DelaySeconds) * time.Second
}

// NewViper builds the viper instance commands bind their flags into.
// When cfgFile is empty a stackrig.yaml in the working directory is used
// if present; a missing search-path file is not an error, a missing
// explicit file is.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("region", DefaultRegion)
	v.SetDefault("name_prefix", DefaultNamePrefix)
	v.SetDefault("ami", DefaultAMI)
	v.SetDefault("instance_type", DefaultInstanceType)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("access_key_id", "")
	v.SetDefault("secret_access_key", "")
	v.SetDefault("session_token", "")
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("wait.attempts", DefaultWaitAttempts)
	v.SetDefault("wait.delay_seconds", DefaultWaitDelaySeconds)
	v.SetDefault("wait.multiplier", 1.0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
		return v, nil
	}

	v.SetConfigName("stackrig")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return v, nil
}

// Load unmarshals the effective settings and validates them.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := Validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks settings against their struct constraints and renders
// violations as a single message naming each offending field.
func Validate(s Settings) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("invalid configuration: %w", err)
}
