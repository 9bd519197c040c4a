package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration, built once at startup and
// passed by reference into the components that need it.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Engine EngineConfig `mapstructure:"engine"`
	Audit  AuditConfig  `mapstructure:"audit"`
	AWS    AWSConfig    `mapstructure:"aws"`
	Rules  RulesConfig  `mapstructure:"rules"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type EngineConfig struct {
	ObserveAttempts     uint          `mapstructure:"observe_attempts"`
	ObserveDelay        time.Duration `mapstructure:"observe_delay"`
	RemediationAttempts uint          `mapstructure:"remediation_attempts"`
	RemediationDelay    time.Duration `mapstructure:"remediation_delay"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
}

type AuditConfig struct {
	DbPath        string        `mapstructure:"db_path"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	MaxBacklog    int           `mapstructure:"max_backlog"`
}

// AWSConfig selects the provider account. Provider is "aws" in normal
// operation; "memory" swaps in the in-memory provider for demos and
// local development.
type AWSConfig struct {
	Provider        string `mapstructure:"provider"`
	Profile         string `mapstructure:"profile"`
	Region          string `mapstructure:"region"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type RulesConfig struct {
	RequiredPolicyArns []string `mapstructure:"required_policy_arns"`
	ExemptRoles        []string `mapstructure:"exempt_roles"`
	ExemptUsers        []string `mapstructure:"exempt_users"`
}

// Load merges the config file (when present), environment variables and
// defaults. ENV keys override file keys: ENGINE_SWEEP_INTERVAL=1m
// overrides engine.sweep_interval.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("warden")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && path != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No file is fine: ENV and defaults carry the day.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "localhost:8090")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("engine.observe_attempts", 3)
	v.SetDefault("engine.observe_delay", 500*time.Millisecond)
	v.SetDefault("engine.remediation_attempts", 3)
	v.SetDefault("engine.remediation_delay", time.Second)
	v.SetDefault("engine.sweep_interval", 15*time.Minute)
	v.SetDefault("audit.db_path", "cloud-warden.db")
	v.SetDefault("audit.flush_interval", 30*time.Second)
	v.SetDefault("audit.max_backlog", 1000)
	v.SetDefault("aws.provider", "aws")
	v.SetDefault("aws.region", "us-east-1")
}
