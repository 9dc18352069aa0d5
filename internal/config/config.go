// Package config loads relaunchd settings. Environment variables override
// the YAML file, which overrides the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/psantana5/relaunch/pkg/relaunch"
)

// EnvPrefix prefixes every environment override, e.g. RELAUNCHD_SERVER_ADDR.
const EnvPrefix = "RELAUNCHD"

// Argument and environment policies accepted under relaunch.args / relaunch.env.
const (
	ArgsNone     = "none"
	ArgsInherit  = "inherit"
	ArgsExplicit = "explicit"

	EnvInherit = "inherit"
	EnvClean   = "clean"
)

// Config is the full relaunchd configuration
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Relaunch RelaunchConfig `mapstructure:"relaunch" yaml:"relaunch"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
	File  bool   `mapstructure:"file" yaml:"file"`
}

// RelaunchConfig is the launch policy for the new instance
type RelaunchConfig struct {
	Args          string        `mapstructure:"args" yaml:"args"`
	ExtraArgs     []string      `mapstructure:"extra_args" yaml:"extra_args"`
	Env           string        `mapstructure:"env" yaml:"env"`
	ExtraEnv      []string      `mapstructure:"extra_env" yaml:"extra_env"`
	Stdio         bool          `mapstructure:"stdio" yaml:"stdio"`
	Dir           string        `mapstructure:"dir" yaml:"dir,omitempty"`
	ConfirmWithin time.Duration `mapstructure:"confirm_within" yaml:"confirm_within"`
}

type ServerConfig struct {
	Addr             string        `mapstructure:"addr" yaml:"addr"`
	RestartTokenHash string        `mapstructure:"restart_token_hash" yaml:"restart_token_hash"`
	RateLimitRPS     float64       `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst   int           `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	ExitAfterRestart bool          `mapstructure:"exit_after_restart" yaml:"exit_after_restart"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	BindRetries      int           `mapstructure:"bind_retries" yaml:"bind_retries"`

	// TLSCert and TLSKey switch the listener to HTTPS. TLSClientCA also
	// requires client certificates.
	TLSCert     string `mapstructure:"tls_cert" yaml:"tls_cert,omitempty"`
	TLSKey      string `mapstructure:"tls_key" yaml:"tls_key,omitempty"`
	TLSClientCA string `mapstructure:"tls_client_ca" yaml:"tls_client_ca,omitempty"`
}

// TLSEnabled reports whether the server should serve HTTPS
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCert != "" && s.TLSKey != ""
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// SetDefaults registers every default on v. Every key must have one so
// that environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", false)

	v.SetDefault("relaunch.args", ArgsInherit)
	v.SetDefault("relaunch.extra_args", []string{})
	v.SetDefault("relaunch.env", EnvInherit)
	v.SetDefault("relaunch.extra_env", []string{})
	v.SetDefault("relaunch.stdio", true)
	v.SetDefault("relaunch.dir", "")
	v.SetDefault("relaunch.confirm_within", 0*time.Second)

	v.SetDefault("server.addr", ":8089")
	v.SetDefault("server.restart_token_hash", "")
	v.SetDefault("server.rate_limit_rps", 0.2)
	v.SetDefault("server.rate_limit_burst", 1)
	v.SetDefault("server.exit_after_restart", true)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.bind_retries", 5)
	v.SetDefault("server.tls_cert", "")
	v.SetDefault("server.tls_key", "")
	v.SetDefault("server.tls_client_ca", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "relaunchd")
	v.SetDefault("tracing.environment", "development")
}

// DefaultPath returns $HOME/.relaunchd/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".relaunchd", "config.yaml"), nil
}

// Load reads cfgFile, or the default path when cfgFile is empty. A missing
// default file is not an error; a missing explicit file is.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	} else if path, err := DefaultPath(); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the host cannot act on
func (c *Config) Validate() error {
	var errs []error

	switch c.Relaunch.Args {
	case ArgsNone, ArgsInherit, ArgsExplicit:
	default:
		errs = append(errs, fmt.Errorf("relaunch.args: unknown policy %q (want none, inherit or explicit)", c.Relaunch.Args))
	}
	switch c.Relaunch.Env {
	case EnvInherit, EnvClean:
	default:
		errs = append(errs, fmt.Errorf("relaunch.env: unknown policy %q (want inherit or clean)", c.Relaunch.Env))
	}
	for _, kv := range c.Relaunch.ExtraEnv {
		if !strings.Contains(kv, "=") {
			errs = append(errs, fmt.Errorf("relaunch.extra_env: %q is not KEY=VALUE", kv))
		}
	}
	if c.Relaunch.ConfirmWithin < 0 {
		errs = append(errs, errors.New("relaunch.confirm_within must not be negative"))
	}
	if c.Server.RateLimitBurst < 1 {
		errs = append(errs, errors.New("server.rate_limit_burst must be at least 1"))
	}
	if c.Server.BindRetries < 0 {
		errs = append(errs, errors.New("server.bind_retries must not be negative"))
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		errs = append(errs, errors.New("server.tls_cert and server.tls_key must be set together"))
	}
	if c.Server.TLSClientCA != "" && !c.Server.TLSEnabled() {
		errs = append(errs, errors.New("server.tls_client_ca requires server.tls_cert and server.tls_key"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// RelaunchOptions translates the launch policy into relaunch options.
// Extra args are appended after inherited ones under the inherit policy.
func (c *Config) RelaunchOptions() []relaunch.Option {
	rc := c.Relaunch
	var opts []relaunch.Option

	switch rc.Args {
	case ArgsInherit:
		if len(rc.ExtraArgs) > 0 {
			args := append([]string(nil), os.Args[1:]...)
			opts = append(opts, relaunch.WithArgs(append(args, rc.ExtraArgs...)...))
		} else {
			opts = append(opts, relaunch.WithInheritedArgs())
		}
	case ArgsExplicit:
		opts = append(opts, relaunch.WithArgs(rc.ExtraArgs...))
	}

	if rc.Env == EnvClean {
		opts = append(opts, relaunch.WithEnv(rc.ExtraEnv))
	} else if len(rc.ExtraEnv) > 0 {
		opts = append(opts, relaunch.WithExtraEnv(rc.ExtraEnv...))
	}

	if !rc.Stdio {
		opts = append(opts, relaunch.WithoutStdio())
	}
	if rc.Dir != "" {
		opts = append(opts, relaunch.WithDir(rc.Dir))
	}
	return opts
}
