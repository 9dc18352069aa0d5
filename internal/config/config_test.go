package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ArgsInherit, cfg.Relaunch.Args)
	assert.Equal(t, EnvInherit, cfg.Relaunch.Env)
	assert.True(t, cfg.Relaunch.Stdio)
	assert.Zero(t, cfg.Relaunch.ConfirmWithin)
	assert.Equal(t, ":8089", cfg.Server.Addr)
	assert.Equal(t, 0.2, cfg.Server.RateLimitRPS)
	assert.Equal(t, 1, cfg.Server.RateLimitBurst)
	assert.True(t, cfg.Server.ExitAfterRestart)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 5, cfg.Server.BindRetries)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "relaunchd", cfg.Tracing.ServiceName)
}

func TestLoadDefaultPath(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, ".relaunchd")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  addr: \":9000\"\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoadFile(t *testing.T) {
	isolateHome(t)
	path := writeConfig(t, `
log:
  level: debug
  json: true
relaunch:
  args: explicit
  extra_args: ["serve", "--port", "9000"]
  env: clean
  extra_env: ["PATH=/usr/bin"]
  stdio: false
  confirm_within: 2s
server:
  exit_after_restart: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, ArgsExplicit, cfg.Relaunch.Args)
	assert.Equal(t, []string{"serve", "--port", "9000"}, cfg.Relaunch.ExtraArgs)
	assert.Equal(t, EnvClean, cfg.Relaunch.Env)
	assert.False(t, cfg.Relaunch.Stdio)
	assert.Equal(t, 2*time.Second, cfg.Relaunch.ConfirmWithin)
	assert.False(t, cfg.Server.ExitAfterRestart)
	assert.Equal(t, ":8089", cfg.Server.Addr, "unset keys keep defaults")

	assert.Len(t, cfg.RelaunchOptions(), 3)
}

func TestEnvOverridesFile(t *testing.T) {
	isolateHome(t)
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")

	t.Setenv("RELAUNCHD_SERVER_ADDR", ":9100")
	t.Setenv("RELAUNCHD_SERVER_EXIT_AFTER_RESTART", "false")
	t.Setenv("RELAUNCHD_RELAUNCH_CONFIRM_WITHIN", "500ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.False(t, cfg.Server.ExitAfterRestart)
	assert.Equal(t, 500*time.Millisecond, cfg.Relaunch.ConfirmWithin)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolateHome(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown args", func(c *Config) { c.Relaunch.Args = "all" }, "relaunch.args"},
		{"unknown env", func(c *Config) { c.Relaunch.Env = "merge" }, "relaunch.env"},
		{"bad extra env", func(c *Config) { c.Relaunch.ExtraEnv = []string{"NOEQUALS"} }, "relaunch.extra_env"},
		{"negative confirm", func(c *Config) { c.Relaunch.ConfirmWithin = -time.Second }, "confirm_within"},
		{"zero burst", func(c *Config) { c.Server.RateLimitBurst = 0 }, "rate_limit_burst"},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "shutdown_timeout"},
		{"cert without key", func(c *Config) { c.Server.TLSCert = "cert.pem" }, "tls_cert"},
		{"client ca without tls", func(c *Config) { c.Server.TLSClientCA = "ca.pem" }, "tls_client_ca"},
		{"tls pair", func(c *Config) { c.Server.TLSCert, c.Server.TLSKey = "cert.pem", "key.pem" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRelaunchOptions(t *testing.T) {
	tests := []struct {
		name string
		rc   RelaunchConfig
		want int
	}{
		{"none", RelaunchConfig{Args: ArgsNone, Env: EnvInherit, Stdio: true}, 0},
		{"inherit", RelaunchConfig{Args: ArgsInherit, Env: EnvInherit, Stdio: true}, 1},
		{"inherit plus extra", RelaunchConfig{Args: ArgsInherit, ExtraArgs: []string{"-v"}, Env: EnvInherit, Stdio: true}, 1},
		{"extra env", RelaunchConfig{Args: ArgsNone, Env: EnvInherit, ExtraEnv: []string{"A=1"}, Stdio: true}, 1},
		{"clean env", RelaunchConfig{Args: ArgsNone, Env: EnvClean, Stdio: true}, 1},
		{"no stdio and dir", RelaunchConfig{Args: ArgsNone, Env: EnvInherit, Dir: "/tmp"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Relaunch: tt.rc}
			assert.Len(t, cfg.RelaunchOptions(), tt.want)
		})
	}
}
