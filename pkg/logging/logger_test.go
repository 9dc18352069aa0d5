package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, WARN, false)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")
	logger.Error("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN: shown")
	assert.Contains(t, out, "ERROR: also shown")
}

func TestTextFieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, DEBUG, false).WithField("b", 2)

	logger.Info("hello", map[string]interface{}{"a": 1, "err": errors.New("boom")})

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasSuffix(line, "INFO: hello a=1 b=2 err=boom"), line)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, INFO, true).WithField("component", "relaunch")

	logger.Warn("spawn failed", map[string]interface{}{"path": "/bin/app"})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "spawn failed", entry.Message)
	assert.Equal(t, "relaunch", entry.Fields["component"])
	assert.Equal(t, "/bin/app", entry.Fields["path"])
}

func TestWithFieldSharesOutput(t *testing.T) {
	var first, second bytes.Buffer
	parent := NewLoggerTo(&first, INFO, false)
	child := parent.WithField("k", "v")

	parent.SetOutput(&second)
	child.Info("after swap")

	assert.Empty(t, first.String())
	assert.Contains(t, second.String(), "after swap k=v")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"Error", ERROR},
		{"fatal", FATAL},
		{"nonsense", INFO},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestGenerateLogrotateConfig(t *testing.T) {
	cfg := GenerateLogrotateConfig("serve")
	assert.Contains(t, cfg, "/var/log/relaunchd/serve/*.log {")
	assert.Contains(t, cfg, "copytruncate")
}
