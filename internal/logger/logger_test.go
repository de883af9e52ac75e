package logger

import (
	"testing"

	"couponagent/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LoggingConfig
		debug bool
		want  zapcore.Level
	}{
		{"json info", config.LoggingConfig{Level: "info", Format: "json"}, false, zapcore.InfoLevel},
		{"console warn", config.LoggingConfig{Level: "warn", Format: "console"}, false, zapcore.WarnLevel},
		{"debug overrides level", config.LoggingConfig{Level: "error", Format: "json"}, true, zapcore.DebugLevel},
		{"bad level falls back to info", config.LoggingConfig{Level: "loud", Format: "json"}, false, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg, tt.debug)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.want-1))
			}
		})
	}
}
