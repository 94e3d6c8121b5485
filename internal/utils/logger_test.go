package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"Warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestGetLogger_InitializesWhenUnset(t *testing.T) {
	SetLogger(nil)
	defer SetLogger(zap.NewNop())

	logger := GetLogger()
	assert.NotNil(t, logger)
}

func TestSetLogger(t *testing.T) {
	nop := zap.NewNop()
	SetLogger(nop)
	assert.Same(t, nop, GetLogger())
}
