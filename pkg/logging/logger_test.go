// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"debug text", "debug", "text"},
		{"info json", "info", "json"},
		{"warn defaults format", "warn", ""},
		{"unknown level falls back", "verbose", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, tt.format)
			require.NotNil(t, logger)
			require.NotNil(t, logger.Slog())
		})
	}
}

func TestDebugGating(t *testing.T) {
	assert.True(t, New("debug", "text").debug)
	assert.False(t, New("info", "text").debug)
}

func TestWithAndErrorHelpers(t *testing.T) {
	logger := NewLogger(true).With("component", "test")
	require.NotNil(t, logger)

	// Smoke the error paths; output goes to stderr.
	logger.Error(errors.New("boom"), "op", "test")
	logger.Errorf("formatted %d", 42)
	logger.MaybeError(nil)
	logger.MaybeError(errors.New("present"))
	logger.Debug("debug line")
	logger.Warn("warn line")
	logger.Info("info line")
}

func TestDefaultLogger(t *testing.T) {
	logger := DefaultLogger()
	require.NotNil(t, logger)
	assert.False(t, logger.debug)
}
