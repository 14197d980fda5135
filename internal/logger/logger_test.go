package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"codeberg.org/mutker/airnode/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"info", InfoLevel, false},
		{"", InfoLevel, false},
		{"warn", WarnLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWriter(&buf, "warn"))
	t.Cleanup(func() { SetLogLevel(InfoLevel) })

	Debug().Msg("hidden")
	Info().Msg("hidden")
	Warn().Str("pin", "GPIO5").Msg("shown")

	out := lines(t, &buf)
	require.Len(t, out, 1)
	assert.Equal(t, "shown", out[0]["message"])
	assert.Equal(t, "GPIO5", out[0]["pin"])
	assert.Equal(t, "warn", out[0]["level"])
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWriter(&buf, "debug"))
	t.Cleanup(func() { SetLogLevel(InfoLevel) })

	Default().ErrorWithCode(errors.New().WithData(errors.ErrBadStatus, 503)).Msg("Reply rejected")

	out := lines(t, &buf)
	require.Len(t, out, 1)
	assert.Equal(t, string(errors.ErrBadStatus), out[0]["error_code"])
	assert.Equal(t, "Unexpected response status: 503", out[0]["error_message"])
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	err := InitWriter(&buf, "chatty")
	require.Error(t, err)
	t.Cleanup(func() { SetLogLevel(InfoLevel) })

	Info().Msg("still logging")
	assert.Len(t, lines(t, &buf), 1)
}
