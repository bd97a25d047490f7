package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log := New()
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Str("spreadsheet_id", "abc").Msg("sheet opened")

	output := buf.String()
	require.NotEmpty(t, output)
	assert.Contains(t, output, "sheet opened")
	assert.Contains(t, output, `"spreadsheet_id":"abc"`)
}

func TestNewWithLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, NewWithLevel("warn").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewWithLevel("nonsense").GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  ERROR ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	assert.NotZero(t, buf.Len(), "expected log output from retrieved logger")
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	logWithFields := WithFields(log, map[string]interface{}{
		"row_id": 3,
		"action": "delete",
	})
	logWithFields.Info().Msg("test message")

	output := buf.String()
	assert.Contains(t, output, `"row_id":3`)
	assert.Contains(t, output, `"action":"delete"`)
}
