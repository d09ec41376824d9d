package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "quiz-service", "debug", "json")
	log.WithField("username", "alice").Info("quiz submitted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "quiz-service", entry["service"])
	assert.Equal(t, "alice", entry["username"])
	assert.Equal(t, "quiz submitted", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "quiz-service", "chatty", "text")
	log.Debug("hidden")
	assert.Empty(t, buf.String())
	log.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}
