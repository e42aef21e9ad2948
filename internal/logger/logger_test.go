package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn", "text")

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithWriter_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "loud", "text")

	l.Debug("hidden")
	l.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWatermillAdapter_JSON(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewWatermillAdapter(NewWithWriter(&buf, "debug", "json")).
		With(watermill.LogFields{"topic": "trusttag.signin"})

	adapter.Error("publish failed", errors.New("broker down"), watermill.LogFields{"attempt": 1})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "publish failed", entry["msg"])
	assert.Equal(t, "trusttag.signin", entry["topic"])
	assert.Equal(t, "broker down", entry["err"])
	assert.EqualValues(t, 1, entry["attempt"])
}
