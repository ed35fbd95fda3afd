package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrents/internal/config"
)

func TestNewLevel(t *testing.T) {
	log := NewWithOutput(config.LogConfig{Level: "DEBUG"}, &bytes.Buffer{})
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log = NewWithOutput(config.LogConfig{Level: "nonsense"}, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(config.LogConfig{Level: "info", Format: "json"}, &buf)

	log.WithField("torrent_id", "abc").Info("uploaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "uploaded", entry["msg"])
	assert.Equal(t, "abc", entry["torrent_id"])
}
