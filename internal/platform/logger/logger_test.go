package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beefirst/internal/platform/config"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json at warn drops info", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"})
		log.Info("hidden")
		log.Warn("shown", "email", "a@x.com")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.Equal(t, "a@x.com", entry["email"])
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "TEXT"}).Debug("hello")
		assert.Contains(t, buf.String(), "level=DEBUG")
	})

	t.Run("unknown level is info", func(t *testing.T) {
		assert.Equal(t, "INFO", parseLevel("loud").String())
	})
}
