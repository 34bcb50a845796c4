package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "unknown", Label(""))
	assert.Equal(t, "bot", Label("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"))

	label := Label("Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0")
	assert.Contains(t, label, "Firefox")
	assert.Contains(t, label, "Windows")
}
