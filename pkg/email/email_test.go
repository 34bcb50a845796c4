package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a@x.com", Normalize("  A@X.Com \t"))
	assert.Equal(t, "", Normalize("   "))
	assert.Equal(t, "émile@x.com", Normalize("Émile@X.com"))
}

func TestMask(t *testing.T) {
	tests := map[string]string{
		"alice@x.com":   "a***@x.com",
		"a@x.com":       "a***@x.com",
		"élise@x.com":   "é***@x.com",
		"a\"b@c\"@x.io": "a***@x.io",
		"@x.com":        "***",
		"no-at-sign":    "***",
		"":              "***",
	}
	for in, want := range tests {
		assert.Equal(t, want, Mask(in), "input %q", in)
	}
}
