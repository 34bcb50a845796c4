package credentials

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewHasherRejectsWeakCost(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost)
	assert.Error(t, err)
}

func TestHasher(t *testing.T) {
	h, err := NewHasher(MinCost)
	require.NoError(t, err)

	t.Run("hash is salted bcrypt at configured cost", func(t *testing.T) {
		first, err := h.Hash("password123")
		require.NoError(t, err)
		second, err := h.Hash("password123")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.Regexp(t, regexp.MustCompile(`^\$2[aby]\$`), first)
		cost, err := strconv.Atoi(strings.Split(first, "$")[2])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cost, MinCost)
	})

	t.Run("verify matches only the original password", func(t *testing.T) {
		hash, err := h.Hash("password123")
		require.NoError(t, err)
		assert.True(t, h.Verify("password123", hash))
		assert.False(t, h.Verify("password124", hash))
		assert.False(t, h.Verify("password123", "not-a-hash"))
	})

	t.Run("dummy hash has the real cost and matches nothing obvious", func(t *testing.T) {
		cost, err := bcrypt.Cost([]byte(h.DummyHash()))
		require.NoError(t, err)
		assert.Equal(t, h.Cost(), cost)
		assert.False(t, h.Verify("", h.DummyHash()))
		assert.False(t, h.Verify("password123", h.DummyHash()))
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := h.Hash("")
		assert.Error(t, err)
	})
}

func TestCodeGenerator(t *testing.T) {
	g := NewCodeGenerator()
	pattern := regexp.MustCompile(`^\d{4}$`)
	seen := map[string]struct{}{}

	for i := 0; i < 200; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestCodeGeneratorKeepsLeadingZeros(t *testing.T) {
	// big.Int read from all-zero bytes yields 0.
	g := &CodeGenerator{rand: bytes.NewReader(make([]byte, 64))}
	code, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "0000", code)
}
