package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "beefirst/pkg/domain-errors"
)

// MinCost is the lowest bcrypt work factor accepted for stored passwords.
const MinCost = 10

// Hasher hashes and verifies passwords with bcrypt. It owns a dummy hash of the
// same cost so verification against a missing credential costs the same as a
// real one.
type Hasher struct {
	cost      int
	dummyHash string
}

// NewHasher builds a Hasher and computes its dummy hash once.
func NewHasher(cost int) (*Hasher, error) {
	if cost < MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d outside [%d, %d]", cost, MinCost, bcrypt.MaxCost)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate dummy secret: %w", err)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(base64.RawURLEncoding.EncodeToString(buf)), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &Hasher{cost: cost, dummyHash: string(dummy)}, nil
}

// Hash creates a salted bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeValidation, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. Any malformed hash counts as a
// mismatch; bcrypt compares in constant time.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DummyHash returns the process-wide stand-in hash.
func (h *Hasher) DummyHash() string {
	return h.dummyHash
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}
