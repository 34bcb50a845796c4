// Package store persists registrations and owns the claim and verify/activate
// transactions of the trust state machine.
//
// Both implementations perform the same work for every verification attempt:
// one constant-time code comparison and one full password hash verification,
// against dummy values when the row or its credential is missing, before any
// state-dependent decision is made.
package store

import (
	"crypto/subtle"

	"beefirst/internal/registration/credentials"
	"beefirst/internal/registration/models"
)

// PasswordVerifier checks a password against a stored hash and supplies a
// stand-in hash with the same cost.
type PasswordVerifier interface {
	Verify(password, hash string) bool
	DummyHash() string
}

// checkCredentials runs both comparisons unconditionally. rec may be nil.
func checkCredentials(v PasswordVerifier, rec *models.Registration, code, password string) (codeMatches, passwordMatches bool) {
	storedCode := credentials.DummyCode
	storedHash := v.DummyHash()
	if rec != nil {
		if rec.VerificationCode != "" {
			storedCode = rec.VerificationCode
		}
		if rec.PasswordHash != nil {
			storedHash = *rec.PasswordHash
		}
	}

	codeMatches = subtle.ConstantTimeCompare([]byte(code), []byte(storedCode)) == 1
	passwordMatches = v.Verify(password, storedHash)
	return codeMatches, passwordMatches
}

func cloneRegistration(r *models.Registration) *models.Registration {
	if r == nil {
		return nil
	}
	c := *r
	if r.PasswordHash != nil {
		h := *r.PasswordHash
		c.PasswordHash = &h
	}
	if r.ActivatedAt != nil {
		a := *r.ActivatedAt
		c.ActivatedAt = &a
	}
	return &c
}
