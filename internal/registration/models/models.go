package models

import (
	"fmt"
	"time"
)

// State is the trust state of a registration. Transitions only move forward out
// of StateClaimed; a fresh claim may replace an expired or locked row.
type State string

const (
	StateClaimed State = "CLAIMED"
	StateActive  State = "ACTIVE"
	StateExpired State = "EXPIRED"
	StateLocked  State = "LOCKED"
)

func (s State) IsValid() bool {
	switch s {
	case StateClaimed, StateActive, StateExpired, StateLocked:
		return true
	}
	return false
}

// Reclaimable reports whether a new claim may reinitialize a row in this state.
func (s State) Reclaimable() bool {
	return s == StateExpired || s == StateLocked
}

// CanTransition reports whether from -> to is an allowed forward transition.
func CanTransition(from, to State) bool {
	if from != StateClaimed {
		return false
	}
	return to == StateActive || to == StateExpired || to == StateLocked
}

// ParseState parses the persisted representation of a State.
func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown registration state %q", raw)
	}
	return s, nil
}

// VerifyResult is the outcome of a verification attempt. None of the failure
// values are errors; the transport layer collapses them into one response.
type VerifyResult string

const (
	VerifySuccess     VerifyResult = "SUCCESS"
	VerifyInvalidCode VerifyResult = "INVALID_CODE"
	VerifyExpired     VerifyResult = "EXPIRED"
	VerifyLocked      VerifyResult = "LOCKED"
	VerifyNotFound    VerifyResult = "NOT_FOUND"
)

// Registration is one row of the registration table.
type Registration struct {
	Email            string
	PasswordHash     *string
	VerificationCode string
	State            State
	AttemptCount     int
	CreatedAt        time.Time
	ActivatedAt      *time.Time
}

// Policy holds the tunables of the trust state machine.
type Policy struct {
	TTL         time.Duration
	MaxAttempts int
}

// DefaultPolicy returns a 60 second window with lockout on the third failure.
func DefaultPolicy() Policy {
	return Policy{TTL: 60 * time.Second, MaxAttempts: 3}
}

// IsExpiredAt reports whether the claim is strictly older than ttl at now.
func (r *Registration) IsExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.CreatedAt) > ttl
}

// Effect is the write a verification attempt performs on the row.
type Effect int

const (
	EffectNone Effect = iota
	EffectExpire
	EffectRecordFailure
	EffectLock
	EffectActivate
)

func (e Effect) String() string {
	switch e {
	case EffectExpire:
		return "expire"
	case EffectRecordFailure:
		return "record_failure"
	case EffectLock:
		return "lock"
	case EffectActivate:
		return "activate"
	default:
		return "none"
	}
}

// Outcome is the decision for one verification attempt. Attempts is the
// attempt count the row holds after the effect is applied.
type Outcome struct {
	Result   VerifyResult
	Effect   Effect
	Attempts int
}

// Evaluate decides a verification attempt. rec is nil when no row exists.
// codeMatches and passwordMatches must already have been computed by the caller
// for every attempt, including attempts against a missing row.
func Evaluate(rec *Registration, codeMatches, passwordMatches bool, now time.Time, policy Policy) Outcome {
	switch {
	case rec == nil:
		return Outcome{Result: VerifyNotFound}
	case rec.State == StateLocked:
		return Outcome{Result: VerifyLocked}
	case rec.State != StateClaimed:
		return Outcome{Result: VerifyNotFound}
	case rec.IsExpiredAt(now, policy.TTL):
		return Outcome{Result: VerifyExpired, Effect: EffectExpire, Attempts: rec.AttemptCount}
	case rec.AttemptCount >= policy.MaxAttempts:
		return Outcome{Result: VerifyLocked, Effect: EffectLock, Attempts: rec.AttemptCount}
	case !codeMatches || !passwordMatches:
		attempts := rec.AttemptCount + 1
		if attempts >= policy.MaxAttempts {
			return Outcome{Result: VerifyLocked, Effect: EffectLock, Attempts: attempts}
		}
		return Outcome{Result: VerifyInvalidCode, Effect: EffectRecordFailure, Attempts: attempts}
	default:
		return Outcome{Result: VerifySuccess, Effect: EffectActivate, Attempts: rec.AttemptCount}
	}
}

// Apply mutates the row according to the outcome's effect.
func (r *Registration) Apply(o Outcome, now time.Time) error {
	switch o.Effect {
	case EffectNone:
		return nil
	case EffectExpire:
		return r.transition(StateExpired, now)
	case EffectRecordFailure:
		if r.State != StateClaimed {
			return fmt.Errorf("record failure in state %s", r.State)
		}
		if o.Attempts < r.AttemptCount {
			return fmt.Errorf("attempt count cannot decrease from %d to %d", r.AttemptCount, o.Attempts)
		}
		r.AttemptCount = o.Attempts
		return nil
	case EffectLock:
		if o.Attempts < r.AttemptCount {
			return fmt.Errorf("attempt count cannot decrease from %d to %d", r.AttemptCount, o.Attempts)
		}
		if err := r.transition(StateLocked, now); err != nil {
			return err
		}
		r.AttemptCount = o.Attempts
		return nil
	case EffectActivate:
		return r.transition(StateActive, now)
	}
	return fmt.Errorf("unknown effect %d", o.Effect)
}

func (r *Registration) transition(to State, now time.Time) error {
	if !CanTransition(r.State, to) {
		return fmt.Errorf("transition %s -> %s not allowed", r.State, to)
	}
	r.State = to
	switch to {
	case StateExpired, StateLocked:
		r.PasswordHash = nil
	case StateActive:
		activatedAt := now
		r.ActivatedAt = &activatedAt
	}
	return nil
}

// Reclaim reinitializes the row for a fresh claim.
func (r *Registration) Reclaim(passwordHash, code string, now time.Time) {
	r.PasswordHash = &passwordHash
	r.VerificationCode = code
	r.State = StateClaimed
	r.AttemptCount = 0
	r.CreatedAt = now
	r.ActivatedAt = nil
}
