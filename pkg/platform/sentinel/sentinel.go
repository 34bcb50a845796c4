package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: registration row does not exist
// - ErrInvalidState: row left the expected state before the write landed
// - ErrUnavailable: database lost, lock wait timed out, deadlock or serialization failure
//
// Verification outcomes (expired, locked, invalid code) are results, not errors,
// and never travel through this package.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
