package errors

import (
	"fmt"
	"time"
)

// UnresolvedOrderError is returned when a gateway order id cannot be mapped
// back to an enrollment. Malformed order ids are rejected, never fuzzy-matched.
type UnresolvedOrderError struct {
	Moid string
}

func (e *UnresolvedOrderError) Error() string {
	return fmt.Sprintf("order id %q does not resolve to an enrollment", e.Moid)
}

// InvalidCallbackError is returned for malformed inbound gateway callbacks.
type InvalidCallbackError struct {
	Reason string
}

func (e *InvalidCallbackError) Error() string {
	return fmt.Sprintf("invalid gateway callback: %s", e.Reason)
}

// EnrollmentExpiredError is returned when a success signal arrives for an
// enrollment whose payment deadline already elapsed. The signal is flagged
// for operator reconciliation instead of being applied.
type EnrollmentExpiredError struct {
	EnrollmentID int64
	ExpireDT     time.Time
}

func (e *EnrollmentExpiredError) Error() string {
	return fmt.Sprintf("enrollment %d payment window expired at %s", e.EnrollmentID, e.ExpireDT.Format(time.RFC3339))
}

// GatewayVerificationError is returned when the authoritative transaction
// lookup against the gateway failed after the configured number of retries.
type GatewayVerificationError struct {
	TID      string
	Moid     string
	Attempts int
	Err      error
}

func (e *GatewayVerificationError) Error() string {
	ref := e.Moid
	if ref == "" {
		ref = e.TID
	}
	return fmt.Sprintf("gateway verification for %s failed after %d attempts: %v", ref, e.Attempts, e.Err)
}

func (e *GatewayVerificationError) Unwrap() error {
	return e.Err
}
