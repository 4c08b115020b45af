package gateway

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
)

const moidPrefix = "temp"

// BuildMoid builds the merchant order id for an enrollment:
// temp_<enrollmentID>_<nonce>. The nonce is derived from the enrollment
// creation time so regenerating the payment page for the same enrollment
// yields the same order id.
func BuildMoid(enrollmentID int64, createdAt time.Time) string {
	return fmt.Sprintf("%s_%d_%d", moidPrefix, enrollmentID, createdAt.Unix())
}

// ParseMoid extracts the enrollment id embedded in a merchant order id.
// The moid is the sole linkage from gateway signals back to the domain;
// malformed order ids are rejected with UnresolvedOrderError, never guessed.
func ParseMoid(moid string) (int64, error) {
	parts := strings.Split(moid, "_")
	if len(parts) != 3 || parts[0] != moidPrefix {
		return 0, &domainErrors.UnresolvedOrderError{Moid: moid}
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, &domainErrors.UnresolvedOrderError{Moid: moid}
	}
	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return 0, &domainErrors.UnresolvedOrderError{Moid: moid}
	}
	return id, nil
}
