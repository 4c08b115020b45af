package gateway_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/gateway"
)

func TestBuildMoid_Deterministic(t *testing.T) {
	createdAt := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

	first := gateway.BuildMoid(42, createdAt)
	second := gateway.BuildMoid(42, createdAt)

	assert.Equal(t, first, second)
	assert.Equal(t, "temp_42_1780306200", first)
}

func TestParseMoid_RoundTrip(t *testing.T) {
	moid := gateway.BuildMoid(7, time.Now())

	id, err := gateway.ParseMoid(moid)

	assert.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestParseMoid_Malformed(t *testing.T) {
	cases := []string{
		"",
		"order-999",
		"temp_abc_123",
		"temp_7",
		"temp_0_123",
		"temp_-5_123",
		"perm_7_123",
		"temp_7_xyz",
	}

	for _, moid := range cases {
		_, err := gateway.ParseMoid(moid)

		var orderErr *domainErrors.UnresolvedOrderError
		assert.ErrorAs(t, err, &orderErr, "moid %q should be rejected", moid)
	}
}
