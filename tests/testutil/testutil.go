// Package testutil holds helpers shared by the ledger's end-to-end tests:
// an API client for the gin engine, a domain event recorder and
// deterministic identifiers.
package testutil

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testNamespace seeds NewTestUUID
var testNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID returns the same UUID for the same seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(testNamespace, []byte(seed))
}

// TestTenantID returns the tenant the end-to-end tests run as
func TestTenantID() uuid.UUID {
	return NewTestUUID("test-tenant")
}

// WaitForCondition polls condition until it holds or timeout passes.
// It reports whether the condition was met.
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return condition()
}
