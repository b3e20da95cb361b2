//go:build integration

package markforge

// Notes:
// - Integration test setup: shared ExporterPool for all integration tests
// - testPool is initialized in TestMain and closed after all tests complete
// - acquireExporter helper provides automatic cleanup via t.Cleanup()
// - Pool size is capped at 4 for CI environments to avoid resource exhaustion

import (
	"os"
	"testing"
	"time"
)

// testTimeout is the standard timeout for integration test operations.
const testTimeout = 60 * time.Second

// testPool is the shared ExporterPool for all integration tests.
var testPool *ExporterPool

// ---------------------------------------------------------------------------
// TestMain - Integration Test Setup and Teardown
// ---------------------------------------------------------------------------

func TestMain(m *testing.M) {
	poolSize := min(ResolvePoolSize(0), 4)
	testPool = NewExporterPool(poolSize, WithTimeout(testTimeout))

	code := m.Run()

	_ = testPool.Close()
	os.Exit(code)
}

// acquireExporter gets an exporter from the shared pool with automatic cleanup.
func acquireExporter(t *testing.T) *Exporter {
	t.Helper()
	exp, err := testPool.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	t.Cleanup(func() { testPool.Release(exp) })
	return exp
}
