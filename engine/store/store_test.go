package store

import (
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/bentomdb/graphchangelog/pkg/metrics"
	"github.com/bentomdb/graphchangelog/pkg/resilience"
)

// fakeDriver lets NewApplier's constructor run without a live Neo4j
// connection. Apply/Rollback need a real neo4j.SessionWithContext to drive
// ExecuteWrite, which isn't practical to fake here, so these tests cover
// construction and metric registration only.
type fakeDriver struct {
	neo4j.DriverWithContext
}

func TestNewApplierBurstFloorsAtOne(t *testing.T) {
	reg := metrics.New()
	a := NewApplier(&fakeDriver{}, 0.3, reg)
	if a.limiter.Burst() != 1 {
		t.Fatalf("expected burst floored to 1, got %d", a.limiter.Burst())
	}
}

func TestNewApplierRegistersCounters(t *testing.T) {
	reg := metrics.New()
	NewApplier(&fakeDriver{}, 5, reg)
	rendered := reg.Render()
	if !strings.Contains(rendered, "changelog_changesets_applied_total") {
		t.Fatalf("expected applied counter registered, got %q", rendered)
	}
	if !strings.Contains(rendered, "changelog_changesets_failed_total") {
		t.Fatalf("expected failed counter registered, got %q", rendered)
	}
}

func TestNewApplierStartsWithClosedBreaker(t *testing.T) {
	reg := metrics.New()
	a := NewApplier(&fakeDriver{}, 5, reg)
	if a.breaker.State() != resilience.StateClosed {
		t.Fatalf("expected a fresh breaker to start closed, got %v", a.breaker.State())
	}
}

func TestApplierCountersIncrementIndependently(t *testing.T) {
	reg := metrics.New()
	a := NewApplier(&fakeDriver{}, 5, reg)
	a.applied.Inc()
	a.applied.Inc()
	a.failed.Inc()
	if got := a.applied.Value(); got != 2 {
		t.Fatalf("applied = %d, want 2", got)
	}
	if got := a.failed.Value(); got != 1 {
		t.Fatalf("failed = %d, want 1", got)
	}
}
