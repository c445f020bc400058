// Package store applies a generated changelog.Changelog to a live Neo4j
// graph, one changeset per managed transaction, and reads an existing
// graph back into a model.Model for the mapper to traverse. It uses the
// same driver/session idiom as any other Neo4j caller: a
// DriverWithContext, a session opened per call, and no long-lived
// transaction state.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/time/rate"

	"github.com/bentomdb/graphchangelog/engine/changelog"
	"github.com/bentomdb/graphchangelog/pkg/fn"
	"github.com/bentomdb/graphchangelog/pkg/metrics"
	"github.com/bentomdb/graphchangelog/pkg/resilience"
)

// writeRetry governs retries of one changeset's transaction against
// transient Neo4j failures (leader election, deadlock victim, connection
// reset). Errors are not classified, so a bad statement is retried the
// same bounded number of times, with backoff, as a transient failure.
var writeRetry = fn.RetryOpts{MaxAttempts: 3, InitialWait: fn.DefaultRetry.InitialWait, MaxWait: fn.DefaultRetry.MaxWait, Jitter: true}

// Applier executes a Changelog's forward statements against a live Neo4j
// database, rate-limited so a large replay doesn't overwhelm the cluster.
type Applier struct {
	driver    neo4j.DriverWithContext
	limiter   *rate.Limiter
	breaker   *resilience.Breaker
	applied   *metrics.Counter
	failed    *metrics.Counter
	remaining *metrics.Gauge
	writeDur  *metrics.Histogram
}

// NewApplier returns an Applier bound to driver, allowing up to rps
// changesets per second (burst equal to rps, minimum 1). reg registers the
// applier's counters, its remaining-changesets gauge, and its write-latency
// histogram; pass a shared Registry to fold them into the rest of the
// process's /metrics output (the histogram follows teacher `cmd/ingest`'s
// `*_neo4j_duration_seconds` naming, with `write` inserted). Writes are protected
// by a circuit breaker with the package's default trip/recovery thresholds,
// so a Neo4j outage fails a changeset run fast instead of retrying every
// changeset in turn.
func NewApplier(driver neo4j.DriverWithContext, rps float64, reg *metrics.Registry) *Applier {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Applier{
		driver:    driver,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		breaker:   resilience.NewBreaker(resilience.DefaultBreakerOpts),
		applied:   reg.Counter("changelog_changesets_applied_total", "changesets applied to Neo4j"),
		failed:    reg.Counter("changelog_changesets_failed_total", "changesets that failed to apply"),
		remaining: reg.Gauge("changelog_changesets_remaining", "changesets left in the current apply/rollback run"),
		writeDur:  reg.Histogram("changelog_neo4j_write_duration_seconds", "per-changeset Neo4j write latency", nil),
	}
}

// writeStage returns the fn.Stage that runs one Cypher statement against
// sess through the breaker and the write retry policy, wrapped in its own
// OTel span via fn.TracedStage so each changeset's write is individually
// traceable regardless of which of Apply or Rollback is driving it.
func (a *Applier) writeStage(name string, sess neo4j.SessionWithContext) fn.Stage[string, any] {
	return fn.TracedStage(name, func(ctx context.Context, text string) fn.Result[any] {
		start := time.Now()
		defer a.writeDur.Since(start)
		return resilience.CallResult(a.breaker, ctx, func(ctx context.Context) fn.Result[any] {
			return fn.Retry(ctx, writeRetry, func(ctx context.Context) fn.Result[any] {
				return fn.FromPair(sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
					return tx.Run(ctx, text, nil)
				}))
			})
		})
	})
}

// Apply runs every changeset's forward statement against the database in
// its own managed transaction, in order, stopping at the first failure.
func (a *Applier) Apply(ctx context.Context, cl *changelog.Changelog) error {
	sess := a.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)
	stage := a.writeStage("store.apply_changeset", sess)

	a.remaining.Set(int64(len(cl.Changesets)))
	for _, cs := range cl.Changesets {
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("store: rate limit wait: %w", err)
		}
		if _, err := stage(ctx, cs.Change.Text).Unwrap(); err != nil {
			a.failed.Inc()
			return fmt.Errorf("store: apply changeset %s: %w", cs.ID, err)
		}
		a.applied.Inc()
		a.remaining.Dec()
	}
	return nil
}

// Rollback runs every changeset's rollback statement against the database
// in reverse order, for undoing an applied changelog.
func (a *Applier) Rollback(ctx context.Context, cl *changelog.Changelog) error {
	sess := a.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)
	stage := a.writeStage("store.rollback_changeset", sess)

	a.remaining.Set(int64(len(cl.Changesets)))
	for i := len(cl.Changesets) - 1; i >= 0; i-- {
		cs := cl.Changesets[i]
		a.remaining.Dec()
		if !cs.Change.HasRollback() || cs.Change.RollbackText == "empty" {
			continue
		}
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("store: rate limit wait: %w", err)
		}
		if _, err := stage(ctx, cs.Change.RollbackText).Unwrap(); err != nil {
			a.failed.Inc()
			return fmt.Errorf("store: rollback changeset %s: %w", cs.ID, err)
		}
		a.applied.Inc()
	}
	return nil
}
