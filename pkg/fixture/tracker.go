// Package fixture tracks backend resources created while driving a scenario
// and guarantees a release attempt for each of them at teardown.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/flowguard/pkg/logging"
	"github.com/entrhq/flowguard/pkg/report"
)

// DefaultAttemptTimeout bounds a single release attempt.
const DefaultAttemptTimeout = 15 * time.Second

// Tracker owns the obligations of one scenario run. It must not be shared
// across scenarios.
type Tracker struct {
	releasers      map[Kind]Releaser
	annotator      report.Annotator
	logger         *logging.Logger
	attemptTimeout time.Duration

	mu          sync.Mutex
	obligations []Obligation
	sealed      bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithReleaser registers the releaser used for a kind.
func WithReleaser(kind Kind, r Releaser) Option {
	return func(t *Tracker) {
		t.releasers[kind] = r
	}
}

// WithAnnotator sets where release outcomes are reported.
func WithAnnotator(a report.Annotator) Option {
	return func(t *Tracker) {
		t.annotator = a
	}
}

// WithLogger sets the tracker logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithAttemptTimeout bounds each release attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		t.attemptTimeout = d
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		releasers:      make(map[Kind]Releaser),
		annotator:      report.Discard,
		logger:         logging.Nop(),
		attemptTimeout: DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record appends an obligation. It never fails.
//
// Once ReleaseAll has run the tracker is sealed: a late obligation, such as
// one recorded by an abandoned scenario body, is released on the spot and
// its outcome annotated like any other.
func (t *Tracker) Record(o Obligation) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	t.mu.Lock()
	if t.sealed {
		t.mu.Unlock()
		t.logger.Warnf("%s recorded after teardown, releasing now", o)
		t.release(context.Background(), o)
		return
	}
	t.obligations = append(t.obligations, o)
	t.mu.Unlock()
	t.logger.Debugf("recorded %s", o)
}

// Settle removes the oldest pending obligation with the given identity,
// for resources the scenario released itself. It reports whether one was
// found.
func (t *Tracker) Settle(identity string) bool {
	t.mu.Lock()
	var settled *Obligation
	for i, o := range t.obligations {
		if o.Identity == identity {
			settled = &o
			t.obligations = append(t.obligations[:i:i], t.obligations[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	if settled == nil {
		return false
	}
	t.annotator.Annotate(report.Cleanup, fmt.Sprintf("Released in scenario: %s", settled.Identity))
	t.logger.Infof("settled %s", settled)
	return true
}

// Pending returns a copy of the obligations not yet released, in
// recording order.
func (t *Tracker) Pending() []Obligation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Obligation, len(t.obligations))
	copy(out, t.obligations)
	return out
}

// ReleaseAll attempts release for every pending obligation in recording
// order, drains the set and seals the tracker. Attempts are isolated: an
// error, panic or timeout in one does not prevent the rest. Every failure
// is annotated.
func (t *Tracker) ReleaseAll(ctx context.Context) []Result {
	t.mu.Lock()
	pending := t.obligations
	t.obligations = nil
	t.sealed = true
	t.mu.Unlock()

	results := make([]Result, 0, len(pending))
	for _, o := range pending {
		results = append(results, t.release(ctx, o))
	}
	return results
}

// release makes one attempt for o and annotates the outcome.
func (t *Tracker) release(ctx context.Context, o Obligation) Result {
	err := t.attempt(ctx, o)
	if err == nil {
		t.logger.Infof("released %s", o)
		t.annotator.Annotate(report.Cleanup, fmt.Sprintf("Deleted %s: %s", describe(o.Kind), o.Identity))
		return Result{Obligation: o, Released: true}
	}

	failure := &CleanupFailure{Obligation: o, Err: err}
	t.logger.Warnf("%v", failure)
	t.annotator.Annotate(report.CleanupFailure, fmt.Sprintf("Failed to delete %s %s: %v", describe(o.Kind), o.Identity, err))
	return Result{Obligation: o, Failure: failure}
}

var errNoReleaser = errors.New("no releaser registered")

// attempt runs one release under its own timeout. A releaser that ignores
// its context is abandoned when the timeout fires.
func (t *Tracker) attempt(ctx context.Context, o Obligation) error {
	releaser, ok := t.releasers[o.Kind]
	if !ok {
		return fmt.Errorf("%w for kind %s", errNoReleaser, o.Kind)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, t.attemptTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("release panicked: %v", r)
			}
		}()
		done <- releaser.Release(attemptCtx, o)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		return fmt.Errorf("release timed out: %w", attemptCtx.Err())
	}
}

func describe(kind Kind) string {
	switch kind {
	case Account:
		return "account"
	default:
		return string(kind)
	}
}
