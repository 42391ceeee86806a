// Package overlay keeps UI actions from stalling on obstructions injected by
// the hosting environment: consent dialogs, ad vignettes and popups, in the
// page or in any nested frame.
//
// A resilience pass is best-effort. Every check and dismissal is bounded,
// a check that times out counts as "not present", and nothing in this
// package returns an error or panics to its caller.
package overlay

import (
	"context"
	"fmt"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/flowguard/pkg/logging"
	"github.com/entrhq/flowguard/pkg/report"
)

// Frame is a document that may host obstructions.
type Frame interface {
	// Visible reports whether selector matches a visible element.
	Visible(ctx context.Context, selector string) (bool, error)
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Children returns the directly nested frames.
	Children() []Frame
}

// Surface is the page an action is performed on.
type Surface interface {
	MainFrame() Frame
	Location() string
	Back(ctx context.Context) error
}

// ObstructionRecord describes an obstruction handled by one pass.
type ObstructionRecord struct {
	Class      Class
	Selector   string
	FrameDepth int
	Resolved   bool
	Attempts   int
}

func (r ObstructionRecord) String() string {
	return fmt.Sprintf("%s (%s) at frame depth %d after %d attempt(s)", r.Class, r.Selector, r.FrameDepth, r.Attempts)
}

// Default bounds of a pass.
const (
	DefaultCheckTimeout   = 2 * time.Second
	DefaultDismissTimeout = 3 * time.Second
	DefaultBudget         = 10 * time.Second
	DefaultSettle         = 500 * time.Millisecond
)

// Layer runs resilience passes. It is safe for concurrent use once built.
type Layer struct {
	registry       Registry
	markers        []glob.Glob
	checkTimeout   time.Duration
	dismissTimeout time.Duration
	budget         time.Duration
	settle         time.Duration
	logger         *logging.Logger
	annotator      report.Annotator

	markerPatterns []string
}

// Option configures a Layer.
type Option func(*Layer)

// WithRegistry replaces the obstruction registry.
func WithRegistry(r Registry) Option {
	return func(l *Layer) { l.registry = r }
}

// WithMarkers replaces the interstitial location patterns (glob syntax).
func WithMarkers(patterns ...string) Option {
	return func(l *Layer) { l.markerPatterns = patterns }
}

// WithTimeouts sets the per-check and per-dismissal bounds.
func WithTimeouts(check, dismiss time.Duration) Option {
	return func(l *Layer) {
		l.checkTimeout = check
		l.dismissTimeout = dismiss
	}
}

// WithBudget bounds a whole pass, settle delay included.
func WithBudget(d time.Duration) Option {
	return func(l *Layer) { l.budget = d }
}

// WithSettle sets the delay before scanning, giving late ads time to load.
func WithSettle(d time.Duration) Option {
	return func(l *Layer) { l.settle = d }
}

// WithLogger sets the logger for detections and dismissals.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Layer) { l.logger = logger }
}

// WithAnnotator sets where handled obstructions are recorded.
func WithAnnotator(a report.Annotator) Option {
	return func(l *Layer) { l.annotator = a }
}

// NewLayer builds a layer. It fails only on malformed marker patterns.
func NewLayer(opts ...Option) (*Layer, error) {
	l := &Layer{
		registry:       DefaultRegistry(),
		markerPatterns: DefaultMarkers,
		checkTimeout:   DefaultCheckTimeout,
		dismissTimeout: DefaultDismissTimeout,
		budget:         DefaultBudget,
		settle:         DefaultSettle,
		logger:         logging.Nop(),
		annotator:      report.Discard,
	}
	for _, opt := range opts {
		opt(l)
	}

	for _, pattern := range l.markerPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid interstitial marker %q: %w", pattern, err)
		}
		l.markers = append(l.markers, g)
	}
	return l, nil
}

// For returns a copy of the layer reporting to another annotator.
func (l *Layer) For(a report.Annotator) *Layer {
	clone := *l
	clone.annotator = a
	return &clone
}

// Resolve runs one pass over surface and returns the obstruction it
// handled, or nil when none was found within the budget.
func (l *Layer) Resolve(ctx context.Context, surface Surface) *ObstructionRecord {
	passCtx, cancel := context.WithTimeout(ctx, l.budget)
	defer cancel()

	start := time.Now()
	rec := l.pass(passCtx, surface)
	if rec == nil {
		l.logger.Debugf("no obstruction found in %s", time.Since(start).Round(time.Millisecond))
		return nil
	}

	if rec.Resolved {
		l.logger.Infof("dismissed %s", rec)
	} else {
		l.logger.Warnf("unresolved obstruction: %s", rec)
		l.annotator.Annotate(report.OverlayUnresolved, rec.String())
	}
	return rec
}

// ResolveBeforeAction runs a pass, then the action. If the action lands on
// an interstitial, it navigates back once and re-issues the action once.
// The returned error is the action's own.
func (l *Layer) ResolveBeforeAction(ctx context.Context, surface Surface, action func(context.Context) error) error {
	l.Resolve(ctx, surface)

	err := action(ctx)
	if !l.atInterstitial(surface) {
		return err
	}

	l.logger.Infof("interstitial after action at %s, going back and retrying once", l.location(surface))
	if backErr := l.back(ctx, surface); backErr != nil {
		l.logger.Warnf("interstitial back navigation failed: %v", backErr)
		l.annotator.Annotate(report.OverlayUnresolved, ObstructionRecord{
			Class:    Interstitial,
			Selector: l.location(surface),
			Attempts: 1,
		}.String())
		return err
	}
	return action(ctx)
}

func (l *Layer) pass(ctx context.Context, surface Surface) *ObstructionRecord {
	if l.settle > 0 {
		select {
		case <-time.After(l.settle):
		case <-ctx.Done():
			return nil
		}
	}

	main, err := call(ctx, l.checkTimeout, func(context.Context) (Frame, error) {
		return surface.MainFrame(), nil
	})
	if err != nil || main == nil {
		return nil
	}

	type queued struct {
		frame Frame
		depth int
	}
	queue := []queued{{frame: main, depth: 0}}

	for len(queue) > 0 {
		if ctx.Err() != nil {
			return nil
		}
		current := queue[0]
		queue = queue[1:]

		for _, entry := range l.registry {
			if ctx.Err() != nil {
				return nil
			}
			visible, err := call(ctx, l.checkTimeout, func(c context.Context) (bool, error) {
				return current.frame.Visible(c, entry.Matcher)
			})
			if err != nil || !visible {
				continue
			}
			return l.dismiss(ctx, current.frame, current.depth, entry)
		}

		children, err := call(ctx, l.checkTimeout, func(context.Context) ([]Frame, error) {
			return current.frame.Children(), nil
		})
		if err != nil {
			continue
		}
		for _, child := range children {
			if child != nil {
				queue = append(queue, queued{frame: child, depth: current.depth + 1})
			}
		}
	}

	if l.atInterstitial(surface) {
		rec := &ObstructionRecord{Class: Interstitial, Selector: l.location(surface), Attempts: 1}
		rec.Resolved = l.back(ctx, surface) == nil
		return rec
	}
	return nil
}

func (l *Layer) dismiss(ctx context.Context, frame Frame, depth int, entry Obstruction) *ObstructionRecord {
	rec := &ObstructionRecord{Class: entry.Tag, Selector: entry.Matcher, FrameDepth: depth, Attempts: 1}
	dismiss := entry.Dismiss
	if dismiss == nil {
		dismiss = Click
	}
	_, err := call(ctx, l.dismissTimeout, func(c context.Context) (struct{}, error) {
		return struct{}{}, dismiss(c, frame, entry.Matcher)
	})
	if err != nil {
		l.logger.Debugf("dismissal of %s failed: %v", entry.Tag, err)
		return rec
	}
	rec.Resolved = true
	return rec
}

func (l *Layer) back(ctx context.Context, surface Surface) error {
	_, err := call(ctx, l.dismissTimeout, func(c context.Context) (struct{}, error) {
		return struct{}{}, surface.Back(c)
	})
	return err
}

func (l *Layer) atInterstitial(surface Surface) bool {
	location := l.location(surface)
	for _, g := range l.markers {
		if g.Match(location) {
			return true
		}
	}
	return false
}

func (l *Layer) location(surface Surface) (location string) {
	defer func() {
		if recover() != nil {
			location = ""
		}
	}()
	return surface.Location()
}

// call runs fn with its own timeout. A call that outlives the timeout is
// abandoned and reported as ctx.Err(); a panic is reported as an error.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(callCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-callCtx.Done():
		var zero T
		return zero, callCtx.Err()
	}
}
