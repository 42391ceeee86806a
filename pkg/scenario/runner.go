package scenario

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/entrhq/flowguard/pkg/fixture"
	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/logging"
	"github.com/entrhq/flowguard/pkg/overlay"
	"github.com/entrhq/flowguard/pkg/report"
)

// Default runner timeouts.
const (
	DefaultScenarioTimeout = 2 * time.Minute
	DefaultTeardownTimeout = 30 * time.Second
)

// Runner executes scenarios.
type Runner struct {
	apiBaseURL      string
	clientOpts      []gateway.Option
	browsers        DriverSource
	layer           *overlay.Layer
	scenarioTimeout time.Duration
	teardownTimeout time.Duration
	attemptTimeout  time.Duration
	identityPrefix  string
	logger          *logging.Logger
	onFinish        func(*report.ScenarioReport)
}

// Option configures a Runner.
type Option func(*Runner)

// WithClientOptions are applied to every per-scenario gateway client.
func WithClientOptions(opts ...gateway.Option) Option {
	return func(r *Runner) { r.clientOpts = append(r.clientOpts, opts...) }
}

// WithBrowsers enables scenarios that drive the UI.
func WithBrowsers(src DriverSource) Option {
	return func(r *Runner) { r.browsers = src }
}

// WithLayer sets the overlay layer handed to scenarios.
func WithLayer(l *overlay.Layer) Option {
	return func(r *Runner) { r.layer = l }
}

// WithTimeouts sets the scenario body timeout and the teardown budget.
func WithTimeouts(scenario, teardown time.Duration) Option {
	return func(r *Runner) {
		if scenario > 0 {
			r.scenarioTimeout = scenario
		}
		if teardown > 0 {
			r.teardownTimeout = teardown
		}
	}
}

// WithAttemptTimeout bounds each cleanup attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(r *Runner) { r.attemptTimeout = d }
}

// WithIdentityPrefix namespaces every scenario seed, keeping the identities
// of concurrent runs against one backend apart.
func WithIdentityPrefix(prefix string) Option {
	return func(r *Runner) { r.identityPrefix = prefix }
}

// WithLogger sets the runner logger; each scenario logs under its ID.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithFinishHook is called with every finished scenario report, from the
// goroutine that ran it.
func WithFinishHook(fn func(*report.ScenarioReport)) Option {
	return func(r *Runner) { r.onFinish = fn }
}

// NewRunner creates a runner whose scenarios talk to the API at apiBaseURL.
func NewRunner(apiBaseURL string, opts ...Option) (*Runner, error) {
	r := &Runner{
		apiBaseURL:      apiBaseURL,
		scenarioTimeout: DefaultScenarioTimeout,
		teardownTimeout: DefaultTeardownTimeout,
		attemptTimeout:  fixture.DefaultAttemptTimeout,
		logger:          logging.Nop(),
		onFinish:        func(*report.ScenarioReport) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.layer == nil {
		layer, err := overlay.NewLayer(overlay.WithLogger(r.logger.With("overlay")))
		if err != nil {
			return nil, err
		}
		r.layer = layer
	}
	return r, nil
}

// Run executes one scenario and always returns its report. Teardown runs
// exactly once per call.
func (r *Runner) Run(ctx context.Context, s Scenario) *report.ScenarioReport {
	rep := report.NewScenarioReport(s.ID, s.Name, s.Suite)
	defer r.onFinish(rep)

	caseID := s.CaseID
	if caseID == "" {
		caseID = s.ID
	}
	rep.Annotate(report.TestCaseID, caseID)

	if err := ctx.Err(); err != nil {
		rep.Finish(fmt.Errorf("scenario not started: %w", err))
		return rep
	}

	env := r.newEnv(s, rep)
	finished, err := r.body(ctx, s, env)
	r.teardown(ctx, env, finished)

	rep.Finish(err)
	if err != nil {
		env.Logger.Warnf("scenario %s failed: %v", s.ID, err)
	} else {
		env.Logger.Infof("scenario %s passed in %s", s.ID, rep.Duration)
	}
	return rep
}

func (r *Runner) newEnv(s Scenario, rep *report.ScenarioReport) *Env {
	logger := r.logger.With(s.ID)
	client := gateway.NewClient(r.apiBaseURL, append(append([]gateway.Option{}, r.clientOpts...), gateway.WithLogger(logger))...)
	accounts := gateway.NewAccounts(client)

	env := &Env{
		Client:   client,
		Accounts: accounts,
		Catalog:  gateway.NewCatalog(client),
		Report:   rep,
		Logger:   logger,
		Layer:    r.layer.For(rep),
		Seed:     fixture.NewSeed(r.identityPrefix + s.ID),
		name:     s.ID + "-" + fixture.GenerateIdentity(s.ID+logging.GetRunID())[:8],
	}
	env.Tracker = fixture.NewTracker(
		fixture.WithReleaser(fixture.Account, fixture.AccountReleaser(accounts)),
		fixture.WithAnnotator(rep),
		fixture.WithLogger(logger),
		fixture.WithAttemptTimeout(r.attemptTimeout),
	)
	if s.Browser {
		env.browsers = r.browsers
	}
	return env
}

// body runs the scenario body under the scenario timeout. A body that
// ignores its context is abandoned when the timeout fires; the returned
// channel is closed once the body goroutine has actually returned.
func (r *Runner) body(ctx context.Context, s Scenario, env *Env) (<-chan struct{}, error) {
	finished := make(chan struct{})
	if s.Body == nil {
		close(finished)
		return finished, fmt.Errorf("scenario %s has no body", s.ID)
	}
	if err := env.Client.Init(); err != nil {
		close(finished)
		return finished, err
	}

	bodyCtx, cancel := context.WithTimeout(ctx, r.scenarioTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer close(finished)
		defer func() {
			if p := recover(); p != nil {
				env.Logger.Errorf("scenario %s panicked: %v\n%s", s.ID, p, debug.Stack())
				done <- fmt.Errorf("scenario panicked: %v", p)
			}
		}()
		done <- s.Body(bodyCtx, env)
	}()

	select {
	case err := <-done:
		return finished, err
	case <-bodyCtx.Done():
		return finished, fmt.Errorf("scenario exceeded %s: %w", r.scenarioTimeout, bodyCtx.Err())
	}
}

// teardown closes the browser, releases every obligation once and disposes
// the client. It ignores the caller's cancellation and is bounded by the
// teardown budget instead.
//
// An abandoned body may still be finishing a call that creates a resource,
// so teardown first waits for it, for at most half the budget. Whatever it
// records after that is released by the sealed tracker.
func (r *Runner) teardown(ctx context.Context, env *Env, finished <-chan struct{}) {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.teardownTimeout)
	defer cancel()

	grace := time.NewTimer(r.teardownTimeout / 2)
	select {
	case <-finished:
	case <-grace.C:
		env.Logger.Warnf("scenario body still running after %s, releasing without it", r.teardownTimeout/2)
	}
	grace.Stop()

	if err := env.closeBrowser(); err != nil {
		env.Logger.Warnf("browser close failed: %v", err)
	}

	results := env.Tracker.ReleaseAll(tctx)
	failed := 0
	for _, res := range results {
		if res.Failure != nil {
			failed++
		}
	}
	if len(results) > 0 {
		env.Logger.Infof("released %d/%d obligations", len(results)-failed, len(results))
	}

	if err := env.Client.Dispose(); err != nil {
		env.Logger.Warnf("%v", err)
	}
}

// RunSuite runs independent scenarios with at most parallel in flight.
// Reports are returned in input order.
func (r *Runner) RunSuite(ctx context.Context, scenarios []Scenario, parallel int) []*report.ScenarioReport {
	if parallel <= 0 {
		parallel = 1
	}
	reports := make([]*report.ScenarioReport, len(scenarios))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, s := range scenarios {
		g.Go(func() error {
			reports[i] = r.Run(ctx, s)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}
