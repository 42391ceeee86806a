// Package scenario runs end-to-end scenarios with guaranteed teardown.
//
// Every scenario gets its own gateway client, fixture tracker and, when it
// asks for one, its own browser session. Whatever the body does (returns,
// fails, panics or overruns its timeout) teardown runs once on a context
// detached from the caller's cancellation: the browser is closed, every
// tracked obligation is released, and the client is disposed.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/flowguard/pkg/fixture"
	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/logging"
	"github.com/entrhq/flowguard/pkg/overlay"
	"github.com/entrhq/flowguard/pkg/pages"
	"github.com/entrhq/flowguard/pkg/report"
)

// ErrNoBrowser is returned by Env.Driver when the runner has no browser.
var ErrNoBrowser = errors.New("no browser configured")

// Scenario is one independent end-to-end check.
type Scenario struct {
	// ID is the stable identifier used for selection and reporting
	ID string
	// Name is a human-readable description
	Name string
	// Suite groups scenarios (api, ui, hybrid)
	Suite string
	// CaseID is the external test case reference, annotated as test-case-id
	CaseID string
	// Browser marks scenarios that drive the UI
	Browser bool
	// Body performs the scenario. A non-nil error fails it.
	Body func(ctx context.Context, env *Env) error
}

// Env is what a scenario body works with. It is owned by one scenario.
type Env struct {
	Client   *gateway.Client
	Accounts *gateway.Accounts
	Catalog  *gateway.Catalog
	Tracker  *fixture.Tracker
	Report   *report.ScenarioReport
	Logger   *logging.Logger
	// Layer guards UI actions; its annotations go to Report
	Layer *overlay.Layer
	// Seed is unique to this scenario run and feeds identity generation
	Seed string

	name     string
	browsers DriverSource

	mu     sync.Mutex
	driver pages.Driver
	opened bool
}

// Driver opens the scenario's browser session on first use.
func (e *Env) Driver(ctx context.Context) (pages.Driver, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.driver != nil {
		return e.driver, nil
	}
	if e.browsers == nil {
		return nil, ErrNoBrowser
	}
	d, err := e.browsers.Open(ctx, e.name)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	e.driver = d
	e.opened = true
	return d, nil
}

// Email returns the address for prefix in this run, e.g.
// "login_valid_<id>@test.com". The same prefix yields the same address.
func (e *Env) Email(prefix string) string {
	return fixture.Email(prefix, e.Seed+":"+prefix)
}

// TrackAccount records an account created by the scenario for cleanup.
func (e *Env) TrackAccount(email, password string) {
	e.Tracker.Record(fixture.Obligation{
		Kind:       fixture.Account,
		Identity:   email,
		Credential: password,
	})
}

// Annotate adds a diagnostic to the scenario report.
func (e *Env) Annotate(kind report.AnnotationType, description string) {
	e.Report.Annotate(kind, description)
}

// closeBrowser closes the session if one was opened.
func (e *Env) closeBrowser() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.opened {
		return nil
	}
	e.opened = false
	e.driver = nil
	return e.browsers.Close(e.name)
}
