package suites

import (
	"context"
	"fmt"

	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/hybrid"
	"github.com/entrhq/flowguard/pkg/pages"
	"github.com/entrhq/flowguard/pkg/report"
	"github.com/entrhq/flowguard/pkg/scenario"
)

// Hybrid returns the scenarios that mix API and UI state.
func Hybrid() []scenario.Scenario {
	return []scenario.Scenario{
		{ID: "HYBRID-001", Name: "vanishing user: account deleted via API while logged in", Suite: SuiteHybrid, Browser: true, Body: vanishingUser},
	}
}

// vanishingUser logs an API-created account into the UI, deletes it through
// the API and records how the UI reacts. Every classification is accepted;
// the outcome documents the application's behavior.
func vanishingUser(ctx context.Context, env *scenario.Env) error {
	user := APIUser(env, "vanishing")
	resp, err := createTracked(ctx, env, user)
	if err != nil {
		return err
	}
	if err := expectResponse(resp, 201, "User created!"); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	d, err := env.Driver(ctx)
	if err != nil {
		return err
	}
	login := pages.NewLogin(d, env.Layer)
	if err := login.Visit(ctx); err != nil {
		return err
	}
	if err := login.Login(ctx, user.Email, user.Password); err != nil {
		return err
	}
	if err := login.ExpectLoggedInAs(ctx, user.Name); err != nil {
		return err
	}

	session := pages.NewLoginSession(login)
	verifier := hybrid.NewVerifier(
		hybrid.WithLogger(env.Logger.With("hybrid")),
		hybrid.WithAnnotator(env.Report),
	)
	outcome, err := verifier.Run(ctx, session, func(ctx context.Context) (*gateway.Envelope, error) {
		return env.Accounts.Delete(ctx, user.Email, user.Password)
	})
	if err != nil {
		return err
	}
	env.Tracker.Settle(user.Email)
	env.Report.SetOutcome(string(outcome))

	switch outcome {
	case hybrid.SessionInvalidated:
		if visible, err := session.LoginLinkVisible(ctx); err != nil || !visible {
			env.Annotate(report.Note, "session invalidated but the login link is not visible")
		}
	case hybrid.SessionPersistsActionsFail, hybrid.SessionPersistsUndetected:
		env.Annotate(report.Note, "session persisted in the UI after the account was deleted")
	}
	return must(outcome.Valid(), "unknown outcome %q", outcome)
}
