// Package hybrid classifies divergence between server-authoritative state
// and client-visible session state after an out-of-band mutation.
package hybrid

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/logging"
	"github.com/entrhq/flowguard/pkg/report"
)

// Outcome is the classification of one verifier run.
type Outcome string

const (
	// SessionInvalidated means the UI dropped its logged-in signal on reload
	SessionInvalidated Outcome = "SESSION_INVALIDATED"
	// SessionPersistsActionsFail means the UI still looked logged in, but the
	// follow-up action landed on an unauthenticated view
	SessionPersistsActionsFail Outcome = "SESSION_PERSISTS_ACTIONS_FAIL"
	// SessionPersistsUndetected means the UI still looked logged in and the
	// follow-up action behaved as if nothing changed
	SessionPersistsUndetected Outcome = "SESSION_PERSISTS_UNDETECTED"
)

// Outcomes lists every classification a run can produce.
var Outcomes = []Outcome{SessionInvalidated, SessionPersistsActionsFail, SessionPersistsUndetected}

// Valid reports whether o is one of Outcomes.
func (o Outcome) Valid() bool {
	for _, known := range Outcomes {
		if o == known {
			return true
		}
	}
	return false
}

// State is a step of the verification protocol.
type State string

const (
	Active     State = "Active"
	Mutated    State = "Mutated"
	Observed   State = "Observed"
	Classified State = "Classified"
)

// Session is the front-channel view of the entity under test. The session
// must already be established when it is handed to Run.
type Session interface {
	// Reload re-queries the UI surface.
	Reload(ctx context.Context) error
	// LoggedIn reports whether the logged-in signal is visible.
	LoggedIn(ctx context.Context) (bool, error)
	// FollowUp performs the designated follow-up action and reports whether
	// it ended on an unauthenticated view.
	FollowUp(ctx context.Context) (bool, error)
}

// Mutation performs the back-channel change through the gateway.
type Mutation func(ctx context.Context) (*gateway.Envelope, error)

// MutationSetupError means the back-channel mutation could not be
// confirmed, so no classification was attempted.
type MutationSetupError struct {
	Envelope *gateway.Envelope
	Err      error
}

func (e *MutationSetupError) Error() string {
	return fmt.Sprintf("hybrid mutation not confirmed: %v", e.Err)
}

func (e *MutationSetupError) Unwrap() error {
	return e.Err
}

// DefaultStepTimeout bounds each reload, observation and follow-up step.
const DefaultStepTimeout = 30 * time.Second

// Verifier runs the Active -> Mutated -> Observed -> Classified protocol.
type Verifier struct {
	logger      *logging.Logger
	annotator   report.Annotator
	stepTimeout time.Duration
	onState     func(State)
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger used for state transitions and fallbacks.
func WithLogger(l *logging.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// WithAnnotator sets where observation failures are recorded.
func WithAnnotator(a report.Annotator) Option {
	return func(v *Verifier) { v.annotator = a }
}

// WithStepTimeout bounds each reload, observation and follow-up step.
func WithStepTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.stepTimeout = d }
}

// WithStateHook observes every state entered by a run.
func WithStateHook(fn func(State)) Option {
	return func(v *Verifier) { v.onState = fn }
}

// NewVerifier creates a verifier.
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		logger:      logging.Nop(),
		annotator:   report.Discard,
		stepTimeout: DefaultStepTimeout,
		onState:     func(State) {},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run performs the mutation against an active session and classifies what
// the session shows afterwards. The only error it returns is a
// *MutationSetupError; once the mutation is confirmed, Run always yields
// exactly one Outcome. Observation failures are folded into the
// classification and annotated.
func (v *Verifier) Run(ctx context.Context, session Session, mutation Mutation) (Outcome, error) {
	v.enter(Active)

	if err := v.mutate(ctx, mutation); err != nil {
		v.logger.Warnf("%v", err)
		return "", err
	}
	v.enter(Mutated)

	if err := v.step(ctx, "reload", func(c context.Context) error { return session.Reload(c) }); err != nil {
		v.note("reload failed, observing current view: %v", err)
	}

	var loggedIn bool
	signalErr := v.step(ctx, "observe", func(c context.Context) error {
		var err error
		loggedIn, err = session.LoggedIn(c)
		return err
	})
	if signalErr != nil {
		v.note("logged-in signal unreadable, treating as logged out: %v", signalErr)
		loggedIn = false
	}
	v.enter(Observed)

	outcome := v.classify(ctx, session, loggedIn)
	v.enter(Classified)
	if signalErr != nil {
		// The outcome rests on an assumption, not an observation
		v.note("classified as %s assuming logged out: the logged-in signal could not be read", outcome)
		return outcome, nil
	}
	v.logger.Infof("classified as %s", outcome)
	return outcome, nil
}

func (v *Verifier) classify(ctx context.Context, session Session, loggedIn bool) Outcome {
	if !loggedIn {
		return SessionInvalidated
	}

	var redirected bool
	if err := v.step(ctx, "follow-up", func(c context.Context) error {
		var err error
		redirected, err = session.FollowUp(c)
		return err
	}); err != nil {
		v.note("follow-up action failed: %v", err)
		return SessionPersistsActionsFail
	}
	if redirected {
		return SessionPersistsActionsFail
	}
	return SessionPersistsUndetected
}

func (v *Verifier) mutate(ctx context.Context, mutation Mutation) error {
	if mutation == nil {
		return &MutationSetupError{Err: fmt.Errorf("no mutation given")}
	}

	var env *gateway.Envelope
	stepErr := v.step(ctx, "mutation", func(c context.Context) error {
		var err error
		env, err = mutation(c)
		return err
	})
	if stepErr != nil {
		return &MutationSetupError{Envelope: env, Err: stepErr}
	}
	if env == nil {
		return &MutationSetupError{Err: fmt.Errorf("mutation returned no envelope")}
	}
	if failure := env.Failure(); failure != nil {
		return &MutationSetupError{Envelope: env, Err: failure}
	}
	return nil
}

// step runs fn under the step timeout and converts a panic into an error.
func (v *Verifier) step(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	stepCtx, cancel := context.WithTimeout(ctx, v.stepTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	if err := fn(stepCtx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (v *Verifier) enter(s State) {
	v.logger.Infof("state %s", s)
	v.onState(s)
}

func (v *Verifier) note(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	v.logger.Warnf("%s", msg)
	v.annotator.Annotate(report.Note, msg)
}
