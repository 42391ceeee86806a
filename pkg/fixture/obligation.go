package fixture

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/flowguard/pkg/gateway"
)

// Kind identifies the type of backend resource an obligation refers to.
type Kind string

const (
	// Account is a user account created through the gateway
	Account Kind = "ACCOUNT"
)

// Obligation is a backend resource that must be released before the
// scenario that created it is finished.
type Obligation struct {
	Kind       Kind
	Identity   string
	Credential string
	CreatedAt  time.Time
}

func (o Obligation) String() string {
	return fmt.Sprintf("%s %s", o.Kind, o.Identity)
}

// Releaser performs one release attempt for an obligation.
type Releaser interface {
	Release(ctx context.Context, o Obligation) error
}

// ReleaserFunc adapts a function to Releaser.
type ReleaserFunc func(ctx context.Context, o Obligation) error

// Release calls f.
func (f ReleaserFunc) Release(ctx context.Context, o Obligation) error {
	return f(ctx, o)
}

// AccountReleaser deletes accounts through the gateway. A release only
// counts when the backend confirms it.
func AccountReleaser(accounts *gateway.Accounts) Releaser {
	return ReleaserFunc(func(ctx context.Context, o Obligation) error {
		env, err := accounts.Delete(ctx, o.Identity, o.Credential)
		if err != nil {
			return err
		}
		if failure := env.Failure(); failure != nil {
			return failure
		}
		return nil
	})
}

// CleanupFailure describes a release attempt that did not succeed. It is a
// diagnostic, never a scenario failure.
type CleanupFailure struct {
	Obligation Obligation
	Err        error
}

func (e *CleanupFailure) Error() string {
	return fmt.Sprintf("failed to release %s: %v", e.Obligation, e.Err)
}

func (e *CleanupFailure) Unwrap() error {
	return e.Err
}

// Result is the outcome of one release attempt.
type Result struct {
	Obligation Obligation
	Released   bool
	Failure    *CleanupFailure
}
