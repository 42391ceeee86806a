package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/flowguard/pkg/overlay"
)

// Login selectors.
const (
	selLoginEmail    = `input[data-qa="login-email"]`
	selLoginPassword = `input[data-qa="login-password"]`
	selLoginButton   = `button[data-qa="login-button"]`
	selLoginError    = `.login-form p`
	selLoginHeader   = `h2:has-text("Login to your account")`
	selLogout        = `a[href="/logout"]`
	selLoginLink     = `a[href="/login"]`
	loggedInPrefix   = "Logged in as"
)

// Login is the authentication capability of the UI.
type Login interface {
	Navigable
	Login(ctx context.Context, email, password string) error
	LoggedIn(ctx context.Context) (bool, error)
	ExpectLoggedInAs(ctx context.Context, name string) error
	ErrorMessage(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
}

// LoginPage implements Login at /login.
type LoginPage struct {
	page
	redirectWait time.Duration
}

var _ Login = (*LoginPage)(nil)

// NewLogin creates the login page. layer may be nil.
func NewLogin(d Driver, layer *overlay.Layer) *LoginPage {
	return &LoginPage{
		page:         page{driver: d, layer: layer, path: "/login"},
		redirectWait: DefaultRedirectWait,
	}
}

// Login submits the login form. The submit goes through the overlay layer.
func (l *LoginPage) Login(ctx context.Context, email, password string) error {
	if err := l.fill(ctx, [][2]string{
		{selLoginEmail, email},
		{selLoginPassword, password},
	}); err != nil {
		return err
	}
	return l.guarded(ctx, selLoginButton)
}

// LoggedIn reports whether the "Logged in as" signal is visible now.
func (l *LoginPage) LoggedIn(ctx context.Context) (bool, error) {
	return l.driver.Visible(ctx, hasText("a", loggedInPrefix))
}

// ExpectLoggedInAs waits for "Logged in as NAME".
func (l *LoginPage) ExpectLoggedInAs(ctx context.Context, name string) error {
	if err := l.driver.WaitVisible(ctx, hasText("a", loggedInPrefix+" "+name)); err != nil {
		return fmt.Errorf("not logged in as %q: %w", name, err)
	}
	return nil
}

// ErrorMessage waits for the login form error and returns its text.
func (l *LoginPage) ErrorMessage(ctx context.Context) (string, error) {
	if err := l.driver.WaitVisible(ctx, selLoginError); err != nil {
		return "", fmt.Errorf("no login error shown: %w", err)
	}
	return l.driver.Text(ctx, selLoginError)
}

// Logout clicks the logout link and waits for the login form.
func (l *LoginPage) Logout(ctx context.Context) error {
	if err := l.guarded(ctx, selLogout); err != nil {
		return err
	}
	return l.driver.WaitVisible(ctx, selLoginHeader)
}

// LoginSession adapts a logged-in Login to the hybrid verifier's session:
// reload, the "Logged in as" signal, and logout as the follow-up action.
type LoginSession struct {
	login        *LoginPage
	redirectWait time.Duration
}

// NewLoginSession wraps an established login.
func NewLoginSession(login *LoginPage) *LoginSession {
	return &LoginSession{login: login, redirectWait: login.redirectWait}
}

func (s *LoginSession) Reload(ctx context.Context) error {
	if err := s.login.driver.Reload(ctx); err != nil {
		return err
	}
	s.login.settle(ctx)
	return nil
}

func (s *LoginSession) LoggedIn(ctx context.Context) (bool, error) {
	return s.login.LoggedIn(ctx)
}

// FollowUp logs out and reports whether the browser ended on /login.
func (s *LoginSession) FollowUp(ctx context.Context) (bool, error) {
	if err := s.login.guarded(ctx, selLogout); err != nil {
		return false, err
	}
	return s.login.waitLocation(ctx, "/login", s.redirectWait), nil
}

// LoginLinkVisible reports whether the anonymous "Signup / Login" link is
// shown, which is what an invalidated session falls back to.
func (s *LoginSession) LoginLinkVisible(ctx context.Context) (bool, error) {
	return s.login.driver.Visible(ctx, selLoginLink)
}
