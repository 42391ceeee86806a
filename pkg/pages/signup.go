package pages

import (
	"context"
	"fmt"

	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/overlay"
)

const (
	selSignupName     = `input[data-qa="signup-name"]`
	selSignupEmail    = `input[data-qa="signup-email"]`
	selSignupButton   = `button[data-qa="signup-button"]`
	selAccountInfo    = `b:has-text("Enter Account Information")`
	selTitleMr        = `input[id="id_gender1"]`
	selTitleMrs       = `input[id="id_gender2"]`
	selPassword       = `input[data-qa="password"]`
	selDays           = `select[data-qa="days"]`
	selMonths         = `select[data-qa="months"]`
	selYears          = `select[data-qa="years"]`
	selNewsletter     = `input[name="newsletter"]`
	selOptin          = `input[name="optin"]`
	selFirstName      = `input[data-qa="first_name"]`
	selLastName       = `input[data-qa="last_name"]`
	selCompany        = `input[data-qa="company"]`
	selAddress1       = `input[data-qa="address"]`
	selAddress2       = `input[data-qa="address2"]`
	selCountry        = `select[data-qa="country"]`
	selState          = `input[data-qa="state"]`
	selCity           = `input[data-qa="city"]`
	selZipcode        = `input[data-qa="zipcode"]`
	selMobile         = `input[data-qa="mobile_number"]`
	selCreateAccount  = `button[data-qa="create-account"]`
	selAccountCreated = `b:has-text("Account Created!")`
	selContinue       = `a[data-qa="continue-button"]`
	selEmailExists    = `p:has-text("Email Address already exist!")`
)

// Signup is the registration capability of the UI.
type Signup interface {
	Navigable
	Start(ctx context.Context, name, email string) error
	FillAccount(ctx context.Context, account gateway.Account) error
	FillAddress(ctx context.Context, account gateway.Account) error
	CreateAccount(ctx context.Context) error
	ExpectCreated(ctx context.Context) error
	Continue(ctx context.Context) error
	EmailExists(ctx context.Context) (bool, error)
}

// SignupPage implements Signup. Registration starts on the same /login
// page as Login.
type SignupPage struct {
	page
}

var _ Signup = (*SignupPage)(nil)

// NewSignup creates the signup page. layer may be nil.
func NewSignup(d Driver, layer *overlay.Layer) *SignupPage {
	return &SignupPage{page: page{driver: d, layer: layer, path: "/login"}}
}

// Start submits the "New User Signup!" form.
func (s *SignupPage) Start(ctx context.Context, name, email string) error {
	if err := s.fill(ctx, [][2]string{
		{selSignupName, name},
		{selSignupEmail, email},
	}); err != nil {
		return err
	}
	return s.guarded(ctx, selSignupButton)
}

// FillAccount fills the account information step.
func (s *SignupPage) FillAccount(ctx context.Context, account gateway.Account) error {
	if err := s.driver.WaitVisible(ctx, selAccountInfo); err != nil {
		return fmt.Errorf("account information form not shown: %w", err)
	}

	title := selTitleMr
	if account.Title == "Mrs" {
		title = selTitleMrs
	}
	if err := s.driver.Check(ctx, title); err != nil {
		return err
	}
	if err := s.driver.Fill(ctx, selPassword, account.Password); err != nil {
		return err
	}
	for _, sel := range [][2]string{
		{selDays, account.BirthDate},
		{selMonths, account.BirthMonth},
		{selYears, account.BirthYear},
	} {
		if sel[1] == "" {
			continue
		}
		if err := s.driver.Select(ctx, sel[0], sel[1]); err != nil {
			return err
		}
	}
	if err := s.driver.Check(ctx, selNewsletter); err != nil {
		return err
	}
	return s.driver.Check(ctx, selOptin)
}

// FillAddress fills the address information step.
func (s *SignupPage) FillAddress(ctx context.Context, account gateway.Account) error {
	if err := s.fill(ctx, [][2]string{
		{selFirstName, account.FirstName},
		{selLastName, account.LastName},
		{selCompany, account.Company},
		{selAddress1, account.Address1},
		{selAddress2, account.Address2},
	}); err != nil {
		return err
	}
	if err := s.driver.Select(ctx, selCountry, account.Country); err != nil {
		return err
	}
	return s.fill(ctx, [][2]string{
		{selState, account.State},
		{selCity, account.City},
		{selZipcode, account.Zipcode},
		{selMobile, account.MobileNumber},
	})
}

// CreateAccount submits the account form.
func (s *SignupPage) CreateAccount(ctx context.Context) error {
	return s.guarded(ctx, selCreateAccount)
}

// ExpectCreated waits for the "Account Created!" confirmation.
func (s *SignupPage) ExpectCreated(ctx context.Context) error {
	if err := s.driver.WaitVisible(ctx, selAccountCreated); err != nil {
		return fmt.Errorf("account not created: %w", err)
	}
	return nil
}

// Continue leaves the confirmation page for the logged-in home page.
func (s *SignupPage) Continue(ctx context.Context) error {
	if err := s.guarded(ctx, selContinue); err != nil {
		return err
	}
	s.settle(ctx)
	return nil
}

// EmailExists waits for the duplicate email error.
func (s *SignupPage) EmailExists(ctx context.Context) (bool, error) {
	if err := s.driver.WaitVisible(ctx, selEmailExists); err != nil {
		return false, err
	}
	return true, nil
}

// Register runs the whole registration flow and leaves the user logged in.
// submitted reports whether the account form was submitted. From then on
// the backend may hold the account whatever the page shows, so callers
// record the cleanup obligation even when a later step fails.
func Register(ctx context.Context, s Signup, account gateway.Account) (submitted bool, err error) {
	if err := s.Visit(ctx); err != nil {
		return false, err
	}
	if err := s.Start(ctx, account.Name, account.Email); err != nil {
		return false, err
	}
	if err := s.FillAccount(ctx, account); err != nil {
		return false, err
	}
	if err := s.FillAddress(ctx, account); err != nil {
		return false, err
	}
	// A failed click may still have reached the backend
	if err := s.CreateAccount(ctx); err != nil {
		return true, err
	}
	if err := s.ExpectCreated(ctx); err != nil {
		return true, err
	}
	return true, s.Continue(ctx)
}
