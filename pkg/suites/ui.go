package suites

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/pages"
	"github.com/entrhq/flowguard/pkg/scenario"
)

// UI returns the browser scenarios.
func UI() []scenario.Scenario {
	return []scenario.Scenario{
		{ID: "UI-LOGIN-001", CaseID: "TC-2", Name: "login with valid credentials", Suite: SuiteUI, Browser: true, Body: uiLoginValid},
		{ID: "UI-LOGIN-002", CaseID: "TC-3", Name: "login error for unknown credentials", Suite: SuiteUI, Browser: true, Body: uiLoginUnknown},
		{ID: "UI-LOGIN-003", CaseID: "TC-4", Name: "login error for wrong password", Suite: SuiteUI, Browser: true, Body: uiLoginWrongPassword},
		{ID: "UI-PRODUCTS-001", CaseID: "TC-9", Name: "search shows matching products", Suite: SuiteUI, Browser: true, Body: uiSearch},
		{ID: "UI-PRODUCTS-002", CaseID: "TC-12", Name: "add two products to the cart", Suite: SuiteUI, Browser: true, Body: uiCartCount},
		{ID: "UI-ORDER-001", CaseID: "TC-16", Name: "purchase flow with address verification", Suite: SuiteUI, Browser: true, Body: uiPlaceOrder},
	}
}

// site bundles the page capabilities of one browser session.
type site struct {
	login    *pages.LoginPage
	signup   *pages.SignupPage
	products *pages.ProductsPage
	cart     *pages.CartPage
	checkout *pages.CheckoutPage
	payment  *pages.PaymentPage
}

func openSite(ctx context.Context, env *scenario.Env) (*site, error) {
	d, err := env.Driver(ctx)
	if err != nil {
		return nil, err
	}
	return &site{
		login:    pages.NewLogin(d, env.Layer),
		signup:   pages.NewSignup(d, env.Layer),
		products: pages.NewProducts(d, env.Layer),
		cart:     pages.NewCart(d, env.Layer),
		checkout: pages.NewCheckout(d, env.Layer),
		payment:  pages.NewPayment(d, env.Layer),
	}, nil
}

// register signs up through the UI and tracks the account as soon as the
// form has been submitted.
func (s *site) register(ctx context.Context, env *scenario.Env, user gateway.Account) error {
	submitted, err := pages.Register(ctx, s.signup, user)
	if submitted {
		env.TrackAccount(user.Email, user.Password)
	}
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return s.login.ExpectLoggedInAs(ctx, user.Name)
}

func expectLoginError(ctx context.Context, login pages.Login) error {
	msg, err := login.ErrorMessage(ctx)
	if err != nil {
		return err
	}
	return must(strings.Contains(strings.ToLower(msg), "email or password is incorrect"),
		"unexpected login error %q", msg)
}

func uiLoginValid(ctx context.Context, env *scenario.Env) error {
	s, err := openSite(ctx, env)
	if err != nil {
		return err
	}
	user := UIUser(env, "login_valid")
	if err := s.register(ctx, env, user); err != nil {
		return err
	}
	if err := s.login.Logout(ctx); err != nil {
		return err
	}
	if err := s.login.Login(ctx, user.Email, user.Password); err != nil {
		return err
	}
	return s.login.ExpectLoggedInAs(ctx, user.Name)
}

func uiLoginUnknown(ctx context.Context, env *scenario.Env) error {
	s, err := openSite(ctx, env)
	if err != nil {
		return err
	}
	if err := s.login.Visit(ctx); err != nil {
		return err
	}
	if err := s.login.Login(ctx, "wrong_email@test.com", "wrong_password"); err != nil {
		return err
	}
	return expectLoginError(ctx, s.login)
}

func uiLoginWrongPassword(ctx context.Context, env *scenario.Env) error {
	s, err := openSite(ctx, env)
	if err != nil {
		return err
	}
	user := UIUser(env, "login_wrong_pass")
	if err := s.register(ctx, env, user); err != nil {
		return err
	}
	if err := s.login.Logout(ctx); err != nil {
		return err
	}
	if err := s.login.Login(ctx, user.Email, "WrongPassport123!"); err != nil {
		return err
	}
	return expectLoginError(ctx, s.login)
}

func uiSearch(ctx context.Context, env *scenario.Env) error {
	const term = "Blue"
	s, err := openSite(ctx, env)
	if err != nil {
		return err
	}
	if err := s.products.Visit(ctx); err != nil {
		return err
	}
	if err := s.products.Search(ctx, term); err != nil {
		return err
	}
	titles, err := s.products.Titles(ctx)
	if err != nil {
		return err
	}
	env.Logger.Infof("found %d products for %q", len(titles), term)
	if off := pages.NotMatching(titles, term); len(off) > 0 {
		return fmt.Errorf("products not matching %q: %v", term, off)
	}
	return nil
}

func uiCartCount(ctx context.Context, env *scenario.Env) error {
	s, err := openSite(ctx, env)
	if err != nil {
		return err
	}
	if err := s.products.Visit(ctx); err != nil {
		return err
	}
	if err := s.products.AddToCart(ctx, 0); err != nil {
		return err
	}
	if err := s.products.ContinueShopping(ctx); err != nil {
		return err
	}
	if err := s.products.AddToCart(ctx, 1); err != nil {
		return err
	}
	if err := s.products.ViewCart(ctx); err != nil {
		return err
	}
	n, err := s.cart.Items(ctx)
	if err != nil {
		return err
	}
	return must(n == 2, "cart has %d items, want 2", n)
}

func uiPlaceOrder(ctx context.Context, env *scenario.Env) error {
	s, err := openSite(ctx, env)
	if err != nil {
		return err
	}
	user := UIUser(env, "order_user")
	user.Name, user.FirstName, user.LastName = "Order User", "Order", "User"
	if err := s.register(ctx, env, user); err != nil {
		return err
	}

	// The logged-in home page lists product cards
	if err := s.products.AddToCart(ctx, 0); err != nil {
		return err
	}
	if err := s.products.ViewCart(ctx); err != nil {
		return err
	}
	if err := s.cart.ProceedToCheckout(ctx); err != nil {
		return err
	}

	delivery, err := s.checkout.DeliveryAddress(ctx)
	if err != nil {
		return err
	}
	if err := pages.VerifyAddress(delivery, user); err != nil {
		return fmt.Errorf("delivery address: %w", err)
	}
	billing, err := s.checkout.BillingAddress(ctx)
	if err != nil {
		return err
	}
	if err := pages.VerifyAddress(billing, user); err != nil {
		return fmt.Errorf("billing address: %w", err)
	}

	if err := s.checkout.Comment(ctx, "This is a test order."); err != nil {
		return err
	}
	if err := s.checkout.PlaceOrder(ctx); err != nil {
		return err
	}
	if err := s.payment.Pay(ctx, testCard(user.Name)); err != nil {
		return err
	}
	return s.payment.ExpectOrderPlaced(ctx)
}
