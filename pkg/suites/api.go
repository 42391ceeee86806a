package suites

import (
	"context"

	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/scenario"
)

// API returns the backend scenarios for accounts and the catalog.
func API() []scenario.Scenario {
	return []scenario.Scenario{
		{ID: "API-USER-001", Name: "create user account", Suite: SuiteAPI, Body: createAccount},
		{ID: "API-USER-002", Name: "login with valid credentials", Suite: SuiteAPI, Body: loginValid},
		{ID: "API-USER-003", Name: "delete user account", Suite: SuiteAPI, Body: deleteAccount},
		{ID: "API-USER-004", Name: "reject duplicate email registration", Suite: SuiteAPI, Body: duplicateEmail},
		{ID: "API-USER-005", Name: "reject login with unknown credentials", Suite: SuiteAPI, Body: loginUnknown},
		{ID: "API-USER-006", Name: "reject wrong password exactly like an unknown email", Suite: SuiteAPI, Body: loginWrongPassword},
		{ID: "API-USER-007", Name: "reject registration with missing required fields", Suite: SuiteAPI, Body: missingFields},
		{ID: "API-USER-008", Name: "update account and read it back", Suite: SuiteAPI, Body: updateAccount},
		{ID: "API-PRODUCT-001", Name: "list all products", Suite: SuiteAPI, Body: listProducts},
		{ID: "API-PRODUCT-002", Name: "search products by term", Suite: SuiteAPI, Body: searchProducts},
		{ID: "API-PRODUCT-003", Name: "list all brands", Suite: SuiteAPI, Body: listBrands},
		{ID: "API-PRODUCT-004", Name: "empty results for non-matching search", Suite: SuiteAPI, Body: searchNoMatch},
	}
}

// createTracked creates account and records it for cleanup whatever the
// response says, so a half-created account is still released.
func createTracked(ctx context.Context, env *scenario.Env, account gateway.Account) (*gateway.Envelope, error) {
	resp, err := env.Accounts.Create(ctx, account)
	env.TrackAccount(account.Email, account.Password)
	return resp, err
}

func createAccount(ctx context.Context, env *scenario.Env) error {
	resp, err := createTracked(ctx, env, APIUser(env, "create_success"))
	if err != nil {
		return err
	}
	return expectResponse(resp, 201, "User created!")
}

func loginValid(ctx context.Context, env *scenario.Env) error {
	user := APIUser(env, "login_valid")
	if _, err := createTracked(ctx, env, user); err != nil {
		return err
	}

	resp, err := env.Accounts.VerifyLogin(ctx, user.Email, user.Password)
	if err != nil {
		return err
	}
	return expectResponse(resp, 200, "User exists!")
}

func deleteAccount(ctx context.Context, env *scenario.Env) error {
	user := APIUser(env, "delete_success")
	if _, err := createTracked(ctx, env, user); err != nil {
		return err
	}

	resp, err := env.Accounts.Delete(ctx, user.Email, user.Password)
	if err != nil {
		return err
	}
	if err := expectResponse(resp, 200, "Account deleted!"); err != nil {
		return err
	}
	env.Tracker.Settle(user.Email)
	return nil
}

func duplicateEmail(ctx context.Context, env *scenario.Env) error {
	user := APIUser(env, "duplicate_email")
	first, err := createTracked(ctx, env, user)
	if err != nil {
		return err
	}
	if err := expectResponse(first, 201, "User created!"); err != nil {
		return err
	}

	resp, err := env.Accounts.Create(ctx, user)
	if err != nil {
		return err
	}
	return expectResponse(resp, 400, "Email already exists!")
}

func loginUnknown(ctx context.Context, env *scenario.Env) error {
	resp, err := env.Accounts.VerifyLogin(ctx, "nonexistent@test.com", "wrongpassword")
	if err != nil {
		return err
	}
	return expectResponse(resp, 404, "User not found!")
}

func loginWrongPassword(ctx context.Context, env *scenario.Env) error {
	user := APIUser(env, "wrong_password")
	if _, err := createTracked(ctx, env, user); err != nil {
		return err
	}

	resp, err := env.Accounts.VerifyLogin(ctx, user.Email, "WrongPassword123")
	if err != nil {
		return err
	}
	if err := expectResponse(resp, 404, "User not found!"); err != nil {
		return err
	}

	// A wrong password must be indistinguishable from an unknown email
	unknown, err := env.Accounts.VerifyLogin(ctx, env.Email("unknown"), "WrongPassword123")
	if err != nil {
		return err
	}
	return must(unknown.Code() == resp.Code() && unknown.Message() == resp.Message(),
		"wrong password answered %d %q, unknown email answered %d %q",
		resp.Code(), resp.Message(), unknown.Code(), unknown.Message())
}

func missingFields(ctx context.Context, env *scenario.Env) error {
	resp, err := env.Accounts.Create(ctx, gateway.Account{Email: env.Email("missing_fields")})
	if err != nil {
		return err
	}
	return expectResponse(resp, 400, "Bad request, name parameter is missing in POST request.")
}

func updateAccount(ctx context.Context, env *scenario.Env) error {
	user := APIUser(env, "update_details")
	if _, err := createTracked(ctx, env, user); err != nil {
		return err
	}

	user.City = "San Francisco"
	user.Company = "Updated Company"
	resp, err := env.Accounts.Update(ctx, user)
	if err != nil {
		return err
	}
	if err := expectResponse(resp, 200, "User updated!"); err != nil {
		return err
	}

	resp, err = env.Accounts.DetailByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if err := expectResponse(resp, 200, ""); err != nil {
		return err
	}
	detail, err := gateway.User(resp)
	if err != nil {
		return err
	}
	if err := must(detail.Email == user.Email, "detail email = %q, want %q", detail.Email, user.Email); err != nil {
		return err
	}
	return must(detail.City == user.City, "detail city = %q, want %q", detail.City, user.City)
}

func listProducts(ctx context.Context, env *scenario.Env) error {
	resp, err := env.Catalog.Products(ctx)
	if err != nil {
		return err
	}
	if err := expectResponse(resp, 200, ""); err != nil {
		return err
	}
	products, err := gateway.Products(resp)
	if err != nil {
		return err
	}
	return must(len(products) > 0, "product list is empty")
}

func searchProducts(ctx context.Context, env *scenario.Env) error {
	const term = "top"
	resp, err := env.Catalog.Search(ctx, term)
	if err != nil {
		return err
	}
	if err := expectResponse(resp, 200, ""); err != nil {
		return err
	}
	products, err := gateway.Products(resp)
	if err != nil {
		return err
	}
	for _, p := range products {
		if !p.Matches(term) {
			return must(false, "product %q (%s) does not match %q", p.Name, p.Category.Category, term)
		}
	}
	return nil
}

func listBrands(ctx context.Context, env *scenario.Env) error {
	resp, err := env.Catalog.Brands(ctx)
	if err != nil {
		return err
	}
	if err := expectResponse(resp, 200, ""); err != nil {
		return err
	}
	brands, err := gateway.Brands(resp)
	if err != nil {
		return err
	}
	return must(len(brands) > 0, "brand list is empty")
}

func searchNoMatch(ctx context.Context, env *scenario.Env) error {
	resp, err := env.Catalog.Search(ctx, "nonexistentproduct12345xyz")
	if err != nil {
		return err
	}
	if err := expectResponse(resp, 200, ""); err != nil {
		return err
	}
	products, err := gateway.Products(resp)
	if err != nil {
		return err
	}
	return must(len(products) == 0, "expected no products, got %d", len(products))
}
