package suites

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/flowguard/pkg/gateway/gatewaytest"
	"github.com/entrhq/flowguard/pkg/hybrid"
	"github.com/entrhq/flowguard/pkg/overlay"
	"github.com/entrhq/flowguard/pkg/pages"
	"github.com/entrhq/flowguard/pkg/report"
	"github.com/entrhq/flowguard/pkg/scenario"
)

// siteDriver is a scripted stand-in for the browser: selectors in visible
// are shown, clicks on selectors in navigate change the location.
type siteDriver struct {
	mu       sync.Mutex
	location string
	visible  map[string]bool
	texts    map[string]string
	navigate map[string]string
}

func newSiteDriver() *siteDriver {
	return &siteDriver{
		location: "https://shop.test/",
		visible:  map[string]bool{},
		texts:    map[string]string{},
		navigate: map[string]string{},
	}
}

func (d *siteDriver) MainFrame() overlay.Frame { return emptyFrame{} }

func (d *siteDriver) Location() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location
}

func (d *siteDriver) Back(ctx context.Context) error { return nil }

func (d *siteDriver) Goto(ctx context.Context, location string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = "https://shop.test" + location
	return nil
}

func (d *siteDriver) Reload(ctx context.Context) error { return nil }

func (d *siteDriver) Click(ctx context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if to, ok := d.navigate[selector]; ok {
		d.location = to
	}
	return nil
}

func (d *siteDriver) Fill(ctx context.Context, selector, value string) error   { return nil }
func (d *siteDriver) Select(ctx context.Context, selector, value string) error { return nil }
func (d *siteDriver) Check(ctx context.Context, selector string) error         { return nil }

func (d *siteDriver) Visible(ctx context.Context, selector string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible[selector], nil
}

func (d *siteDriver) WaitVisible(ctx context.Context, selector string) error {
	if ok, _ := d.Visible(ctx, selector); !ok {
		return fmt.Errorf("timeout waiting for %s", selector)
	}
	return nil
}

func (d *siteDriver) Text(ctx context.Context, selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.texts[selector], nil
}

func (d *siteDriver) Texts(ctx context.Context, selector string) ([]string, error) {
	return nil, nil
}

func (d *siteDriver) Count(ctx context.Context, selector string) (int, error) {
	return 0, nil
}

type emptyFrame struct{}

func (emptyFrame) Visible(ctx context.Context, selector string) (bool, error) { return false, nil }
func (emptyFrame) Click(ctx context.Context, selector string) error           { return nil }
func (emptyFrame) Children() []overlay.Frame                                  { return nil }

type oneBrowser struct {
	driver *siteDriver
}

func (b oneBrowser) Open(ctx context.Context, name string) (pages.Driver, error) {
	return b.driver, nil
}

func (b oneBrowser) Close(name string) error { return nil }

func newRunner(t *testing.T, server *gatewaytest.Server, d *siteDriver) *scenario.Runner {
	t.Helper()
	layer, err := overlay.NewLayer(overlay.WithSettle(0))
	require.NoError(t, err)
	r, err := scenario.NewRunner(server.APIURL(),
		scenario.WithLayer(layer),
		scenario.WithBrowsers(oneBrowser{driver: d}),
	)
	require.NoError(t, err)
	return r
}

func find(t *testing.T, id string) scenario.Scenario {
	t.Helper()
	selected, err := Select(SuiteAll, id)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	return selected[0]
}

func TestAPISuite(t *testing.T) {
	server := gatewaytest.NewServer()
	defer server.Close()
	r := newRunner(t, server, newSiteDriver())

	reports := r.RunSuite(context.Background(), API(), 4)

	require.Len(t, reports, 12)
	for _, rep := range reports {
		assert.True(t, rep.Passed(), "%s: %s", rep.ID, rep.Error)
		assert.Empty(t, rep.Annotated(report.CleanupFailure), rep.ID)
	}
	assert.Zero(t, server.AccountCount(), "every created account is released")
}

func TestAPISuite_DeleteIsSettledInScenario(t *testing.T) {
	server := gatewaytest.NewServer()
	defer server.Close()

	rep := newRunner(t, server, newSiteDriver()).Run(context.Background(), find(t, "API-USER-003"))

	require.True(t, rep.Passed(), rep.Error)
	cleanup := rep.Annotated(report.Cleanup)
	require.Len(t, cleanup, 1)
	assert.True(t, strings.HasPrefix(cleanup[0], "Released in scenario: delete_success_"))
	assert.Len(t, server.Calls("/api/deleteAccount"), 1)
}

func TestAPISuite_ShapeViolationFails(t *testing.T) {
	server := gatewaytest.NewServer()
	defer server.Close()
	server.Fail("/api/productsList", 200, `{"responseCode": 200, "products": [{"id": "one"}]}`)

	rep := newRunner(t, server, newSiteDriver()).Run(context.Background(), find(t, "API-PRODUCT-001"))

	assert.False(t, rep.Passed())
	assert.Contains(t, rep.Error, "unexpected response shape")
}

func TestAPISuite_ContractViolationFails(t *testing.T) {
	server := gatewaytest.NewServer()
	defer server.Close()
	server.Fail("/api/verifyLogin", 200, `{"responseCode": 200, "message": "User exists!"}`)

	rep := newRunner(t, server, newSiteDriver()).Run(context.Background(), find(t, "API-USER-005"))

	assert.False(t, rep.Passed())
	assert.Contains(t, rep.Error, "responseCode = 200, want 404")
}

func TestAPISuite_DuplicateEmailRequiresFirstCreate(t *testing.T) {
	server := gatewaytest.NewServer()
	defer server.Close()
	server.Fail("/api/createAccount", 200, `{"responseCode": 400, "message": "Email already exists!"}`)

	rep := newRunner(t, server, newSiteDriver()).Run(context.Background(), find(t, "API-USER-004"))

	assert.False(t, rep.Passed(), "a rejected first create must not pass as a duplicate")
	assert.Contains(t, rep.Error, "responseCode = 400, want 201")
}

// loggedInSite scripts a site where user is logged in and logout leads to
// logoutTo.
func loggedInSite(name, logoutTo string) *siteDriver {
	d := newSiteDriver()
	d.visible[`a:has-text("Logged in as")`] = true
	d.visible[fmt.Sprintf(`a:has-text("Logged in as %s")`, name)] = true
	d.navigate[`a[href="/logout"]`] = logoutTo
	return d
}

func TestHybrid_VanishingUser(t *testing.T) {
	tests := []struct {
		name    string
		driver  func() *siteDriver
		outcome hybrid.Outcome
	}{
		{
			name:    "session persists, logout redirects",
			driver:  func() *siteDriver { return loggedInSite("vanishing_user", "https://shop.test/login") },
			outcome: hybrid.SessionPersistsActionsFail,
		},
		{
			name: "session invalidated on reload",
			driver: func() *siteDriver {
				d := loggedInSite("vanishing_user", "https://shop.test/login")
				d.visible[`a:has-text("Logged in as")`] = false
				d.visible[`a[href="/login"]`] = true
				return d
			},
			outcome: hybrid.SessionInvalidated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := gatewaytest.NewServer()
			defer server.Close()

			rep := newRunner(t, server, tt.driver()).Run(context.Background(), find(t, "HYBRID-001"))

			require.True(t, rep.Passed(), rep.Error)
			assert.Equal(t, string(tt.outcome), rep.Outcome)
			assert.Equal(t, []string{string(tt.outcome)}, rep.Annotated(report.ConsistencyOutcome))
			assert.Zero(t, server.AccountCount())
			assert.Empty(t, rep.Annotated(report.CleanupFailure))
			require.Len(t, rep.Annotated(report.Cleanup), 1)
			assert.Contains(t, rep.Annotated(report.Cleanup)[0], "Released in scenario")
		})
	}
}

func TestHybrid_UnconfirmedMutationFails(t *testing.T) {
	server := gatewaytest.NewServer()
	defer server.Close()
	server.Fail("/api/deleteAccount", 200, `{"responseCode": 500, "message": "Internal error"}`)

	d := loggedInSite("vanishing_user", "https://shop.test/login")
	rep := newRunner(t, server, d).Run(context.Background(), find(t, "HYBRID-001"))

	assert.False(t, rep.Passed())
	assert.Contains(t, rep.Error, "hybrid mutation not confirmed")
	assert.Empty(t, rep.Outcome)
	assert.Len(t, rep.Annotated(report.CleanupFailure), 1, "the account is still tracked")
}

func TestUI_LoginUnknownCredentials(t *testing.T) {
	server := gatewaytest.NewServer()
	defer server.Close()
	d := newSiteDriver()
	d.visible[".login-form p"] = true
	d.texts[".login-form p"] = "Your email or password is incorrect!"

	rep := newRunner(t, server, d).Run(context.Background(), find(t, "UI-LOGIN-002"))

	require.True(t, rep.Passed(), rep.Error)
	assert.Equal(t, []string{"TC-3"}, rep.Annotated(report.TestCaseID))
}

func TestUI_LoginValidTracksRegisteredAccount(t *testing.T) {
	server := gatewaytest.NewServer()
	defer server.Close()
	d := loggedInSite("Test Setup User", "https://shop.test/login")
	d.visible[`b:has-text("Enter Account Information")`] = true
	d.visible[`b:has-text("Account Created!")`] = true
	d.visible[`h2:has-text("Login to your account")`] = true

	rep := newRunner(t, server, d).Run(context.Background(), find(t, "UI-LOGIN-001"))

	require.True(t, rep.Passed(), rep.Error)
	// The scripted site never reached the fake backend, so the release
	// attempt is reported without failing the scenario.
	failures := rep.Annotated(report.CleanupFailure)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "login_valid_")
	assert.Contains(t, failures[0], "Account not found!")
}

func TestSelect(t *testing.T) {
	tests := []struct {
		suite   string
		pattern string
		want    int
		wantErr bool
	}{
		{suite: SuiteAll, want: 19},
		{suite: "", want: 19},
		{suite: SuiteAPI, want: 12},
		{suite: SuiteUI, want: 6},
		{suite: SuiteHybrid, want: 1},
		{suite: SuiteAll, pattern: "API-USER-*", want: 8},
		{suite: SuiteAll, pattern: "*-00[12]", want: 10},
		{suite: SuiteUI, pattern: "API-*", want: 0},
		{suite: "smoke", wantErr: true},
		{suite: SuiteAll, pattern: "[", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.suite+"/"+tt.pattern, func(t *testing.T) {
			got, err := Select(tt.suite, tt.pattern)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestScenarioIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range All() {
		assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
		assert.NotNil(t, s.Body, s.ID)
		assert.Equal(t, s.Browser, s.Suite != SuiteAPI, s.ID)
	}
	assert.True(t, NeedsBrowser(Hybrid()))
	assert.False(t, NeedsBrowser(API()))
}
