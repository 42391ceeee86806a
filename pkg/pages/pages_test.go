package pages

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/overlay"
)

// fakeDriver records every interaction in order. Clicks on selectors
// listed in navigate move the location.
type fakeDriver struct {
	mu       sync.Mutex
	location string
	visible  map[string]bool
	texts    map[string]string
	lists    map[string][]string
	counts   map[string]int
	navigate map[string]string
	failOn   map[string]error
	frame    *fakeFrame
	actions  []string
	reloads  int
}

func newFakeDriver() *fakeDriver {
	d := &fakeDriver{
		location: "https://shop.test/",
		visible:  map[string]bool{},
		texts:    map[string]string{},
		lists:    map[string][]string{},
		counts:   map[string]int{},
		navigate: map[string]string{},
		failOn:   map[string]error{},
	}
	d.frame = &fakeFrame{driver: d, visible: map[string]bool{}}
	return d
}

func (d *fakeDriver) record(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = append(d.actions, fmt.Sprintf(format, args...))
}

func (d *fakeDriver) recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.actions...)
}

func (d *fakeDriver) MainFrame() overlay.Frame { return d.frame }

func (d *fakeDriver) Location() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location
}

func (d *fakeDriver) Back(ctx context.Context) error {
	d.record("back")
	return nil
}

func (d *fakeDriver) Goto(ctx context.Context, location string) error {
	d.record("goto %s", location)
	d.mu.Lock()
	d.location = "https://shop.test" + location
	d.mu.Unlock()
	return nil
}

func (d *fakeDriver) Reload(ctx context.Context) error {
	d.mu.Lock()
	d.reloads++
	d.mu.Unlock()
	return nil
}

func (d *fakeDriver) Click(ctx context.Context, selector string) error {
	d.record("click %s", selector)
	if err := d.failOn[selector]; err != nil {
		return err
	}
	if to, ok := d.navigate[selector]; ok {
		d.mu.Lock()
		d.location = to
		d.mu.Unlock()
	}
	return nil
}

func (d *fakeDriver) Fill(ctx context.Context, selector, value string) error {
	d.record("fill %s=%s", selector, value)
	return d.failOn[selector]
}

func (d *fakeDriver) Select(ctx context.Context, selector, value string) error {
	d.record("select %s=%s", selector, value)
	return nil
}

func (d *fakeDriver) Check(ctx context.Context, selector string) error {
	d.record("check %s", selector)
	return nil
}

func (d *fakeDriver) Visible(ctx context.Context, selector string) (bool, error) {
	return d.visible[selector], nil
}

func (d *fakeDriver) WaitVisible(ctx context.Context, selector string) error {
	if !d.visible[selector] {
		return fmt.Errorf("timeout waiting for %s", selector)
	}
	return nil
}

func (d *fakeDriver) Text(ctx context.Context, selector string) (string, error) {
	text, ok := d.texts[selector]
	if !ok {
		return "", fmt.Errorf("no element %s", selector)
	}
	return text, nil
}

func (d *fakeDriver) Texts(ctx context.Context, selector string) ([]string, error) {
	return d.lists[selector], nil
}

func (d *fakeDriver) Count(ctx context.Context, selector string) (int, error) {
	return d.counts[selector], nil
}

type fakeFrame struct {
	driver  *fakeDriver
	visible map[string]bool
}

func (f *fakeFrame) Visible(ctx context.Context, selector string) (bool, error) {
	return f.visible[selector], nil
}

func (f *fakeFrame) Click(ctx context.Context, selector string) error {
	f.driver.record("dismiss %s", selector)
	f.visible[selector] = false
	return nil
}

func (f *fakeFrame) Children() []overlay.Frame { return nil }

func newLayer(t *testing.T) *overlay.Layer {
	t.Helper()
	layer, err := overlay.NewLayer(overlay.WithSettle(0), overlay.WithBudget(time.Second))
	require.NoError(t, err)
	return layer
}

func testAccount() gateway.Account {
	return gateway.Account{
		Name:         "Test Setup User",
		Email:        "signup_abc@test.com",
		Password:     "Password123!",
		Title:        "Mr",
		BirthDate:    "10",
		BirthMonth:   "January",
		BirthYear:    "1990",
		FirstName:    "Test",
		LastName:     "User",
		Company:      "TestCompany",
		Address1:     "123 Test St",
		Address2:     "Apt 4B",
		Country:      "United States",
		State:        "California",
		City:         "Los Angeles",
		Zipcode:      "90001",
		MobileNumber: "1234567890",
	}
}

func TestLoginPage_Login(t *testing.T) {
	d := newFakeDriver()
	login := NewLogin(d, nil)

	require.NoError(t, login.Visit(context.Background()))
	require.NoError(t, login.Login(context.Background(), "a@test.com", "secret"))

	assert.Equal(t, []string{
		"goto /login",
		`fill input[data-qa="login-email"]=a@test.com`,
		`fill input[data-qa="login-password"]=secret`,
		`click button[data-qa="login-button"]`,
	}, d.recorded())
	assert.Equal(t, "https://shop.test/login", login.CurrentLocation())
}

func TestLoginPage_SubmitDismissesOverlayFirst(t *testing.T) {
	d := newFakeDriver()
	d.frame.visible["button.fc-cta-consent"] = true
	login := NewLogin(d, newLayer(t))

	require.NoError(t, login.Login(context.Background(), "a@test.com", "secret"))

	actions := d.recorded()
	require.Len(t, actions, 4)
	assert.Equal(t, "dismiss button.fc-cta-consent", actions[2])
	assert.Equal(t, `click button[data-qa="login-button"]`, actions[3])
}

func TestLoginPage_Signals(t *testing.T) {
	ctx := context.Background()
	d := newFakeDriver()
	login := NewLogin(d, nil)

	loggedIn, err := login.LoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, loggedIn)

	d.visible[`a:has-text("Logged in as")`] = true
	d.visible[`a:has-text("Logged in as Jane Doe")`] = true

	loggedIn, err = login.LoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, loggedIn)
	assert.NoError(t, login.ExpectLoggedInAs(ctx, "Jane Doe"))
	assert.Error(t, login.ExpectLoggedInAs(ctx, "John Roe"))
}

func TestLoginPage_ErrorMessage(t *testing.T) {
	ctx := context.Background()
	d := newFakeDriver()
	login := NewLogin(d, nil)

	_, err := login.ErrorMessage(ctx)
	assert.Error(t, err)

	d.visible[".login-form p"] = true
	d.texts[".login-form p"] = "Your email or password is incorrect!"
	msg, err := login.ErrorMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Your email or password is incorrect!", msg)
}

func TestLoginPage_Logout(t *testing.T) {
	d := newFakeDriver()
	d.navigate[`a[href="/logout"]`] = "https://shop.test/login"
	login := NewLogin(d, nil)

	assert.Error(t, login.Logout(context.Background()))

	d.visible[`h2:has-text("Login to your account")`] = true
	assert.NoError(t, login.Logout(context.Background()))
}

func TestLoginSession_FollowUp(t *testing.T) {
	tests := []struct {
		name      string
		landing   string
		clickErr  error
		wantRedir bool
		wantErr   bool
	}{
		{name: "redirected to login", landing: "https://shop.test/login", wantRedir: true},
		{name: "stays on home", landing: "https://shop.test/", wantRedir: false},
		{name: "click fails", clickErr: errors.New("detached"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDriver()
			if tt.landing != "" {
				d.navigate[`a[href="/logout"]`] = tt.landing
			}
			if tt.clickErr != nil {
				d.failOn[`a[href="/logout"]`] = tt.clickErr
			}
			session := NewLoginSession(NewLogin(d, nil))
			session.redirectWait = 50 * time.Millisecond

			redirected, err := session.FollowUp(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRedir, redirected)
		})
	}
}

func TestLoginSession_ReloadAndSignal(t *testing.T) {
	ctx := context.Background()
	d := newFakeDriver()
	d.visible[`a[href="/login"]`] = true
	session := NewLoginSession(NewLogin(d, newLayer(t)))

	require.NoError(t, session.Reload(ctx))
	assert.Equal(t, 1, d.reloads)

	loggedIn, err := session.LoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, loggedIn)

	anonymous, err := session.LoginLinkVisible(ctx)
	require.NoError(t, err)
	assert.True(t, anonymous)
}

func TestRegister(t *testing.T) {
	d := newFakeDriver()
	d.visible[`b:has-text("Enter Account Information")`] = true
	d.visible[`b:has-text("Account Created!")`] = true

	submitted, err := Register(context.Background(), NewSignup(d, nil), testAccount())
	require.NoError(t, err)
	assert.True(t, submitted)

	actions := d.recorded()
	assert.Equal(t, "goto /login", actions[0])
	assert.Contains(t, actions, `fill input[data-qa="signup-email"]=signup_abc@test.com`)
	assert.Contains(t, actions, `check input[id="id_gender1"]`)
	assert.Contains(t, actions, `select select[data-qa="months"]=January`)
	assert.Contains(t, actions, `select select[data-qa="country"]=United States`)
	assert.Contains(t, actions, `fill input[data-qa="mobile_number"]=1234567890`)
	assert.Equal(t, `click a[data-qa="continue-button"]`, actions[len(actions)-1])
}

func TestRegister_NotConfirmedStillSubmitted(t *testing.T) {
	d := newFakeDriver()
	d.visible[`b:has-text("Enter Account Information")`] = true

	submitted, err := Register(context.Background(), NewSignup(d, nil), testAccount())
	assert.ErrorContains(t, err, "account not created")
	assert.True(t, submitted, "the backend may hold the account once the form is sent")
	assert.Contains(t, d.recorded(), `click button[data-qa="create-account"]`)
	assert.NotContains(t, d.recorded(), `click a[data-qa="continue-button"]`)
}

func TestRegister_NotSubmittedBeforeForm(t *testing.T) {
	d := newFakeDriver()

	submitted, err := Register(context.Background(), NewSignup(d, nil), testAccount())
	assert.Error(t, err)
	assert.False(t, submitted)
	assert.NotContains(t, d.recorded(), `click button[data-qa="create-account"]`)
}

func TestSignupPage_MrsAndEmailExists(t *testing.T) {
	ctx := context.Background()
	d := newFakeDriver()
	d.visible[`b:has-text("Enter Account Information")`] = true
	signup := NewSignup(d, nil)

	account := testAccount()
	account.Title = "Mrs"
	require.NoError(t, signup.FillAccount(ctx, account))
	assert.Contains(t, d.recorded(), `check input[id="id_gender2"]`)

	exists, err := signup.EmailExists(ctx)
	assert.Error(t, err)
	assert.False(t, exists)

	d.visible[`p:has-text("Email Address already exist!")`] = true
	exists, err = signup.EmailExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProductsPage_Search(t *testing.T) {
	ctx := context.Background()
	d := newFakeDriver()
	products := NewProducts(d, nil)

	d.texts[".features_items .title.text-center"] = "Searched Products"
	require.NoError(t, products.Search(ctx, "Blue"))
	assert.Contains(t, d.recorded(), "fill #search_product=Blue")

	d.texts[".features_items .title.text-center"] = "ALL PRODUCTS"
	assert.Error(t, products.Search(ctx, "Blue"))
}

func TestProductsPage_AddToCart(t *testing.T) {
	ctx := context.Background()
	d := newFakeDriver()
	products := NewProducts(d, nil)

	assert.Error(t, products.AddToCart(ctx, 1))

	d.visible[`p:has-text("Your product has been added to cart.")`] = true
	require.NoError(t, products.AddToCart(ctx, 1))
	assert.Contains(t, d.recorded(), "click .features_items .col-sm-4 >> nth=1 >> .productinfo .add-to-cart")
}

func TestNotMatching(t *testing.T) {
	titles := []string{"Blue Top", "Men Tshirt", "Soft Stretch BLUE Jeans"}
	assert.Equal(t, []string{"Men Tshirt"}, NotMatching(titles, "blue"))
	assert.Empty(t, NotMatching(titles[:1], "Blue"))
}

func TestCartPage_Items(t *testing.T) {
	ctx := context.Background()
	d := newFakeDriver()
	cart := NewCart(d, nil)

	_, err := cart.Items(ctx)
	assert.Error(t, err)

	d.visible["#cart_info_table tbody tr"] = true
	d.counts["#cart_info_table tbody tr"] = 2
	n, err := cart.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPaymentPage_Pay(t *testing.T) {
	ctx := context.Background()
	d := newFakeDriver()
	payment := NewPayment(d, nil)

	require.NoError(t, payment.Pay(ctx, Card{Name: "Order User", Number: "1234567890123456", CVC: "311", ExpiryMonth: "12", ExpiryYear: "2025"}))
	actions := d.recorded()
	assert.Equal(t, `fill input[name="card_number"]=1234567890123456`, actions[1])
	assert.Equal(t, `click button[id="submit"]`, actions[len(actions)-1])

	assert.Error(t, payment.ExpectOrderPlaced(ctx))
	d.visible[`b:has-text("Order Placed!")`] = true
	assert.NoError(t, payment.ExpectOrderPlaced(ctx))
}

func TestVerifyAddress(t *testing.T) {
	account := testAccount()
	block := "Your delivery address\nMr. Test User\nTestCompany\n123 Test St\nApt 4B\nLos Angeles California 90001\nUnited States\n1234567890"

	assert.NoError(t, VerifyAddress(block, account))

	account.City = "Test City"
	err := VerifyAddress(block, account)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Test City California 90001")
}
