package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/overlay"
)

const (
	selCartRows        = `#cart_info_table tbody tr`
	selProceedCheckout = `a:has-text("Proceed To Checkout")`
	selDelivery        = `#address_delivery`
	selBilling         = `#address_invoice`
	selComment         = `textarea[name="message"]`
	selPlaceOrder      = `a[href="/payment"]`
	selNameOnCard      = `input[name="name_on_card"]`
	selCardNumber      = `input[name="card_number"]`
	selCVC             = `input[name="cvc"]`
	selExpiryMonth     = `input[name="expiry_month"]`
	selExpiryYear      = `input[name="expiry_year"]`
	selPay             = `button[id="submit"]`
	selOrderPlaced     = `b:has-text("Order Placed!")`
)

// Cart is the shopping cart capability of the UI.
type Cart interface {
	Navigable
	Items(ctx context.Context) (int, error)
	ProceedToCheckout(ctx context.Context) error
}

// Checkout is the order review capability of the UI.
type Checkout interface {
	DeliveryAddress(ctx context.Context) (string, error)
	BillingAddress(ctx context.Context) (string, error)
	Comment(ctx context.Context, text string) error
	PlaceOrder(ctx context.Context) error
}

// Card is the payment form input.
type Card struct {
	Name        string
	Number      string
	CVC         string
	ExpiryMonth string
	ExpiryYear  string
}

// Payment is the payment capability of the UI.
type Payment interface {
	Pay(ctx context.Context, card Card) error
	ExpectOrderPlaced(ctx context.Context) error
}

// CartPage implements Cart at /view_cart.
type CartPage struct {
	page
}

// CheckoutPage implements Checkout at /checkout.
type CheckoutPage struct {
	page
}

// PaymentPage implements Payment at /payment.
type PaymentPage struct {
	page
}

var (
	_ Cart     = (*CartPage)(nil)
	_ Checkout = (*CheckoutPage)(nil)
	_ Payment  = (*PaymentPage)(nil)
)

func NewCart(d Driver, layer *overlay.Layer) *CartPage {
	return &CartPage{page: page{driver: d, layer: layer, path: "/view_cart"}}
}

func NewCheckout(d Driver, layer *overlay.Layer) *CheckoutPage {
	return &CheckoutPage{page: page{driver: d, layer: layer, path: "/checkout"}}
}

func NewPayment(d Driver, layer *overlay.Layer) *PaymentPage {
	return &PaymentPage{page: page{driver: d, layer: layer, path: "/payment"}}
}

// Items counts the rows of the cart table.
func (c *CartPage) Items(ctx context.Context) (int, error) {
	if err := c.driver.WaitVisible(ctx, selCartRows); err != nil {
		return 0, err
	}
	return c.driver.Count(ctx, selCartRows)
}

func (c *CartPage) ProceedToCheckout(ctx context.Context) error {
	if err := c.guarded(ctx, selProceedCheckout); err != nil {
		return err
	}
	c.settle(ctx)
	return nil
}

func (c *CheckoutPage) DeliveryAddress(ctx context.Context) (string, error) {
	return c.driver.Text(ctx, selDelivery)
}

func (c *CheckoutPage) BillingAddress(ctx context.Context) (string, error) {
	return c.driver.Text(ctx, selBilling)
}

func (c *CheckoutPage) Comment(ctx context.Context, text string) error {
	return c.driver.Fill(ctx, selComment, text)
}

// PlaceOrder moves on to payment.
func (c *CheckoutPage) PlaceOrder(ctx context.Context) error {
	if err := c.guarded(ctx, selPlaceOrder); err != nil {
		return err
	}
	c.settle(ctx)
	return nil
}

// Pay fills the card form and submits it.
func (p *PaymentPage) Pay(ctx context.Context, card Card) error {
	if err := p.fill(ctx, [][2]string{
		{selNameOnCard, card.Name},
		{selCardNumber, card.Number},
		{selCVC, card.CVC},
		{selExpiryMonth, card.ExpiryMonth},
		{selExpiryYear, card.ExpiryYear},
	}); err != nil {
		return err
	}
	return p.guarded(ctx, selPay)
}

func (p *PaymentPage) ExpectOrderPlaced(ctx context.Context) error {
	if err := p.driver.WaitVisible(ctx, selOrderPlaced); err != nil {
		return fmt.Errorf("order not placed: %w", err)
	}
	return nil
}

// AddressLines are the lines an address block must show for an account.
func AddressLines(a gateway.Account) []string {
	return []string{
		fmt.Sprintf("%s. %s %s", a.Title, a.FirstName, a.LastName),
		a.Address1,
		fmt.Sprintf("%s %s %s", a.City, a.State, a.Zipcode),
		a.Country,
		a.MobileNumber,
	}
}

// VerifyAddress checks that block shows every address line of the account.
func VerifyAddress(block string, a gateway.Account) error {
	var missing []string
	for _, line := range AddressLines(a) {
		if !strings.Contains(block, line) {
			missing = append(missing, line)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("address block is missing %q", missing)
	}
	return nil
}
