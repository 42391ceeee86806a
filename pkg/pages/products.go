package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/flowguard/pkg/overlay"
)

const (
	selSearchInput    = `#search_product`
	selSearchButton   = `#submit_search`
	selProductsHeader = `.features_items .title.text-center`
	selProductTitles  = `.features_items .productinfo p`
	selProductCards   = `.features_items .col-sm-4`
	selAddToCart      = `.productinfo .add-to-cart`
	selAddedModal     = `p:has-text("Your product has been added to cart.")`
	selKeepShopping   = `button:has-text("Continue Shopping")`
	selViewCart       = `a:has-text("View Cart")`
	searchedHeader    = "SEARCHED PRODUCTS"
)

// Products is the catalog browsing capability of the UI.
type Products interface {
	Navigable
	Search(ctx context.Context, term string) error
	Titles(ctx context.Context) ([]string, error)
	AddToCart(ctx context.Context, index int) error
	ContinueShopping(ctx context.Context) error
	ViewCart(ctx context.Context) error
}

// ProductsPage implements Products at /products. The home page lists the
// same product cards, so AddToCart works there too.
type ProductsPage struct {
	page
}

var _ Products = (*ProductsPage)(nil)

// NewProducts creates the products page. layer may be nil.
func NewProducts(d Driver, layer *overlay.Layer) *ProductsPage {
	return &ProductsPage{page: page{driver: d, layer: layer, path: "/products"}}
}

// Search submits a search and waits for the results header.
func (p *ProductsPage) Search(ctx context.Context, term string) error {
	if err := p.driver.Fill(ctx, selSearchInput, term); err != nil {
		return err
	}
	if err := p.guarded(ctx, selSearchButton); err != nil {
		return err
	}
	header, err := p.driver.Text(ctx, selProductsHeader)
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToUpper(header), searchedHeader) {
		return fmt.Errorf("unexpected results header %q", header)
	}
	return nil
}

// Titles returns the names of the listed products.
func (p *ProductsPage) Titles(ctx context.Context) ([]string, error) {
	return p.driver.Texts(ctx, selProductTitles)
}

// AddToCart adds the product card at index and waits for the confirmation
// modal. The static button inside .productinfo is used because the hover
// overlay duplicates it.
func (p *ProductsPage) AddToCart(ctx context.Context, index int) error {
	sel := fmt.Sprintf("%s >> nth=%d >> %s", selProductCards, index, selAddToCart)
	if err := p.guarded(ctx, sel); err != nil {
		return err
	}
	return p.driver.WaitVisible(ctx, selAddedModal)
}

// ContinueShopping closes the added-to-cart modal.
func (p *ProductsPage) ContinueShopping(ctx context.Context) error {
	return p.driver.Click(ctx, selKeepShopping)
}

// ViewCart follows the modal link to the cart.
func (p *ProductsPage) ViewCart(ctx context.Context) error {
	if err := p.guarded(ctx, selViewCart); err != nil {
		return err
	}
	p.settle(ctx)
	return nil
}

// NotMatching returns the titles that do not contain term, ignoring case.
func NotMatching(titles []string, term string) []string {
	var out []string
	needle := strings.ToLower(term)
	for _, t := range titles {
		if !strings.Contains(strings.ToLower(t), needle) {
			out = append(out, t)
		}
	}
	return out
}
