package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/flowguard/pkg/overlay"
)

// Driver is the UI automation surface the pages are written against.
// browser.Session implements it; tests use an in-memory fake.
type Driver interface {
	overlay.Surface

	Goto(ctx context.Context, location string) error
	Reload(ctx context.Context) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Select(ctx context.Context, selector, value string) error
	Check(ctx context.Context, selector string) error
	Visible(ctx context.Context, selector string) (bool, error)
	WaitVisible(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)
	Texts(ctx context.Context, selector string) ([]string, error)
	Count(ctx context.Context, selector string) (int, error)
}

// Navigable is a page that can be opened directly.
type Navigable interface {
	Visit(ctx context.Context) error
	CurrentLocation() string
}

// DefaultRedirectWait bounds how long a page waits for an expected
// navigation to land.
const DefaultRedirectWait = 5 * time.Second

const pollInterval = 100 * time.Millisecond

// page holds what every page object shares: the driver, the overlay layer
// guarding critical actions, and the path it lives at.
type page struct {
	driver Driver
	layer  *overlay.Layer
	path   string
}

func (p *page) Visit(ctx context.Context) error {
	if err := p.driver.Goto(ctx, p.path); err != nil {
		return err
	}
	p.settle(ctx)
	return nil
}

func (p *page) CurrentLocation() string {
	return p.driver.Location()
}

// settle runs a standalone overlay pass after a navigation.
func (p *page) settle(ctx context.Context) {
	if p.layer != nil {
		p.layer.Resolve(ctx, p.driver)
	}
}

// guarded clicks selector behind the overlay layer.
func (p *page) guarded(ctx context.Context, selector string) error {
	click := func(c context.Context) error { return p.driver.Click(c, selector) }
	if p.layer == nil {
		return click(ctx)
	}
	return p.layer.ResolveBeforeAction(ctx, p.driver, click)
}

// fill sets several inputs in order, stopping at the first failure.
func (p *page) fill(ctx context.Context, fields [][2]string) error {
	for _, f := range fields {
		if err := p.driver.Fill(ctx, f[0], f[1]); err != nil {
			return err
		}
	}
	return nil
}

// waitLocation polls until the current location contains fragment. It
// reports false, without error, when the wait runs out.
func (p *page) waitLocation(ctx context.Context, fragment string, wait time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if strings.Contains(p.driver.Location(), fragment) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// hasText builds a selector for an element of the given tag containing text.
func hasText(tag, text string) string {
	return fmt.Sprintf("%s:has-text(%q)", tag, text)
}
