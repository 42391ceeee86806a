package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/flowguard/pkg/overlay"
)

// Goto navigates to location, resolved against BaseURL when relative, and
// waits for the DOM to be ready. Ad networks keep "load" from settling.
func (s *Session) Goto(ctx context.Context, location string) error {
	waitUntil := playwright.WaitUntilState("domcontentloaded")
	_, err := s.Page.Goto(s.resolve(location), playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   s.navigationTimeout(ctx),
	})
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", location, err)
	}
	return nil
}

// Location returns the current page URL.
func (s *Session) Location() string {
	return s.Page.URL()
}

// Reload reloads the current page.
func (s *Session) Reload(ctx context.Context) error {
	waitUntil := playwright.WaitUntilState("domcontentloaded")
	if _, err := s.Page.Reload(playwright.PageReloadOptions{
		WaitUntil: &waitUntil,
		Timeout:   s.navigationTimeout(ctx),
	}); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// Back navigates one entry back in history.
func (s *Session) Back(ctx context.Context) error {
	waitUntil := playwright.WaitUntilState("domcontentloaded")
	if _, err := s.Page.GoBack(playwright.PageGoBackOptions{
		WaitUntil: &waitUntil,
		Timeout:   s.navigationTimeout(ctx),
	}); err != nil {
		return fmt.Errorf("back navigation failed: %w", err)
	}
	return nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.Page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: s.timeout(ctx),
	}); err != nil {
		return fmt.Errorf("click %s failed: %w", selector, err)
	}
	return nil
}

// Fill fills an input element with the specified value.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := s.Page.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{
		Timeout: s.timeout(ctx),
	}); err != nil {
		return fmt.Errorf("fill %s failed: %w", selector, err)
	}
	return nil
}

// Select chooses an option of a select element by value.
func (s *Session) Select(ctx context.Context, selector, value string) error {
	values := []string{value}
	if _, err := s.Page.Locator(selector).First().SelectOption(playwright.SelectOptionValues{
		Values: &values,
	}, playwright.LocatorSelectOptionOptions{
		Timeout: s.timeout(ctx),
	}); err != nil {
		return fmt.Errorf("select %s failed: %w", selector, err)
	}
	return nil
}

// Check ticks a checkbox or radio button.
func (s *Session) Check(ctx context.Context, selector string) error {
	if err := s.Page.Locator(selector).First().Check(playwright.LocatorCheckOptions{
		Timeout: s.timeout(ctx),
	}); err != nil {
		return fmt.Errorf("check %s failed: %w", selector, err)
	}
	return nil
}

// Visible reports whether the first element matching selector is visible
// right now. It does not wait.
func (s *Session) Visible(ctx context.Context, selector string) (bool, error) {
	return s.Page.Locator(selector).First().IsVisible()
}

// WaitVisible waits until an element matching selector is visible.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	if err := s.Page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: s.timeout(ctx),
	}); err != nil {
		return fmt.Errorf("wait for %s failed: %w", selector, err)
	}
	return nil
}

// Text returns the rendered text of the first element matching selector.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	text, err := s.Page.Locator(selector).First().InnerText(playwright.LocatorInnerTextOptions{
		Timeout: s.timeout(ctx),
	})
	if err != nil {
		return "", fmt.Errorf("text of %s failed: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

// Texts returns the rendered text of every element matching selector.
func (s *Session) Texts(ctx context.Context, selector string) ([]string, error) {
	texts, err := s.Page.Locator(selector).AllInnerTexts()
	if err != nil {
		return nil, fmt.Errorf("texts of %s failed: %w", selector, err)
	}
	for i := range texts {
		texts[i] = strings.TrimSpace(texts[i])
	}
	return texts, nil
}

// Count returns the number of elements matching selector.
func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	return s.Page.Locator(selector).Count()
}

// MainFrame exposes the page frame tree to the overlay layer.
func (s *Session) MainFrame() overlay.Frame {
	return &frame{frame: s.Page.MainFrame(), session: s}
}

// Close closes the page and its context. The manager's CloseSession is
// preferred for sessions it created.
func (s *Session) Close() error {
	_ = s.Page.Close()
	return s.Context.Close()
}

func (s *Session) resolve(location string) string {
	if s.BaseURL == "" || strings.Contains(location, "://") {
		return location
	}
	return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(location, "/")
}

// timeout converts the context deadline into a Playwright timeout, falling
// back to the session default.
func (s *Session) timeout(ctx context.Context) *float64 {
	return timeoutMillis(ctx, s.Timeout)
}

func (s *Session) navigationTimeout(ctx context.Context) *float64 {
	if s.NavigationTimeout == 0 {
		return s.timeout(ctx)
	}
	return timeoutMillis(ctx, s.NavigationTimeout)
}

func timeoutMillis(ctx context.Context, fallback time.Duration) *float64 {
	d := fallback
	if deadline, ok := ctx.Deadline(); ok {
		d = time.Until(deadline)
	}
	ms := float64(d.Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return &ms
}

// frame adapts a Playwright frame to overlay.Frame.
type frame struct {
	frame   playwright.Frame
	session *Session
}

func (f *frame) Visible(ctx context.Context, selector string) (bool, error) {
	return f.frame.Locator(selector).First().IsVisible()
}

func (f *frame) Click(ctx context.Context, selector string) error {
	return f.frame.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: f.session.timeout(ctx),
	})
}

func (f *frame) Children() []overlay.Frame {
	children := f.frame.ChildFrames()
	out := make([]overlay.Frame, 0, len(children))
	for _, c := range children {
		if c.IsDetached() {
			continue
		}
		out = append(out, &frame{frame: c, session: f.session})
	}
	return out
}
