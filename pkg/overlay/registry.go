package overlay

import (
	"context"
)

// Class tags a family of obstructions.
type Class string

const (
	// ConsentDialog is a cookie/consent prompt
	ConsentDialog Class = "consent-dialog"
	// VignetteClose is the close control of a full-screen ad vignette
	VignetteClose Class = "vignette-close"
	// DismissButton is an ad dismiss control
	DismissButton Class = "dismiss-button"
	// GenericClose is any other close control
	GenericClose Class = "generic-close"
	// Interstitial is a full-page ad redirect detected from the location
	Interstitial Class = "interstitial"
)

// DismissFunc removes an obstruction matched by selector in frame.
type DismissFunc func(ctx context.Context, frame Frame, selector string) error

// Obstruction is one registry entry: a tag, the selector that detects it,
// and how to dismiss it.
type Obstruction struct {
	Tag     Class
	Matcher string
	Dismiss DismissFunc
}

// Registry is an ordered list of obstructions, highest priority first.
type Registry []Obstruction

// Click dismisses an obstruction by clicking the matched element.
func Click(ctx context.Context, frame Frame, selector string) error {
	return frame.Click(ctx, selector)
}

// With returns a copy of the registry with entries appended.
func (r Registry) With(entries ...Obstruction) Registry {
	out := make(Registry, 0, len(r)+len(entries))
	out = append(out, r...)
	return append(out, entries...)
}

// DefaultRegistry returns the obstructions injected by the ad network of
// the application under test.
func DefaultRegistry() Registry {
	return Registry{
		{Tag: ConsentDialog, Matcher: "button.fc-cta-consent", Dismiss: Click},
		{Tag: ConsentDialog, Matcher: `button:has-text("Consent")`, Dismiss: Click},
		{Tag: VignetteClose, Matcher: `[aria-label="Close ad"]`, Dismiss: Click},
		{Tag: DismissButton, Matcher: "#dismiss-button", Dismiss: Click},
		{Tag: DismissButton, Matcher: ".dismiss-button", Dismiss: Click},
		{Tag: GenericClose, Matcher: `button:has-text("Close")`, Dismiss: Click},
		{Tag: GenericClose, Matcher: `button:has-text("✕")`, Dismiss: Click},
		{Tag: GenericClose, Matcher: `[aria-label*="Close"]`, Dismiss: Click},
		{Tag: GenericClose, Matcher: `[aria-label*="close"]`, Dismiss: Click},
		{Tag: GenericClose, Matcher: ".close-button", Dismiss: Click},
		{Tag: GenericClose, Matcher: `div[role="button"]:has-text("Close")`, Dismiss: Click},
	}
}

// DefaultMarkers match locations reached through a full-page interstitial.
var DefaultMarkers = []string{"*#google_vignette*"}
