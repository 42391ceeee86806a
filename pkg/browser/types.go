package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session represents an isolated browser context with one page, owned by a
// single scenario.
type Session struct {
	// Name is the unique identifier for this session
	Name string

	// Context is the browser context (isolated cookies and storage)
	Context playwright.BrowserContext

	// Page is the current active page
	Page playwright.Page

	// BaseURL resolves relative locations passed to Goto
	BaseURL string

	// Timeout is the default timeout for operations without a deadline
	Timeout time.Duration

	// NavigationTimeout bounds Goto, Reload and Back without a deadline
	NavigationTimeout time.Duration
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// BaseURL is the root of the application under test
	BaseURL string

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout sets the default timeout for operations
	Timeout time.Duration

	// NavigationTimeout sets the default timeout for navigations.
	// Zero falls back to Timeout.
	NavigationTimeout time.Duration
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// ManagerOptions configures a SessionManager.
type ManagerOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// SkipInstall skips downloading the driver and browsers on Initialize
	SkipInstall bool

	// MaxSessions bounds concurrently open sessions
	MaxSessions int
}

// Default values for various operations
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultMaxSessions    = 5
)
