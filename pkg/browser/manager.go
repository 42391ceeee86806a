package browser

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/flowguard/pkg/logging"
)

// ErrNotInitialized is returned when sessions are requested before Initialize.
var ErrNotInitialized = errors.New("session manager not initialized")

// SessionManager owns the Playwright driver and one shared browser, and
// hands out isolated sessions (one browser context each).
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	playwright  *playwright.Playwright
	browser     playwright.Browser
	opts        ManagerOptions
	logger      *logging.Logger
	initialized bool
}

// NewSessionManager creates a new session manager.
func NewSessionManager(opts ManagerOptions, logger *logging.Logger) *SessionManager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		opts:     opts,
		logger:   logger,
	}
}

// Initialize starts the Playwright driver.
// This must be called before creating any sessions.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Driver output would interleave with the console summary
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !m.opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	m.logger.Infof("playwright started (headless=%t)", m.opts.Headless)
	return nil
}

// Playwright returns the running driver, or nil before Initialize. The
// gateway uses it for its APIRequestContext transport.
func (m *SessionManager) Playwright() *playwright.Playwright {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playwright
}

// StartSession creates a new browser session with the given name and options.
func (m *SessionManager) StartSession(name string, opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, ErrNotInitialized
	}

	if _, exists := m.sessions[name]; exists {
		return nil, fmt.Errorf("session %q already exists", name)
	}

	if len(m.sessions) >= m.opts.MaxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", m.opts.MaxSessions)
	}

	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.NavigationTimeout == 0 {
		opts.NavigationTimeout = opts.Timeout
	}

	// One browser process is shared; sessions are isolated by context
	if m.browser == nil {
		browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(m.opts.Headless),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		m.browser = browser
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if opts.BaseURL != "" {
		contextOpts.BaseURL = playwright.String(opts.BaseURL)
	}
	bctx, err := m.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(opts.NavigationTimeout.Milliseconds()))

	session := &Session{
		Name:              name,
		Context:           bctx,
		Page:              page,
		BaseURL:           opts.BaseURL,
		Timeout:           opts.Timeout,
		NavigationTimeout: opts.NavigationTimeout,
	}

	m.sessions[name] = session
	m.logger.Debugf("session %s started", name)
	return session, nil
}

// CloseSession closes and removes a browser session.
func (m *SessionManager) CloseSession(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[name]
	if !exists {
		return fmt.Errorf("session %q not found", name)
	}

	delete(m.sessions, name)
	_ = session.Page.Close() // Ignore errors, continue cleanup
	if err := session.Context.Close(); err != nil {
		return fmt.Errorf("failed to close session %q: %w", name, err)
	}
	m.logger.Debugf("session %s closed", name)
	return nil
}

// Open returns the number of open sessions.
func (m *SessionManager) Open() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes all sessions, the browser and the driver.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Sessions left open by abandoned scenarios are closed here
	var errs []error
	for name, session := range m.sessions {
		if err := session.Context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %q: %w", name, err))
		}
		delete(m.sessions, name)
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("browser: %w", err))
		}
		m.browser = nil
	}

	if m.initialized {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.initialized = false
		m.playwright = nil
	}

	return errors.Join(errs...)
}
