// Package browser drives the application under test through Playwright.
//
// A SessionManager owns the Playwright driver and one shared browser
// process. Each scenario gets its own Session, backed by an isolated
// browser context, so cookies and storage never leak between scenarios
// running in parallel.
//
// # Session Lifecycle
//
//  1. Initialize: the manager installs (optionally) and starts the driver
//  2. StartSession: a named context and page are created
//  3. Use: pages and the overlay layer drive the session
//  4. CloseSession: the context is closed during scenario teardown
//  5. Shutdown: the browser and driver are stopped at process exit
//
// Session implements the UI driver used by package pages and the Surface
// used by package overlay. Every operation takes a context; its deadline,
// when present, becomes the Playwright timeout for that call.
package browser
