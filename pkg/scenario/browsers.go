package scenario

import (
	"context"

	"github.com/entrhq/flowguard/pkg/browser"
	"github.com/entrhq/flowguard/pkg/pages"
)

// DriverSource opens and closes named UI sessions.
type DriverSource interface {
	Open(ctx context.Context, name string) (pages.Driver, error)
	Close(name string) error
}

// ManagedBrowsers serves sessions from a browser.SessionManager. The
// manager must be initialized.
func ManagedBrowsers(m *browser.SessionManager, opts browser.SessionOptions) DriverSource {
	return &managed{manager: m, opts: opts}
}

type managed struct {
	manager *browser.SessionManager
	opts    browser.SessionOptions
}

func (m *managed) Open(ctx context.Context, name string) (pages.Driver, error) {
	session, err := m.manager.StartSession(name, m.opts)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (m *managed) Close(name string) error {
	return m.manager.CloseSession(name)
}
