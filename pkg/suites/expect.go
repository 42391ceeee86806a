package suites

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/entrhq/flowguard/pkg/gateway"
)

// expectResponse checks the backend contract: transport 200 with the
// outcome in the application code. An empty message is not checked.
func expectResponse(env *gateway.Envelope, code int, message string) error {
	if env == nil {
		return errors.New("no response")
	}
	if env.TransportStatus != http.StatusOK {
		return fmt.Errorf("transport status = %d, want 200 (body: %.120s)", env.TransportStatus, env.Text())
	}
	if env.ApplicationCode == nil {
		return fmt.Errorf("response has no responseCode (body: %.120s)", env.Text())
	}
	if got := env.Code(); got != code {
		return fmt.Errorf("responseCode = %d, want %d (message %q)", got, code, env.Message())
	}
	if message != "" {
		if err := gateway.ValidateMessage(env); err != nil {
			return err
		}
		if got := env.Message(); got != message {
			return fmt.Errorf("message = %q, want %q", got, message)
		}
	}
	return nil
}

// must fails with err unless ok.
func must(ok bool, format string, args ...interface{}) error {
	if ok {
		return nil
	}
	return fmt.Errorf(format, args...)
}
