package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightTransport returns a TransportFactory that issues requests through
// a Playwright APIRequestContext, sharing the driver with browser sessions.
func PlaywrightTransport(pw *playwright.Playwright) TransportFactory {
	return func(base *url.URL, headers map[string]string, timeout time.Duration) (Transport, error) {
		if pw == nil {
			return nil, fmt.Errorf("playwright is not running")
		}

		timeoutMs := float64(timeout.Milliseconds())
		rc, err := pw.Request.NewContext(playwright.APIRequestNewContextOptions{
			BaseURL:          playwright.String(base.String()),
			ExtraHttpHeaders: headers,
			Timeout:          &timeoutMs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create request context: %w", err)
		}
		return &playwrightTransport{request: rc}, nil
	}
}

type playwrightTransport struct {
	request playwright.APIRequestContext
}

func (t *playwrightTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := deadlineMillis(ctx)
	target := req.URL.String()

	var (
		resp playwright.APIResponse
		err  error
	)
	switch req.Method {
	case http.MethodGet:
		resp, err = t.request.Get(target, playwright.APIRequestContextGetOptions{
			Params:  toAnyMap(req.Params),
			Headers: req.Headers,
			Timeout: timeout,
		})
	case http.MethodPost:
		resp, err = t.request.Post(target, playwright.APIRequestContextPostOptions{
			Form:    toAnyMap(req.Form),
			Headers: req.Headers,
			Timeout: timeout,
		})
	case http.MethodPut:
		resp, err = t.request.Put(target, playwright.APIRequestContextPutOptions{
			Form:    toAnyMap(req.Form),
			Headers: req.Headers,
			Timeout: timeout,
		})
	case http.MethodDelete:
		resp, err = t.request.Delete(target, playwright.APIRequestContextDeleteOptions{
			Form:    toAnyMap(req.Form),
			Headers: req.Headers,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported method %s", req.Method)
	}
	if err != nil {
		return nil, err
	}

	body, err := resp.Body()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	headers := make(map[string]string)
	for k, v := range resp.Headers() {
		headers[strings.ToLower(k)] = v
	}

	return &Response{
		Status:  resp.Status(),
		Headers: headers,
		Body:    body,
	}, nil
}

func (t *playwrightTransport) Close() error {
	return t.request.Dispose()
}

func toAnyMap(m map[string]string) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// deadlineMillis converts a context deadline into a Playwright timeout.
func deadlineMillis(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return &ms
}
