package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request is a single backend call as seen by a Transport.
type Request struct {
	Method  string
	URL     *url.URL
	Params  map[string]string
	Form    map[string]string
	Headers map[string]string
}

// Response is the raw transport-level result of a Request.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// Transport performs requests for a Client. Implementations report
// network-level failures as errors and never retry.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// TransportFactory creates the transport backing an initialized Client.
type TransportFactory func(base *url.URL, headers map[string]string, timeout time.Duration) (Transport, error)

// NewHTTPTransport is the default TransportFactory, backed by net/http.
func NewHTTPTransport(base *url.URL, headers map[string]string, timeout time.Duration) (Transport, error) {
	return &httpTransport{
		client: &http.Client{Timeout: timeout},
	}, nil
}

type httpTransport struct {
	client *http.Client
}

func (t *httpTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	target := *req.URL
	if len(req.Params) > 0 {
		query := target.Query()
		for k, v := range req.Params {
			query.Set(k, v)
		}
		target.RawQuery = query.Encode()
	}

	var body io.Reader
	if req.Form != nil {
		form := url.Values{}
		for k, v := range req.Form {
			form.Set(k, v)
		}
		body = strings.NewReader(form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ", ")
	}

	return &Response{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    raw,
	}, nil
}

func (t *httpTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
