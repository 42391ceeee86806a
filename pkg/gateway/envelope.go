package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/net/html"
)

// Envelope is the normalized result of every backend call, whether the
// backend reported success or failure.
type Envelope struct {
	// TransportStatus is the HTTP status code, independent of ApplicationCode
	TransportStatus int

	// ApplicationCode is the backend's own status (responseCode), nil when absent
	ApplicationCode *int

	// Body is the parsed JSON value for structured responses, or the raw text
	Body interface{}

	// Headers holds the response headers with lower-cased names
	Headers map[string]string

	raw        []byte
	structured bool
}

// newEnvelope builds an Envelope from a raw response. It never fails: bodies
// that cannot be parsed as structured data degrade to raw text.
func newEnvelope(status int, headers map[string]string, raw []byte) *Envelope {
	env := &Envelope{
		TransportStatus: status,
		Headers:         headers,
		raw:             raw,
	}

	if value, ok := parseStructured(headers["content-type"], raw); ok {
		env.Body = value
		env.structured = true
		env.ApplicationCode = applicationCode(value)
	} else {
		env.Body = string(raw)
	}

	return env
}

// parseStructured decodes declared JSON content types, and JSON payloads
// served under a non-JSON content type.
func parseStructured(contentType string, raw []byte) (interface{}, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false
	}

	if !isJSONContentType(contentType) && trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, false
	}

	var value interface{}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return nil, false
	}
	if decoder.More() {
		return nil, false
	}
	return value, true
}

func isJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func applicationCode(value interface{}) *int {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	number, ok := obj["responseCode"].(json.Number)
	if !ok {
		return nil
	}
	code, err := number.Int64()
	if err != nil {
		return nil
	}
	c := int(code)
	return &c
}

// Structured reports whether Body holds parsed JSON.
func (e *Envelope) Structured() bool {
	return e.structured
}

// Raw returns the unparsed response body.
func (e *Envelope) Raw() []byte {
	return e.raw
}

// Code returns the application code, or 0 when it is absent.
func (e *Envelope) Code() int {
	if e.ApplicationCode == nil {
		return 0
	}
	return *e.ApplicationCode
}

// Message returns the "message" field of a structured body, if any.
func (e *Envelope) Message() string {
	obj, ok := e.Body.(map[string]interface{})
	if !ok {
		return ""
	}
	msg, _ := obj["message"].(string)
	return msg
}

// Decode unmarshals the raw body into v.
func (e *Envelope) Decode(v interface{}) error {
	if !e.structured {
		return fmt.Errorf("response body is not structured (status %d)", e.TransportStatus)
	}
	if err := json.Unmarshal(bytes.TrimSpace(e.raw), v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Text returns a readable rendering of the body. HTML pages are reduced to
// their visible text.
func (e *Envelope) Text() string {
	if e.structured {
		return string(bytes.TrimSpace(e.raw))
	}
	mediaType, _, _ := mime.ParseMediaType(e.Headers["content-type"])
	if mediaType == "text/html" {
		if text, err := visibleText(string(e.raw)); err == nil {
			return text
		}
	}
	return strings.TrimSpace(string(e.raw))
}

// Affirmative reports whether both the transport status and the application
// code (when present) signal success.
func (e *Envelope) Affirmative() bool {
	if e.TransportStatus < 200 || e.TransportStatus > 299 {
		return false
	}
	if e.ApplicationCode == nil {
		return true
	}
	return *e.ApplicationCode >= 200 && *e.ApplicationCode <= 299
}

// Failure returns the application failure carried by this envelope, or nil
// when the envelope is affirmative.
func (e *Envelope) Failure() *ApplicationError {
	if e.Affirmative() {
		return nil
	}
	msg := e.Message()
	if msg == "" {
		msg = truncate(e.Text(), 200)
	}
	return &ApplicationError{
		TransportStatus: e.TransportStatus,
		ApplicationCode: e.Code(),
		Message:         msg,
	}
}

// visibleText collapses an HTML document into its visible text, skipping
// script and style content.
func visibleText(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, " "), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
