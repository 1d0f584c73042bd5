package modules

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/AnandVishesh1301/temboXpoke/internal/observability"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 4 << 20

// Upstream issues single requests against one REST API.
// Deadlines come from the caller's context, not from the http.Client.
type Upstream struct {
	// Service names the API in error messages and spans, e.g. "Tembo".
	Service string
	BaseURL string
	Header  http.Header
	Client  *http.Client
}

// truncatedSuffix marks error text cut at maxResponseBytes.
const truncatedSuffix = " ...[truncated]"

// Response is an upstream response read up to maxResponseBytes.
// Truncated is set when the body was longer.
type Response struct {
	Status    int
	Body      []byte
	Truncated bool
}

// ErrorText picks the message for a non-success response: the first of
// fields holding a non-empty value, else the raw body text, marked when the
// body was truncated.
func (r *Response) ErrorText(fields ...string) string {
	if msg, ok := BodyField(r.Body, fields...); ok {
		return msg
	}
	if r.Truncated {
		return string(r.Body) + truncatedSuffix
	}
	return string(r.Body)
}

// URL joins the base URL (trailing slashes trimmed) with path.
func (u *Upstream) URL(path string) string {
	return strings.TrimRight(u.BaseURL, "/") + path
}

// Do sends one request. Any failure before a status line is received is
// returned as a network_error ToolError.
func (u *Upstream) Do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	url := u.URL(path)
	ctx, span := observability.StartUpstreamSpan(ctx, strings.ToLower(u.Service), method, url)

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		observability.EndUpstreamSpan(span, 0, err)
		return nil, u.networkError(errors.Wrap(err, "create request"))
	}
	for k, v := range u.Header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		observability.EndUpstreamSpan(span, 0, err)
		return nil, u.networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		observability.EndUpstreamSpan(span, resp.StatusCode, err)
		return nil, u.networkError(errors.Wrap(err, "read response"))
	}
	observability.EndUpstreamSpan(span, resp.StatusCode, nil)

	out := &Response{Status: resp.StatusCode, Body: data}
	if len(data) > maxResponseBytes {
		out.Body = data[:maxResponseBytes]
		out.Truncated = true
	}
	return out, nil
}

func (u *Upstream) networkError(err error) *ToolError {
	return Fail(KindNetworkError, "Network error calling %s: %v", u.Service, err).Wrap(err)
}

// DecodeBody parses a JSON body, keeping numbers as json.Number so that
// upstream values pass through unchanged.
func DecodeBody(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "decode body")
	}
	if dec.More() {
		return nil, errors.New("decode body: trailing data after JSON value")
	}
	return v, nil
}

// BodyField returns the first of fields holding a non-empty value in a JSON
// object body. Strings are returned as-is, anything else as compact JSON.
func BodyField(body []byte, fields ...string) (string, bool) {
	v, err := DecodeBody(body)
	if err != nil {
		return "", false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	for _, f := range fields {
		val := obj[f]
		if !truthy(val) {
			continue
		}
		if s, ok := val.(string); ok {
			return s, true
		}
		if b, err := json.Marshal(val); err == nil {
			return string(b), true
		}
	}
	return "", false
}

// truthy treats null, false, zero, and empty strings, arrays and objects as
// absent.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
