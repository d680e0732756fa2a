package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/byte4ever/failover"
)

// ErrorClass tells the failover layer how to treat an HTTP status code.
type ErrorClass int

const (
	// Success means the request succeeded (e.g. 2xx).
	Success ErrorClass = iota
	// Transient means another candidate may answer differently (e.g. 503).
	Transient
	// Permanent means every candidate would answer the same (e.g. 400).
	Permanent
)

// IdempotencyKeyHeader carries the key shared by all attempts of one
// mutating invocation, so a backup can recognise a write the primary already
// applied.
const IdempotencyKeyHeader = "Idempotency-Key"

// maxBodySize caps how much of a response body is read into memory.
const maxBodySize = 10 << 20

// Classifier maps an HTTP status code to an ErrorClass.
//
// Pattern: Strategy — caller injects classification logic without modifying
// the adapter.
type Classifier func(statusCode int) ErrorClass

// DefaultClassifier treats 2xx as success; 408, 425, 429 and 5xx as
// transient; everything else as permanent.
func DefaultClassifier(code int) ErrorClass {
	switch {
	case code >= 200 && code < 300:
		return Success
	case code == http.StatusRequestTimeout,
		code == http.StatusTooEarly,
		code == http.StatusTooManyRequests,
		code >= 500:
		return Transient
	default:
		return Permanent
	}
}

// StatusError is returned for a response the Classifier did not mark as
// Success. The body has already been read.
type StatusError struct {
	Header     http.Header
	Body       []byte
	StatusCode int
}

// Error returns a human-readable description of the status error.
func (e *StatusError) Error() string {
	msg := "http status " + strconv.Itoa(e.StatusCode)

	if detail := strings.TrimSpace(string(e.Body)); detail != "" {
		const maxDetail = 200
		if len(detail) > maxDetail {
			detail = detail[:maxDetail] + "..."
		}

		msg += ": " + detail
	}

	return msg
}

// Response is a fully read HTTP response.
type Response struct {
	Header     http.Header
	Body       []byte
	StatusCode int
}

// Client sends requests with a shared [http.Client] and classifies status
// codes.
//
// Pattern: Adapter — bridges net/http and failover's error classification.
type Client struct {
	hc     *http.Client
	cl     Classifier
	header http.Header
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.header.Add(key, value)
	}
}

// NewClient creates a Client. A nil hc uses [http.DefaultClient]; a nil cl
// uses [DefaultClassifier].
func NewClient(hc *http.Client, cl Classifier, opts ...ClientOption) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}

	if cl == nil {
		cl = DefaultClassifier
	}

	c := &Client{hc: hc, cl: cl, header: make(http.Header)}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Send issues one request to url and reads the whole response. Network
// errors are returned as-is; non-success statuses as [*StatusError], marked
// [failover.Permanent] when the classifier says so.
func (c *Client) Send(
	ctx context.Context,
	method, url string,
	body []byte,
	header http.Header,
) (*Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, failover.Permanent(fmt.Errorf("httpx: build request: %w", err))
	}

	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	for k, vs := range header {
		req.Header[k] = append([]string(nil), vs...)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpx: %s %s: %w", method, url, err)
	}

	defer resp.Body.Close() //nolint:errcheck // read-only body

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("httpx: read body: %w", err)
	}

	out := &Response{Header: resp.Header, Body: data, StatusCode: resp.StatusCode}

	switch c.cl(resp.StatusCode) {
	case Success:
		return out, nil
	case Permanent:
		return out, failover.Permanent(&StatusError{
			Header: resp.Header, Body: data, StatusCode: resp.StatusCode,
		})
	default:
		return out, failover.Transient(&StatusError{
			Header: resp.Header, Body: data, StatusCode: resp.StatusCode,
		})
	}
}

// Request returns an operation sending method to base+path with body encoded
// as JSON (nil for no body). Mutating methods carry one Idempotency-Key,
// generated here and reused for every candidate the operation is tried
// against.
func Request(c *Client, method, path string, body any) failover.Operation[*Response] {
	header := make(http.Header)
	header.Set("Accept", "application/json")

	if isMutating(method) {
		header.Set(IdempotencyKeyHeader, uuid.NewString())
	}

	if body != nil {
		header.Set("Content-Type", "application/json")
	}

	return func(ctx context.Context, base string) (*Response, error) {
		var payload []byte

		if body != nil {
			var err error
			if payload, err = json.Marshal(body); err != nil {
				return nil, failover.Permanent(fmt.Errorf("httpx: encode body: %w", err))
			}
		}

		resp, err := c.Send(ctx, method, joinURL(base, path), payload, header)
		if err != nil {
			return nil, err
		}

		return resp, nil
	}
}

// JSON is [Request] followed by decoding the response body into T. An empty
// body yields the zero T, which suits DELETE and 204 responses.
func JSON[T any](c *Client, method, path string, body any) failover.Operation[T] {
	send := Request(c, method, path, body)

	return func(ctx context.Context, base string) (T, error) {
		var out T

		resp, err := send(ctx, base)
		if err != nil {
			return out, err
		}

		if len(bytes.TrimSpace(resp.Body)) == 0 {
			return out, nil
		}

		if err = json.Unmarshal(resp.Body, &out); err != nil {
			return out, fmt.Errorf("httpx: decode %s response: %w", base, err)
		}

		return out, nil
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

func joinURL(base, path string) string {
	if path == "" {
		return base
	}

	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
