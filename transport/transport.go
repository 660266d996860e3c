package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Request is a single outbound call to the remote server.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response carries the raw outcome of a call. The body is fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client performs outbound HTTP calls. Implementations enforce their own timeouts.
type Client interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// StatusError is returned by clients that treat HTTP error statuses as failures.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote responded with status %d", e.Status)
}

// ClientFault reports whether the status is a 4xx.
func (e *StatusError) ClientFault() bool {
	return e.Status >= 400 && e.Status < 500
}

// HTTPClient implements Client on net/http.
type HTTPClient struct {
	client         *http.Client
	failOnStatus   bool
	defaultHeaders http.Header
}

var _ Client = (*HTTPClient)(nil)

type HTTPClientOption func(*HTTPClient)

// WithStatusErrors makes HTTP statuses >= 400 come back as *StatusError.
func WithStatusErrors() HTTPClientOption {
	return func(c *HTTPClient) {
		c.failOnStatus = true
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithUserAgent sets the User-Agent sent on every request.
func WithUserAgent(userAgent string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.defaultHeaders.Set("User-Agent", userAgent)
	}
}

func NewHTTPClient(timeout time.Duration, options ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		client:         &http.Client{Timeout: timeout},
		defaultHeaders: http.Header{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	for k, values := range c.defaultHeaders {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	for k, values := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "executing request %s", req.Method)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	if c.failOnStatus && resp.StatusCode >= 400 {
		return nil, &StatusError{Status: resp.StatusCode, Body: respBody}
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}
