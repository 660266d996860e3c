package fake

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/jrsteele09/zimbra-connector/transport"
)

var _ transport.Client = (*Client)(nil)

// Handler answers a recorded request.
type Handler func(req *transport.Request) (*transport.Response, error)

type route struct {
	method string
	path   string
	match  func(req *transport.Request) bool
	handle Handler
}

// Client is a scripted transport. Routes are matched on method and URL path
// (query ignored), most recently registered first.
type Client struct {
	routes   []route
	requests []*transport.Request
	lock     sync.Mutex
}

func NewClient() *Client {
	return &Client{}
}

// On registers a handler for method + path. An empty method matches any method.
func (c *Client) On(method, path string, handle Handler) *Client {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.routes = append([]route{{method: method, path: path, handle: handle}}, c.routes...)
	return c
}

// OnOperation registers a handler for an envelope POST whose Body carries op.
func (c *Client) OnOperation(op string, handle Handler) *Client {
	c.lock.Lock()
	defer c.lock.Unlock()
	needle := fmt.Sprintf("%q:", op)
	c.routes = append([]route{{
		method: "POST",
		path:   "/service/soap",
		match: func(req *transport.Request) bool {
			return strings.Contains(string(req.Body), needle)
		},
		handle: handle,
	}}, c.routes...)
	return c
}

// RespondOperation registers a fixed status + body for an envelope operation.
func (c *Client) RespondOperation(op string, status int, body string) *Client {
	return c.OnOperation(op, func(*transport.Request) (*transport.Response, error) {
		return &transport.Response{Status: status, Body: []byte(body)}, nil
	})
}

// Respond registers a fixed status + body.
func (c *Client) Respond(method, path string, status int, body string) *Client {
	return c.On(method, path, func(*transport.Request) (*transport.Response, error) {
		return &transport.Response{Status: status, Body: []byte(body)}, nil
	})
}

// Fail registers an error result.
func (c *Client) Fail(method, path string, err error) *Client {
	return c.On(method, path, func(*transport.Request) (*transport.Response, error) {
		return nil, err
	})
}

func (c *Client) Do(_ context.Context, req *transport.Request) (*transport.Response, error) {
	c.lock.Lock()
	c.requests = append(c.requests, req)
	routes := c.routes
	c.lock.Unlock()

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	for _, r := range routes {
		if (r.method == "" || r.method == req.Method) && strings.HasSuffix(u.Path, r.path) && (r.match == nil || r.match(req)) {
			return r.handle(req)
		}
	}
	return nil, fmt.Errorf("fake transport: no route for %s %s", req.Method, u.Path)
}

// Requests returns the recorded requests in call order.
func (c *Client) Requests() []*transport.Request {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]*transport.Request(nil), c.requests...)
}

// Count returns how many recorded requests hit a path.
func (c *Client) Count(path string) int {
	n := 0
	for _, req := range c.Requests() {
		if u, err := url.Parse(req.URL); err == nil && strings.HasSuffix(u.Path, path) {
			n++
		}
	}
	return n
}

// CountOperation returns how many envelope POSTs carried op.
func (c *Client) CountOperation(op string) int {
	needle := fmt.Sprintf("%q:", op)
	n := 0
	for _, req := range c.Requests() {
		if strings.Contains(string(req.Body), needle) {
			n++
		}
	}
	return n
}
