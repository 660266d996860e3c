// Package dispatch sends calls to the remote server. Caller performs raw,
// unauthenticated calls; Dispatcher wraps it with session validation and
// token injection for REST and envelope calls.
package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
	"github.com/jrsteele09/zimbra-connector/oauthmodel"
	"github.com/jrsteele09/zimbra-connector/transport"
	"github.com/jrsteele09/zimbra-connector/zimbra"
)

const oauthTokenPath = "/oauth/access_token"

// Caller performs calls that carry no session token: logins and the OAuth token endpoint.
type Caller struct {
	client    transport.Client
	userAgent zimbra.UserAgent
}

// NewCaller returns a Caller sending through client as userAgent.
func NewCaller(client transport.Client, userAgent zimbra.UserAgent) *Caller {
	return &Caller{client: client, userAgent: userAgent}
}

// UserAgent is the identity placed in envelope contexts.
func (c *Caller) UserAgent() zimbra.UserAgent {
	return c.userAgent
}

// Send executes req. Transport failures are classified; HTTP statuses are
// returned untouched for the caller to interpret.
func (c *Caller) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if !validMethod(req.Method) {
		return nil, errors.Wrapf(apperrors.ErrBadMethod, "[Caller.Send] %q", req.Method)
	}
	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, classifyTransportError(err, req)
	}
	return resp, nil
}

// PostEnvelope POSTs env as JSON to the envelope endpoint of baseURL.
func (c *Caller) PostEnvelope(ctx context.Context, baseURL string, env *zimbra.Envelope) (*transport.Response, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "[Caller.PostEnvelope] encoding envelope")
	}
	return c.Send(ctx, &transport.Request{
		Method: http.MethodPost,
		URL:    strings.TrimRight(baseURL, "/") + zimbra.SOAPPath,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
}

// OAuthToken calls the token endpoint of baseURL. POST sends the parameters
// as a form body, GET as a query string. A status >= 400 or a body without an
// access token is ErrOAuthRefused.
func (c *Caller) OAuthToken(ctx context.Context, baseURL, method string, tr *oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	req := &transport.Request{
		Method: method,
		URL:    strings.TrimRight(baseURL, "/") + oauthTokenPath,
		Header: http.Header{},
	}
	values := tr.Values()
	switch method {
	case http.MethodGet:
		req.URL += "?" + values.Encode()
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Body = []byte(values.Encode())
	default:
		return nil, errors.Wrapf(apperrors.ErrBadMethod, "[Caller.OAuthToken] %q", method)
	}

	resp, err := c.Send(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("grant_type", string(tr.GrantType)).Msg("OAuth token request failed")
		return nil, err
	}
	if resp.Status >= 400 {
		return nil, errors.Wrapf(apperrors.ErrOAuthRefused, "[Caller.OAuthToken] status %d", resp.Status)
	}
	token, err := oauthmodel.ParseTokenResponse(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrMalformedResponse, "[Caller.OAuthToken] %v", err)
	}
	if !token.Granted() {
		return nil, errors.Wrapf(apperrors.ErrOAuthRefused, "[Caller.OAuthToken] %s", token.Reason())
	}
	return token, nil
}

func validMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// classifyTransportError maps a transport failure onto the error taxonomy.
// The original message is logged, never surfaced.
func classifyTransportError(err error, req *transport.Request) error {
	log.Debug().Err(err).Str("method", req.Method).Str("url", redactURL(req.URL)).Msg("remote call failed")

	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.ClientFault() {
			return errors.Wrapf(apperrors.ErrClientFault, "status %d", statusErr.Status)
		}
		return errors.Wrapf(apperrors.ErrServerFault, "status %d", statusErr.Status)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(apperrors.ErrTransport, err.Error())
	}
	return errors.Wrap(apperrors.ErrTransport, "request did not complete")
}

// redactURL drops the query string, which carries the auth token.
func redactURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
