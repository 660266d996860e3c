package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
	"github.com/jrsteele09/zimbra-connector/sessions"
	"github.com/jrsteele09/zimbra-connector/transport"
	"github.com/jrsteele09/zimbra-connector/zimbra"
)

// SessionValidator makes sure the stored token of a user is usable,
// renewing it if needed. It returns false when renewal was impossible.
type SessionValidator interface {
	EnsureValidSession(ctx context.Context, userID string) bool
}

// Dispatcher issues authenticated calls on behalf of a host user.
type Dispatcher struct {
	caller    *Caller
	sessions  *sessions.Store
	validator SessionValidator
}

// NewDispatcher returns a Dispatcher that checks each session with validator before calling.
func NewDispatcher(caller *Caller, store *sessions.Store, validator SessionValidator) *Dispatcher {
	return &Dispatcher{caller: caller, sessions: store, validator: validator}
}

// session validates and then reads the session, so a renewed token is used.
func (d *Dispatcher) session(ctx context.Context, userID string) (*sessions.Session, error) {
	if !d.validator.EnsureValidSession(ctx, userID) {
		return nil, apperrors.ErrSessionExpired
	}
	sess, err := d.sessions.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess.URL == "" {
		return nil, apperrors.ErrNotConnected
	}
	return sess, nil
}

// Rest calls {url}/{endpoint}. The token always travels as query parameters;
// GET merges params into the query, other methods send them as a JSON body.
// A status >= 400 is ErrBadCredentials and the body is not read.
func (d *Dispatcher) Rest(ctx context.Context, userID, endpoint string, params Params, method string, wantsJSON bool) (*transport.Response, error) {
	if !validMethod(method) {
		return nil, errors.Wrapf(apperrors.ErrBadMethod, "[Dispatcher.Rest] %q", method)
	}
	sess, err := d.session(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "[Dispatcher.Rest] %s", endpoint)
	}

	auth := [][2]string{{"auth", "qp"}, {"zauthtoken", sess.Token}}
	if wantsJSON {
		auth = append(auth, [2]string{"fmt", "json"})
	}

	req := &transport.Request{
		Method: method,
		URL:    sess.URL + "/" + strings.TrimLeft(endpoint, "/"),
		Header: http.Header{},
	}
	if method == http.MethodGet {
		req.URL += "?" + params.queryString(auth)
	} else {
		req.URL += "?" + Params(nil).queryString(auth)
		if len(params) > 0 {
			body, err := json.Marshal(params)
			if err != nil {
				return nil, errors.Wrap(err, "[Dispatcher.Rest] encoding params")
			}
			req.Header.Set("Content-Type", "application/json")
			req.Body = body
		}
	}

	resp, err := d.caller.Send(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "[Dispatcher.Rest] %s %s", method, endpoint)
	}
	if resp.Status >= 400 {
		log.Debug().Str("user", userID).Str("endpoint", endpoint).Int("status", resp.Status).Msg("remote refused REST call")
		return nil, errors.Wrapf(apperrors.ErrBadCredentials, "[Dispatcher.Rest] %s status %d", endpoint, resp.Status)
	}
	return resp, nil
}

// RestJSON is Rest with a JSON response decoded into dst.
func (d *Dispatcher) RestJSON(ctx context.Context, userID, endpoint string, params Params, method string, dst any) error {
	resp, err := d.Rest(ctx, userID, endpoint, params, method, true)
	if err != nil {
		return err
	}
	if err := decodeJSON(resp.Body, dst); err != nil {
		return errors.Wrapf(apperrors.ErrMalformedResponse, "[Dispatcher.RestJSON] %s: %v", endpoint, err)
	}
	return nil
}

// Protocol sends op under namespace ns in an authenticated envelope.
func (d *Dispatcher) Protocol(ctx context.Context, userID, op, ns string, params map[string]any) (*zimbra.ResponseEnvelope, error) {
	sess, err := d.session(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "[Dispatcher.Protocol] %s", op)
	}

	env := zimbra.NewEnvelope(d.caller.UserAgent(), sess.AccountName(), sess.Token, op, ns, params)
	resp, err := d.caller.PostEnvelope(ctx, sess.URL, env)
	if err != nil {
		return nil, errors.Wrapf(err, "[Dispatcher.Protocol] %s", op)
	}
	if resp.Status >= 400 {
		log.Debug().Str("user", userID).Str("op", op).Int("status", resp.Status).Msg("remote refused envelope call")
		return nil, errors.Wrapf(apperrors.ErrBadCredentials, "[Dispatcher.Protocol] %s status %d", op, resp.Status)
	}

	out, err := zimbra.ParseResponse(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrMalformedResponse, "[Dispatcher.Protocol] %s: %v", op, err)
	}
	if fault := out.Fault(); fault != nil {
		return nil, faultError(op, fault)
	}
	return out, nil
}

// ProtocolJSON is Protocol with the named response decoded into dst.
func (d *Dispatcher) ProtocolJSON(ctx context.Context, userID, op, ns string, params map[string]any, response string, dst any) error {
	env, err := d.Protocol(ctx, userID, op, ns, params)
	if err != nil {
		return err
	}
	if err := env.Decode(response, dst); err != nil {
		return errors.Wrapf(apperrors.ErrMalformedResponse, "[Dispatcher.ProtocolJSON] %s: %v", op, err)
	}
	return nil
}

func faultError(op string, fault *zimbra.Fault) error {
	log.Debug().Str("op", op).Str("fault", fault.Error()).Msg("remote returned a fault")
	if fault.Sender() {
		return errors.Wrapf(apperrors.ErrClientFault, "[Dispatcher.Protocol] %s", op)
	}
	return errors.Wrapf(apperrors.ErrServerFault, "[Dispatcher.Protocol] %s", op)
}

func decodeJSON(body []byte, dst any) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(body, dst)
}
