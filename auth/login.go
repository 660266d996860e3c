package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
	"github.com/jrsteele09/zimbra-connector/zimbra"
)

const authResponse = "AuthResponse"

// Login performs a password login. twoFactorCode may be empty. When the
// account needs a second factor that was not supplied, the error is
// ErrTwoFactorRequired.
func (e *Engine) Login(ctx context.Context, baseURL, login, password, twoFactorCode string) (*Grant, error) {
	req := &zimbra.AuthRequest{
		Account:       zimbra.ByName(login),
		Password:      password,
		TwoFactorCode: twoFactorCode,
	}
	return e.authenticate(ctx, baseURL, req)
}

// PreAuth logs login in with a credential signed by the installation's pre-auth key.
func (e *Engine) PreAuth(ctx context.Context, baseURL, preAuthKey, login string) (*Grant, error) {
	timestamp := e.nowTime().UnixMilli()
	req := &zimbra.AuthRequest{
		Account: zimbra.ByName(login),
		PreAuth: &zimbra.PreAuth{
			Timestamp: timestamp,
			Expires:   0,
			Content:   PreAuthSignature(preAuthKey, login, timestamp),
		},
	}
	grant, err := e.authenticate(ctx, baseURL, req)
	if errors.Is(err, apperrors.ErrTwoFactorRequired) {
		// a signed pre-auth is never asked for a second factor; treat it as a refusal
		return nil, errors.Wrap(apperrors.ErrInvalidCredentials, "[Engine.PreAuth] second factor requested")
	}
	return grant, err
}

// PreAuthSignature is the hex HMAC-SHA1 of "{login}|name|0|{timestampMs}".
// Keys longer than the 64 byte block are hashed, shorter ones zero padded.
func PreAuthSignature(key, login string, timestampMs int64) string {
	mac := hmac.New(sha1.New, []byte(key))
	fmt.Fprintf(mac, "%s|name|0|%d", login, timestampMs)
	return hex.EncodeToString(mac.Sum(nil))
}

func (e *Engine) authenticate(ctx context.Context, baseURL string, req *zimbra.AuthRequest) (*Grant, error) {
	env := zimbra.NewAuthEnvelope(e.caller.UserAgent(), req)
	resp, err := e.caller.PostEnvelope(ctx, baseURL, env)
	if err != nil {
		return nil, errors.Wrap(err, "[Engine.authenticate]")
	}
	if resp.Status >= 400 {
		log.Debug().Int("status", resp.Status).Msg("login refused")
		return nil, errors.Wrapf(apperrors.ErrInvalidCredentials, "[Engine.authenticate] status %d", resp.Status)
	}

	out, err := zimbra.ParseResponse(resp.Body)
	if err != nil {
		log.Warn().Err(err).Msg("login error: invalid response")
		return nil, errors.Wrapf(apperrors.ErrMalformedResponse, "[Engine.authenticate] %v", err)
	}
	var auth zimbra.AuthResponse
	if err := out.Decode(authResponse, &auth); err != nil {
		var fault *zimbra.Fault
		if errors.As(err, &fault) {
			return nil, errors.Wrapf(apperrors.ErrInvalidCredentials, "[Engine.authenticate] %s", fault.Error())
		}
		log.Warn().Err(err).Msg("login error: invalid response")
		return nil, errors.Wrapf(apperrors.ErrMalformedResponse, "[Engine.authenticate] %v", err)
	}
	if auth.TwoFactorRequired() {
		return nil, apperrors.ErrTwoFactorRequired
	}
	if auth.Token() == "" {
		log.Warn().Msg("login error: no token in response")
		return nil, errors.Wrap(apperrors.ErrMalformedResponse, "[Engine.authenticate] missing authToken")
	}

	grant := &Grant{Token: auth.Token()}
	if auth.Lifetime > 0 {
		expires := e.nowTime().Add(time.Duration(auth.Lifetime/1000) * time.Second)
		grant.ExpiresAt = &expires
	}
	return grant, nil
}
