package auth

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/zimbra-connector/sessions"
)

// ConnectWithPassword connects userID to the server at url. Any previous
// OAuth renewal state is dropped first. On success the credentials are kept
// for later renewals, and a supplied second factor opens the pre-auth window.
func (e *Engine) ConnectWithPassword(ctx context.Context, userID, url, login, password, twoFactorCode string) error {
	if err := e.sessions.SetUserValue(ctx, userID, sessions.KeyURL, url); err != nil {
		return err
	}
	if err := e.sessions.ResetRenewal(ctx, userID); err != nil {
		return err
	}

	grant, err := e.Login(ctx, url, login, password, twoFactorCode)
	if err != nil {
		return errors.Wrap(err, "[Engine.ConnectWithPassword]")
	}

	if err := e.sessions.SaveCredentials(ctx, userID, login, password); err != nil {
		return err
	}
	if err := e.sessions.SaveToken(ctx, userID, grant.Token, "", grant.ExpiresAt); err != nil {
		return err
	}
	if twoFactorCode != "" {
		if err := e.sessions.SaveTwoFactorExpiry(ctx, userID, e.nowTime().Add(e.twoFactorWindow)); err != nil {
			return err
		}
	}
	log.Info().Str("user", userID).Msg("connected with password")
	return nil
}

// Disconnect forgets every credential of userID.
func (e *Engine) Disconnect(ctx context.Context, userID string) error {
	if err := e.sessions.Clear(ctx, userID); err != nil {
		return errors.Wrap(err, "[Engine.Disconnect]")
	}
	log.Info().Str("user", userID).Msg("disconnected")
	return nil
}
