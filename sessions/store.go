package sessions

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/zimbra-connector/secret"
	"github.com/jrsteele09/zimbra-connector/store"
)

var encryptedUserKeys = map[string]bool{
	KeyLogin:        true,
	KeyPassword:     true,
	KeyToken:        true,
	KeyRefreshToken: true,
}

var encryptedAppKeys = map[string]bool{
	AppKeyClientSecret: true,
	AppKeyPreAuthKey:   true,
}

// Store reads and writes sessions through the host configuration store,
// encrypting secrets on the way in and decrypting them on the way out.
// It keeps no state of its own: every call goes to the Repo.
type Store struct {
	repo  store.Repo
	codec secret.Codec
	ttl   time.Duration
}

func NewStore(repo store.Repo, codec secret.Codec, defaultCacheTTL time.Duration) *Store {
	return &Store{repo: repo, codec: codec, ttl: defaultCacheTTL}
}

// Load reads the full session for userID. The remote URL falls back to the installation default.
func (s *Store) Load(ctx context.Context, userID string) (*Session, error) {
	inst, err := s.LoadInstallation(ctx)
	if err != nil {
		return nil, err
	}

	sess := &Session{UserID: userID}
	fields := []struct {
		key string
		dst *string
	}{
		{KeyURL, &sess.URL},
		{KeyLogin, &sess.Login},
		{KeyPassword, &sess.Password},
		{KeyToken, &sess.Token},
		{KeyRefreshToken, &sess.RefreshToken},
		{KeyUserID, &sess.RemoteUserID},
		{KeyUserName, &sess.UserName},
		{KeyUserDisplayName, &sess.DisplayName},
		{KeyRemoteVersion, &sess.RemoteVersion},
		{KeyRedirectURI, &sess.RedirectURI},
	}
	for _, f := range fields {
		if *f.dst, err = s.GetUserValue(ctx, userID, f.key); err != nil {
			return nil, err
		}
	}
	if sess.URL == "" {
		sess.URL = inst.DefaultURL()
	}
	sess.URL = strings.TrimRight(sess.URL, "/")

	if sess.TokenExpiresAt, err = s.timestamp(ctx, userID, KeyTokenExpiresAt); err != nil {
		return nil, err
	}
	if sess.TwoFactorExpiresAt, err = s.timestamp(ctx, userID, KeyTwoFactorExpiresAt); err != nil {
		return nil, err
	}
	return sess, nil
}

// RemoteURL returns the effective remote URL for userID.
func (s *Store) RemoteURL(ctx context.Context, userID string) (string, error) {
	url, err := s.repo.GetUserValue(ctx, userID, KeyURL, "")
	if err != nil {
		return "", errors.Wrap(err, "[Store.RemoteURL]")
	}
	if url == "" {
		inst, err := s.LoadInstallation(ctx)
		if err != nil {
			return "", err
		}
		url = inst.DefaultURL()
	}
	return strings.TrimRight(url, "/"), nil
}

// SaveToken stores a freshly obtained access token. A nil expiresAt clears the
// recorded expiry; an empty refreshToken leaves the stored one untouched.
func (s *Store) SaveToken(ctx context.Context, userID, token, refreshToken string, expiresAt *time.Time) error {
	if err := s.SetUserValue(ctx, userID, KeyToken, token); err != nil {
		return err
	}
	if refreshToken != "" {
		if err := s.SetUserValue(ctx, userID, KeyRefreshToken, refreshToken); err != nil {
			return err
		}
	}
	if expiresAt == nil {
		return s.deleteUserValues(ctx, userID, KeyTokenExpiresAt)
	}
	return s.setTimestamp(ctx, userID, KeyTokenExpiresAt, *expiresAt)
}

// SaveCredentials keeps login and password so expired tokens can be renewed without the user.
func (s *Store) SaveCredentials(ctx context.Context, userID, login, password string) error {
	if err := s.SetUserValue(ctx, userID, KeyLogin, login); err != nil {
		return err
	}
	return s.SetUserValue(ctx, userID, KeyPassword, password)
}

// SaveTwoFactorExpiry records until when pre-auth may replace a second factor.
func (s *Store) SaveTwoFactorExpiry(ctx context.Context, userID string, until time.Time) error {
	return s.setTimestamp(ctx, userID, KeyTwoFactorExpiresAt, until)
}

// SaveUserInfo stores the remote identity.
func (s *Store) SaveUserInfo(ctx context.Context, userID string, info UserInfo) error {
	values := map[string]string{
		KeyUserID:          info.ID,
		KeyUserName:        info.Name,
		KeyUserDisplayName: info.DisplayName,
		KeyRemoteVersion:   info.Version,
	}
	for k, v := range values {
		if err := s.SetUserValue(ctx, userID, k, v); err != nil {
			return err
		}
	}
	return nil
}

// ResetRenewal forgets the refresh token and expiry, used before a password login.
func (s *Store) ResetRenewal(ctx context.Context, userID string) error {
	return s.deleteUserValues(ctx, userID, KeyRefreshToken, KeyTokenExpiresAt)
}

// Clear removes every credential of userID (explicit disconnect).
func (s *Store) Clear(ctx context.Context, userID string) error {
	return s.deleteUserValues(ctx, userID,
		KeyUserID, KeyUserName, KeyUserDisplayName, KeyRemoteVersion,
		KeyToken, KeyLogin, KeyPassword,
		KeyRefreshToken, KeyTokenExpiresAt, KeyTwoFactorExpiresAt,
	)
}

// IsConnected reports whether url, user name, token, login and password are all
// present after decryption. Storage or decryption failures count as not connected.
func (s *Store) IsConnected(ctx context.Context, userID string) bool {
	sess, err := s.Load(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("could not load session")
		return false
	}
	return sess.Connected()
}

// LoadInstallation reads the administrator configuration.
func (s *Store) LoadInstallation(ctx context.Context) (*Installation, error) {
	inst := &Installation{ContactsCacheTTL: s.ttl}
	fields := []struct {
		key string
		dst *string
	}{
		{AppKeyAdminInstanceURL, &inst.AdminInstanceURL},
		{AppKeyOAuthInstanceURL, &inst.OAuthInstanceURL},
		{AppKeyClientID, &inst.ClientID},
		{AppKeyClientSecret, &inst.ClientSecret},
		{AppKeyPreAuthKey, &inst.PreAuthKey},
	}
	var err error
	for _, f := range fields {
		if *f.dst, err = s.GetAppValue(ctx, f.key); err != nil {
			return nil, err
		}
	}

	popup, err := s.GetAppValue(ctx, AppKeyUsePopup)
	if err != nil {
		return nil, err
	}
	inst.UsePopup = popup == "1"

	ttl, err := s.GetAppValue(ctx, AppKeyContactsCacheTTL)
	if err != nil {
		return nil, err
	}
	if seconds, convErr := strconv.Atoi(ttl); convErr == nil && seconds > 0 {
		inst.ContactsCacheTTL = time.Duration(seconds) * time.Second
	}
	return inst, nil
}

// SaveInstallationValues stores administrator values, encrypting the secret ones.
func (s *Store) SaveInstallationValues(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		if encryptedAppKeys[k] {
			enc, err := s.codec.Encrypt(v)
			if err != nil {
				return errors.Wrapf(err, "[Store.SaveInstallationValues] encrypting %s", k)
			}
			v = enc
		}
		if err := s.repo.SetAppValue(ctx, k, v); err != nil {
			return errors.Wrapf(err, "[Store.SaveInstallationValues] %s", k)
		}
	}
	return nil
}

// GetUserValue reads a single user value, decrypting it when it is a secret.
func (s *Store) GetUserValue(ctx context.Context, userID, key string) (string, error) {
	v, err := s.repo.GetUserValue(ctx, userID, key, "")
	if err != nil {
		return "", errors.Wrapf(err, "[Store.GetUserValue] %s", key)
	}
	if !encryptedUserKeys[key] {
		return v, nil
	}
	plain, err := s.codec.Decrypt(v)
	if err != nil {
		return "", errors.Wrapf(err, "[Store.GetUserValue] decrypting %s", key)
	}
	return plain, nil
}

// SetUserValue writes a single user value, encrypting it when it is a secret.
func (s *Store) SetUserValue(ctx context.Context, userID, key, value string) error {
	if encryptedUserKeys[key] {
		enc, err := s.codec.Encrypt(value)
		if err != nil {
			return errors.Wrapf(err, "[Store.SetUserValue] encrypting %s", key)
		}
		value = enc
	}
	if err := s.repo.SetUserValue(ctx, userID, key, value); err != nil {
		return errors.Wrapf(err, "[Store.SetUserValue] %s", key)
	}
	return nil
}

// DeleteUserValue removes a single user value.
func (s *Store) DeleteUserValue(ctx context.Context, userID, key string) error {
	return s.deleteUserValues(ctx, userID, key)
}

// GetAppValue reads a single installation value, decrypting it when it is a secret.
func (s *Store) GetAppValue(ctx context.Context, key string) (string, error) {
	v, err := s.repo.GetAppValue(ctx, key, "")
	if err != nil {
		return "", errors.Wrapf(err, "[Store.GetAppValue] %s", key)
	}
	if !encryptedAppKeys[key] {
		return v, nil
	}
	plain, err := s.codec.Decrypt(v)
	if err != nil {
		return "", errors.Wrapf(err, "[Store.GetAppValue] decrypting %s", key)
	}
	return plain, nil
}

func (s *Store) deleteUserValues(ctx context.Context, userID string, keys ...string) error {
	for _, k := range keys {
		if err := s.repo.DeleteUserValue(ctx, userID, k); err != nil {
			return errors.Wrapf(err, "[Store.DeleteUserValue] %s", k)
		}
	}
	return nil
}

func (s *Store) timestamp(ctx context.Context, userID, key string) (*time.Time, error) {
	v, err := s.repo.GetUserValue(ctx, userID, key, "")
	if err != nil {
		return nil, errors.Wrapf(err, "[Store] reading %s", key)
	}
	if v == "" {
		return nil, nil
	}
	seconds, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Warn().Str("user", userID).Str("key", key).Msg("ignoring unparsable timestamp")
		return nil, nil
	}
	t := time.Unix(seconds, 0)
	return &t, nil
}

func (s *Store) setTimestamp(ctx context.Context, userID, key string, t time.Time) error {
	if err := s.repo.SetUserValue(ctx, userID, key, strconv.FormatInt(t.Unix(), 10)); err != nil {
		return errors.Wrapf(err, "[Store] writing %s", key)
	}
	return nil
}
