package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/zimbra-connector/secret"
	"github.com/jrsteele09/zimbra-connector/sessions"
	"github.com/jrsteele09/zimbra-connector/store/repofake"
)

const testUserID = "alice"

func setupStore(t *testing.T) (*sessions.Store, *repofake.FakeStore) {
	t.Helper()

	codec, err := secret.NewAEADCodec([]byte("test-master-secret"))
	require.NoError(t, err)
	repo := repofake.NewFakeStore()
	return sessions.NewStore(repo, codec, 600*time.Second), repo
}

func TestSecretsAreEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	s, repo := setupStore(t)

	require.NoError(t, s.SaveCredentials(ctx, testUserID, "alice@example.com", "hunter2"))
	require.NoError(t, s.SaveToken(ctx, testUserID, "tok-1", "refresh-1", nil))

	raw := repo.UserValues(testUserID)
	require.NotEmpty(t, raw[sessions.KeyLogin])
	require.NotEqual(t, "alice@example.com", raw[sessions.KeyLogin])
	require.NotEqual(t, "hunter2", raw[sessions.KeyPassword])
	require.NotEqual(t, "tok-1", raw[sessions.KeyToken])
	require.NotEqual(t, "refresh-1", raw[sessions.KeyRefreshToken])

	sess, err := s.Load(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", sess.Login)
	require.Equal(t, "hunter2", sess.Password)
	require.Equal(t, "tok-1", sess.Token)
	require.Equal(t, "refresh-1", sess.RefreshToken)
	require.Nil(t, sess.TokenExpiresAt)
}

func TestSaveTokenKeepsRefreshTokenWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t)

	expires := time.Unix(1_700_000_000, 0)
	require.NoError(t, s.SaveToken(ctx, testUserID, "tok-1", "refresh-1", &expires))
	require.NoError(t, s.SaveToken(ctx, testUserID, "tok-2", "", &expires))

	sess, err := s.Load(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, "tok-2", sess.Token)
	require.Equal(t, "refresh-1", sess.RefreshToken)
	require.NotNil(t, sess.TokenExpiresAt)
	require.Equal(t, expires.Unix(), sess.TokenExpiresAt.Unix())
}

func TestIsConnected(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t)

	require.False(t, s.IsConnected(ctx, testUserID))

	require.NoError(t, s.SetUserValue(ctx, testUserID, sessions.KeyURL, "https://mail.example.com"))
	require.NoError(t, s.SaveCredentials(ctx, testUserID, "alice", "pw"))
	require.NoError(t, s.SaveToken(ctx, testUserID, "tok", "", nil))
	require.False(t, s.IsConnected(ctx, testUserID), "user name still missing")

	require.NoError(t, s.SaveUserInfo(ctx, testUserID, sessions.UserInfo{ID: "u-1", Name: "alice@example.com", DisplayName: "Alice"}))
	require.True(t, s.IsConnected(ctx, testUserID))

	require.NoError(t, s.Clear(ctx, testUserID))
	require.False(t, s.IsConnected(ctx, testUserID))

	url, err := s.RemoteURL(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, "https://mail.example.com", url, "disconnect keeps the chosen server")
}

func TestRemoteURLFallsBackToInstallation(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t)

	require.NoError(t, s.SaveInstallationValues(ctx, map[string]string{
		sessions.AppKeyAdminInstanceURL: "https://admin.example.com/",
	}))
	url, err := s.RemoteURL(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, "https://admin.example.com", url)

	require.NoError(t, s.SaveInstallationValues(ctx, map[string]string{
		sessions.AppKeyOAuthInstanceURL: "https://oauth.example.com",
	}))
	url, err = s.RemoteURL(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, "https://oauth.example.com", url)
}

func TestInstallation(t *testing.T) {
	ctx := context.Background()
	s, repo := setupStore(t)

	inst, err := s.LoadInstallation(ctx)
	require.NoError(t, err)
	require.Equal(t, 600*time.Second, inst.ContactsCacheTTL)
	require.False(t, inst.UsePopup)

	require.NoError(t, s.SaveInstallationValues(ctx, map[string]string{
		sessions.AppKeyClientID:         "client",
		sessions.AppKeyClientSecret:     "s3cret",
		sessions.AppKeyPreAuthKey:       "deadbeef",
		sessions.AppKeyUsePopup:         "1",
		sessions.AppKeyContactsCacheTTL: "30",
	}))

	raw, err := repo.GetAppValue(ctx, sessions.AppKeyClientSecret, "")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", raw)

	inst, err = s.LoadInstallation(ctx)
	require.NoError(t, err)
	require.Equal(t, "client", inst.ClientID)
	require.Equal(t, "s3cret", inst.ClientSecret)
	require.Equal(t, "deadbeef", inst.PreAuthKey)
	require.True(t, inst.UsePopup)
	require.Equal(t, 30*time.Second, inst.ContactsCacheTTL)
}
