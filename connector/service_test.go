package connector_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/zimbra-connector/auth"
	"github.com/jrsteele09/zimbra-connector/connector"
	"github.com/jrsteele09/zimbra-connector/dispatch"
	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
	"github.com/jrsteele09/zimbra-connector/secret"
	"github.com/jrsteele09/zimbra-connector/sessions"
	"github.com/jrsteele09/zimbra-connector/store/repofake"
	"github.com/jrsteele09/zimbra-connector/transport"
	"github.com/jrsteele09/zimbra-connector/transport/fake"
	"github.com/jrsteele09/zimbra-connector/zimbra"
)

const (
	testUserID = "alice"
	testURL    = "https://mail.example.com"
	remoteUser = "alice@example.com"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type testFixture struct {
	repo    *repofake.FakeStore
	store   *sessions.Store
	client  *fake.Client
	service *connector.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	codec, err := secret.NewAEADCodec([]byte("connector-test"))
	require.NoError(t, err)
	repo := repofake.NewFakeStore()
	store := sessions.NewStore(repo, codec, 10*time.Minute)
	client := fake.NewClient()
	caller := dispatch.NewCaller(client, zimbra.UserAgent{Name: "test", Version: "1"})
	nowFunc := func() time.Time { return now }

	engine, err := auth.NewEngine(caller, store, auth.WithNowTime(nowFunc))
	require.NoError(t, err)
	service := connector.NewService(engine, dispatch.NewDispatcher(caller, store, engine), store, connector.WithNowTime(nowFunc))

	return &testFixture{repo: repo, store: store, client: client, service: service}
}

func (f *testFixture) connect(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SetUserValue(ctx, testUserID, sessions.KeyURL, testURL))
	require.NoError(t, f.store.SaveCredentials(ctx, testUserID, remoteUser, "pw"))
	require.NoError(t, f.store.SaveToken(ctx, testUserID, "tok", "", nil))
	require.NoError(t, f.store.SaveUserInfo(ctx, testUserID, sessions.UserInfo{ID: "z-1", Name: remoteUser, DisplayName: "Alice"}))
}

func TestGetUnreadEmails(t *testing.T) {
	f := setupTestFixture(t)
	f.connect(t)
	f.client.On(http.MethodGet, "home/"+remoteUser+"/inbox", func(req *transport.Request) (*transport.Response, error) {
		u, err := url.Parse(req.URL)
		require.NoError(t, err)
		require.Equal(t, "is:unread", u.Query().Get("query"))
		return &transport.Response{Status: http.StatusOK, Body: []byte(`{"m":[
			{"id":"1","cid":"c1","d":1000,"su":"oldest"},
			{"id":"2","cid":"c2","d":3000,"su":"newest"},
			{"id":"3","cid":"c3","d":2000,"su":"middle"},
			{"id":"4","cid":"c4","d":1500,"su":"second oldest"}
		]}`)}, nil
	})

	ctx := context.Background()
	msgs, err := f.service.GetUnreadEmails(ctx, testUserID, 0, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		require.Greater(t, msgs[i-1].Date, msgs[i].Date)
	}
	require.Equal(t, "newest", msgs[0].Subject)

	msgs, err = f.service.GetUnreadEmails(ctx, testUserID, 3, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "oldest", msgs[0].Subject)

	msgs, err = f.service.GetUnreadEmails(ctx, testUserID, 10, 10)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestSearchEmailsNotConnected(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.SearchEmails(context.Background(), testUserID, "invoice", 0, 5)
	require.ErrorIs(t, err, apperrors.ErrNotConnected)
	require.Empty(t, f.client.Requests())
}

func TestGetContacts(t *testing.T) {
	f := setupTestFixture(t)
	f.connect(t)
	f.client.Respond(http.MethodGet, "home/"+remoteUser+"/contacts", http.StatusOK,
		`{"cn":[{"id":"7","_attrs":{"firstName":"Bob","email":"bob@example.com"}}]}`)

	contacts, err := f.service.GetContacts(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	require.Equal(t, "bob@example.com", contacts[0].Attr("email"))

	f.client.Respond(http.MethodGet, "home/"+remoteUser+"/contacts", http.StatusForbidden, "")
	_, err = f.service.SearchContacts(context.Background(), testUserID, "bob")
	require.ErrorIs(t, err, apperrors.ErrBadCredentials)
}

func appt(id string, start time.Time) string {
	return fmt.Sprintf(`{"id":%q,"name":"event %s","l":"10","dur":3600000,"inst":[{"s":%d}]}`, id, id, start.UnixMilli())
}

func TestGetUpcomingEvents(t *testing.T) {
	f := setupTestFixture(t)
	f.connect(t)
	since := now.Add(2 * time.Hour)

	f.client.RespondOperation(zimbra.OpGetFolder, http.StatusOK, `{"Body":{"GetFolderResponse":{"folder":[{"id":"1","folder":[
		{"id":"10","view":"appointment","folder":[{"id":"300","view":"appointment"}]},
		{"id":"2","view":"message"}
	]}]}}}`)
	f.client.OnOperation(zimbra.OpSearch, func(req *transport.Request) (*transport.Response, error) {
		var env struct {
			Body struct {
				SearchRequest struct {
					Types string         `json:"types"`
					Start int64          `json:"calExpandInstStart"`
					End   int64          `json:"calExpandInstEnd"`
					Query zimbra.Content `json:"query"`
				} `json:"SearchRequest"`
			} `json:"Body"`
		}
		require.NoError(t, json.Unmarshal(req.Body, &env))
		sr := env.Body.SearchRequest
		require.Equal(t, "appointment", sr.Types)
		require.Equal(t, since.UnixMilli(), sr.Start)
		require.Equal(t, since.Add(30*24*time.Hour).UnixMilli(), sr.End)
		require.Equal(t, `inid:"10" OR inid:"300"`, sr.Query.Content)

		appts := []string{
			appt("late", since.Add(10*24*time.Hour)),
			appt("at-since", since),
			appt("too-far", since.Add(31*24*time.Hour)),
			appt("early", since.Add(time.Hour)),
			appt("tie", since.Add(time.Hour)),
			appt("past", since.Add(-time.Minute)),
			`{"id":"no-instance","name":"x"}`,
		}
		body := `{"Body":{"SearchResponse":{"appt":[` + strings.Join(appts, ",") + `]}}}`
		return &transport.Response{Status: http.StatusOK, Body: []byte(body)}, nil
	})

	events, err := f.service.GetUpcomingEvents(context.Background(), testUserID, &since)
	require.NoError(t, err)

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	require.Equal(t, []string{"at-since", "early", "tie", "late"}, ids)
	require.Equal(t, since.Add(2*time.Hour).UnixMilli(), events[1].End)
}

func TestGetUpcomingEventsWithoutCalendars(t *testing.T) {
	f := setupTestFixture(t)
	f.connect(t)
	f.client.RespondOperation(zimbra.OpGetFolder, http.StatusOK, `{"Body":{"GetFolderResponse":{"folder":[{"id":"1"}]}}}`)

	events, err := f.service.GetUpcomingEvents(context.Background(), testUserID, nil)
	require.NoError(t, err)
	require.Empty(t, events)
	require.Zero(t, f.client.CountOperation(zimbra.OpSearch))
}

func TestGetUserAvatar(t *testing.T) {
	ctx := context.Background()

	t.Run("personal image", func(t *testing.T) {
		f := setupTestFixture(t)
		f.connect(t)
		f.client.On(http.MethodGet, "users/z-9/image", func(*transport.Request) (*transport.Response, error) {
			return &transport.Response{Status: http.StatusOK, Header: http.Header{"Content-Type": {"image/png"}}, Body: []byte("PNG")}, nil
		})

		avatar, err := f.service.GetUserAvatar(ctx, testUserID, "z-9")
		require.NoError(t, err)
		require.Equal(t, []byte("PNG"), avatar.Content)
		require.Equal(t, "image/png", avatar.ContentType)
		require.Zero(t, f.client.Count("users/z-9/image/default"))
	})

	t.Run("default image", func(t *testing.T) {
		f := setupTestFixture(t)
		f.connect(t)
		f.client.Respond(http.MethodGet, "users/z-9/image", http.StatusNotFound, "")
		f.client.Respond(http.MethodGet, "users/z-9/image/default", http.StatusOK, "GIF")

		avatar, err := f.service.GetUserAvatar(ctx, testUserID, "z-9")
		require.NoError(t, err)
		require.Equal(t, []byte("GIF"), avatar.Content)
	})

	t.Run("user info", func(t *testing.T) {
		f := setupTestFixture(t)
		f.connect(t)
		f.client.Respond(http.MethodGet, "users/z-9/image", http.StatusNotFound, "")
		f.client.Respond(http.MethodGet, "users/z-9/image/default", http.StatusNotFound, "")
		f.client.Respond(http.MethodGet, "users/z-9", http.StatusOK, `{"id":"z-9","username":"bob"}`)

		avatar, err := f.service.GetUserAvatar(ctx, testUserID, "z-9")
		require.NoError(t, err)
		require.Nil(t, avatar.Content)
		require.JSONEq(t, `{"id":"z-9","username":"bob"}`, string(avatar.UserInfo))
	})
	t.Run("expired session is renewed once", func(t *testing.T) {
		f := setupTestFixture(t)
		f.connect(t)
		expired := now.Add(-time.Hour)
		require.NoError(t, f.store.SaveToken(ctx, testUserID, "tok", "", &expired))
		f.client.RespondOperation(zimbra.OpAuth, http.StatusUnauthorized, "")

		_, err := f.service.GetUserAvatar(ctx, testUserID, "z-9")
		require.ErrorIs(t, err, apperrors.ErrSessionExpired)
		require.Equal(t, 1, f.client.CountOperation(zimbra.OpAuth))
		require.Zero(t, f.client.Count("users/z-9/image/default"))
		require.Zero(t, f.client.Count("users/z-9"))
	})
}
