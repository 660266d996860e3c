package dispatch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/zimbra-connector/dispatch"
	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
	"github.com/jrsteele09/zimbra-connector/oauthmodel"
	"github.com/jrsteele09/zimbra-connector/secret"
	"github.com/jrsteele09/zimbra-connector/sessions"
	"github.com/jrsteele09/zimbra-connector/store/repofake"
	"github.com/jrsteele09/zimbra-connector/transport"
	"github.com/jrsteele09/zimbra-connector/transport/fake"
	"github.com/jrsteele09/zimbra-connector/zimbra"
)

const (
	testUserID = "alice"
	remoteURL  = "https://mail.example.com"
)

type stubValidator struct {
	valid bool
	calls int
}

func (s *stubValidator) EnsureValidSession(context.Context, string) bool {
	s.calls++
	return s.valid
}

type fixture struct {
	client     *fake.Client
	validator  *stubValidator
	dispatcher *dispatch.Dispatcher
	caller     *dispatch.Caller
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	codec, err := secret.NewAEADCodec([]byte("dispatch-test"))
	require.NoError(t, err)
	store := sessions.NewStore(repofake.NewFakeStore(), codec, 10*time.Minute)
	require.NoError(t, store.SetUserValue(ctx, testUserID, sessions.KeyURL, remoteURL))
	require.NoError(t, store.SaveCredentials(ctx, testUserID, "alice", "pw"))
	require.NoError(t, store.SaveToken(ctx, testUserID, "tok en", "", nil))
	require.NoError(t, store.SaveUserInfo(ctx, testUserID, sessions.UserInfo{ID: "z-1", Name: "alice@example.com"}))

	client := fake.NewClient()
	validator := &stubValidator{valid: true}
	caller := dispatch.NewCaller(client, zimbra.UserAgent{Name: "test", Version: "1"})
	return &fixture{
		client:     client,
		validator:  validator,
		caller:     caller,
		dispatcher: dispatch.NewDispatcher(caller, store, validator),
	}
}

func TestRestUnauthorizedIsBadCredentials(t *testing.T) {
	f := setup(t)
	f.client.Respond(http.MethodGet, "home/alice@example.com/inbox", http.StatusUnauthorized, "not json at all")

	var list zimbra.MessageList
	err := f.dispatcher.RestJSON(context.Background(), testUserID, "home/alice@example.com/inbox", nil, http.MethodGet, &list)
	require.ErrorIs(t, err, apperrors.ErrBadCredentials)
	require.Equal(t, "Bad credentials", apperrors.Message(err))
}

func TestRestGetInjectsAuthAndFlattensArrays(t *testing.T) {
	f := setup(t)
	f.client.Respond(http.MethodGet, "home/alice@example.com/inbox", http.StatusOK, `{"m":[]}`)

	params := dispatch.Params{"query": "is:unread", "ids": []string{"1", "2"}}
	_, err := f.dispatcher.Rest(context.Background(), testUserID, "home/alice@example.com/inbox", params, http.MethodGet, true)
	require.NoError(t, err)

	reqs := f.client.Requests()
	require.Len(t, reqs, 1)
	u, err := url.Parse(reqs[0].URL)
	require.NoError(t, err)
	require.Equal(t, "ids[]=1&ids[]=2&query=is%3Aunread&auth=qp&zauthtoken=tok+en&fmt=json", u.RawQuery)
	require.Nil(t, reqs[0].Body)
}

func TestRestFlattensAnySliceType(t *testing.T) {
	f := setup(t)
	f.client.Respond(http.MethodGet, "search", http.StatusOK, `{}`)

	params := dispatch.Params{"ids": []int{3, 4}, "mixed": []any{"a b", true}, "a&b": []string{"x"}}
	_, err := f.dispatcher.Rest(context.Background(), testUserID, "search", params, http.MethodGet, false)
	require.NoError(t, err)

	reqs := f.client.Requests()
	require.Len(t, reqs, 1)
	u, err := url.Parse(reqs[0].URL)
	require.NoError(t, err)
	require.Equal(t, "a%26b[]=x&ids[]=3&ids[]=4&mixed[]=a+b&mixed[]=1&auth=qp&zauthtoken=tok+en", u.RawQuery)
}

func TestRestPostKeepsAuthInQuery(t *testing.T) {
	f := setup(t)
	f.client.Respond(http.MethodPost, "posts/search", http.StatusOK, "ok")

	resp, err := f.dispatcher.Rest(context.Background(), testUserID, "posts/search", dispatch.Params{"terms": "x"}, http.MethodPost, false)
	require.NoError(t, err)
	require.Equal(t, "ok", string(resp.Body))

	req := f.client.Requests()[0]
	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	require.Equal(t, "qp", u.Query().Get("auth"))
	require.Equal(t, "tok en", u.Query().Get("zauthtoken"))
	require.Empty(t, u.Query().Get("fmt"))
	require.JSONEq(t, `{"terms":"x"}`, string(req.Body))
}

func TestRestSessionExpired(t *testing.T) {
	f := setup(t)
	f.validator.valid = false

	_, err := f.dispatcher.Rest(context.Background(), testUserID, "home/x/contacts", nil, http.MethodGet, true)
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.Equal(t, "session expired, please re-authenticate", apperrors.Message(err))
	require.Empty(t, f.client.Requests())
}

func TestRestBadMethod(t *testing.T) {
	f := setup(t)

	_, err := f.dispatcher.Rest(context.Background(), testUserID, "home/x/contacts", nil, "PATCH", true)
	require.ErrorIs(t, err, apperrors.ErrBadMethod)
	require.Zero(t, f.validator.calls)
}

func TestRestTransportFaults(t *testing.T) {
	f := setup(t)
	f.client.Fail(http.MethodGet, "client", &transport.StatusError{Status: http.StatusNotFound})
	f.client.Fail(http.MethodGet, "server", &transport.StatusError{Status: http.StatusBadGateway})
	f.client.Fail(http.MethodGet, "network", context.DeadlineExceeded)

	_, err := f.dispatcher.Rest(context.Background(), testUserID, "client", nil, http.MethodGet, true)
	require.ErrorIs(t, err, apperrors.ErrClientFault)

	_, err = f.dispatcher.Rest(context.Background(), testUserID, "server", nil, http.MethodGet, true)
	require.ErrorIs(t, err, apperrors.ErrServerFault)

	_, err = f.dispatcher.Rest(context.Background(), testUserID, "network", nil, http.MethodGet, true)
	require.ErrorIs(t, err, apperrors.ErrTransport)
}

func TestRestMalformedJSON(t *testing.T) {
	f := setup(t)
	f.client.Respond(http.MethodGet, "home/x/contacts", http.StatusOK, "<html>")

	var list zimbra.ContactList
	err := f.dispatcher.RestJSON(context.Background(), testUserID, "home/x/contacts", nil, http.MethodGet, &list)
	require.ErrorIs(t, err, apperrors.ErrMalformedResponse)
}

func TestProtocolEnvelope(t *testing.T) {
	f := setup(t)
	f.client.RespondOperation(zimbra.OpGetInfo, http.StatusOK, `{"Body":{"GetInfoResponse":{"id":"z-1","name":"alice@example.com","version":"10.0"}}}`)

	var info zimbra.GetInfoResponse
	err := f.dispatcher.ProtocolJSON(context.Background(), testUserID, zimbra.OpGetInfo, zimbra.NamespaceAccount, nil, "GetInfoResponse", &info)
	require.NoError(t, err)
	require.Equal(t, "10.0", info.Version)
	require.Equal(t, "alice@example.com", info.DisplayName())

	var sent struct {
		Header struct {
			Context struct {
				AuthToken string `json:"authToken"`
				Account   struct {
					Content string `json:"_content"`
				} `json:"account"`
			} `json:"context"`
		} `json:"Header"`
	}
	req := f.client.Requests()[0]
	require.Equal(t, remoteURL+"/service/soap", req.URL)
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	require.Equal(t, "tok en", sent.Header.Context.AuthToken)
	require.Equal(t, "alice@example.com", sent.Header.Context.Account.Content)
}

func TestProtocolStatusAndFault(t *testing.T) {
	f := setup(t)
	f.client.RespondOperation(zimbra.OpGetFolder, http.StatusInternalServerError, `{"Body":{"Fault":{}}}`)
	f.client.RespondOperation(zimbra.OpSearch, http.StatusOK, `{"Body":{"Fault":{"Code":{"Value":"soap:Sender"},"Reason":{"Text":"bad query"}}}}`)

	_, err := f.dispatcher.Protocol(context.Background(), testUserID, zimbra.OpGetFolder, zimbra.NamespaceMail, nil)
	require.ErrorIs(t, err, apperrors.ErrBadCredentials)

	_, err = f.dispatcher.Protocol(context.Background(), testUserID, zimbra.OpSearch, zimbra.NamespaceMail, nil)
	require.ErrorIs(t, err, apperrors.ErrClientFault)
}

func TestOAuthToken(t *testing.T) {
	f := setup(t)
	tr := &oauthmodel.TokenRequest{
		GrantType:    oauthmodel.AuthorizationCodeGrant,
		ClientID:     "cid",
		ClientSecret: "cs",
		Code:         "code-1",
	}

	f.client.On(http.MethodPost, "/oauth/access_token", func(req *transport.Request) (*transport.Response, error) {
		form, err := url.ParseQuery(string(req.Body))
		require.NoError(t, err)
		require.Equal(t, "authorization_code", form.Get("grant_type"))
		require.Equal(t, "code-1", form.Get("code"))
		return &transport.Response{Status: http.StatusOK, Body: []byte(`{"access_token":"at","refresh_token":"rt","expires_in":60}`)}, nil
	})
	token, err := f.caller.OAuthToken(context.Background(), remoteURL, http.MethodPost, tr)
	require.NoError(t, err)
	require.Equal(t, "at", token.AccessToken)
	require.Equal(t, int64(60), token.ExpiresIn)

	f.client.Respond(http.MethodPost, "/oauth/access_token", http.StatusBadRequest, `{"error":"invalid_grant"}`)
	_, err = f.caller.OAuthToken(context.Background(), remoteURL, http.MethodPost, tr)
	require.ErrorIs(t, err, apperrors.ErrOAuthRefused)
	require.Equal(t, "OAuth access token refused", apperrors.Message(err))

	_, err = f.caller.OAuthToken(context.Background(), remoteURL, "PATCH", tr)
	require.ErrorIs(t, err, apperrors.ErrBadMethod)
}
