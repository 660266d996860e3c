// Package zimbra holds the wire model of the remote groupware server: the
// JSON SOAP envelope and the typed shapes of the responses this connector reads.
package zimbra

import (
	"encoding/json"
)

// Namespaces of the operations used by the connector.
const (
	NamespaceContext = "urn:zimbra"
	NamespaceAccount = "urn:zimbraAccount"
	NamespaceMail    = "urn:zimbraMail"
)

// Operation names.
const (
	OpAuth      = "AuthRequest"
	OpGetInfo   = "GetInfoRequest"
	OpGetFolder = "GetFolderRequest"
	OpSearch    = "SearchRequest"
)

// SOAPPath is the endpoint every envelope is POSTed to.
const SOAPPath = "/service/soap"

// UserAgent identifies the connector in the envelope context.
type UserAgent struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// AccountSelector selects an account, always by name here.
type AccountSelector struct {
	Content string `json:"_content"`
	By      string `json:"by"`
}

func ByName(name string) AccountSelector {
	return AccountSelector{Content: name, By: "name"}
}

type AuthTokenControl struct {
	VoidOnExpired bool `json:"voidOnExpired"`
}

// Context is the envelope header context. Authenticated calls carry the
// account and token; the login call carries neither.
type Context struct {
	Jsns             string            `json:"_jsns"`
	UserAgent        UserAgent         `json:"userAgent"`
	AuthTokenControl *AuthTokenControl `json:"authTokenControl,omitempty"`
	Account          *AccountSelector  `json:"account,omitempty"`
	AuthToken        string            `json:"authToken,omitempty"`
}

type Header struct {
	Context Context `json:"context"`
}

// Envelope is a request envelope. Body holds exactly one operation.
type Envelope struct {
	Header Header         `json:"Header"`
	Body   map[string]any `json:"Body"`
}

// NewEnvelope builds an authenticated envelope for op under namespace ns.
// params may be nil.
func NewEnvelope(ua UserAgent, account, token, op, ns string, params map[string]any) *Envelope {
	operation := make(map[string]any, len(params)+1)
	for k, v := range params {
		operation[k] = v
	}
	operation["_jsns"] = ns

	ctx := Context{
		Jsns:             NamespaceContext,
		UserAgent:        ua,
		AuthTokenControl: &AuthTokenControl{VoidOnExpired: true},
		AuthToken:        token,
	}
	// an OAuth session does not know its account name until GetInfo answers
	if account != "" {
		acc := ByName(account)
		ctx.Account = &acc
	}
	return &Envelope{
		Header: Header{Context: ctx},
		Body:   map[string]any{op: operation},
	}
}

// NewAuthEnvelope builds an unauthenticated AuthRequest envelope.
func NewAuthEnvelope(ua UserAgent, req *AuthRequest) *Envelope {
	req.Jsns = NamespaceAccount
	return &Envelope{
		Header: Header{Context: Context{Jsns: NamespaceContext, UserAgent: ua}},
		Body:   map[string]any{OpAuth: req},
	}
}

// Operation returns the single operation name in the body.
func (e *Envelope) Operation() string {
	for op := range e.Body {
		return op
	}
	return ""
}

// AuthRequest is the body of a login. Exactly one of Password or PreAuth is set;
// TwoFactorCode accompanies the password when the user supplied one.
type AuthRequest struct {
	Jsns          string          `json:"_jsns"`
	Account       AccountSelector `json:"account"`
	Password      string          `json:"password,omitempty"`
	TwoFactorCode string          `json:"twoFactorCode,omitempty"`
	PreAuth       *PreAuth        `json:"preauth,omitempty"`
}

// PreAuth is a signed pre-authentication credential. Expires 0 means the
// resulting token gets the account's default lifetime.
type PreAuth struct {
	Timestamp int64  `json:"timestamp"`
	Expires   int64  `json:"expires"`
	Content   string `json:"_content"`
}

// ResponseEnvelope is a decoded response. Body maps the response name
// (e.g. "AuthResponse" or "Fault") to its raw payload.
type ResponseEnvelope struct {
	Body map[string]json.RawMessage `json:"Body"`
}

// ParseResponse decodes a response envelope.
func ParseResponse(data []byte) (*ResponseEnvelope, error) {
	var env ResponseEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Body == nil {
		return nil, ErrMissingBody
	}
	return &env, nil
}

// Fault returns the fault carried by the envelope, if any.
func (e *ResponseEnvelope) Fault() *Fault {
	raw, ok := e.Body["Fault"]
	if !ok {
		return nil
	}
	var f Fault
	if err := json.Unmarshal(raw, &f); err != nil {
		return &Fault{Reason: FaultReason{Text: "unreadable fault"}}
	}
	return &f
}

// Decode unmarshals the named response into dst. A fault in place of the
// response is returned as an error.
func (e *ResponseEnvelope) Decode(name string, dst any) error {
	if f := e.Fault(); f != nil {
		return f
	}
	raw, ok := e.Body[name]
	if !ok {
		return ErrMissingResponse{Name: name}
	}
	return json.Unmarshal(raw, dst)
}
