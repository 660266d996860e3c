package zimbra

import (
	"errors"
	"fmt"
)

var ErrMissingBody = errors.New("envelope has no Body")

// ErrMissingResponse means the expected response element was absent.
type ErrMissingResponse struct {
	Name string
}

func (e ErrMissingResponse) Error() string {
	return fmt.Sprintf("envelope has no %s", e.Name)
}

// Fault is a SOAP fault returned in place of a response.
type Fault struct {
	Code   FaultCode   `json:"Code"`
	Reason FaultReason `json:"Reason"`
	Detail FaultDetail `json:"Detail"`
}

type FaultCode struct {
	Value string `json:"Value"`
}

type FaultReason struct {
	Text string `json:"Text"`
}

type FaultDetail struct {
	Error struct {
		Code string `json:"Code"`
	} `json:"Error"`
}

func (f *Fault) Error() string {
	if f.Detail.Error.Code != "" {
		return fmt.Sprintf("%s: %s", f.Detail.Error.Code, f.Reason.Text)
	}
	return f.Reason.Text
}

// Sender reports whether the fault blames the request rather than the server.
func (f *Fault) Sender() bool {
	return f.Code.Value == "soap:Sender"
}
