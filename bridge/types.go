package bridge

import (
	"encoding/json"
	"errors"

	xtwallet "github.com/signum-network/xt-wallet-go"
	"github.com/signum-network/xt-wallet-go/confirm"
	"github.com/signum-network/xt-wallet-go/types"
)

type MessageType string

// Page messages.
const (
	GetCurrentPermissionRequest  MessageType = "GET_CURRENT_PERMISSION_REQUEST"
	GetCurrentPermissionResponse MessageType = "GET_CURRENT_PERMISSION_RESPONSE"
	PermissionRequest            MessageType = "PERMISSION_REQUEST"
	PermissionResponse           MessageType = "PERMISSION_RESPONSE"
	SignRequest                  MessageType = "SIGN_REQUEST"
	SignResponse                 MessageType = "SIGN_RESPONSE"
	OperationRequest             MessageType = "OPERATION_REQUEST"
	OperationResponse            MessageType = "OPERATION_RESPONSE"
	ResponseError                MessageType = "RESPONSE_ERROR"
)

// Confirmation UI messages.
const (
	ConfirmationRequested MessageType = "CONFIRMATION_REQUESTED"
	ConfirmationResolved  MessageType = "CONFIRMATION_RESOLVED"
	ConfirmationDecline   MessageType = "DAPP_CONFIRMATION_DECLINE"
)

const unknownError = "UNKNOWN"

// Envelope wraps every message exchanged with a page. Responses carry the
// id of the request they answer.
type Envelope struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func newEnvelope(t MessageType, id string, payload any) (Envelope, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, ID: id, Payload: buf}, nil
}

// errorEnvelope reports err with its kind, or its message when the error
// is not classified.
func errorEnvelope(id string, err error) Envelope {
	if kind, ok := xtwallet.KindOf(err); ok {
		return Envelope{Type: ResponseError, ID: id, Error: string(kind)}
	}
	msg := err.Error()
	if msg == "" {
		msg = unknownError
	}
	return Envelope{Type: ResponseError, ID: id, Error: msg}
}

// confirmationEnvelope is what the confirmation UI receives for every
// confirmation event.
func confirmationEnvelope(event confirm.Event) (Envelope, error) {
	t := ConfirmationRequested
	if event.Type == confirm.EventResolved {
		t = ConfirmationResolved
	}
	return newEnvelope(t, event.Request.ID, event.Request)
}

func validateIntercomMessage(msg types.ConfirmationMessage) error {
	if msg.ID == "" {
		return errors.New("missing confirmation id")
	}
	if msg.Type == "" {
		return errors.New("missing message type")
	}
	return nil
}
