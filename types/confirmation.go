package types

type ConfirmationType string

const (
	ConfirmConnect    ConfirmationType = "connect"
	ConfirmSign       ConfirmationType = "sign"
	ConfirmOperations ConfirmationType = "confirm_operations"
)

type MessageType string

const (
	DAppPermConfirmationRequest  MessageType = "DAPP_PERM_CONFIRMATION_REQUEST"
	DAppPermConfirmationResponse MessageType = "DAPP_PERM_CONFIRMATION_RESPONSE"
	DAppSignConfirmationRequest  MessageType = "DAPP_SIGN_CONFIRMATION_REQUEST"
	DAppSignConfirmationResponse MessageType = "DAPP_SIGN_CONFIRMATION_RESPONSE"
	DAppOpsConfirmationRequest   MessageType = "DAPP_OPS_CONFIRMATION_REQUEST"
	DAppOpsConfirmationResponse  MessageType = "DAPP_OPS_CONFIRMATION_RESPONSE"
)

// ResponseType returns the acknowledgement type answering a confirmation
// message of type t.
func (t MessageType) ResponseType() MessageType {
	switch t {
	case DAppPermConfirmationRequest:
		return DAppPermConfirmationResponse
	case DAppSignConfirmationRequest:
		return DAppSignConfirmationResponse
	case DAppOpsConfirmationRequest:
		return DAppOpsConfirmationResponse
	default:
		return ""
	}
}

// ConfirmationPayload is what the confirmation UI renders to the user.
type ConfirmationPayload struct {
	Type            ConfirmationType    `json:"type"`
	Origin          string              `json:"origin"`
	NetworkRPC      string              `json:"networkRpc"`
	AppMeta         AppMeta             `json:"appMeta"`
	SourcePkh       string              `json:"sourcePkh,omitempty"`
	SourcePublicKey string              `json:"sourcePublicKey,omitempty"`
	Payload         string              `json:"payload,omitempty"`
	Preview         *TransactionPreview `json:"preview"`
	OpParams        []map[string]any    `json:"opParams,omitempty"`
}

// ConfirmationRequest tags a payload with the id the UI must answer with.
type ConfirmationRequest struct {
	ID      string              `json:"id"`
	Payload ConfirmationPayload `json:"payload"`
}

// ConfirmationMessage is the user's decision sent back by the UI. Decision
// fields depend on the flow: account identity for permissions, fee and
// storage overrides for operations.
type ConfirmationMessage struct {
	Type                 MessageType `json:"type"`
	ID                   string      `json:"id"`
	Confirmed            bool        `json:"confirmed"`
	AccountPublicKeyHash string      `json:"accountPublicKeyHash,omitempty"`
	AccountPublicKey     string      `json:"accountPublicKey,omitempty"`
	ModifiedTotalFee     *int64      `json:"modifiedTotalFee,omitempty"`
	ModifiedStorageLimit *int64      `json:"modifiedStorageLimit,omitempty"`
}

type ConfirmationAck struct {
	Type MessageType `json:"type"`
}
