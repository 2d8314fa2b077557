package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/signum-network/xt-wallet-go/network"
)

const (
	InMemoryStore = "inmemory"
	FileStore     = "file"
	KVStore       = "kv"
	SQLStore      = "sql"
)

type Config struct {
	ListenAddr     string
	HealthAddr     string
	NetworkID      string
	CustomNetworks []network.Network
	ConfirmTimeout time.Duration
	VaultType      string
}

type AppMeta struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Grant records that an origin was authorized to use an account on a
// network. There is at most one grant per origin.
type Grant struct {
	Origin        string      `json:"origin"`
	Network       network.Ref `json:"network"`
	AppMeta       AppMeta     `json:"appMeta"`
	PublicKeyHash string      `json:"pkh"`
	PublicKey     string      `json:"publicKey"`
	GrantedAt     time.Time   `json:"grantedAt"`
}

func (g Grant) String() string {
	// nolint
	b, _ := json.MarshalIndent(g, "", "  ")
	return string(b)
}

// Activity is a locally recorded operation submitted on behalf of a dApp.
type Activity struct {
	Hash      string
	ChainID   string
	Origin    string
	Account   string
	Kinds     []string
	Fee       uint64
	CreatedAt time.Time
}

func (a Activity) String() string {
	return fmt.Sprintf("%s %s %v fee=%d", a.CreatedAt.Format(time.RFC3339), a.Hash, a.Kinds, a.Fee)
}

type PermissionRequest struct {
	Network network.Ref `json:"network"`
	AppMeta AppMeta     `json:"appMeta"`
	Force   bool        `json:"force,omitempty"`
}

type Permission struct {
	RPC       string `json:"rpc"`
	Pkh       string `json:"pkh"`
	PublicKey string `json:"publicKey"`
}

type PermissionResponse struct {
	Permission
}

type CurrentPermissionResponse struct {
	Permission *Permission `json:"permission"`
}

type SignRequest struct {
	SourcePkh string `json:"sourcePkh"`
	Payload   string `json:"payload"`
}

type SignResponse struct {
	Signature string `json:"signature"`
}

type OperationRequest struct {
	SourcePkh string           `json:"sourcePkh"`
	OpParams  []map[string]any `json:"opParams"`
}

type OperationResponse struct {
	OpHash string `json:"opHash"`
}

// OperationParams is a decoded dApp operation. Kind is the node request
// type used to build the transaction, Params the remaining fields.
type OperationParams struct {
	Kind         string         `mapstructure:"kind"`
	Fee          uint64         `mapstructure:"fee"`
	StorageLimit *uint64        `mapstructure:"storageLimit"`
	Params       map[string]any `mapstructure:",remain"`
}

type OperationResult struct {
	Hash   string
	TxIDs  []string
	Hashes []string
}

type TransactionExpense struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// TransactionPreview is the human readable summary of a transaction shown
// before signing.
type TransactionPreview struct {
	Type                  string               `json:"type"`
	Sender                string               `json:"sender,omitempty"`
	Recipient             string               `json:"recipient,omitempty"`
	Amount                uint64               `json:"amount"`
	Fee                   uint64               `json:"fee"`
	Expenses              []TransactionExpense `json:"expenses"`
	IsContractInteraction bool                 `json:"isContractInteraction"`
	Raw                   json.RawMessage      `json:"raw,omitempty"`
}
