// Package network models the nodes a dApp can ask the wallet to use: either
// one of the featured Signum nodes, referenced by id, or a custom node
// described inline by its rpc url.
package network

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/signum-network/xt-wallet-go/internal/utils"
)

type Type string

const (
	Mainnet Type = "main"
	Testnet Type = "test"
)

// Network is an entry of the wallet's node list.
type Network struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        Type   `json:"type"`
	RPCBaseURL  string `json:"rpcBaseURL"`
	Disabled    bool   `json:"disabled,omitempty"`
}

// Descriptor is an inline custom network sent by a dApp.
type Descriptor struct {
	RPC  string `json:"rpc"`
	Name string `json:"name,omitempty"`
}

// Ref is either Known(id) or Custom(descriptor). The zero value is invalid.
type Ref struct {
	id     string
	custom *Descriptor
}

func Known(id string) Ref {
	return Ref{id: id}
}

func Custom(d Descriptor) Ref {
	return Ref{custom: &d}
}

func (r Ref) IsKnown() bool {
	return r.custom == nil && r.id != ""
}

func (r Ref) IsCustom() bool {
	return r.custom != nil
}

func (r Ref) IsZero() bool {
	return r.custom == nil && r.id == ""
}

// ID returns the symbolic id of a known network, empty for custom ones.
func (r Ref) ID() string {
	return r.id
}

// Descriptor returns the inline descriptor of a custom network.
func (r Ref) Descriptor() (Descriptor, bool) {
	if r.custom == nil {
		return Descriptor{}, false
	}
	return *r.custom, true
}

// Equal compares normalized rpc urls when both refs are custom, ids otherwise.
func (r Ref) Equal(other Ref) bool {
	if r.IsCustom() && other.IsCustom() {
		return utils.RemoveLastSlash(r.custom.RPC) == utils.RemoveLastSlash(other.custom.RPC)
	}
	if r.IsCustom() || other.IsCustom() {
		return false
	}
	return r.id == other.id
}

func (r Ref) String() string {
	switch {
	case r.IsCustom():
		return r.custom.RPC
	default:
		return r.id
	}
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.IsCustom() {
		return json.Marshal(r.custom)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = Ref{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Known(id)
		return nil
	case len(data) > 0 && data[0] == '{':
		var d Descriptor
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		*r = Custom(d)
		return nil
	default:
		return fmt.Errorf("invalid network reference %s", string(data))
	}
}
