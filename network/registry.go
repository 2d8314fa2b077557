package network

import (
	"fmt"
	"sync"
)

// Featured is the list of nodes shipped with the wallet.
var Featured = []Network{
	{
		ID:          "signum-europe",
		Name:        "Europe 1",
		Description: "Featured Node from Europe",
		Type:        Mainnet,
		RPCBaseURL:  "https://europe.signum.network",
	},
	{
		ID:          "signum-europe-1",
		Name:        "Europe 2",
		Description: "Another Featured Node from Europe",
		Type:        Mainnet,
		RPCBaseURL:  "https://europe1.signum.network",
	},
	{
		ID:          "signum-europe-2",
		Name:        "Europe 3",
		Description: "Another Featured Node from Europe",
		Type:        Mainnet,
		RPCBaseURL:  "https://europe2.signum.network",
	},
	{
		ID:          "signum-uk",
		Name:        "United Kingdom",
		Description: "Featured Node from the UK",
		Type:        Mainnet,
		RPCBaseURL:  "https://uk.signum.network",
	},
	{
		ID:          "signum-canada",
		Name:        "Canada",
		Description: "Featured Node from Canada",
		Type:        Mainnet,
		RPCBaseURL:  "https://canada.signum.network",
	},
	{
		ID:          "signum-latam",
		Name:        "Latin America US",
		Description: "Featured Node from Latin America",
		Type:        Mainnet,
		RPCBaseURL:  "https://latam.signum.network",
	},
	{
		ID:          "signum-australia",
		Name:        "Australia",
		Description: "Featured Node from Australia",
		Type:        Mainnet,
		RPCBaseURL:  "https://australia.signum.network",
	},
	{
		ID:          "signum-singapore",
		Name:        "Asia SG",
		Description: "Featured Node from Singapore",
		Type:        Mainnet,
		RPCBaseURL:  "https://singapore.signum.network",
	},
	{
		ID:          "signum-mainnet-local",
		Name:        "Local Mainnet",
		Description: "For those who run a local main net node on standard port 8125",
		Type:        Mainnet,
		RPCBaseURL:  "http://localhost:8125",
	},
	{
		ID:          "signum-testnet-europe",
		Name:        "Europe Testnet",
		Description: "Public Testnet Node Europe",
		Type:        Testnet,
		RPCBaseURL:  "https://europe3.testnet.signum.network/",
	},
	{
		ID:          "signum-testnet-local",
		Name:        "Local Testnet",
		Description: "For those hackers who run a local test net node on standard port 6876",
		Type:        Testnet,
		RPCBaseURL:  "http://localhost:6876",
	},
}

// Registry resolves network refs against the featured list and the
// user's custom networks. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	featured []Network
	custom   []Network
}

func NewRegistry(custom ...Network) *Registry {
	featured := make([]Network, len(Featured))
	copy(featured, Featured)
	return &Registry{featured: featured, custom: custom}
}

// SetCustom replaces the custom networks snapshot.
func (r *Registry) SetCustom(custom []Network) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom = append([]Network(nil), custom...)
}

// IsAllowed reports whether a dApp may request the given network: a known
// id must name an enabled featured node, a custom ref needs a non-empty rpc.
func (r *Registry) IsAllowed(ref Ref) bool {
	if d, ok := ref.Descriptor(); ok {
		return d.RPC != ""
	}
	if !ref.IsKnown() {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.featured {
		if n.ID == ref.ID() && !n.Disabled {
			return true
		}
	}
	return false
}

// Get looks up a network by id, featured first then custom.
func (r *Registry) Get(id string) (Network, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, list := range [][]Network{r.featured, r.custom} {
		for _, n := range list {
			if n.ID == id {
				return n, true
			}
		}
	}
	return Network{}, false
}

// RPC returns the node url the given ref points to.
func (r *Registry) RPC(ref Ref) (string, error) {
	if d, ok := ref.Descriptor(); ok {
		if d.RPC == "" {
			return "", fmt.Errorf("custom network without rpc")
		}
		return d.RPC, nil
	}
	if !ref.IsKnown() {
		return "", fmt.Errorf("missing network")
	}
	n, ok := r.Get(ref.ID())
	if !ok {
		return "", fmt.Errorf("unknown network %s", ref.ID())
	}
	return n.RPCBaseURL, nil
}

// Current returns the network with the given id, falling back to the first
// featured node when the id is unknown.
func (r *Registry) Current(id string) Network {
	if n, ok := r.Get(id); ok {
		return n
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.featured[0]
}
