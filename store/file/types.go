package filestore

import (
	"strconv"
	"time"

	"github.com/signum-network/xt-wallet-go/network"
	"github.com/signum-network/xt-wallet-go/types"
)

type storeData struct {
	ListenAddr     string            `json:"listen_addr"`
	HealthAddr     string            `json:"health_addr"`
	NetworkID      string            `json:"network_id"`
	CustomNetworks []network.Network `json:"custom_networks_snapshot,omitempty"`
	ConfirmTimeout string            `json:"confirm_timeout"`
	VaultType      string            `json:"vault_type"`
}

func (d storeData) isEmpty() bool {
	return d.ListenAddr == "" && d.NetworkID == "" && d.VaultType == ""
}

func (d storeData) decode() types.Config {
	timeout, _ := strconv.Atoi(d.ConfirmTimeout)
	return types.Config{
		ListenAddr:     d.ListenAddr,
		HealthAddr:     d.HealthAddr,
		NetworkID:      d.NetworkID,
		CustomNetworks: d.CustomNetworks,
		ConfirmTimeout: time.Duration(timeout) * time.Second,
		VaultType:      d.VaultType,
	}
}

func newStoreData(cfg types.Config) storeData {
	return storeData{
		ListenAddr:     cfg.ListenAddr,
		HealthAddr:     cfg.HealthAddr,
		NetworkID:      cfg.NetworkID,
		CustomNetworks: cfg.CustomNetworks,
		ConfirmTimeout: strconv.Itoa(int(cfg.ConfirmTimeout / time.Second)),
		VaultType:      cfg.VaultType,
	}
}
