package store

import "github.com/btcsuite/btcd/btcec/v2"

type VaultData struct {
	EncryptedPrvkey []byte
	PasswordHash    []byte
	PubKey          *btcec.PublicKey
}

type VaultStore interface {
	AddVault(data VaultData) error
	// GetVault returns nil without error when nothing was stored yet.
	GetVault() (*VaultData, error)
}
