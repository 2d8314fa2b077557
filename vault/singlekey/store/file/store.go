package filestore

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/signum-network/xt-wallet-go/vault/singlekey/store"
)

const filename = "vault.json"

type vaultData struct {
	EncryptedPrvkey string `json:"encrypted_private_key"`
	PasswordHash    string `json:"password_hash"`
	PubKey          string `json:"pubkey"`
}

type fileStore struct {
	filePath string
	lock     *sync.RWMutex
}

func NewStore(baseDir string) (store.VaultStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("missing base directory")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}
	return &fileStore{
		filePath: filepath.Join(baseDir, filename),
		lock:     &sync.RWMutex{},
	}, nil
}

func (s *fileStore) AddVault(data store.VaultData) error {
	if data.PubKey == nil {
		return fmt.Errorf("missing public key")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	buf, err := json.MarshalIndent(vaultData{
		EncryptedPrvkey: hex.EncodeToString(data.EncryptedPrvkey),
		PasswordHash:    hex.EncodeToString(data.PasswordHash),
		PubKey:          hex.EncodeToString(data.PubKey.SerializeCompressed()),
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath, buf, 0o600); err != nil {
		return fmt.Errorf("failed to write vault file: %s", err)
	}
	return nil
}

func (s *fileStore) GetVault() (*store.VaultData, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	buf, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read vault file: %s", err)
	}

	var data vaultData
	if err := json.Unmarshal(buf, &data); err != nil {
		return nil, fmt.Errorf("failed to parse vault file: %s", err)
	}

	encrypted, err := hex.DecodeString(data.EncryptedPrvkey)
	if err != nil {
		return nil, fmt.Errorf("invalid encrypted private key: %s", err)
	}
	passwordHash, err := hex.DecodeString(data.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("invalid password hash: %s", err)
	}
	pubkeyBytes, err := hex.DecodeString(data.PubKey)
	if err != nil {
		return nil, fmt.Errorf("invalid pubkey: %s", err)
	}
	pubkey, err := btcec.ParsePubKey(pubkeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid pubkey: %s", err)
	}

	return &store.VaultData{
		EncryptedPrvkey: encrypted,
		PasswordHash:    passwordHash,
		PubKey:          pubkey,
	}, nil
}
