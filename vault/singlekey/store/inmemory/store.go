package inmemorystore

import (
	"sync"

	"github.com/signum-network/xt-wallet-go/vault/singlekey/store"
)

type inmemoryStore struct {
	lock *sync.RWMutex
	data *store.VaultData
}

func NewStore() store.VaultStore {
	return &inmemoryStore{lock: &sync.RWMutex{}}
}

func (s *inmemoryStore) AddVault(data store.VaultData) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.data = &data
	return nil
}

func (s *inmemoryStore) GetVault() (*store.VaultData, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.data == nil {
		return nil, nil
	}
	data := *s.data
	return &data, nil
}
