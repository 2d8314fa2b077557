package inmemorystore

import (
	"context"
	"sync"

	"github.com/signum-network/xt-wallet-go/types"
)

type configStore struct {
	data *types.Config
	lock *sync.RWMutex
}

func NewConfigStore() types.ConfigStore {
	return &configStore{lock: &sync.RWMutex{}}
}

func (s *configStore) GetType() string {
	return types.InMemoryStore
}

func (s *configStore) GetDatadir() string {
	return ""
}

func (s *configStore) AddData(_ context.Context, data types.Config) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.data = &data
	return nil
}

func (s *configStore) GetData(_ context.Context) (*types.Config, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.data == nil {
		return nil, nil
	}
	cfg := *s.data
	return &cfg, nil
}

func (s *configStore) CleanData(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.data = nil
	return nil
}

func (s *configStore) Close() {}
