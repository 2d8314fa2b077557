package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/signum-network/xt-wallet-go/types"
)

const filename = "state.json"

type configStore struct {
	filePath string
	lock     *sync.RWMutex
}

func NewConfigStore(baseDir string) (types.ConfigStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("missing base directory")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}
	return &configStore{
		filePath: filepath.Join(baseDir, filename),
		lock:     &sync.RWMutex{},
	}, nil
}

func (s *configStore) GetType() string {
	return types.FileStore
}

func (s *configStore) GetDatadir() string {
	return filepath.Dir(s.filePath)
}

func (s *configStore) AddData(_ context.Context, data types.Config) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	buf, err := json.MarshalIndent(newStoreData(data), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath, buf, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %s", err)
	}
	return nil
}

func (s *configStore) GetData(_ context.Context) (*types.Config, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	buf, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %s", err)
	}

	var data storeData
	if err := json.Unmarshal(buf, &data); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %s", err)
	}
	if data.isEmpty() {
		return nil, nil
	}

	cfg := data.decode()
	return &cfg, nil
}

func (s *configStore) CleanData(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := os.Remove(s.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *configStore) Close() {}
