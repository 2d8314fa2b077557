package store

import (
	"context"
	"fmt"

	filestore "github.com/signum-network/xt-wallet-go/store/file"
	inmemorystore "github.com/signum-network/xt-wallet-go/store/inmemory"
	kvstore "github.com/signum-network/xt-wallet-go/store/kv"
	sqlstore "github.com/signum-network/xt-wallet-go/store/sql"
	"github.com/signum-network/xt-wallet-go/types"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	ConfigStoreType  string
	AppDataStoreType string

	BaseDir string
}

type service struct {
	configStore   types.ConfigStore
	grantStore    types.GrantStore
	activityStore types.ActivityStore
}

func NewStore(storeConfig Config) (types.Store, error) {
	var (
		configStore   types.ConfigStore
		grantStore    types.GrantStore
		activityStore types.ActivityStore
		err           error
	)

	switch storeConfig.ConfigStoreType {
	case types.InMemoryStore:
		configStore = inmemorystore.NewConfigStore()
	case types.FileStore:
		configStore, err = filestore.NewConfigStore(storeConfig.BaseDir)
	default:
		err = fmt.Errorf("unknown config store type %s", storeConfig.ConfigStoreType)
	}
	if err != nil {
		return nil, err
	}

	switch storeConfig.AppDataStoreType {
	case types.KVStore:
		logger := log.New()
		logger.SetLevel(log.WarnLevel)
		dir := storeConfig.BaseDir
		if grantStore, err = kvstore.NewGrantStore(dir, logger); err != nil {
			return nil, err
		}
		if activityStore, err = kvstore.NewActivityStore(dir, logger); err != nil {
			grantStore.Close()
			return nil, err
		}
	case types.SQLStore:
		if storeConfig.BaseDir == "" {
			return nil, fmt.Errorf("missing base directory for sql store")
		}
		db, err := sqlstore.OpenDb(storeConfig.BaseDir)
		if err != nil {
			return nil, err
		}
		grantStore = sqlstore.NewGrantStore(db)
		activityStore = sqlstore.NewActivityStore(db)
	default:
		return nil, fmt.Errorf("unknown appdata store type %s", storeConfig.AppDataStoreType)
	}

	return &service{configStore, grantStore, activityStore}, nil
}

func (s *service) ConfigStore() types.ConfigStore {
	return s.configStore
}

func (s *service) GrantStore() types.GrantStore {
	return s.grantStore
}

func (s *service) ActivityStore() types.ActivityStore {
	return s.activityStore
}

func (s *service) Clean(ctx context.Context) {
	if err := s.configStore.CleanData(ctx); err != nil {
		log.WithError(err).Warn("failed to clean config store")
	}
	if err := s.grantStore.Clean(ctx); err != nil {
		log.WithError(err).Warn("failed to clean grant store")
	}
	if err := s.activityStore.Clean(ctx); err != nil {
		log.WithError(err).Warn("failed to clean activity store")
	}
}

func (s *service) Close() {
	s.configStore.Close()
	s.grantStore.Close()
	s.activityStore.Close()
}
