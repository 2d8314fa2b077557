package kvstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/signum-network/xt-wallet-go/types"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	activityStoreDir = "activity"
)

type activityStore struct {
	db *badgerhold.Store
}

type activityRecord struct {
	Hash      string
	ChainID   string
	Origin    string
	Account   string `badgerhold:"index"`
	Kinds     []string
	Fee       uint64
	CreatedAt time.Time
}

func NewActivityStore(dir string, logger badger.Logger) (types.ActivityStore, error) {
	if dir != "" {
		dir = filepath.Join(dir, activityStoreDir)
	}
	badgerDb, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity store: %s", err)
	}
	return &activityStore{
		db: badgerDb,
	}, nil
}

func (s *activityStore) AddActivity(_ context.Context, activity types.Activity) error {
	if activity.Hash == "" {
		return fmt.Errorf("missing operation hash")
	}
	record := activityRecord(activity)
	if err := s.db.Insert(activity.Hash, &record); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return nil
		}
		return err
	}
	return nil
}

func (s *activityStore) GetActivity(_ context.Context, account string) ([]types.Activity, error) {
	var records []activityRecord
	query := badgerhold.Where("Account").Eq(account).Index("Account").SortBy("CreatedAt").Reverse()
	if err := s.db.Find(&records, query); err != nil {
		return nil, err
	}

	activity := make([]types.Activity, 0, len(records))
	for _, record := range records {
		activity = append(activity, types.Activity(record))
	}
	return activity, nil
}

func (s *activityStore) Clean(_ context.Context) error {
	if err := s.db.Badger().DropAll(); err != nil {
		return fmt.Errorf("failed to clean the activity db: %s", err)
	}
	return nil
}

func (s *activityStore) Close() {
	if err := s.db.Close(); err != nil {
		log.Debugf("error on closing activity db: %s", err)
	}
}
