package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/signum-network/xt-wallet-go/network"
	"github.com/signum-network/xt-wallet-go/types"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	grantStoreDir = "grants"
)

type grantStore struct {
	db *badgerhold.Store
}

type grantRecord struct {
	Origin        string
	Network       []byte
	AppName       string
	AppIcon       string
	PublicKeyHash string
	PublicKey     string
	GrantedAt     time.Time
}

func NewGrantStore(dir string, logger badger.Logger) (types.GrantStore, error) {
	if dir != "" {
		dir = filepath.Join(dir, grantStoreDir)
	}
	badgerDb, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open grant store: %s", err)
	}
	return &grantStore{
		db: badgerDb,
	}, nil
}

func (s *grantStore) GetGrant(_ context.Context, origin string) (*types.Grant, error) {
	var record grantRecord
	if err := s.db.Get(origin, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	grant, err := record.toGrant()
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (s *grantStore) SetGrant(_ context.Context, grant types.Grant) error {
	record, err := toGrantRecord(grant)
	if err != nil {
		return err
	}
	return s.db.Upsert(grant.Origin, &record)
}

func (s *grantStore) DeleteGrant(_ context.Context, origin string) error {
	if err := s.db.Delete(origin, grantRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (s *grantStore) ListGrants(_ context.Context) ([]types.Grant, error) {
	var records []grantRecord
	if err := s.db.Find(&records, badgerhold.Where("Origin").Ne("").SortBy("Origin")); err != nil {
		return nil, err
	}

	grants := make([]types.Grant, 0, len(records))
	for _, record := range records {
		grant, err := record.toGrant()
		if err != nil {
			log.WithError(err).Warnf("skipping malformed grant for %s", record.Origin)
			continue
		}
		grants = append(grants, grant)
	}
	return grants, nil
}

func (s *grantStore) Clean(_ context.Context) error {
	if err := s.db.Badger().DropAll(); err != nil {
		return fmt.Errorf("failed to clean the grant db: %s", err)
	}
	return nil
}

func (s *grantStore) Close() {
	if err := s.db.Close(); err != nil {
		log.Debugf("error on closing grant db: %s", err)
	}
}

func toGrantRecord(grant types.Grant) (grantRecord, error) {
	net, err := json.Marshal(grant.Network)
	if err != nil {
		return grantRecord{}, err
	}
	return grantRecord{
		Origin:        grant.Origin,
		Network:       net,
		AppName:       grant.AppMeta.Name,
		AppIcon:       grant.AppMeta.Icon,
		PublicKeyHash: grant.PublicKeyHash,
		PublicKey:     grant.PublicKey,
		GrantedAt:     grant.GrantedAt,
	}, nil
}

func (r grantRecord) toGrant() (types.Grant, error) {
	var net network.Ref
	if err := json.Unmarshal(r.Network, &net); err != nil {
		return types.Grant{}, fmt.Errorf("invalid network: %s", err)
	}
	return types.Grant{
		Origin:        r.Origin,
		Network:       net,
		AppMeta:       types.AppMeta{Name: r.AppName, Icon: r.AppIcon},
		PublicKeyHash: r.PublicKeyHash,
		PublicKey:     r.PublicKey,
		GrantedAt:     r.GrantedAt,
	}, nil
}
