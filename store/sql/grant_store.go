package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/signum-network/xt-wallet-go/network"
	"github.com/signum-network/xt-wallet-go/types"
	log "github.com/sirupsen/logrus"
)

const (
	selectGrant = `SELECT origin, network, app_name, app_icon, pkh, public_key, granted_at
FROM grant_data WHERE origin = ?`
	selectAllGrants = `SELECT origin, network, app_name, app_icon, pkh, public_key, granted_at
FROM grant_data ORDER BY origin`
	upsertGrant = `INSERT INTO grant_data (origin, network, app_name, app_icon, pkh, public_key, granted_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(origin) DO UPDATE SET
    network = excluded.network,
    app_name = excluded.app_name,
    app_icon = excluded.app_icon,
    pkh = excluded.pkh,
    public_key = excluded.public_key,
    granted_at = excluded.granted_at`
	deleteGrant     = `DELETE FROM grant_data WHERE origin = ?`
	deleteAllGrants = `DELETE FROM grant_data`
)

type grantStore struct {
	db *sql.DB
}

func NewGrantStore(db *sql.DB) types.GrantStore {
	return &grantStore{db: db}
}

func (s *grantStore) GetGrant(ctx context.Context, origin string) (*types.Grant, error) {
	grant, err := scanGrant(s.db.QueryRowContext(ctx, selectGrant, origin))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return grant, nil
}

func (s *grantStore) SetGrant(ctx context.Context, grant types.Grant) error {
	net, err := json.Marshal(grant.Network)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx, upsertGrant,
		grant.Origin, string(net), grant.AppMeta.Name, grant.AppMeta.Icon,
		grant.PublicKeyHash, grant.PublicKey, grant.GrantedAt.Unix(),
	)
	return err
}

func (s *grantStore) DeleteGrant(ctx context.Context, origin string) error {
	_, err := s.db.ExecContext(ctx, deleteGrant, origin)
	return err
}

func (s *grantStore) ListGrants(ctx context.Context) ([]types.Grant, error) {
	rows, err := s.db.QueryContext(ctx, selectAllGrants)
	if err != nil {
		return nil, err
	}
	// nolint:errcheck
	defer rows.Close()

	grants := make([]types.Grant, 0)
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, *grant)
	}
	return grants, rows.Err()
}

func (s *grantStore) Clean(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, deleteAllGrants)
	return err
}

func (s *grantStore) Close() {
	if err := s.db.Close(); err != nil {
		log.Debugf("error on closing grant db: %s", err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGrant(row scanner) (*types.Grant, error) {
	var (
		grant     types.Grant
		net       string
		grantedAt int64
	)
	if err := row.Scan(
		&grant.Origin, &net, &grant.AppMeta.Name, &grant.AppMeta.Icon,
		&grant.PublicKeyHash, &grant.PublicKey, &grantedAt,
	); err != nil {
		return nil, err
	}
	var ref network.Ref
	if err := json.Unmarshal([]byte(net), &ref); err != nil {
		return nil, err
	}
	grant.Network = ref
	grant.GrantedAt = time.Unix(grantedAt, 0).UTC()
	return &grant, nil
}
