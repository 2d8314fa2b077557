package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/signum-network/xt-wallet-go/types"
	log "github.com/sirupsen/logrus"
)

const (
	insertActivity = `INSERT INTO activity (hash, chain_id, origin, account, kinds, fee, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(hash) DO NOTHING`
	selectActivityByAccount = `SELECT hash, chain_id, origin, account, kinds, fee, created_at
FROM activity WHERE account = ? ORDER BY created_at DESC`
	deleteAllActivity = `DELETE FROM activity`
)

type activityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) types.ActivityStore {
	return &activityStore{db: db}
}

func (s *activityStore) AddActivity(ctx context.Context, activity types.Activity) error {
	if activity.Hash == "" {
		return fmt.Errorf("missing operation hash")
	}
	fee, err := safecast.ToInt64(activity.Fee)
	if err != nil {
		return fmt.Errorf("invalid fee: %s", err)
	}
	_, err = s.db.ExecContext(
		ctx, insertActivity,
		activity.Hash, activity.ChainID, activity.Origin, activity.Account,
		strings.Join(activity.Kinds, ","), fee, activity.CreatedAt.Unix(),
	)
	return err
}

func (s *activityStore) GetActivity(ctx context.Context, account string) ([]types.Activity, error) {
	rows, err := s.db.QueryContext(ctx, selectActivityByAccount, account)
	if err != nil {
		return nil, err
	}
	// nolint:errcheck
	defer rows.Close()

	activity := make([]types.Activity, 0)
	for rows.Next() {
		var (
			a         types.Activity
			kinds     string
			fee       int64
			createdAt int64
		)
		if err := rows.Scan(
			&a.Hash, &a.ChainID, &a.Origin, &a.Account, &kinds, &fee, &createdAt,
		); err != nil {
			return nil, err
		}
		if a.Fee, err = safecast.ToUint64(fee); err != nil {
			return nil, err
		}
		if kinds != "" {
			a.Kinds = strings.Split(kinds, ",")
		}
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		activity = append(activity, a)
	}
	return activity, rows.Err()
}

func (s *activityStore) Clean(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, deleteAllActivity)
	return err
}

func (s *activityStore) Close() {
	if err := s.db.Close(); err != nil {
		log.Debugf("error on closing activity db: %s", err)
	}
}
