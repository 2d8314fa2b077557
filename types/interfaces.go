package types

import (
	"context"
)

type Store interface {
	ConfigStore() ConfigStore
	GrantStore() GrantStore
	ActivityStore() ActivityStore
	Clean(ctx context.Context)
	Close()
}

type ConfigStore interface {
	GetType() string
	GetDatadir() string
	AddData(ctx context.Context, data Config) error
	GetData(ctx context.Context) (*Config, error)
	CleanData(ctx context.Context) error
	Close()
}

// GrantStore persists dApp grants keyed by origin. Writes are last-write-wins.
type GrantStore interface {
	// GetGrant returns nil without error when origin has no grant.
	GetGrant(ctx context.Context, origin string) (*Grant, error)
	SetGrant(ctx context.Context, grant Grant) error
	DeleteGrant(ctx context.Context, origin string) error
	ListGrants(ctx context.Context) ([]Grant, error)
	Clean(ctx context.Context) error
	Close()
}

type ActivityStore interface {
	AddActivity(ctx context.Context, activity Activity) error
	// GetActivity returns the account's records, most recent first.
	GetActivity(ctx context.Context, account string) ([]Activity, error)
	Clean(ctx context.Context) error
	Close()
}
