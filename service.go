package xtwallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signum-network/xt-wallet-go/confirm"
	"github.com/signum-network/xt-wallet-go/network"
	"github.com/signum-network/xt-wallet-go/node"
	"github.com/signum-network/xt-wallet-go/types"
	"github.com/signum-network/xt-wallet-go/vault"
	log "github.com/sirupsen/logrus"
)

type dappService struct {
	store          types.Store
	vault          vault.Vault
	confirm        *confirm.Channel
	confirmTimeout time.Duration
	networks       *network.Registry
	nodeFactory    node.Factory
}

func NewDAppService(
	store types.Store, v vault.Vault, opts ...ServiceOption,
) (DAppService, error) {
	if store == nil {
		return nil, fmt.Errorf("missing store")
	}
	if v == nil {
		return nil, fmt.Errorf("missing vault")
	}

	cfgData, err := store.ConfigStore().GetData(context.Background())
	if err != nil {
		return nil, err
	}

	svc := &dappService{store: store, vault: v}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.networks == nil {
		var custom []network.Network
		if cfgData != nil {
			custom = cfgData.CustomNetworks
		}
		svc.networks = network.NewRegistry(custom...)
	}
	if svc.nodeFactory == nil {
		svc.nodeFactory = node.NewFactory()
	}
	if svc.confirm == nil {
		timeout := svc.confirmTimeout
		if timeout <= 0 && cfgData != nil {
			timeout = cfgData.ConfirmTimeout
		}
		svc.confirm = confirm.NewChannel(confirm.WithTimeout(timeout))
	}

	return svc, nil
}

func (s *dappService) GetVersion() string {
	return Version
}

func (s *dappService) Confirmations() *confirm.Channel {
	return s.confirm
}

func (s *dappService) GetCurrentPermission(
	ctx context.Context, origin string,
) (*types.CurrentPermissionResponse, error) {
	grant, err := s.store.GrantStore().GetGrant(ctx, origin)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return &types.CurrentPermissionResponse{}, nil
	}

	rpc, err := s.networks.RPC(grant.Network)
	if err != nil {
		return nil, err
	}
	return &types.CurrentPermissionResponse{
		Permission: &types.Permission{
			RPC:       rpc,
			Pkh:       grant.PublicKeyHash,
			PublicKey: grant.PublicKey,
		},
	}, nil
}

func (s *dappService) RevokePermission(ctx context.Context, origin string) error {
	if origin == "" {
		return newError(InvalidParams, "missing origin")
	}
	if err := s.store.GrantStore().DeleteGrant(ctx, origin); err != nil {
		return err
	}
	log.Debugf("revoked permission of %s", origin)
	return nil
}

func (s *dappService) ListPermissions(ctx context.Context) ([]types.Grant, error) {
	return s.store.GrantStore().ListGrants(ctx)
}

func (s *dappService) ListActivity(ctx context.Context, account string) ([]types.Activity, error) {
	return s.store.ActivityStore().GetActivity(ctx, account)
}

func (s *dappService) Close() {
	s.confirm.Close()
	s.store.Close()
}

// requestConfirmation shows req to the user and maps a decline to
// NotGranted.
func (s *dappService) requestConfirmation(ctx context.Context, req confirm.Request) error {
	err := s.confirm.Request(ctx, req)
	if err == nil {
		return nil
	}
	if errors.Is(err, confirm.ErrDeclined) || errors.Is(err, confirm.ErrClosed) {
		return newError(NotGranted, "%s", err)
	}
	return err
}

// fromVaultError classifies the vault refusing to sign as NotGranted.
func fromVaultError(err error) error {
	if errors.Is(err, vault.ErrLocked) || errors.Is(err, vault.ErrAccountNotFound) ||
		errors.Is(err, vault.ErrNotInitialized) {
		return newError(NotGranted, "%s", err)
	}
	return err
}

// getGrant returns the grant of origin and checks it belongs to sourcePkh.
func (s *dappService) getGrant(ctx context.Context, origin, sourcePkh string) (*types.Grant, error) {
	grant, err := s.store.GrantStore().GetGrant(ctx, origin)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, newError(NotGranted, "no permission granted to %s", origin)
	}
	if !isSameAccount(sourcePkh, grant.PublicKeyHash) {
		return nil, newError(NotFound, "account %s not granted to %s", sourcePkh, origin)
	}
	return grant, nil
}

// transactionPreview is best-effort: any failure results in no preview.
func (s *dappService) transactionPreview(
	ctx context.Context, rpc, payload string,
) *types.TransactionPreview {
	client, err := s.nodeFactory(rpc)
	if err != nil {
		log.WithError(err).Debug("failed to create node client for preview")
		return nil
	}
	preview, err := client.ParseTransaction(ctx, payload)
	if err != nil {
		log.WithError(err).Debug("payload is not a transaction, no preview")
		return nil
	}
	return preview
}

// addActivity records a submitted operation locally. Failures are only
// logged since the operation is already broadcasted.
func (s *dappService) addActivity(
	ctx context.Context, rpc, origin, account string,
	ops []types.OperationParams, result *types.OperationResult,
) {
	client, err := s.nodeFactory(rpc)
	if err != nil {
		log.WithError(err).Warn("failed to record activity")
		return
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to record activity")
		return
	}

	kinds := make([]string, 0, len(ops))
	fee := uint64(0)
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
		fee += op.Fee
	}
	activity := types.Activity{
		Hash:      result.Hash,
		ChainID:   chainID,
		Origin:    origin,
		Account:   account,
		Kinds:     kinds,
		Fee:       fee,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.ActivityStore().AddActivity(ctx, activity); err != nil {
		log.WithError(err).Warn("failed to record activity")
	}
}
