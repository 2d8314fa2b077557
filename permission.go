package xtwallet

import (
	"context"
	"time"

	"github.com/signum-network/xt-wallet-go/confirm"
	"github.com/signum-network/xt-wallet-go/types"
	log "github.com/sirupsen/logrus"
)

// RequestPermission returns the existing grant of origin when it matches the
// requested network and app name, unless req.Force is set. Otherwise the
// user is asked to pick the account to grant.
func (s *dappService) RequestPermission(
	ctx context.Context, origin string, req types.PermissionRequest,
) (*types.PermissionResponse, error) {
	if origin == "" {
		return nil, newError(InvalidParams, "missing origin")
	}
	if !s.networks.IsAllowed(req.Network) {
		return nil, newError(InvalidParams, "network %s not allowed", req.Network)
	}
	if req.AppMeta.Name == "" {
		return nil, newError(InvalidParams, "missing app name")
	}

	rpc, err := s.networks.RPC(req.Network)
	if err != nil {
		return nil, newError(InvalidParams, "%s", err)
	}

	grant, err := s.store.GrantStore().GetGrant(ctx, origin)
	if err != nil {
		return nil, err
	}
	if !req.Force && grant != nil &&
		grant.Network.Equal(req.Network) && grant.AppMeta.Name == req.AppMeta.Name {
		log.Debugf("%s already granted on %s", origin, req.Network)
		return &types.PermissionResponse{Permission: types.Permission{
			RPC:       rpc,
			Pkh:       grant.PublicKeyHash,
			PublicKey: grant.PublicKey,
		}}, nil
	}

	var resp *types.PermissionResponse
	if err := s.requestConfirmation(ctx, confirm.Request{
		ID: confirm.NewID(),
		Payload: types.ConfirmationPayload{
			Type:       types.ConfirmConnect,
			Origin:     origin,
			NetworkRPC: rpc,
			AppMeta:    req.AppMeta,
		},
		Expect: types.DAppPermConfirmationRequest,
		OnConfirm: func(ctx context.Context, msg types.ConfirmationMessage) error {
			if msg.AccountPublicKeyHash == "" || msg.AccountPublicKey == "" {
				return confirm.ErrDeclined
			}

			if err := s.store.GrantStore().SetGrant(ctx, types.Grant{
				Origin:        origin,
				Network:       req.Network,
				AppMeta:       req.AppMeta,
				PublicKeyHash: msg.AccountPublicKeyHash,
				PublicKey:     msg.AccountPublicKey,
				GrantedAt:     time.Now().UTC(),
			}); err != nil {
				return err
			}

			resp = &types.PermissionResponse{Permission: types.Permission{
				RPC:       rpc,
				Pkh:       msg.AccountPublicKeyHash,
				PublicKey: msg.AccountPublicKey,
			}}
			return nil
		},
	}); err != nil {
		return nil, err
	}

	log.Debugf("granted %s to %s on %s", resp.Pkh, origin, req.Network)
	return resp, nil
}
