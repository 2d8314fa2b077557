package xtwallet

import (
	"context"

	"github.com/signum-network/xt-wallet-go/confirm"
	"github.com/signum-network/xt-wallet-go/internal/address"
	"github.com/signum-network/xt-wallet-go/internal/utils"
	"github.com/signum-network/xt-wallet-go/types"
	"github.com/signum-network/xt-wallet-go/vault"
)

func (s *dappService) RequestSign(
	ctx context.Context, origin string, req types.SignRequest,
) (*types.SignResponse, error) {
	payload := utils.TrimHexPrefix(req.Payload)
	if !address.IsValid(req.SourcePkh) {
		return nil, newError(InvalidParams, "invalid source account %q", req.SourcePkh)
	}
	if !hexPattern.MatchString(payload) {
		return nil, newError(InvalidParams, "payload must be hex encoded")
	}

	grant, err := s.getGrant(ctx, origin, req.SourcePkh)
	if err != nil {
		return nil, err
	}
	rpc, err := s.networks.RPC(grant.Network)
	if err != nil {
		return nil, err
	}

	var resp *types.SignResponse
	if err := s.requestConfirmation(ctx, confirm.Request{
		ID: confirm.NewID(),
		Payload: types.ConfirmationPayload{
			Type:       types.ConfirmSign,
			Origin:     origin,
			NetworkRPC: rpc,
			AppMeta:    grant.AppMeta,
			SourcePkh:  req.SourcePkh,
			Payload:    payload,
			Preview:    s.transactionPreview(ctx, rpc, payload),
		},
		Expect: types.DAppSignConfirmationRequest,
		OnConfirm: func(ctx context.Context, _ types.ConfirmationMessage) error {
			signature, err := vault.WithUnlocked(ctx, s.vault, func(
				ctx context.Context, v vault.Vault,
			) (string, error) {
				return v.Sign(ctx, grant.PublicKeyHash, payload)
			})
			if err != nil {
				return fromVaultError(err)
			}
			resp = &types.SignResponse{Signature: signature}
			return nil
		},
	}); err != nil {
		return nil, err
	}

	return resp, nil
}
