package xtwallet

import (
	"context"
	"errors"
	"strings"

	"github.com/signum-network/xt-wallet-go/confirm"
	"github.com/signum-network/xt-wallet-go/internal/address"
	"github.com/signum-network/xt-wallet-go/node"
	"github.com/signum-network/xt-wallet-go/types"
	"github.com/signum-network/xt-wallet-go/vault"
	log "github.com/sirupsen/logrus"
)

func (s *dappService) RequestOperation(
	ctx context.Context, origin string, req types.OperationRequest,
) (*types.OperationResponse, error) {
	if !address.IsValid(req.SourcePkh) {
		return nil, newError(InvalidParams, "invalid source account %q", req.SourcePkh)
	}
	if len(req.OpParams) <= 0 {
		return nil, newError(InvalidParams, "missing operations")
	}
	for i, op := range req.OpParams {
		if _, ok := op["kind"].(string); !ok {
			return nil, newError(InvalidParams, "operation %d: missing kind", i)
		}
	}
	if _, err := BuildFinalOpParams(req.OpParams, nil, nil); err != nil {
		return nil, err
	}

	grant, err := s.getGrant(ctx, origin, req.SourcePkh)
	if err != nil {
		return nil, err
	}
	rpc, err := s.networks.RPC(grant.Network)
	if err != nil {
		return nil, err
	}

	var resp *types.OperationResponse
	if err := s.requestConfirmation(ctx, confirm.Request{
		ID: confirm.NewID(),
		Payload: types.ConfirmationPayload{
			Type:            types.ConfirmOperations,
			Origin:          origin,
			NetworkRPC:      rpc,
			AppMeta:         grant.AppMeta,
			SourcePkh:       req.SourcePkh,
			SourcePublicKey: grant.PublicKey,
			OpParams:        req.OpParams,
		},
		Expect: types.DAppOpsConfirmationRequest,
		OnConfirm: func(ctx context.Context, msg types.ConfirmationMessage) error {
			ops, err := BuildFinalOpParams(
				req.OpParams, msg.ModifiedTotalFee, msg.ModifiedStorageLimit,
			)
			if err != nil {
				return err
			}

			result, err := vault.WithUnlocked(ctx, s.vault, func(
				ctx context.Context, v vault.Vault,
			) (*types.OperationResult, error) {
				return v.SendOperations(ctx, grant.PublicKeyHash, rpc, ops)
			})
			if err != nil {
				var partialErr *vault.PartialSubmissionError
				if errors.As(err, &partialErr) {
					broadcast := partialErr.Result
					log.WithError(err).Warnf(
						"%s: %d of %d operation(s) broadcast", origin, len(broadcast.Hashes), len(ops),
					)
					sent := ops[:min(len(broadcast.Hashes), len(ops))]
					s.addActivity(ctx, rpc, origin, grant.PublicKeyHash, sent, broadcast)
					return newError(
						OperationSubmission, "%s (already broadcast: %s)",
						submissionMessage(partialErr.Err), strings.Join(broadcast.Hashes, ", "),
					)
				}
				var nodeErr *node.Error
				if errors.As(err, &nodeErr) {
					return newError(OperationSubmission, "%s", nodeErr.Description)
				}
				return fromVaultError(err)
			}

			log.Debugf("%s submitted %d operation(s) as %s", origin, len(ops), result.Hash)
			s.addActivity(ctx, rpc, origin, grant.PublicKeyHash, ops, result)

			resp = &types.OperationResponse{OpHash: result.Hash}
			return nil
		},
	}); err != nil {
		return nil, err
	}

	return resp, nil
}

func submissionMessage(err error) string {
	var nodeErr *node.Error
	if errors.As(err, &nodeErr) {
		return nodeErr.Description
	}
	return err.Error()
}
