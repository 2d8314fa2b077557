package xtwallet

import (
	"context"

	"github.com/signum-network/xt-wallet-go/confirm"
	"github.com/signum-network/xt-wallet-go/types"
)

var Version string

// DAppService serves the requests dApps send to the wallet. Every request
// is identified by the origin of the page that sent it.
type DAppService interface {
	GetVersion() string
	GetCurrentPermission(ctx context.Context, origin string) (*types.CurrentPermissionResponse, error)
	RequestPermission(
		ctx context.Context, origin string, req types.PermissionRequest,
	) (*types.PermissionResponse, error)
	RequestSign(ctx context.Context, origin string, req types.SignRequest) (*types.SignResponse, error)
	RequestOperation(
		ctx context.Context, origin string, req types.OperationRequest,
	) (*types.OperationResponse, error)
	RevokePermission(ctx context.Context, origin string) error
	ListPermissions(ctx context.Context) ([]types.Grant, error)
	ListActivity(ctx context.Context, account string) ([]types.Activity, error)
	// Confirmations is the channel the confirmation UI answers through.
	Confirmations() *confirm.Channel
	Close()
}
