// Package vault defines the signing authority of the wallet. A vault owns
// the account key material and only signs or submits operations while
// unlocked.
package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/signum-network/xt-wallet-go/types"
)

const (
	SingleKeyVault = "singlekey"
)

var (
	ErrLocked          = errors.New("vault is locked")
	ErrNotInitialized  = errors.New("vault not initialized")
	ErrAccountNotFound = errors.New("account not found in vault")
)

// PartialSubmissionError is returned by SendOperations when a broadcast
// fails after earlier operations of the same batch reached the node.
// Result holds the operations already broadcast.
type PartialSubmissionError struct {
	Result *types.OperationResult
	Err    error
}

func (e *PartialSubmissionError) Error() string {
	return fmt.Sprintf(
		"%d operation(s) broadcast before failure: %s", len(e.Result.Hashes), e.Err,
	)
}

func (e *PartialSubmissionError) Unwrap() error {
	return e.Err
}

type Account struct {
	// ID is the numeric account id, used as public key hash by dApps.
	ID        string
	Address   string
	PublicKey string
}

type Vault interface {
	GetType() string
	Create(ctx context.Context, password, seed string) (walletSeed string, err error)
	Lock(ctx context.Context) error
	Unlock(ctx context.Context, password string) (alreadyUnlocked bool, err error)
	IsLocked() bool
	GetAccount(ctx context.Context) (*Account, error)
	// Sign signs the hex encoded payload with the key of accountID and
	// returns the hex encoded signature.
	Sign(ctx context.Context, accountID, payloadHex string) (signature string, err error)
	// SendOperations builds, signs and broadcasts ops through the node at rpc.
	SendOperations(
		ctx context.Context, accountID, rpc string, ops []types.OperationParams,
	) (*types.OperationResult, error)
	Dump(ctx context.Context) (seed string, err error)
}

// WithUnlocked runs fn only if v is unlocked, ErrLocked otherwise.
func WithUnlocked[T any](
	ctx context.Context, v Vault, fn func(ctx context.Context, v Vault) (T, error),
) (T, error) {
	if v == nil || v.IsLocked() {
		var zero T
		return zero, ErrLocked
	}
	return fn(ctx, v)
}
