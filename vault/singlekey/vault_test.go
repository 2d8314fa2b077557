package singlekey_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/signum-network/xt-wallet-go/internal/address"
	"github.com/signum-network/xt-wallet-go/node"
	"github.com/signum-network/xt-wallet-go/types"
	"github.com/signum-network/xt-wallet-go/vault"
	"github.com/signum-network/xt-wallet-go/vault/singlekey"
	filestore "github.com/signum-network/xt-wallet-go/vault/singlekey/store/file"
	inmemorystore "github.com/signum-network/xt-wallet-go/vault/singlekey/store/inmemory"
	"github.com/stretchr/testify/require"
)

const (
	password = "password"
	seed     = "1f9a2b5c3d7e4f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8"
)

type mockNode struct {
	prepared  []types.OperationParams
	broadcast []string
	// failPrepare and failBroadcast make the n-th (1-based) call fail.
	failPrepare   int
	failBroadcast int
}

func (m *mockNode) BaseUrl() string { return "http://localhost:8125" }

func (m *mockNode) ChainID(context.Context) (string, error) { return "0", nil }

func (m *mockNode) ParseTransaction(context.Context, string) (*types.TransactionPreview, error) {
	return &types.TransactionPreview{}, nil
}

func (m *mockNode) IsContract(context.Context, string) (bool, error) { return false, nil }

func (m *mockNode) PrepareTransaction(
	_ context.Context, op types.OperationParams, _ string,
) (string, error) {
	m.prepared = append(m.prepared, op)
	if len(m.prepared) == m.failPrepare {
		return "", &node.Error{Code: 6, Description: "Not enough funds"}
	}
	return strings.Repeat("01", 96) + strings.Repeat("00", 64) + "02", nil
}

func (m *mockNode) BroadcastTransaction(_ context.Context, tx string) (*node.Broadcast, error) {
	if len(m.broadcast)+1 == m.failBroadcast {
		return nil, &node.Error{Code: 4, Description: "Incorrect transaction"}
	}
	m.broadcast = append(m.broadcast, tx)
	n := len(m.broadcast)
	return &node.Broadcast{TxID: fmt.Sprint(n), FullHash: fmt.Sprintf("hash%d", n)}, nil
}

func newVault(t *testing.T, mock *mockNode) vault.Vault {
	t.Helper()
	v, err := singlekey.NewVault(
		inmemorystore.NewStore(),
		func(string) (node.Client, error) { return mock, nil },
		address.TestnetPrefix,
	)
	require.NoError(t, err)
	return v
}

func TestVaultLifecycle(t *testing.T) {
	ctx := context.Background()
	v := newVault(t, &mockNode{})
	require.Equal(t, vault.SingleKeyVault, v.GetType())

	_, err := v.GetAccount(ctx)
	require.ErrorIs(t, err, vault.ErrNotInitialized)
	_, err = v.Unlock(ctx, password)
	require.ErrorIs(t, err, vault.ErrNotInitialized)

	walletSeed, err := v.Create(ctx, password, seed)
	require.NoError(t, err)
	require.Equal(t, seed, walletSeed)
	require.True(t, v.IsLocked())

	account, err := v.GetAccount(ctx)
	require.NoError(t, err)
	require.Len(t, account.PublicKey, 64)
	require.True(t, strings.HasPrefix(account.Address, "TS-"))
	require.True(t, address.Equal(account.ID, account.Address))

	_, err = v.Dump(ctx)
	require.ErrorIs(t, err, vault.ErrLocked)

	_, err = v.Unlock(ctx, "wrong")
	require.Error(t, err)
	require.True(t, v.IsLocked())

	alreadyUnlocked, err := v.Unlock(ctx, password)
	require.NoError(t, err)
	require.False(t, alreadyUnlocked)
	require.False(t, v.IsLocked())

	alreadyUnlocked, err = v.Unlock(ctx, password)
	require.NoError(t, err)
	require.True(t, alreadyUnlocked)

	dump, err := v.Dump(ctx)
	require.NoError(t, err)
	require.Equal(t, seed, dump)

	require.NoError(t, v.Lock(ctx))
	require.True(t, v.IsLocked())
}

func TestVaultCreateRandom(t *testing.T) {
	v := newVault(t, &mockNode{})
	walletSeed, err := v.Create(context.Background(), password, "")
	require.NoError(t, err)
	require.Len(t, walletSeed, 64)

	_, err = newVault(t, &mockNode{}).Create(context.Background(), password, "zz")
	require.Error(t, err)
}

func TestVaultSign(t *testing.T) {
	ctx := context.Background()
	v := newVault(t, &mockNode{})
	_, err := v.Create(ctx, password, seed)
	require.NoError(t, err)
	account, err := v.GetAccount(ctx)
	require.NoError(t, err)

	_, err = v.Sign(ctx, account.ID, "deadbeef")
	require.ErrorIs(t, err, vault.ErrLocked)

	_, err = v.Unlock(ctx, password)
	require.NoError(t, err)

	sigHex, err := v.Sign(ctx, account.ID, "0xdeadbeef")
	require.NoError(t, err)
	sigBytes, err := hex.DecodeString(sigHex)
	require.NoError(t, err)
	sig, err := schnorr.ParseSignature(sigBytes)
	require.NoError(t, err)

	pubkeyBytes, err := hex.DecodeString(account.PublicKey)
	require.NoError(t, err)
	pubkey, err := schnorr.ParsePubKey(pubkeyBytes)
	require.NoError(t, err)
	hash := sha256.Sum256([]byte{0xde, 0xad, 0xbe, 0xef})
	require.True(t, sig.Verify(hash[:], pubkey))

	// Addresses resolve to the same account.
	_, err = v.Sign(ctx, account.Address, "deadbeef")
	require.NoError(t, err)

	_, err = v.Sign(ctx, "1", "deadbeef")
	require.ErrorIs(t, err, vault.ErrAccountNotFound)
	_, err = v.Sign(ctx, account.ID, "not hex")
	require.Error(t, err)
}

func TestVaultSendOperations(t *testing.T) {
	ctx := context.Background()
	mock := &mockNode{}
	v := newVault(t, mock)
	_, err := v.Create(ctx, password, seed)
	require.NoError(t, err)
	account, err := v.GetAccount(ctx)
	require.NoError(t, err)

	ops := []types.OperationParams{
		{Kind: "sendMoney", Fee: 500},
		{Kind: "sendMessage", Fee: 0},
	}

	_, err = v.SendOperations(ctx, account.ID, "http://localhost:8125", ops)
	require.ErrorIs(t, err, vault.ErrLocked)

	_, err = v.Unlock(ctx, password)
	require.NoError(t, err)

	result, err := v.SendOperations(ctx, account.ID, "http://localhost:8125", ops)
	require.NoError(t, err)
	require.Equal(t, "hash1", result.Hash)
	require.Equal(t, []string{"1", "2"}, result.TxIDs)
	require.Equal(t, []string{"hash1", "hash2"}, result.Hashes)
	require.Equal(t, ops, mock.prepared)

	require.Len(t, mock.broadcast, 2)
	for _, tx := range mock.broadcast {
		require.True(t, strings.HasPrefix(tx, strings.Repeat("01", 96)))
		require.True(t, strings.HasSuffix(tx, "02"))
		require.NotEqual(t, strings.Repeat("00", 64), tx[192:320])
	}

	_, err = v.SendOperations(ctx, account.ID, "http://localhost:8125", nil)
	require.Error(t, err)
}

func TestVaultSendOperationsFailure(t *testing.T) {
	ctx := context.Background()
	ops := []types.OperationParams{
		{Kind: "sendMoney", Fee: 500},
		{Kind: "sendMoney", Fee: 500},
		{Kind: "sendMessage", Fee: 0},
	}

	newUnlocked := func(t *testing.T, mock *mockNode) (vault.Vault, string) {
		v := newVault(t, mock)
		_, err := v.Create(ctx, password, seed)
		require.NoError(t, err)
		_, err = v.Unlock(ctx, password)
		require.NoError(t, err)
		account, err := v.GetAccount(ctx)
		require.NoError(t, err)
		return v, account.ID
	}

	t.Run("prepare failure broadcasts nothing", func(t *testing.T) {
		mock := &mockNode{failPrepare: 2}
		v, accountID := newUnlocked(t, mock)

		result, err := v.SendOperations(ctx, accountID, "http://localhost:8125", ops)
		require.Nil(t, result)
		var nodeErr *node.Error
		require.ErrorAs(t, err, &nodeErr)
		require.Equal(t, "Not enough funds", nodeErr.Description)
		require.Empty(t, mock.broadcast)
	})

	t.Run("first broadcast failure", func(t *testing.T) {
		mock := &mockNode{failBroadcast: 1}
		v, accountID := newUnlocked(t, mock)

		_, err := v.SendOperations(ctx, accountID, "http://localhost:8125", ops)
		var nodeErr *node.Error
		require.ErrorAs(t, err, &nodeErr)
		var partialErr *vault.PartialSubmissionError
		require.False(t, errors.As(err, &partialErr))
		require.Empty(t, mock.broadcast)
	})

	t.Run("later broadcast failure reports broadcast operations", func(t *testing.T) {
		mock := &mockNode{failBroadcast: 3}
		v, accountID := newUnlocked(t, mock)

		result, err := v.SendOperations(ctx, accountID, "http://localhost:8125", ops)
		require.Nil(t, result)
		var partialErr *vault.PartialSubmissionError
		require.ErrorAs(t, err, &partialErr)
		require.Equal(t, "hash1", partialErr.Result.Hash)
		require.Equal(t, []string{"hash1", "hash2"}, partialErr.Result.Hashes)
		var nodeErr *node.Error
		require.ErrorAs(t, err, &nodeErr)
		require.Len(t, mock.prepared, 3)
		require.Len(t, mock.broadcast, 2)
	})
}

func TestVaultFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := filestore.NewStore(dir)
	require.NoError(t, err)
	v, err := singlekey.NewVault(st, nil, "")
	require.NoError(t, err)
	_, err = v.Create(ctx, password, seed)
	require.NoError(t, err)
	account, err := v.GetAccount(ctx)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(account.Address, "S-"))

	st, err = filestore.NewStore(dir)
	require.NoError(t, err)
	reloaded, err := singlekey.NewVault(st, nil, "")
	require.NoError(t, err)
	reloadedAccount, err := reloaded.GetAccount(ctx)
	require.NoError(t, err)
	require.Equal(t, account, reloadedAccount)

	_, err = reloaded.Unlock(ctx, password)
	require.NoError(t, err)
	dump, err := reloaded.Dump(ctx)
	require.NoError(t, err)
	require.Equal(t, seed, dump)
}

func TestWithUnlocked(t *testing.T) {
	ctx := context.Background()
	v := newVault(t, &mockNode{})
	_, err := v.Create(ctx, password, seed)
	require.NoError(t, err)

	getID := func(ctx context.Context, v vault.Vault) (string, error) {
		account, err := v.GetAccount(ctx)
		if err != nil {
			return "", err
		}
		return account.ID, nil
	}

	_, err = vault.WithUnlocked(ctx, v, getID)
	require.ErrorIs(t, err, vault.ErrLocked)

	_, err = v.Unlock(ctx, password)
	require.NoError(t, err)
	id, err := vault.WithUnlocked(ctx, v, getID)
	require.NoError(t, err)
	require.NotEmpty(t, id)
}
