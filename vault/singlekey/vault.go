// Package singlekey implements a vault holding one secp256k1 key that
// signs with BIP-340 schnorr over the sha256 of the unsigned bytes.
// Production Signum nodes verify EC-KCDSA over Curve25519, so transactions
// signed by this vault are not accepted by them.
package singlekey

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/signum-network/xt-wallet-go/internal/address"
	"github.com/signum-network/xt-wallet-go/internal/utils"
	"github.com/signum-network/xt-wallet-go/node"
	"github.com/signum-network/xt-wallet-go/types"
	"github.com/signum-network/xt-wallet-go/vault"
	"github.com/signum-network/xt-wallet-go/vault/singlekey/store"
	log "github.com/sirupsen/logrus"
)

const (
	signatureOffset = 96
	signatureSize   = schnorr.SignatureSize
)

type singlekeyVault struct {
	store       store.VaultStore
	nodeFactory node.Factory
	addrPrefix  string

	lock       *sync.RWMutex
	privateKey *btcec.PrivateKey
	account    *vault.Account
}

// NewVault returns a vault holding a single key persisted in st. Operations
// are submitted through nodes created by nodeFactory.
func NewVault(
	st store.VaultStore, nodeFactory node.Factory, addrPrefix string,
) (vault.Vault, error) {
	if st == nil {
		return nil, fmt.Errorf("missing vault store")
	}
	if nodeFactory == nil {
		nodeFactory = node.NewFactory()
	}
	if addrPrefix == "" {
		addrPrefix = address.MainnetPrefix
	}

	v := &singlekeyVault{
		store:       st,
		nodeFactory: nodeFactory,
		addrPrefix:  addrPrefix,
		lock:        &sync.RWMutex{},
	}

	data, err := st.GetVault()
	if err != nil {
		return nil, err
	}
	if data != nil {
		v.account = newAccount(data.PubKey, addrPrefix)
	}
	return v, nil
}

func (v *singlekeyVault) GetType() string {
	return vault.SingleKeyVault
}

func (v *singlekeyVault) Create(_ context.Context, password, seed string) (string, error) {
	var privateKey *btcec.PrivateKey
	if len(seed) <= 0 {
		key, err := btcec.NewPrivateKey()
		if err != nil {
			return "", err
		}
		privateKey = key
	} else {
		buf, err := hex.DecodeString(utils.TrimHexPrefix(seed))
		if err != nil {
			return "", fmt.Errorf("invalid seed format, must be hex: %s", err)
		}
		if len(buf) != 32 {
			return "", fmt.Errorf("invalid seed length, expected 32 bytes")
		}
		privateKey, _ = btcec.PrivKeyFromBytes(buf)
	}

	pwd := []byte(password)
	encryptedPrvkey, err := utils.EncryptAES256(privateKey.Serialize(), pwd)
	if err != nil {
		return "", err
	}

	data := store.VaultData{
		EncryptedPrvkey: encryptedPrvkey,
		PasswordHash:    utils.HashPassword(pwd),
		PubKey:          privateKey.PubKey(),
	}
	if err := v.store.AddVault(data); err != nil {
		return "", err
	}

	v.lock.Lock()
	v.account = newAccount(data.PubKey, v.addrPrefix)
	v.privateKey = nil
	v.lock.Unlock()

	return hex.EncodeToString(privateKey.Serialize()), nil
}

func (v *singlekeyVault) Lock(_ context.Context) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.account == nil {
		return vault.ErrNotInitialized
	}
	v.privateKey = nil
	return nil
}

func (v *singlekeyVault) Unlock(_ context.Context, password string) (bool, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.privateKey != nil {
		return true, nil
	}

	data, err := v.store.GetVault()
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, vault.ErrNotInitialized
	}

	pwd := []byte(password)
	if !bytes.Equal(utils.HashPassword(pwd), data.PasswordHash) {
		return false, fmt.Errorf("invalid password")
	}

	buf, err := utils.DecryptAES256(data.EncryptedPrvkey, pwd)
	if err != nil {
		return false, err
	}

	privateKey, _ := btcec.PrivKeyFromBytes(buf)
	v.privateKey = privateKey
	v.account = newAccount(privateKey.PubKey(), v.addrPrefix)
	return false, nil
}

func (v *singlekeyVault) IsLocked() bool {
	v.lock.RLock()
	defer v.lock.RUnlock()
	return v.privateKey == nil
}

func (v *singlekeyVault) GetAccount(_ context.Context) (*vault.Account, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	if v.account == nil {
		return nil, vault.ErrNotInitialized
	}
	account := *v.account
	return &account, nil
}

func (v *singlekeyVault) Sign(_ context.Context, accountID, payloadHex string) (string, error) {
	privateKey, err := v.signingKey(accountID)
	if err != nil {
		return "", err
	}

	payload, err := hex.DecodeString(utils.TrimHexPrefix(payloadHex))
	if err != nil {
		return "", fmt.Errorf("invalid payload format, must be hex: %s", err)
	}

	sig, err := signPayload(privateKey, payload)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

func (v *singlekeyVault) SendOperations(
	ctx context.Context, accountID, rpc string, ops []types.OperationParams,
) (*types.OperationResult, error) {
	privateKey, err := v.signingKey(accountID)
	if err != nil {
		return nil, err
	}
	if len(ops) <= 0 {
		return nil, fmt.Errorf("missing operations")
	}

	client, err := v.nodeFactory(rpc)
	if err != nil {
		return nil, err
	}

	publicKey := hex.EncodeToString(schnorr.SerializePubKey(privateKey.PubKey()))

	// Nothing is broadcast unless every operation could be built and signed.
	signedTxs := make([]string, 0, len(ops))
	for i, op := range ops {
		unsignedTx, err := client.PrepareTransaction(ctx, op, publicKey)
		if err != nil {
			return nil, err
		}
		signedTx, err := signTransaction(privateKey, unsignedTx)
		if err != nil {
			return nil, fmt.Errorf("failed to sign operation %d: %w", i, err)
		}
		signedTxs = append(signedTxs, signedTx)
	}

	result := &types.OperationResult{
		TxIDs:  make([]string, 0, len(ops)),
		Hashes: make([]string, 0, len(ops)),
	}
	for i, signedTx := range signedTxs {
		broadcast, err := client.BroadcastTransaction(ctx, signedTx)
		if err != nil {
			if len(result.Hashes) <= 0 {
				return nil, err
			}
			result.Hash = result.Hashes[0]
			return nil, &vault.PartialSubmissionError{Result: result, Err: err}
		}

		log.Debugf("broadcasted operation %d (%s) as tx %s", i, ops[i].Kind, broadcast.TxID)
		result.TxIDs = append(result.TxIDs, broadcast.TxID)
		result.Hashes = append(result.Hashes, broadcast.FullHash)
	}
	result.Hash = result.Hashes[0]
	return result, nil
}

func (v *singlekeyVault) Dump(_ context.Context) (string, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	if v.privateKey == nil {
		return "", vault.ErrLocked
	}
	return hex.EncodeToString(v.privateKey.Serialize()), nil
}

func (v *singlekeyVault) signingKey(accountID string) (*btcec.PrivateKey, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	if v.privateKey == nil {
		return nil, vault.ErrLocked
	}
	if v.account.ID != accountID && !address.Equal(v.account.Address, accountID) {
		return nil, vault.ErrAccountNotFound
	}
	return v.privateKey, nil
}

func newAccount(pubkey *btcec.PublicKey, prefix string) *vault.Account {
	xonly := schnorr.SerializePubKey(pubkey)
	id := address.IDFromPublicKey(xonly)
	return &vault.Account{
		ID:        strconv.FormatUint(id, 10),
		Address:   address.Encode(id, prefix),
		PublicKey: hex.EncodeToString(xonly),
	}
}

func signPayload(privateKey *btcec.PrivateKey, payload []byte) ([]byte, error) {
	hash := sha256.Sum256(payload)
	sig, err := schnorr.Sign(privateKey, hash[:])
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// signTransaction fills the zeroed signature slot of the unsigned
// transaction bytes with the signature of the whole unsigned bytes.
func signTransaction(privateKey *btcec.PrivateKey, unsignedTxHex string) (string, error) {
	unsignedTx, err := hex.DecodeString(unsignedTxHex)
	if err != nil {
		return "", fmt.Errorf("invalid unsigned transaction: %s", err)
	}
	if len(unsignedTx) < signatureOffset+signatureSize {
		return "", fmt.Errorf("unsigned transaction too short")
	}

	sig, err := signPayload(privateKey, unsignedTx)
	if err != nil {
		return "", err
	}

	signedTx := make([]byte, len(unsignedTx))
	copy(signedTx, unsignedTx)
	copy(signedTx[signatureOffset:signatureOffset+signatureSize], sig)
	return hex.EncodeToString(signedTx), nil
}
