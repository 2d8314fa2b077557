// Package node talks to a Signum node http api: transaction parsing for
// previews, unsigned transaction building and broadcasting.
package node

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/signum-network/xt-wallet-go/internal/utils"
	"github.com/signum-network/xt-wallet-go/types"
)

const defaultDeadline = 1440

// Client is a Signum node api client bound to one node.
type Client interface {
	BaseUrl() string
	// ChainID identifies the chain the node follows (its genesis block id).
	ChainID(ctx context.Context) (string, error)
	// ParseTransaction decodes the given transaction bytes into a preview.
	ParseTransaction(ctx context.Context, txBytesHex string) (*types.TransactionPreview, error)
	IsContract(ctx context.Context, accountID string) (bool, error)
	// PrepareTransaction asks the node to build the unsigned bytes of op
	// issued by the owner of senderPublicKey.
	PrepareTransaction(
		ctx context.Context, op types.OperationParams, senderPublicKey string,
	) (unsignedTxHex string, err error)
	BroadcastTransaction(ctx context.Context, signedTxHex string) (*Broadcast, error)
}

// Factory returns a client for the node at rpc.
type Factory func(rpc string) (Client, error)

type Broadcast struct {
	TxID     string `json:"transaction"`
	FullHash string `json:"fullHash"`
}

// Error is an api level error returned by the node, e.g. a rejected
// transaction.
type Error struct {
	Code        int
	Description string
}

// StatusError is returned when the node answers with a non 200 status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "unexpected status " + e.Status
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

func (e *Error) Error() string {
	return fmt.Sprintf("node error %d: %s", e.Code, e.Description)
}

type client struct {
	baseUrl  string
	http     *http.Client
	deadline uint16
}

func NewClient(baseUrl string, opts ...Option) (Client, error) {
	if baseUrl == "" {
		return nil, fmt.Errorf("missing node url")
	}
	if _, err := url.ParseRequestURI(baseUrl); err != nil {
		return nil, fmt.Errorf("invalid node url: %s", err)
	}

	c := &client{
		baseUrl:  utils.RemoveLastSlash(baseUrl),
		http:     &http.Client{Timeout: 30 * time.Second},
		deadline: defaultDeadline,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFactory returns a Factory creating clients with the given options.
func NewFactory(opts ...Option) Factory {
	return func(rpc string) (Client, error) {
		return NewClient(rpc, opts...)
	}
}

func (c *client) BaseUrl() string {
	return c.baseUrl
}

func (c *client) ChainID(ctx context.Context) (string, error) {
	var resp struct {
		GenesisBlockID string `json:"genesisBlockId"`
	}
	if err := c.call(ctx, http.MethodGet, "getConstants", nil, &resp); err != nil {
		return "", err
	}
	if resp.GenesisBlockID == "" {
		return "", fmt.Errorf("node did not return a genesis block id")
	}
	return resp.GenesisBlockID, nil
}

func (c *client) ParseTransaction(
	ctx context.Context, txBytesHex string,
) (*types.TransactionPreview, error) {
	var raw json.RawMessage
	params := url.Values{"transactionBytes": {txBytesHex}}
	if err := c.call(ctx, http.MethodGet, "parseTransaction", params, &raw); err != nil {
		return nil, err
	}

	var tx transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("failed to parse transaction: %s", err)
	}

	preview, err := tx.preview()
	if err != nil {
		return nil, err
	}
	preview.Raw = raw

	if tx.Recipient != "" {
		isContract, err := c.IsContract(ctx, tx.Recipient)
		if err == nil && isContract {
			preview.IsContractInteraction = true
			preview.Type = previewContract
		}
	}
	return preview, nil
}

func (c *client) IsContract(ctx context.Context, accountID string) (bool, error) {
	var resp struct {
		AT string `json:"at"`
	}
	err := c.call(ctx, http.MethodGet, "getAT", url.Values{"at": {accountID}}, &resp)
	if err != nil {
		if _, ok := err.(*Error); ok {
			return false, nil
		}
		return false, err
	}
	return resp.AT != "", nil
}

func (c *client) PrepareTransaction(
	ctx context.Context, op types.OperationParams, senderPublicKey string,
) (string, error) {
	if op.Kind == "" {
		return "", fmt.Errorf("missing operation kind")
	}

	params := url.Values{}
	for k, v := range op.Params {
		params.Set(k, formatParam(v))
	}
	params.Set("publicKey", senderPublicKey)
	params.Set("feeNQT", strconv.FormatUint(op.Fee, 10))
	if params.Get("deadline") == "" {
		params.Set("deadline", strconv.Itoa(int(c.deadline)))
	}
	params.Del("secretPhrase")

	var resp struct {
		UnsignedTransactionBytes string `json:"unsignedTransactionBytes"`
	}
	if err := c.call(ctx, http.MethodPost, op.Kind, params, &resp); err != nil {
		return "", err
	}
	if resp.UnsignedTransactionBytes == "" {
		return "", fmt.Errorf("node did not return unsigned transaction bytes")
	}
	return resp.UnsignedTransactionBytes, nil
}

func (c *client) BroadcastTransaction(ctx context.Context, signedTxHex string) (*Broadcast, error) {
	var resp Broadcast
	params := url.Values{"transactionBytes": {signedTxHex}}
	if err := c.call(ctx, http.MethodPost, "broadcastTransaction", params, &resp); err != nil {
		return nil, err
	}
	if resp.TxID == "" {
		return nil, fmt.Errorf("node did not return a transaction id")
	}
	return &resp, nil
}

// call sends a request to the node api. Reads are retried on transient
// failures, writes are sent once.
func (c *client) call(
	ctx context.Context, method, requestType string, params url.Values, out any,
) error {
	if method != http.MethodGet {
		return c.do(ctx, method, requestType, params, out)
	}
	return utils.Retry(ctx, func(ctx context.Context) error {
		return c.do(ctx, method, requestType, params, out)
	})
}

func (c *client) do(
	ctx context.Context, method, requestType string, params url.Values, out any,
) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("requestType", requestType)
	endpoint := c.baseUrl + "/api"

	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(
			ctx, method, endpoint, strings.NewReader(params.Encode()),
		)
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	// nolint:all
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w", requestType, &StatusError{Code: resp.StatusCode, Status: resp.Status})
	}

	var apiErr struct {
		ErrorCode        *int   `json:"errorCode"`
		ErrorDescription string `json:"errorDescription"`
	}
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return fmt.Errorf("%s: invalid response: %s", requestType, err)
	}
	if apiErr.ErrorCode != nil {
		return &Error{Code: *apiErr.ErrorCode, Description: apiErr.ErrorDescription}
	}

	if raw, ok := out.(*json.RawMessage); ok {
		*raw = body
		return nil
	}
	return json.Unmarshal(body, out)
}

func formatParam(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
