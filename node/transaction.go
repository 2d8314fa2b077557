package node

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/signum-network/xt-wallet-go/types"
)

const (
	typePayment   = 0
	typeArbitrary = 1
	typeAsset     = 2
	typeAT        = 22

	subtypeMultiOut           = 1
	subtypeMultiOutSameAmount = 2
)

const (
	previewTransfer    = "transfer"
	previewContract    = "contract"
	previewMessage     = "messageTo"
	previewTransaction = "transaction"
)

// transaction is the subset of the node's transaction json used for previews.
type transaction struct {
	Type       int             `json:"type"`
	Subtype    int             `json:"subtype"`
	Sender     string          `json:"sender"`
	Recipient  string          `json:"recipient"`
	AmountNQT  string          `json:"amountNQT"`
	FeeNQT     string          `json:"feeNQT"`
	Attachment json.RawMessage `json:"attachment"`
}

func (tx transaction) preview() (*types.TransactionPreview, error) {
	amount, err := parseAmount(tx.AmountNQT)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %s", err)
	}
	fee, err := parseAmount(tx.FeeNQT)
	if err != nil {
		return nil, fmt.Errorf("invalid fee: %s", err)
	}
	expenses, err := tx.expenses(amount)
	if err != nil {
		return nil, err
	}

	return &types.TransactionPreview{
		Type:      tx.previewType(),
		Sender:    tx.Sender,
		Recipient: tx.Recipient,
		Amount:    amount,
		Fee:       fee,
		Expenses:  expenses,
	}, nil
}

func (tx transaction) previewType() string {
	switch tx.Type {
	case typePayment, typeAsset:
		return previewTransfer
	case typeAT:
		return previewContract
	case typeArbitrary:
		return previewMessage
	default:
		return previewTransaction
	}
}

func (tx transaction) expenses(amount uint64) ([]types.TransactionExpense, error) {
	switch tx.Type {
	case typePayment:
		switch tx.Subtype {
		case subtypeMultiOut, subtypeMultiOutSameAmount:
			return tx.multiOutExpenses(amount)
		}
		return []types.TransactionExpense{{To: tx.Recipient, Amount: amount}}, nil
	case typeAT:
		return []types.TransactionExpense{{To: tx.Recipient, Amount: amount}}, nil
	case typeArbitrary:
		return []types.TransactionExpense{{To: tx.Recipient, Amount: 0}}, nil
	default:
		return []types.TransactionExpense{}, nil
	}
}

// multiOutExpenses reads recipients from the attachment: pairs of
// [recipient, amount] for multi out, plain recipients sharing the
// transaction amount for multi out same amount.
func (tx transaction) multiOutExpenses(amount uint64) ([]types.TransactionExpense, error) {
	var attachment struct {
		Recipients json.RawMessage `json:"recipients"`
	}
	if len(tx.Attachment) == 0 {
		return nil, fmt.Errorf("missing multi out attachment")
	}
	if err := json.Unmarshal(tx.Attachment, &attachment); err != nil {
		return nil, fmt.Errorf("invalid multi out attachment: %s", err)
	}

	if tx.Subtype == subtypeMultiOutSameAmount {
		var recipients []string
		if err := json.Unmarshal(attachment.Recipients, &recipients); err != nil {
			return nil, fmt.Errorf("invalid multi out recipients: %s", err)
		}
		if len(recipients) == 0 {
			return []types.TransactionExpense{}, nil
		}
		each := amount / uint64(len(recipients))
		expenses := make([]types.TransactionExpense, 0, len(recipients))
		for _, r := range recipients {
			expenses = append(expenses, types.TransactionExpense{To: r, Amount: each})
		}
		return expenses, nil
	}

	var pairs [][]string
	if err := json.Unmarshal(attachment.Recipients, &pairs); err != nil {
		return nil, fmt.Errorf("invalid multi out recipients: %s", err)
	}
	expenses := make([]types.TransactionExpense, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("invalid multi out recipient %v", pair)
		}
		value, err := parseAmount(pair[1])
		if err != nil {
			return nil, fmt.Errorf("invalid multi out amount: %s", err)
		}
		expenses = append(expenses, types.TransactionExpense{To: pair[0], Amount: value})
	}
	return expenses, nil
}

func parseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
