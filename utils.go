package xtwallet

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"

	"github.com/ccoveille/go-safecast"
	"github.com/mitchellh/mapstructure"
	"github.com/signum-network/xt-wallet-go/internal/address"
	"github.com/signum-network/xt-wallet-go/types"
)

var hexPattern = regexp.MustCompile("^[0-9a-fA-F]+$")

func isSameAccount(a, b string) bool {
	return a == b || address.Equal(a, b)
}

// BuildFinalOpParams decodes the operations sent by a dApp and applies the
// fee and storage limit the user chose when confirming. A modified total
// fee is charged entirely on the first operation, a modified storage limit
// only applies to a single operation.
func BuildFinalOpParams(
	opParams []map[string]any, modifiedTotalFee, modifiedStorageLimit *int64,
) ([]types.OperationParams, error) {
	if len(opParams) <= 0 {
		return nil, newError(InvalidParams, "missing operations")
	}

	ops := make([]types.OperationParams, 0, len(opParams))
	for i, params := range opParams {
		var op types.OperationParams
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       toUnsignedHook,
			WeaklyTypedInput: true,
			Result:           &op,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(params); err != nil {
			return nil, newError(InvalidParams, "operation %d: %s", i, err)
		}
		if op.Kind == "" {
			return nil, newError(InvalidParams, "operation %d: missing kind", i)
		}
		ops = append(ops, op)
	}

	if modifiedTotalFee != nil {
		fee, err := safecast.ToUint64(*modifiedTotalFee)
		if err != nil {
			return nil, newError(InvalidParams, "invalid total fee: %s", err)
		}
		for i := range ops {
			ops[i].Fee = 0
		}
		ops[0].Fee = fee
	}

	if modifiedStorageLimit != nil && len(ops) < 2 {
		limit, err := safecast.ToUint64(*modifiedStorageLimit)
		if err != nil {
			return nil, newError(InvalidParams, "invalid storage limit: %s", err)
		}
		ops[0].StorageLimit = &limit
	}

	return ops, nil
}

// toUnsignedHook rejects negative, fractional and out of range values
// decoded into unsigned fields such as fee and storage limit.
func toUnsignedHook(_, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Uint64 {
		return data, nil
	}

	switch v := data.(type) {
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		return safecast.ToUint64(v)
	case float32:
		return toUnsignedHook(nil, to, float64(v))
	case int:
		return safecast.ToUint64(v)
	case int32:
		return safecast.ToUint64(v)
	case int64:
		return safecast.ToUint64(v)
	case json.Number:
		return toUnsignedHook(nil, to, v.String())
	case string:
		return strconv.ParseUint(v, 10, 64)
	}
	return data, nil
}
