package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"radhedge/internal/model"
)

const erc20StringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return bytes32 for name and symbol.
const erc20Bytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

type erc20ABIs struct {
	str     abi.ABI
	bytes32 abi.ABI
}

var (
	erc20Once sync.Once
	erc20     erc20ABIs
	erc20Err  error
)

func loadERC20ABIs() (erc20ABIs, error) {
	erc20Once.Do(func() {
		erc20.str, erc20Err = abi.JSON(strings.NewReader(erc20StringJSON))
		if erc20Err != nil {
			return
		}
		erc20.bytes32, erc20Err = abi.JSON(strings.NewReader(erc20Bytes32JSON))
	})
	return erc20, erc20Err
}

// FetchCurrencyMeta reads decimals, symbol and name of an ERC20 token.
// Decimals is required; symbol and name are best effort.
func FetchCurrencyMeta(ctx context.Context, caller Caller, token common.Address, policy RetryPolicy, logger *zap.Logger) (model.CurrencyMeta, error) {
	meta := model.CurrencyMeta{Address: token.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	abis, err := loadERC20ABIs()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		var resp []byte
		err = withRetry(ctx, policy, func(ctx context.Context) error {
			var err error
			resp, err = caller.CallContract(ctx, msg, nil)
			if err != nil {
				logger.Warn("erc20 call failed", zap.String("token", token.Hex()), zap.String("method", method), zap.Error(err))
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("unpack %s: empty result", method)
		}
		return values, nil
	}

	values, err := call("decimals", abis.str)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	meta.Symbol = readText(call, abis, "symbol", logger, token)
	meta.Name = readText(call, abis, "name", logger, token)

	return meta, nil
}

func readText(call func(string, abi.ABI) ([]interface{}, error), abis erc20ABIs, method string, logger *zap.Logger, token common.Address) string {
	if values, err := call(method, abis.str); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := call(method, abis.bytes32)
	if err != nil {
		logger.Debug("erc20 text call failed", zap.String("token", token.Hex()), zap.String("method", method), zap.Error(err))
		return ""
	}
	s, _ := bytes32ToString(values[0])
	return s
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("decimals overflow: %s", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
