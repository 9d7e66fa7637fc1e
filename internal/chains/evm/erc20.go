package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20JSON = `[
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var erc20ABI = mustABI(erc20JSON)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("erc20 abi: %v", err))
	}
	return parsed
}

func packTransfer(to common.Address, value *big.Int) ([]byte, error) {
	return erc20ABI.Pack("transfer", to, value)
}

func packBalanceOf(owner common.Address) ([]byte, error) {
	return erc20ABI.Pack("balanceOf", owner)
}

func unpackBalance(out []byte) (*big.Int, error) {
	vals, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, err
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("balanceOf returned %d values", len(vals))
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf returned %T", vals[0])
	}
	return v, nil
}

// call is a decoded (address, uint256) ERC-20 call.
type call struct {
	method   string
	target   common.Address
	value    *big.Int
	selector string
}

// decodeCall recognises transfer and approve. Anything else reports its
// selector only.
func decodeCall(data []byte) (call, bool) {
	if len(data) < 4 {
		return call{}, false
	}
	c := call{selector: common.Bytes2Hex(data[:4])}
	m, err := erc20ABI.MethodById(data[:4])
	if err != nil || (m.Name != "transfer" && m.Name != "approve") {
		return c, false
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil || len(args) != 2 {
		return c, false
	}
	target, ok := args[0].(common.Address)
	if !ok {
		return c, false
	}
	value, ok := args[1].(*big.Int)
	if !ok {
		return c, false
	}
	c.method, c.target, c.value = m.Name, target, value
	return c, true
}
