package aptos

import "fmt"

const (
	// NativeCoinType is the type tag of the native coin.
	NativeCoinType = "0x1::aptos_coin::AptosCoin"
	// NativeDecimals is the precision of the native coin.
	NativeDecimals = 8
)

var aptosAccount = ModuleID{Address: AddressOne, Name: "aptos_account"}

// NewTransferPayload returns an entry function moving amount of coinType to
// to. An empty coinType or the native coin uses aptos_account::transfer.
func NewTransferPayload(to AccountAddress, amount uint64, coinType string) (*EntryFunction, error) {
	args := [][]byte{AddressArg(to), U64Arg(amount)}
	if coinType == "" || coinType == NativeCoinType {
		return &EntryFunction{Module: aptosAccount, Function: "transfer", Args: args}, nil
	}
	tag, err := ParseTypeTag(coinType)
	if err != nil {
		return nil, fmt.Errorf("coin type: %w", err)
	}
	return &EntryFunction{
		Module:   aptosAccount,
		Function: "transfer_coins",
		TypeArgs: []TypeTag{tag},
		Args:     args,
	}, nil
}

// Transfer is a decoded coin transfer.
type Transfer struct {
	To       AccountAddress
	Amount   uint64
	CoinType string
}

// ParseTransfer recognises the payloads built by NewTransferPayload and
// the equivalent coin::transfer call.
func ParseTransfer(p Payload) (Transfer, bool) {
	ef, ok := p.(*EntryFunction)
	if !ok || len(ef.Args) != 2 || ef.Module.Address != AddressOne {
		return Transfer{}, false
	}
	var coin string
	switch {
	case ef.Module.Name == "aptos_account" && ef.Function == "transfer" && len(ef.TypeArgs) == 0:
		coin = NativeCoinType
	case (ef.Module.Name == "aptos_account" && ef.Function == "transfer_coins" ||
		ef.Module.Name == "coin" && ef.Function == "transfer") && len(ef.TypeArgs) == 1:
		coin = ef.TypeArgs[0].String()
	default:
		return Transfer{}, false
	}
	to, ok := ArgAddress(ef.Args[0])
	if !ok {
		return Transfer{}, false
	}
	amt, ok := ArgU64(ef.Args[1])
	if !ok {
		return Transfer{}, false
	}
	return Transfer{To: to, Amount: amt, CoinType: coin}, true
}
