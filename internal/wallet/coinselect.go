package wallet

import (
	"sort"

	"github.com/Klingon-tech/klingnet-vault/pkg/types"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// UTXO is a spendable output owned by an account.
type UTXO struct {
	Outpoint types.Outpoint
	Value    uint64
	// Score orders outputs by age: block DAA score or height.
	Score  uint64
	Script []byte
}

// Priority orders candidates before accumulation.
type Priority int

const (
	// PriorityOldest spends the oldest outputs first.
	PriorityOldest Priority = iota
	// PriorityLargest spends the largest outputs first, minimizing the
	// input count.
	PriorityLargest
)

func (p Priority) String() string {
	if p == PriorityLargest {
		return "largest"
	}
	return "oldest"
}

// Sorted returns a copy of utxos in priority order. Ties fall back to the
// outpoint so the order is deterministic.
func Sorted(utxos []UTXO, p Priority) []UTXO {
	out := append([]UTXO(nil), utxos...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case p == PriorityLargest && a.Value != b.Value:
			return a.Value > b.Value
		case p == PriorityOldest && a.Score != b.Score:
			return a.Score < b.Score
		}
		return a.Outpoint.String() < b.Outpoint.String()
	})
	return out
}

// Total sums the values of utxos.
func Total(utxos []UTXO) uint64 {
	var total uint64
	for _, u := range utxos {
		total += u.Value
	}
	return total
}

func spendable(utxos []UTXO) int {
	n := 0
	for _, u := range utxos {
		if u.Value > 0 {
			n++
		}
	}
	return n
}

// MaxSpendable sums the n largest outputs: the most a single transaction
// limited to n inputs can move.
func MaxSpendable(utxos []UTXO, n int) uint64 {
	sorted := Sorted(utxos, PriorityLargest)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return Total(sorted)
}

// Accumulate takes outputs in priority order until their sum reaches
// target. If every output is taken and the target is still not reached,
// all outputs are returned with ok false.
func Accumulate(utxos []UTXO, target uint64, p Priority) (picked []UTXO, total uint64, ok bool) {
	for _, u := range Sorted(utxos, p) {
		if u.Value == 0 {
			continue
		}
		picked = append(picked, u)
		total += u.Value
		if total >= target {
			return picked, total, true
		}
	}
	return picked, total, target == 0
}

// SelectRequest parameterizes SelectCoins.
type SelectRequest struct {
	Target   uint64
	Priority Priority
	// Dust is the smallest output worth creating.
	Dust uint64
	// FeeRate is charged per unit of weight.
	FeeRate uint64
	// Weigh returns the transaction weight when spending inputs.
	Weigh func(inputs []UTXO) uint64
}

// CoinSelection is the result of SelectCoins.
type CoinSelection struct {
	Inputs []UTXO
	Total  uint64
	Weight uint64
	Fee    uint64
	// MaxSend is set when every candidate was taken and their total does
	// not exceed the target. The fee is then paid by the recipient.
	MaxSend bool
}

// Change returns what is left after target and fee. It is zero for a
// max send.
func (s *CoinSelection) Change(target uint64) uint64 {
	if s.MaxSend || s.Total < target+s.Fee {
		return 0
	}
	return s.Total - target - s.Fee
}

// SelectCoins picks inputs for req.Target:
//  1. accumulate outputs in priority order until the target is reached;
//  2. if the total lands within Dust of the target, select again for
//     target + fee + dust so the fee is covered;
//  3. keep growing the selection while it cannot pay target + fee.
//
// A second pass that cannot be satisfied is reported as insufficient funds.
func SelectCoins(utxos []UTXO, req SelectRequest) (*CoinSelection, error) {
	available := Total(utxos)
	insufficient := func(required uint64) error {
		return vaulterr.ErrInsufficientFunds.
			With("required", required).
			With("available", available)
	}
	if req.Target == 0 {
		return nil, vaulterr.Newf(vaulterr.ErrInvalidAmount, "target must be positive")
	}

	picked, total, ok := Accumulate(utxos, req.Target, req.Priority)
	if !ok {
		return nil, insufficient(req.Target)
	}
	sel := &CoinSelection{Inputs: picked, Total: total}
	sel.Weight = req.Weigh(picked)
	sel.Fee = sel.Weight * req.FeeRate

	if len(picked) == spendable(utxos) && total <= req.Target {
		sel.MaxSend = true
		return sel, nil
	}

	need := req.Target
	if total <= req.Target+req.Dust {
		need = req.Target + sel.Fee + req.Dust
	}
	for sel.Total < need || sel.Total < req.Target+sel.Fee {
		if n := req.Target + sel.Fee; n > need {
			need = n
		}
		picked, total, ok = Accumulate(utxos, need, req.Priority)
		if !ok {
			return nil, insufficient(need)
		}
		sel.Inputs, sel.Total = picked, total
		sel.Weight = req.Weigh(picked)
		sel.Fee = sel.Weight * req.FeeRate
	}
	return sel, nil
}
