package wallet

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-vault/pkg/types"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

func makeUTXOs(values ...uint64) []UTXO {
	utxos := make([]UTXO, len(values))
	for i, v := range values {
		utxos[i] = UTXO{
			Outpoint: types.Outpoint{TxID: types.Hash{byte(i + 1)}, Index: 0},
			Value:    v,
			Score:    uint64(100 - i), // later entries are older
		}
	}
	return utxos
}

// perInput charges 1000 weight per input plus 500 overhead.
func perInput(inputs []UTXO) uint64 { return 500 + 1000*uint64(len(inputs)) }

func TestSorted(t *testing.T) {
	utxos := makeUTXOs(10, 30, 20)
	largest := Sorted(utxos, PriorityLargest)
	if largest[0].Value != 30 || largest[2].Value != 10 {
		t.Errorf("largest order = %v", largest)
	}
	oldest := Sorted(utxos, PriorityOldest)
	if oldest[0].Value != 20 || oldest[2].Value != 10 {
		t.Errorf("oldest order = %v", oldest)
	}
	if utxos[0].Value != 10 {
		t.Error("Sorted modified its input")
	}
}

func TestAccumulate(t *testing.T) {
	utxos := makeUTXOs(100, 200, 300, 0)
	picked, total, ok := Accumulate(utxos, 450, PriorityLargest)
	if !ok || total != 500 || len(picked) != 2 {
		t.Errorf("Accumulate(450) = %d inputs, %d, %v", len(picked), total, ok)
	}
	picked, total, ok = Accumulate(utxos, 1000, PriorityLargest)
	if ok || total != 600 || len(picked) != 3 {
		t.Errorf("Accumulate(1000) = %d inputs, %d, %v", len(picked), total, ok)
	}
}

func TestMaxSpendable(t *testing.T) {
	utxos := makeUTXOs(5, 50, 1, 40, 30)
	if got := MaxSpendable(utxos, 3); got != 120 {
		t.Errorf("MaxSpendable(3) = %d, want 120", got)
	}
	if got := MaxSpendable(utxos, 10); got != 126 {
		t.Errorf("MaxSpendable(10) = %d, want 126", got)
	}
}

func TestSelectCoins_ExactTotalIsMaxSend(t *testing.T) {
	utxos := makeUTXOs(4000, 6000)
	sel, err := SelectCoins(utxos, SelectRequest{Target: 10000, Dust: 546, FeeRate: 1, Weigh: perInput})
	if err != nil {
		t.Fatalf("SelectCoins() error: %v", err)
	}
	if !sel.MaxSend {
		t.Error("MaxSend = false, want true")
	}
	if sel.Total != 10000 || len(sel.Inputs) != 2 {
		t.Errorf("selection = %d inputs, total %d", len(sel.Inputs), sel.Total)
	}
	if sel.Fee != 2500 || sel.Change(10000) != 0 {
		t.Errorf("fee = %d, change = %d", sel.Fee, sel.Change(10000))
	}
}

func TestSelectCoins_DustBufferReselects(t *testing.T) {
	// Oldest first: 10000 alone covers the target but leaves less than
	// dust, so the selection grows to cover fee + dust.
	utxos := makeUTXOs(50000, 10000)
	sel, err := SelectCoins(utxos, SelectRequest{Target: 9800, Dust: 546, FeeRate: 1, Weigh: perInput})
	if err != nil {
		t.Fatalf("SelectCoins() error: %v", err)
	}
	if len(sel.Inputs) != 2 || sel.Total != 60000 {
		t.Errorf("selection = %d inputs, total %d", len(sel.Inputs), sel.Total)
	}
	if sel.MaxSend {
		t.Error("unexpected MaxSend")
	}
	if sel.Change(9800) != 60000-9800-2500 {
		t.Errorf("change = %d", sel.Change(9800))
	}
}

func TestSelectCoins_GrowsToCoverFee(t *testing.T) {
	utxos := makeUTXOs(1500, 1500, 1500, 1500)
	sel, err := SelectCoins(utxos, SelectRequest{Target: 1000, Dust: 100, FeeRate: 1, Weigh: perInput})
	if err != nil {
		t.Fatalf("SelectCoins() error: %v", err)
	}
	if sel.Total < 1000+sel.Fee {
		t.Errorf("total %d does not cover target + fee %d", sel.Total, sel.Fee)
	}
}

func TestSelectCoins_SecondPassInsufficient(t *testing.T) {
	utxos := makeUTXOs(5000, 5100)
	_, err := SelectCoins(utxos, SelectRequest{Target: 10000, Dust: 546, FeeRate: 1, Weigh: perInput})
	if !errors.Is(err, vaulterr.ErrInsufficientFunds) {
		t.Fatalf("SelectCoins() error = %v, want ErrInsufficientFunds", err)
	}
	var ve *vaulterr.Error
	if errors.As(err, &ve) {
		if v, _ := ve.Attr("available"); v != "10100" {
			t.Errorf("available = %s", v)
		}
	}
}

func TestSelectCoins_Insufficient(t *testing.T) {
	_, err := SelectCoins(makeUTXOs(100, 200), SelectRequest{Target: 1000, Weigh: perInput})
	if !errors.Is(err, vaulterr.ErrInsufficientFunds) {
		t.Errorf("error = %v", err)
	}
	if vaulterr.KindOf(err) != vaulterr.KindResource {
		t.Errorf("kind = %v", vaulterr.KindOf(err))
	}
	if _, err := SelectCoins(nil, SelectRequest{Target: 1, Weigh: perInput}); !errors.Is(err, vaulterr.ErrInsufficientFunds) {
		t.Errorf("empty set error = %v", err)
	}
	if _, err := SelectCoins(makeUTXOs(1), SelectRequest{Weigh: perInput}); !errors.Is(err, vaulterr.ErrInvalidAmount) {
		t.Errorf("zero target error = %v", err)
	}
}

func TestSelectCoins_SufficiencyProperty(t *testing.T) {
	values := []uint64{}
	for i := 1; i <= 40; i++ {
		values = append(values, uint64(i*997%5000+600))
	}
	utxos := makeUTXOs(values...)
	available := Total(utxos)
	for target := uint64(1000); target < available; target += 7919 {
		for _, p := range []Priority{PriorityOldest, PriorityLargest} {
			sel, err := SelectCoins(utxos, SelectRequest{Target: target, Priority: p, Dust: 546, FeeRate: 1, Weigh: perInput})
			if err != nil {
				if !errors.Is(err, vaulterr.ErrInsufficientFunds) {
					t.Fatalf("target %d: unexpected error %v", target, err)
				}
				continue
			}
			if sel.Total < target {
				t.Fatalf("target %d (%s): total %d below target", target, p, sel.Total)
			}
			if !sel.MaxSend && sel.Total < target+sel.Fee {
				t.Fatalf("target %d (%s): total %d does not cover fee %d", target, p, sel.Total, sel.Fee)
			}
		}
	}
}
