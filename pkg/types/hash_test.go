package types

import (
	"encoding/json"
	"strings"
	"testing"
)

const sampleTxID = "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"

func TestHash_ZeroAndCopy(t *testing.T) {
	var zero Hash
	if !zero.IsZero() {
		t.Error("zero value should report IsZero")
	}
	h := Hash{0x01, 0x02}
	if h.IsZero() {
		t.Error("non-zero hash reported IsZero")
	}
	b := h.Bytes()
	b[0] = 0xFF
	if h[0] != 0x01 {
		t.Error("Bytes must not alias the hash")
	}
}

func TestHexToHash_Forms(t *testing.T) {
	for _, in := range []string{sampleTxID, "0x" + sampleTxID, "0X" + strings.ToUpper(sampleTxID)} {
		h, err := HexToHash(in)
		if err != nil {
			t.Fatalf("HexToHash(%q): %v", in, err)
		}
		if h.String() != sampleTxID {
			t.Errorf("String() = %s, want %s", h, sampleTxID)
		}
		if h.Hex() != "0x"+sampleTxID {
			t.Errorf("Hex() = %s", h.Hex())
		}
	}
}

func TestHexToHash_Rejects(t *testing.T) {
	for _, in := range []string{"", "0x", "abcd", strings.Repeat("a", 66), strings.Repeat("g", 64), "0x0x" + sampleTxID[4:]} {
		if _, err := HexToHash(in); err == nil {
			t.Errorf("HexToHash(%q) should fail", in)
		}
	}
}

func TestHash_JSONField(t *testing.T) {
	type record struct {
		TxID Hash `json:"txid"`
	}
	want, _ := HexToHash(sampleTxID)
	data, err := json.Marshal(record{TxID: want})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"txid":"`+sampleTxID+`"}` {
		t.Errorf("marshal = %s", data)
	}

	var got record
	if err := json.Unmarshal([]byte(`{"txid":"0x`+sampleTxID+`"}`), &got); err != nil {
		t.Fatal(err)
	}
	if got.TxID != want {
		t.Errorf("unmarshal = %s, want %s", got.TxID, want)
	}

	got = record{TxID: want}
	if err := json.Unmarshal([]byte(`{"txid":""}`), &got); err != nil || !got.TxID.IsZero() {
		t.Errorf("empty txid should decode to zero, err=%v", err)
	}
}
