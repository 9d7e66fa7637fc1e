package kaspa

import (
	"strings"
	"testing"
)

func TestCommitScript_RoundTrip(t *testing.T) {
	data := NewTransferData("KASP", "100000000", "kaspa:qexample")
	script, err := CommitScript(testXOnly(), data)
	if err != nil {
		t.Fatalf("CommitScript() error: %v", err)
	}
	if script[0] != OpData32 || script[33] != OpCheckSig || script[34] != OpFalse || script[35] != OpIf {
		t.Errorf("unexpected script head %x", script[:36])
	}
	if script[len(script)-1] != OpEndIf {
		t.Error("script should end with OP_ENDIF")
	}
	if !strings.Contains(string(script), `{"p":"krc-20","op":"transfer","tick":"kasp","amt":"100000000","to":"kaspa:qexample"}`) {
		t.Error("inscription JSON missing or out of order")
	}

	got, ok := ParseCommitScript(script)
	if !ok {
		t.Fatal("ParseCommitScript failed")
	}
	if got != data {
		t.Errorf("parsed %+v, want %+v", got, data)
	}
}

func TestCommitScript_BadKey(t *testing.T) {
	if _, err := CommitScript(make([]byte, 33), NewTransferData("a", "1", "b")); err == nil {
		t.Error("33-byte key should be rejected")
	}
}

func TestParseCommitScript_NotInscription(t *testing.T) {
	if _, ok := ParseCommitScript([]byte{OpData32, OpCheckSig}); ok {
		t.Error("plain script should not parse")
	}
}

func TestToRPC(t *testing.T) {
	tx := sampleTx(t)
	r := ToRPC(tx)
	if len(r.Inputs) != 2 || len(r.Outputs) != 2 {
		t.Fatalf("ToRPC shape = %d inputs, %d outputs", len(r.Inputs), len(r.Outputs))
	}
	if r.Inputs[1].SignatureScript != "aabb" {
		t.Errorf("signature script = %s", r.Inputs[1].SignatureScript)
	}
	if r.SubnetworkID != strings.Repeat("0", 40) {
		t.Errorf("subnetwork id = %s", r.SubnetworkID)
	}
}
