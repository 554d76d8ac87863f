package evm

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestParseAddressRoundTrip(t *testing.T) {
	in := "0x1f98431c8ad98523631ae4a59f267346ea31f984"
	a, err := ParseAddress(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Hex() != in {
		t.Fatalf("round trip mismatch: %s", a.Hex())
	}
	if a.IsZero() {
		t.Fatalf("non-zero address reported zero")
	}
}

func TestParseAddressRejectsBadLength(t *testing.T) {
	if _, err := ParseAddress("0xdeadbeef"); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestAddressWordRoundTrip(t *testing.T) {
	a, _ := ParseAddress("0x000000000000000000000000000000000000beef")
	if got := a.Word().Address(); got != a {
		t.Fatalf("word/address round trip: %s", got.Hex())
	}
}

func TestWordBig(t *testing.T) {
	w := WordFromBig(big.NewInt(123456789))
	if w.Big().Int64() != 123456789 {
		t.Fatalf("got %s", w.Big())
	}
}

func TestWordUint112IgnoresHighBits(t *testing.T) {
	// Set a bit above the 112-bit range; Uint112 must mask it away.
	v := new(big.Int).Lsh(big.NewInt(1), 200)
	v.Add(v, big.NewInt(42))
	w := WordFromBig(v)
	if w.Uint112().Int64() != 42 {
		t.Fatalf("got %s", w.Uint112())
	}
}

func TestJSONTransportUsesHex(t *testing.T) {
	a, _ := ParseAddress("0x000000000000000000000000000000000000beef")
	rec := EventRecord{Emitter: a, Topics: []Word{a.Word()}, Payload: Bytes{0xde, 0xad}}
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"emitter":"0x000000000000000000000000000000000000beef","topics":["0x000000000000000000000000000000000000000000000000000000000000beef"],"payload":"0xdead"}`
	if string(raw) != want {
		t.Fatalf("json = %s", raw)
	}
	var back EventRecord
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Emitter != a || len(back.Payload) != 2 {
		t.Fatalf("round trip: %+v", back)
	}
}

func TestPayloadWordsDropsPartialSlot(t *testing.T) {
	r := EventRecord{Payload: make([]byte, 70)}
	if got := len(r.PayloadWords()); got != 2 {
		t.Fatalf("want 2 words, got %d", got)
	}
	if got := len((EventRecord{}).PayloadWords()); got != 0 {
		t.Fatalf("empty payload should yield no words, got %d", got)
	}
}
