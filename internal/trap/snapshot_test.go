package trap

import (
	"math/big"
	"testing"
	"time"
)

func TestSnapshotCodecRoundTrip(t *testing.T) {
	s := snap(t, 0, 0, 0, 0)
	s.Inflow, _ = new(big.Int).SetString("340282366920938463463374607431768211455", 10)
	s.Outflow = big.NewInt(12345)
	s.ReserveA = big.NewInt(5000)
	s.ReserveB = big.NewInt(10000)
	s.ObservedAt = time.UnixMilli(1735689600000).UTC()

	got, err := DecodeSnapshot(EncodeSnapshot(s))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Inflow.Cmp(s.Inflow) != 0 || got.Outflow.Cmp(s.Outflow) != 0 {
		t.Fatalf("totals mismatch: %s/%s", got.Inflow, got.Outflow)
	}
	if got.ReserveA.Cmp(s.ReserveA) != 0 || got.ReserveB.Cmp(s.ReserveB) != 0 {
		t.Fatalf("reserves mismatch: %s/%s", got.ReserveA, got.ReserveB)
	}
	if !got.ObservedAt.Equal(s.ObservedAt) {
		t.Fatalf("observedAt mismatch: %s", got.ObservedAt)
	}
	if got.Monitored != s.Monitored || got.Pool != s.Pool {
		t.Fatalf("identities mismatch")
	}
}

func TestDecodeSnapshotRejectsShortInput(t *testing.T) {
	if _, err := DecodeSnapshot(make([]byte, 139)); err == nil {
		t.Fatalf("expected error for truncated snapshot")
	}
}

func TestNetClampsAtZero(t *testing.T) {
	s := snap(t, 100, 500, 0, 0)
	if s.Net().Sign() != 0 {
		t.Fatalf("net should clamp to zero, got %s", s.Net())
	}
	s = snap(t, 500, 100, 0, 0)
	if s.Net().Int64() != 400 {
		t.Fatalf("net: want 400, got %s", s.Net())
	}
}
