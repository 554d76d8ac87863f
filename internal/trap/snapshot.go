package trap

import (
	"encoding/binary"
	"errors"
	"math/big"
	"time"

	"github.com/wizzybrown/Drosera/internal/evm"
)

// Snapshot is a point-in-time summary of monitored-identity activity and
// pool reserves over one collection window.
//
// Inflow and Outflow are cumulative within the window and never reset
// mid-window. ReserveA/ReserveB carry the last reserve-sync values observed
// (last write wins). Net position is derived, never stored.
type Snapshot struct {
	Inflow     *big.Int
	Outflow    *big.Int
	ReserveA   *big.Int
	ReserveB   *big.Int
	ObservedAt time.Time
	Monitored  evm.Address
	Pool       evm.Address
}

// NewSnapshot returns a zero-valued snapshot for the given identities.
func NewSnapshot(monitored, pool evm.Address) Snapshot {
	return Snapshot{
		Inflow:    new(big.Int),
		Outflow:   new(big.Int),
		ReserveA:  new(big.Int),
		ReserveB:  new(big.Int),
		Monitored: monitored,
		Pool:      pool,
	}
}

// Net returns max(Inflow-Outflow, 0), the monitored identity's derived
// position.
func (s Snapshot) Net() *big.Int {
	n := new(big.Int).Sub(s.Inflow, s.Outflow)
	if n.Sign() < 0 {
		n.SetInt64(0)
	}
	return n
}

// Wire layout: inflow 32B | outflow 32B | reserveA 14B | reserveB 14B |
// observedAt unix-ms int64 8B | monitored 20B | pool 20B.
const snapshotWireLen = 32 + 32 + 14 + 14 + 8 + 20 + 20

var errShortSnapshot = errors.New("trap: snapshot bytes too short")

// EncodeSnapshot serializes s into the fixed-order wire tuple. Totals wider
// than 256 bits and reserves wider than 112 bits are truncated to their
// field widths.
func EncodeSnapshot(s Snapshot) []byte {
	out := make([]byte, snapshotWireLen)
	putUintN(out[0:32], s.Inflow)
	putUintN(out[32:64], s.Outflow)
	putUintN(out[64:78], s.ReserveA)
	putUintN(out[78:92], s.ReserveB)
	binary.BigEndian.PutUint64(out[92:100], uint64(s.ObservedAt.UnixMilli()))
	copy(out[100:120], s.Monitored[:])
	copy(out[120:140], s.Pool[:])
	return out
}

// DecodeSnapshot parses the fixed-order wire tuple produced by
// EncodeSnapshot.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	if len(b) < snapshotWireLen {
		return Snapshot{}, errShortSnapshot
	}
	var s Snapshot
	s.Inflow = new(big.Int).SetBytes(b[0:32])
	s.Outflow = new(big.Int).SetBytes(b[32:64])
	s.ReserveA = new(big.Int).SetBytes(b[64:78])
	s.ReserveB = new(big.Int).SetBytes(b[78:92])
	s.ObservedAt = time.UnixMilli(int64(binary.BigEndian.Uint64(b[92:100]))).UTC()
	copy(s.Monitored[:], b[100:120])
	copy(s.Pool[:], b[120:140])
	return s, nil
}

// putUintN writes v big-endian into dst, truncating to len(dst) bytes.
func putUintN(dst []byte, v *big.Int) {
	if v == nil {
		return
	}
	b := v.Bytes()
	if len(b) > len(dst) {
		b = b[len(b)-len(dst):]
	}
	copy(dst[len(dst)-len(b):], b)
}
