package trap

import (
	"errors"
	"math/big"
	"time"

	"github.com/wizzybrown/Drosera/internal/evm"
)

// Basis-point scale: 10000 = 100%.
const BpScale = 10000

// DefaultThresholdBp is the drop threshold that authorizes an emergency
// exit: 5000 bp = 50%, inclusive.
const DefaultThresholdBp = 5000

// ActionRequest is the responder's output. When Triggered, Payload encodes
// the pool identity and withdrawal amount for the guard (amount 0 means
// "withdraw the full held balance").
type ActionRequest struct {
	Triggered bool
	Payload   []byte
}

// DropSource names which check fired a trigger.
type DropSource string

// Drop sources, in evaluation order.
const (
	SourcePosition DropSource = "position"
	SourceReserveA DropSource = "reserve_a"
	SourceReserveB DropSource = "reserve_b"
)

// Drop describes a detected anomalous drop, for journaling and the optional
// response rule.
type Drop struct {
	Source DropSource
	Bp     int64
}

// Responder decides, from a snapshot history, whether to request the
// emergency exit. The threshold checks are pure: identical inputs always
// produce identical output and nothing is mutated. The optional rule may
// consult the clock, which is injected so evaluation stays deterministic
// under a fixed clock.
type Responder struct {
	thresholdBp int64
	gate        celGate
	now         func() time.Time
}

// NewResponder builds a Responder. thresholdBp <= 0 selects the default
// 5000 bp. rule is an optional CEL expression evaluated over the drop
// metrics; when it returns false the trigger is vetoed. Empty rule
// disables the gate.
func NewResponder(thresholdBp int64, rule string) (*Responder, error) {
	if thresholdBp <= 0 {
		thresholdBp = DefaultThresholdBp
	}
	gate, err := newCELGate(rule)
	if err != nil {
		return nil, err
	}
	return &Responder{thresholdBp: thresholdBp, gate: gate, now: time.Now}, nil
}

// Respond evaluates history[0] (current) against history[1] (previous).
// Fewer than two snapshots is a normal no-signal outcome, not an error.
//
// Checks run in fixed order and the first match wins: net position first,
// then each reserve leg independently. A previous value of zero never
// "drops".
func (r *Responder) Respond(history []Snapshot) ActionRequest {
	req, _ := r.Explain(history)
	return req
}

// Explain is Respond plus the drop that fired, for journaling. The drop is
// zero-valued when not triggered.
func (r *Responder) Explain(history []Snapshot) (ActionRequest, Drop) {
	if len(history) < 2 {
		return ActionRequest{}, Drop{}
	}
	cur, prev := history[0], history[1]

	if drop, ok := dropBp(prev.Net(), cur.Net()); ok && drop >= r.thresholdBp {
		d := Drop{Source: SourcePosition, Bp: drop}
		return r.trigger(cur, d), d
	}
	if drop, ok := dropBp(prev.ReserveA, cur.ReserveA); ok && drop >= r.thresholdBp {
		d := Drop{Source: SourceReserveA, Bp: drop}
		return r.trigger(cur, d), d
	}
	if drop, ok := dropBp(prev.ReserveB, cur.ReserveB); ok && drop >= r.thresholdBp {
		d := Drop{Source: SourceReserveB, Bp: drop}
		return r.trigger(cur, d), d
	}
	return ActionRequest{}, Drop{}
}

func (r *Responder) trigger(cur Snapshot, drop Drop) ActionRequest {
	if !r.gate.Allow(drop, cur.ObservedAt, r.now()) {
		return ActionRequest{}
	}
	return ActionRequest{
		Triggered: true,
		Payload:   EncodeActionPayload(cur.Pool, new(big.Int)),
	}
}

// dropBp returns floor((prev-cur)*10000/prev) when prev > 0 and cur < prev.
// All arithmetic is integer.
func dropBp(prev, cur *big.Int) (int64, bool) {
	if prev.Sign() <= 0 || cur.Cmp(prev) >= 0 {
		return 0, false
	}
	diff := new(big.Int).Sub(prev, cur)
	diff.Mul(diff, big.NewInt(BpScale))
	diff.Quo(diff, prev)
	return diff.Int64(), true
}

// Action payload layout: pool as a left-padded 32-byte word, then the
// amount as a 32-byte word.
const actionPayloadLen = 64

var errShortActionPayload = errors.New("trap: action payload too short")

// EncodeActionPayload serializes the guard call parameters.
func EncodeActionPayload(pool evm.Address, amount *big.Int) []byte {
	out := make([]byte, actionPayloadLen)
	w := pool.Word()
	copy(out[0:32], w[:])
	putUintN(out[32:64], amount)
	return out
}

// DecodeActionPayload parses a payload produced by EncodeActionPayload.
func DecodeActionPayload(b []byte) (evm.Address, *big.Int, error) {
	if len(b) < actionPayloadLen {
		return evm.Address{}, nil, errShortActionPayload
	}
	var w evm.Word
	copy(w[:], b[0:32])
	return w.Address(), new(big.Int).SetBytes(b[32:64]), nil
}
