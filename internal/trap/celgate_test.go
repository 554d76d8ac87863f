package trap

import (
	"testing"
	"time"
)

func TestCELGateDisabledAllowsAll(t *testing.T) {
	g, err := newCELGate("")
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	if !g.Allow(Drop{Source: SourcePosition, Bp: 9999}, time.Now(), time.Now()) {
		t.Fatalf("disabled gate must allow")
	}
}

func TestCELGateVetoesTrigger(t *testing.T) {
	r, err := NewResponder(0, `drop_bp >= 8000`)
	if err != nil {
		t.Fatalf("new responder: %v", err)
	}
	prev := snap(t, 1000, 0, 0, 0)
	cur := snap(t, 1000, 600, 0, 0) // 60% drop, below the 80% rule
	if req := r.Respond([]Snapshot{cur, prev}); req.Triggered {
		t.Fatalf("rule should veto a 6000 bp drop")
	}
	cur = snap(t, 1000, 900, 0, 0) // 90% drop
	if req := r.Respond([]Snapshot{cur, prev}); !req.Triggered {
		t.Fatalf("rule should pass a 9000 bp drop")
	}
}

func TestCELGateRejectsBadExpression(t *testing.T) {
	if _, err := NewResponder(0, `drop_bp +`); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestCELGateFailsClosedOnNonBool(t *testing.T) {
	g, err := newCELGate(`drop_bp`)
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	if g.Allow(Drop{Bp: 5000}, time.Now(), time.Now()) {
		t.Fatalf("non-bool result must fail closed")
	}
}

func TestCELGateClockRuleIsDeterministic(t *testing.T) {
	// A rule over now_ms sees the injected clock, not the wall clock, so
	// the same history gives the same answer on every evaluation.
	r, err := NewResponder(0, `now_ms - observed_at_ms < 60000`)
	if err != nil {
		t.Fatalf("new responder: %v", err)
	}
	fixed := time.UnixMilli(1_700_000_000_000)
	r.now = func() time.Time { return fixed }

	prev := snap(t, 1000, 0, 0, 0)
	cur := snap(t, 1000, 900, 0, 0)
	cur.ObservedAt = fixed.Add(-30 * time.Second)
	for i := 0; i < 3; i++ {
		if req := r.Respond([]Snapshot{cur, prev}); !req.Triggered {
			t.Fatalf("fresh snapshot must trigger (iteration %d)", i)
		}
	}

	cur.ObservedAt = fixed.Add(-2 * time.Minute)
	if req := r.Respond([]Snapshot{cur, prev}); req.Triggered {
		t.Fatalf("stale snapshot must be vetoed")
	}
}
