package trap

import (
	"math/big"
	"time"

	"github.com/wizzybrown/Drosera/internal/evm"
)

// Signature names one event kind and its precomputed topic-0 word.
type Signature struct {
	Name  string
	Topic evm.Word
}

// Config fixes the identities and event signatures a Collector watches.
// Immutable after construction.
type Config struct {
	Pool      evm.Address
	Monitored evm.Address

	// Inflow/Outflow are the liquidity add/remove events attributable to
	// the monitored identity; Sync is the actor-less reserve report.
	Inflow  Signature
	Outflow Signature
	Sync    Signature
}

// Collector folds a window of event records into one Snapshot. It holds no
// state across calls.
type Collector struct {
	cfg Config
	now func() time.Time
}

// NewCollector builds a Collector for the given configuration.
func NewCollector(cfg Config) *Collector {
	return &Collector{cfg: cfg, now: time.Now}
}

// Subscriptions returns the fixed list of emitter+event pairs the log feed
// must deliver: inflow, outflow, and reserve-sync, all scoped to the pool.
func (c *Collector) Subscriptions() []evm.Subscription {
	return []evm.Subscription{
		{Target: c.cfg.Pool, Signature: c.cfg.Inflow.Name, Topic: c.cfg.Inflow.Topic},
		{Target: c.cfg.Pool, Signature: c.cfg.Outflow.Name, Topic: c.cfg.Outflow.Topic},
		{Target: c.cfg.Pool, Signature: c.cfg.Sync.Name, Topic: c.cfg.Sync.Topic},
	}
}

// Collect produces exactly one Snapshot from the delivered window, in
// delivery order. An empty window yields a zero snapshot. Malformed records
// are skipped, never fatal. No side effects.
func (c *Collector) Collect(records []evm.EventRecord) Snapshot {
	snap := NewSnapshot(c.cfg.Monitored, c.cfg.Pool)
	for _, rec := range records {
		if rec.Emitter != c.cfg.Pool {
			continue
		}
		switch rec.Topic0() {
		case c.cfg.Inflow.Topic:
			if c.actorIsMonitored(rec) {
				addMagnitudes(snap.Inflow, rec)
			}
		case c.cfg.Outflow.Topic:
			if c.actorIsMonitored(rec) {
				addMagnitudes(snap.Outflow, rec)
			}
		case c.cfg.Sync.Topic:
			// No actor on sync events; last occurrence wins.
			words := rec.PayloadWords()
			if len(words) < 2 {
				continue
			}
			snap.ReserveA = words[0].Uint112()
			snap.ReserveB = words[1].Uint112()
		}
	}
	snap.ObservedAt = c.now()
	return snap
}

// actorIsMonitored checks the identity encoded in the first topic slot
// after the signature word.
func (c *Collector) actorIsMonitored(rec evm.EventRecord) bool {
	if len(rec.Topics) < 2 {
		return false
	}
	return rec.Topics[1].Address() == c.cfg.Monitored
}

// addMagnitudes folds every declared 256-bit magnitude in the payload into
// total.
func addMagnitudes(total *big.Int, rec evm.EventRecord) {
	for _, w := range rec.PayloadWords() {
		total.Add(total, w.Big())
	}
}
