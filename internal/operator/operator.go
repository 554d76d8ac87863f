package operator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/wizzybrown/Drosera/internal/evm"
	"github.com/wizzybrown/Drosera/internal/guard"
	"github.com/wizzybrown/Drosera/internal/journal"
	pebblestore "github.com/wizzybrown/Drosera/internal/storage/pebble"
	"github.com/wizzybrown/Drosera/internal/trap"
	"github.com/wizzybrown/Drosera/pkg/id"
	logpkg "github.com/wizzybrown/Drosera/pkg/log"
)

// LogSource delivers one window of event records matching the given
// subscriptions: everything that arrived since the previous fetch.
type LogSource interface {
	FetchWindow(ctx context.Context, subs []evm.Subscription) ([]evm.EventRecord, error)
}

// Storage keys. History keeps the two snapshots the detector compares;
// the outbox holds triggered actions until the guard accepts them.
var (
	keyHistCur   = []byte("operator/hist/cur")
	keyHistPrev  = []byte("operator/hist/prev")
	outboxPrefix = []byte("operator/outbox/")
)

// Options configures an Operator.
type Options struct {
	Source    LogSource
	DB        *pebblestore.DB
	Journal   *journal.Journal
	Guard     *guard.Guard
	Collector *trap.Collector
	Responder *trap.Responder

	// Trigger is the identity the operator presents to the guard.
	Trigger evm.Address

	PollInterval  time.Duration
	DispatchRetry time.Duration
	Logger        logpkg.Logger
}

// Operator runs the collection loop: every poll interval it fetches one
// event window, folds it into a snapshot, advances the persisted two-deep
// history, and asks the detector whether to act. Triggered actions are
// staged in a durable outbox and delivered to the guard at least once.
type Operator struct {
	source    LogSource
	db        *pebblestore.DB
	journal   *journal.Journal
	guard     *guard.Guard
	collector *trap.Collector
	responder *trap.Responder
	trigger   evm.Address

	pollInterval  time.Duration
	dispatchRetry time.Duration
	logger        logpkg.Logger
	gen           *id.Generator
}

// New builds an Operator.
func New(opts Options) (*Operator, error) {
	if opts.Source == nil {
		return nil, errors.New("operator: Options.Source is required")
	}
	if opts.DB == nil || opts.Journal == nil || opts.Guard == nil {
		return nil, errors.New("operator: storage, journal, and guard are required")
	}
	if opts.Collector == nil || opts.Responder == nil {
		return nil, errors.New("operator: collector and responder are required")
	}
	if opts.Trigger.IsZero() {
		return nil, errors.New("operator: trigger identity is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 15 * time.Second
	}
	if opts.DispatchRetry <= 0 {
		opts.DispatchRetry = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &Operator{
		source:        opts.Source,
		db:            opts.DB,
		journal:       opts.Journal,
		guard:         opts.Guard,
		collector:     opts.Collector,
		responder:     opts.Responder,
		trigger:       opts.Trigger,
		pollInterval:  opts.PollInterval,
		dispatchRetry: opts.DispatchRetry,
		logger:        logger.WithComponent("operator"),
		gen:           id.NewGenerator(),
	}, nil
}

// Run drives collection rounds until ctx is cancelled. Pending outbox
// entries are redelivered on the retry interval between rounds.
func (o *Operator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()
	retry := time.NewTicker(o.dispatchRetry)
	defer retry.Stop()

	// Deliver anything left over from a previous process first.
	o.dispatchPending(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := o.runRound(ctx); err != nil {
				o.logger.Warn("collection round failed", logpkg.Err(err))
				continue
			}
			o.dispatchPending(ctx)
		case <-retry.C:
			o.dispatchPending(ctx)
		}
	}
}

// decision is the journal payload recorded for every trigger.
type decision struct {
	Source     trap.DropSource `json:"source"`
	DropBp     int64           `json:"dropBp"`
	ObservedMs int64           `json:"observedMs"`
}

// runRound executes one collect+respond round and persists its outcome
// atomically: history rotation, outbox entry, and decision record commit
// in a single batch or not at all.
func (o *Operator) runRound(ctx context.Context) error {
	records, err := o.source.FetchWindow(ctx, o.collector.Subscriptions())
	if err != nil {
		return err
	}
	snap := o.collector.Collect(records)

	history, err := o.History()
	if err != nil {
		return err
	}
	history = append([]trap.Snapshot{snap}, history...)
	if len(history) > 2 {
		history = history[:2]
	}
	req, drop := o.responder.Explain(history)

	b := o.db.NewBatch()
	defer b.Close()
	if err := b.Set(keyHistCur, trap.EncodeSnapshot(snap), nil); err != nil {
		return err
	}
	if len(history) > 1 {
		if err := b.Set(keyHistPrev, trap.EncodeSnapshot(history[1]), nil); err != nil {
			return err
		}
	}
	if req.Triggered {
		oid := o.gen.Next()
		if err := b.Set(append(append([]byte(nil), outboxPrefix...), oid[:]...), req.Payload, nil); err != nil {
			return err
		}
		payload, err := json.Marshal(decision{
			Source:     drop.Source,
			DropBp:     drop.Bp,
			ObservedMs: snap.ObservedAt.UnixMilli(),
		})
		if err != nil {
			return err
		}
		seq, err := o.journal.StageAppend(b, journal.KindDecision, payload)
		if err != nil {
			return err
		}
		if err := o.journal.CommitStaged(ctx, b, seq); err != nil {
			return err
		}
	} else if err := o.db.CommitBatch(ctx, b); err != nil {
		return err
	}

	if req.Triggered {
		o.logger.Warn("drop detected, response queued",
			logpkg.Str("source", string(drop.Source)),
			logpkg.Int64("drop_bp", drop.Bp),
		)
	} else {
		o.logger.Debug("round complete",
			logpkg.Int("records", len(records)),
			logpkg.Str("net", snap.Net().String()),
		)
	}
	return nil
}

// dispatchPending delivers outbox entries to the guard in order. An entry
// is removed on success or on a terminal rejection; transient failures
// leave it in place for the next retry.
func (o *Operator) dispatchPending(ctx context.Context) {
	entries, err := o.pendingEntries()
	if err != nil {
		o.logger.Error("outbox scan failed", logpkg.Err(err))
		return
	}
	for _, e := range entries {
		pool, amount, err := trap.DecodeActionPayload(e.payload)
		if err != nil {
			o.logger.Error("dropping malformed outbox entry", logpkg.Err(err))
			_ = o.db.Delete(e.key)
			continue
		}
		_, err = o.guard.EmergencyWithdraw(ctx, o.trigger, pool, amount)
		switch {
		case err == nil:
			o.logger.Info("response delivered", logpkg.Str("pool", pool.Hex()))
			_ = o.db.Delete(e.key)
		case errors.Is(err, guard.ErrInsufficientFunds), errors.Is(err, guard.ErrInvalidArgument):
			// Position already exited, or the request can never succeed.
			o.logger.Info("response already satisfied", logpkg.Err(err))
			_ = o.db.Delete(e.key)
		default:
			o.logger.Warn("response delivery failed, will retry", logpkg.Err(err))
			return
		}
	}
}

type outboxEntry struct {
	key     []byte
	payload []byte
}

func (o *Operator) pendingEntries() ([]outboxEntry, error) {
	hi := append(append([]byte(nil), outboxPrefix...), 0xff)
	iter, err := o.db.NewIter(&pebble.IterOptions{LowerBound: outboxPrefix, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []outboxEntry
	for iter.First(); iter.Valid(); iter.Next() {
		out = append(out, outboxEntry{
			key:     append([]byte(nil), iter.Key()...),
			payload: append([]byte(nil), iter.Value()...),
		})
	}
	return out, nil
}

// Pending returns the number of undelivered responses.
func (o *Operator) Pending() (int, error) {
	entries, err := o.pendingEntries()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// History returns the persisted snapshot history, most recent first.
func (o *Operator) History() ([]trap.Snapshot, error) {
	var out []trap.Snapshot
	for _, key := range [][]byte{keyHistCur, keyHistPrev} {
		raw, err := o.db.Get(key)
		if errors.Is(err, pebblestore.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		snap, err := trap.DecodeSnapshot(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}
