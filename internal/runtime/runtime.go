package runtime

import (
	"context"
	"errors"
	"time"

	cfgpkg "github.com/wizzybrown/Drosera/internal/config"
	"github.com/wizzybrown/Drosera/internal/guard"
	"github.com/wizzybrown/Drosera/internal/journal"
	pebblestore "github.com/wizzybrown/Drosera/internal/storage/pebble"
	"github.com/wizzybrown/Drosera/internal/trap"
	logpkg "github.com/wizzybrown/Drosera/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Resolved
	Wallet        guard.Wallet
	Logger        logpkg.Logger
}

// Runtime wires storage, config, and the core components for a single-node
// instance: the journal, the guard, and the decision engine.
type Runtime struct {
	db        *pebblestore.DB
	config    cfgpkg.Resolved
	journal   *journal.Journal
	guard     *guard.Guard
	collector *trap.Collector
	responder *trap.Responder
}

// Open initializes storage and the core components.
func Open(opts Options) (*Runtime, error) {
	if opts.Wallet == nil {
		return nil, errors.New("runtime: Options.Wallet is required")
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
	})
	if err != nil {
		return nil, err
	}

	j, err := journal.Open(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	g, err := guard.Open(db, j, opts.Wallet, opts.Config.Owner, opts.Config.Trigger, opts.Logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	responder, err := trap.NewResponder(opts.Config.ThresholdBp, opts.Config.ResponseRule)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Runtime{
		db:        db,
		config:    opts.Config,
		journal:   j,
		guard:     g,
		collector: trap.NewCollector(opts.Config.Trap),
		responder: responder,
	}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple storage health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// DB exposes the underlying store (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the resolved runtime configuration.
func (r *Runtime) Config() cfgpkg.Resolved { return r.config }

// Journal returns the shared action journal.
func (r *Runtime) Journal() *journal.Journal { return r.journal }

// Guard returns the withdrawal guard.
func (r *Runtime) Guard() *guard.Guard { return r.guard }

// Collector returns the snapshot aggregator.
func (r *Runtime) Collector() *trap.Collector { return r.collector }

// Responder returns the drop detector.
func (r *Runtime) Responder() *trap.Responder { return r.responder }
