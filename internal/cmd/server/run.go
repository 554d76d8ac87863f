package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/wizzybrown/Drosera/internal/config"
	"github.com/wizzybrown/Drosera/internal/guard"
	"github.com/wizzybrown/Drosera/internal/operator"
	"github.com/wizzybrown/Drosera/internal/runtime"
	httpserver "github.com/wizzybrown/Drosera/internal/server/http"
	pebblestore "github.com/wizzybrown/Drosera/internal/storage/pebble"
	"github.com/wizzybrown/Drosera/internal/wallet"
	logpkg "github.com/wizzybrown/Drosera/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Run starts the operator loop and HTTP server and blocks until ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}

	resolved, err := opts.Config.Resolve()
	if err != nil {
		return err
	}

	// Process-wide logger from env; defaults: level=info, format=text.
	logCfg := &logpkg.Config{
		Level:  getenvDefault("DROSERA_LOG_LEVEL", "info"),
		Format: getenvDefault("DROSERA_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(logCfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(logCfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g. Pebble) to our logger.
	logpkg.RedirectStdLog(procLogger)

	var w guard.Wallet
	if resolved.WalletURL != "" {
		w = wallet.NewHTTPWallet(resolved.WalletURL)
	} else {
		procLogger.Warn("no signer configured, running with dry-run wallet")
		w = wallet.NewDryRun(procLogger)
	}

	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{
		DataDir:       storeDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        resolved,
		Wallet:        w,
		Logger:        procLogger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger.Info("Starting Drosera server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("pool", resolved.Pool.Hex()),
		logpkg.Str("monitored", resolved.Monitored.Hex()),
		logpkg.Int64("threshold_bp", resolved.ThresholdBp),
		logpkg.Str("feed", resolved.FeedURL),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
	)

	var wg sync.WaitGroup
	var op *operator.Operator
	if resolved.FeedURL != "" {
		op, err = operator.New(operator.Options{
			Source:        operator.NewHTTPFeed(resolved.FeedURL),
			DB:            rt.DB(),
			Journal:       rt.Journal(),
			Guard:         rt.Guard(),
			Collector:     rt.Collector(),
			Responder:     rt.Responder(),
			Trigger:       resolved.Trigger,
			PollInterval:  resolved.PollInterval,
			DispatchRetry: resolved.DispatchRetry,
			Logger:        procLogger,
		})
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := op.Run(sctx); err != nil && sctx.Err() == nil {
				procLogger.Error("operator stopped", logpkg.Err(err))
			}
		}()
	} else {
		procLogger.Warn("no feed configured, monitoring loop disabled")
	}

	hsrv := httpserver.New(rt, op)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server stopped", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	// Shut servers down before closing the runtime/DB to avoid races.
	hsrv.Close()
	wg.Wait()
	return nil
}
