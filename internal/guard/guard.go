package guard

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/wizzybrown/Drosera/internal/evm"
	"github.com/wizzybrown/Drosera/internal/journal"
	pebblestore "github.com/wizzybrown/Drosera/internal/storage/pebble"
	logpkg "github.com/wizzybrown/Drosera/pkg/log"
)

// Guard holds custody of pool share tokens and executes the emergency
// withdrawal under strict authorization and a kill-switch.
//
// Every mutating operation runs under one exclusive lock and commits all of
// its effects in a single Pebble batch, or fails with no effect at all.
type Guard struct {
	db      *pebblestore.DB
	journal *journal.Journal
	wallet  Wallet
	logger  logpkg.Logger

	mu    sync.Mutex
	state State
}

// Open loads or initializes a Guard. On first open the state is seeded
// Active with the given owner and trigger; on later opens owner/trigger
// arguments are ignored in favor of the persisted state.
func Open(db *pebblestore.DB, j *journal.Journal, w Wallet, owner, trigger evm.Address, logger logpkg.Logger) (*Guard, error) {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	g := &Guard{db: db, journal: j, wallet: w, logger: logger.WithComponent("guard")}

	st, found, err := loadState(db)
	if err != nil {
		return nil, err
	}
	if found {
		g.state = st
		return g, nil
	}
	if owner.IsZero() || trigger.IsZero() {
		return nil, ErrInvalidArgument
	}
	g.state = State{Owner: owner, Trigger: trigger, Paused: false}
	b := db.NewBatch()
	defer b.Close()
	if err := stageState(b, g.state); err != nil {
		return nil, err
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		return nil, err
	}
	return g, nil
}

// State returns a copy of the current authorization state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Balance returns the held balance of an asset. The zero address reads the
// native balance.
func (g *Guard) Balance(token evm.Address) (*big.Int, error) {
	if token.IsZero() {
		return loadBalance(g.db, keyNativeBalance())
	}
	return loadBalance(g.db, keyBalance(token))
}

// WithdrawalReceipt reports a completed emergency withdrawal.
type WithdrawalReceipt struct {
	Pool      evm.Address `json:"pool"`
	Amount    *big.Int    `json:"amount"`
	RedeemedA *big.Int    `json:"redeemedA"`
	RedeemedB *big.Int    `json:"redeemedB"`
	Seq       uint64      `json:"seq"`
}

// EmergencyWithdraw exits the held share position of pool. Callable by
// owner or trigger only; blocked while paused. amount 0 withdraws the full
// held balance. The share transfer and redemption both happen before any
// state change commits, so a failed external call aborts atomically.
//
// A second call after a full withdrawal fails with ErrInsufficientFunds,
// which makes at-least-once trigger delivery safe without deduplication.
func (g *Guard) EmergencyWithdraw(ctx context.Context, caller, pool evm.Address, amount *big.Int) (WithdrawalReceipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.state.Owner && caller != g.state.Trigger {
		return WithdrawalReceipt{}, ErrUnauthorized
	}
	if g.state.Paused {
		return WithdrawalReceipt{}, ErrHalted
	}
	if pool.IsZero() {
		return WithdrawalReceipt{}, ErrInvalidArgument
	}
	if amount == nil {
		amount = new(big.Int)
	}

	// The pool's share token is the pool identity itself.
	balKey := keyBalance(pool)
	balance, err := loadBalance(g.db, balKey)
	if err != nil {
		return WithdrawalReceipt{}, err
	}
	if balance.Sign() == 0 {
		return WithdrawalReceipt{}, ErrInsufficientFunds
	}
	effective := amount
	if effective.Sign() == 0 {
		effective = balance
	}
	if effective.Cmp(balance) > 0 {
		return WithdrawalReceipt{}, ErrInsufficientFunds
	}

	// External calls: share transfer to the pool, then redemption. Nothing
	// is persisted until both succeed.
	if err := g.wallet.Transfer(ctx, pool, pool, effective); err != nil {
		return WithdrawalReceipt{}, err
	}
	res, err := g.wallet.Redeem(ctx, pool)
	if err != nil {
		return WithdrawalReceipt{}, err
	}

	// Fold the share debit and redeemed credits per asset before staging:
	// a redemption may report the same token on both legs, or the share
	// token itself, and each key must be staged exactly once.
	deltas := map[evm.Address]*big.Int{pool: new(big.Int).Neg(effective)}
	addDelta(deltas, res.TokenA, res.AmountA)
	addDelta(deltas, res.TokenB, res.AmountB)

	b := g.db.NewBatch()
	defer b.Close()
	for token, delta := range deltas {
		if err := g.stageDelta(b, token, delta); err != nil {
			return WithdrawalReceipt{}, err
		}
	}

	receipt := WithdrawalReceipt{Pool: pool, Amount: effective, RedeemedA: res.AmountA, RedeemedB: res.AmountB}
	payload, err := json.Marshal(receipt)
	if err != nil {
		return WithdrawalReceipt{}, err
	}
	seq, err := g.journal.StageAppend(b, journal.KindWithdrawal, payload)
	if err != nil {
		return WithdrawalReceipt{}, err
	}
	if err := g.journal.CommitStaged(ctx, b, seq); err != nil {
		return WithdrawalReceipt{}, err
	}
	receipt.Seq = seq

	g.logger.Info("emergency withdrawal executed",
		logpkg.Str("pool", pool.Hex()),
		logpkg.Str("amount", effective.String()),
		logpkg.Uint64("seq", seq),
	)
	return receipt, nil
}

// WithdrawToken is the owner-only recovery sweep of an arbitrary held
// asset. amount 0 sweeps the full balance.
func (g *Guard) WithdrawToken(ctx context.Context, caller, token, to evm.Address, amount *big.Int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.state.Owner {
		return ErrUnauthorized
	}
	if token.IsZero() || to.IsZero() {
		return ErrInvalidArgument
	}
	if amount == nil {
		amount = new(big.Int)
	}

	balKey := keyBalance(token)
	balance, err := loadBalance(g.db, balKey)
	if err != nil {
		return err
	}
	effective := amount
	if effective.Sign() == 0 {
		effective = balance
	}
	if effective.Sign() == 0 || effective.Cmp(balance) > 0 {
		return ErrInsufficientFunds
	}

	if err := g.wallet.Transfer(ctx, token, to, effective); err != nil {
		return err
	}

	b := g.db.NewBatch()
	defer b.Close()
	if err := stageBalance(b, balKey, new(big.Int).Sub(balance, effective)); err != nil {
		return err
	}
	seq, err := g.stageSweepRecord(b, token, to, effective)
	if err != nil {
		return err
	}
	if err := g.journal.CommitStaged(ctx, b, seq); err != nil {
		return err
	}
	g.logger.Info("token sweep executed", logpkg.Str("token", token.Hex()), logpkg.Str("amount", effective.String()))
	return nil
}

// WithdrawNative is the owner-only recovery sweep of the full held native
// balance.
func (g *Guard) WithdrawNative(ctx context.Context, caller, to evm.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.state.Owner {
		return ErrUnauthorized
	}
	if to.IsZero() {
		return ErrInvalidArgument
	}

	balance, err := loadBalance(g.db, keyNativeBalance())
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		return ErrInsufficientFunds
	}

	if err := g.wallet.TransferNative(ctx, to, balance); err != nil {
		return err
	}

	b := g.db.NewBatch()
	defer b.Close()
	if err := stageBalance(b, keyNativeBalance(), new(big.Int)); err != nil {
		return err
	}
	seq, err := g.stageSweepRecord(b, evm.ZeroAddress, to, balance)
	if err != nil {
		return err
	}
	if err := g.journal.CommitStaged(ctx, b, seq); err != nil {
		return err
	}
	g.logger.Info("native sweep executed", logpkg.Str("amount", balance.String()))
	return nil
}

// Credit is the owner-only custody reconciliation: it records amount of
// token as held by the guard. The zero address credits the native balance.
func (g *Guard) Credit(ctx context.Context, caller, token evm.Address, amount *big.Int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.state.Owner {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidArgument
	}

	key := keyNativeBalance()
	if !token.IsZero() {
		key = keyBalance(token)
	}
	balance, err := loadBalance(g.db, key)
	if err != nil {
		return err
	}

	b := g.db.NewBatch()
	defer b.Close()
	if err := stageBalance(b, key, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]string{"token": token.Hex(), "amount": amount.String()})
	if err != nil {
		return err
	}
	seq, err := g.journal.StageAppend(b, journal.KindCredit, payload)
	if err != nil {
		return err
	}
	return g.journal.CommitStaged(ctx, b, seq)
}

// SetPaused toggles the kill-switch. Owner-only. Pausing gates only the
// protected withdrawal; administrative operations stay available.
func (g *Guard) SetPaused(ctx context.Context, caller evm.Address, paused bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.state.Owner {
		return ErrUnauthorized
	}
	next := g.state
	next.Paused = paused
	payload, err := json.Marshal(map[string]bool{"paused": paused})
	if err != nil {
		return err
	}
	if err := g.commitState(ctx, next, journal.KindPauseChange, payload); err != nil {
		return err
	}
	g.logger.Info("pause state changed", logpkg.Bool("paused", paused))
	return nil
}

// SetTrigger rotates the single authorized non-owner caller. Owner-only.
func (g *Guard) SetTrigger(ctx context.Context, caller, trigger evm.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.state.Owner {
		return ErrUnauthorized
	}
	if trigger.IsZero() {
		return ErrInvalidArgument
	}
	next := g.state
	next.Trigger = trigger
	payload, err := json.Marshal(map[string]string{"trigger": trigger.Hex()})
	if err != nil {
		return err
	}
	if err := g.commitState(ctx, next, journal.KindTriggerRotation, payload); err != nil {
		return err
	}
	g.logger.Info("trigger rotated", logpkg.Str("trigger", trigger.Hex()))
	return nil
}

// TransferOwnership hands the guard to a new owner. Owner-only; the old
// owner immediately loses all owner rights.
func (g *Guard) TransferOwnership(ctx context.Context, caller, owner evm.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.state.Owner {
		return ErrUnauthorized
	}
	if owner.IsZero() {
		return ErrInvalidArgument
	}
	next := g.state
	next.Owner = owner
	payload, err := json.Marshal(map[string]string{"owner": owner.Hex()})
	if err != nil {
		return err
	}
	if err := g.commitState(ctx, next, journal.KindOwnershipChange, payload); err != nil {
		return err
	}
	g.logger.Info("ownership transferred", logpkg.Str("owner", owner.Hex()))
	return nil
}

// commitState persists next together with its journal record and only then
// updates the in-memory state.
func (g *Guard) commitState(ctx context.Context, next State, kind journal.Kind, payload []byte) error {
	b := g.db.NewBatch()
	defer b.Close()
	if err := stageState(b, next); err != nil {
		return err
	}
	seq, err := g.journal.StageAppend(b, kind, payload)
	if err != nil {
		return err
	}
	if err := g.journal.CommitStaged(ctx, b, seq); err != nil {
		return err
	}
	g.state = next
	return nil
}

// addDelta folds amount of token into deltas. Nil or zero amounts and the
// zero address are ignored.
func addDelta(deltas map[evm.Address]*big.Int, token evm.Address, amount *big.Int) {
	if token.IsZero() || amount == nil || amount.Sign() == 0 {
		return
	}
	if d, ok := deltas[token]; ok {
		d.Add(d, amount)
		return
	}
	deltas[token] = new(big.Int).Set(amount)
}

// stageDelta stages token's balance adjusted by delta.
func (g *Guard) stageDelta(b *pebble.Batch, token evm.Address, delta *big.Int) error {
	key := keyBalance(token)
	balance, err := loadBalance(g.db, key)
	if err != nil {
		return err
	}
	return stageBalance(b, key, balance.Add(balance, delta))
}

// stageSweepRecord journals a recovery sweep and returns its sequence. The
// zero token address marks a native sweep.
func (g *Guard) stageSweepRecord(b *pebble.Batch, token, to evm.Address, amount *big.Int) (uint64, error) {
	payload, err := json.Marshal(map[string]string{
		"token":  token.Hex(),
		"to":     to.Hex(),
		"amount": amount.String(),
	})
	if err != nil {
		return 0, err
	}
	return g.journal.StageAppend(b, journal.KindSweep, payload)
}
