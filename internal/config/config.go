package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wizzybrown/Drosera/internal/evm"
	"github.com/wizzybrown/Drosera/internal/trap"
)

// Uniswap V2 pair event signatures, the default subscription set.
const (
	DefaultInflowSignature  = "Mint(address,uint256,uint256)"
	DefaultOutflowSignature = "Burn(address,uint256,uint256,address)"
	DefaultSyncSignature    = "Sync(uint112,uint112)"

	defaultInflowTopic  = "0x4c209b5fc8ad50758f13e2e1088ba56a560dff690a1c6fef26394f4c03821c4f"
	defaultOutflowTopic = "0xdccd412f0b1252819cb1fd330b93224ca42612892bb3f4f789976e6d81936496"
	defaultSyncTopic    = "0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1"
)

// Event names one event signature and its topic-0 word in hex.
type Event struct {
	Signature string `json:"signature" yaml:"signature"`
	Topic     string `json:"topic" yaml:"topic"`
}

// Events is the subscription declaration for the monitored pool.
type Events struct {
	Inflow  Event `json:"inflow" yaml:"inflow"`
	Outflow Event `json:"outflow" yaml:"outflow"`
	Sync    Event `json:"sync" yaml:"sync"`
}

// Operator configures the polling collaborator.
type Operator struct {
	// FeedURL is the HTTP log feed base URL.
	FeedURL string `json:"feedUrl" yaml:"feedUrl"`
	// PollIntervalMs is the collection round interval.
	PollIntervalMs int `json:"pollIntervalMs" yaml:"pollIntervalMs"`
	// DispatchRetryMs is the delay before redelivering a pending action.
	DispatchRetryMs int `json:"dispatchRetryMs" yaml:"dispatchRetryMs"`
}

// Wallet configures the external signer daemon. An empty URL selects the
// dry-run wallet.
type Wallet struct {
	URL string `json:"url" yaml:"url"`
}

// Config is the top-level configuration loaded from file/env. Pool and
// monitored identities are immutable after construction; only the trigger
// is rotatable post-deployment (through the guard, not through config).
type Config struct {
	// Pool is the monitored liquidity pool identity.
	Pool string `json:"pool" yaml:"pool"`
	// Monitored is the identity whose pool share is watched.
	Monitored string `json:"monitored" yaml:"monitored"`
	// Owner seeds the guard owner on first start.
	Owner string `json:"owner" yaml:"owner"`
	// Trigger seeds the guard's authorized operator identity on first start.
	Trigger string `json:"trigger" yaml:"trigger"`

	// ThresholdBp is the inclusive drop threshold in basis points.
	ThresholdBp int64 `json:"thresholdBp" yaml:"thresholdBp"`
	// ResponseRule is an optional CEL expression gating triggers.
	ResponseRule string `json:"responseRule" yaml:"responseRule"`

	Events   Events   `json:"events" yaml:"events"`
	Operator Operator `json:"operator" yaml:"operator"`
	Wallet   Wallet   `json:"wallet" yaml:"wallet"`
}

// Default returns built-in defaults. Identities have no sane defaults and
// must come from file, env, or flags.
func Default() Config {
	return Config{
		ThresholdBp: trap.DefaultThresholdBp,
		Events: Events{
			Inflow:  Event{Signature: DefaultInflowSignature, Topic: defaultInflowTopic},
			Outflow: Event{Signature: DefaultOutflowSignature, Topic: defaultOutflowTopic},
			Sync:    Event{Signature: DefaultSyncSignature, Topic: defaultSyncTopic},
		},
		Operator: Operator{
			PollIntervalMs:  15000,
			DispatchRetryMs: 5000,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// Resolved is the parsed, typed view of Config consumed by the runtime.
type Resolved struct {
	Pool      evm.Address
	Monitored evm.Address
	Owner     evm.Address
	Trigger   evm.Address

	ThresholdBp  int64
	ResponseRule string

	Trap trap.Config

	FeedURL       string
	WalletURL     string
	PollInterval  time.Duration
	DispatchRetry time.Duration
}

// Resolve validates and parses the configuration.
func (c Config) Resolve() (Resolved, error) {
	var r Resolved
	var err error

	if r.Pool, err = requireAddress("pool", c.Pool); err != nil {
		return Resolved{}, err
	}
	if r.Monitored, err = requireAddress("monitored", c.Monitored); err != nil {
		return Resolved{}, err
	}
	if r.Owner, err = requireAddress("owner", c.Owner); err != nil {
		return Resolved{}, err
	}
	if r.Trigger, err = requireAddress("trigger", c.Trigger); err != nil {
		return Resolved{}, err
	}

	inflow, err := parseSignature(c.Events.Inflow)
	if err != nil {
		return Resolved{}, fmt.Errorf("config: inflow event: %w", err)
	}
	outflow, err := parseSignature(c.Events.Outflow)
	if err != nil {
		return Resolved{}, fmt.Errorf("config: outflow event: %w", err)
	}
	sync, err := parseSignature(c.Events.Sync)
	if err != nil {
		return Resolved{}, fmt.Errorf("config: sync event: %w", err)
	}

	r.ThresholdBp = c.ThresholdBp
	r.ResponseRule = c.ResponseRule
	r.Trap = trap.Config{
		Pool:      r.Pool,
		Monitored: r.Monitored,
		Inflow:    inflow,
		Outflow:   outflow,
		Sync:      sync,
	}
	r.FeedURL = c.Operator.FeedURL
	r.WalletURL = c.Wallet.URL
	r.PollInterval = time.Duration(c.Operator.PollIntervalMs) * time.Millisecond
	r.DispatchRetry = time.Duration(c.Operator.DispatchRetryMs) * time.Millisecond
	return r, nil
}

func requireAddress(field, v string) (evm.Address, error) {
	if v == "" {
		return evm.Address{}, fmt.Errorf("config: %s identity is required", field)
	}
	a, err := evm.ParseAddress(v)
	if err != nil {
		return evm.Address{}, fmt.Errorf("config: %s: %w", field, err)
	}
	if a.IsZero() {
		return evm.Address{}, fmt.Errorf("config: %s identity is null", field)
	}
	return a, nil
}

func parseSignature(e Event) (trap.Signature, error) {
	if e.Signature == "" || e.Topic == "" {
		return trap.Signature{}, errors.New("signature and topic are required")
	}
	w, err := evm.ParseWord(e.Topic)
	if err != nil {
		return trap.Signature{}, err
	}
	return trap.Signature{Name: e.Signature, Topic: w}, nil
}
