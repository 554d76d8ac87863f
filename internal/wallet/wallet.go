package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/wizzybrown/Drosera/internal/evm"
	"github.com/wizzybrown/Drosera/internal/guard"
	logpkg "github.com/wizzybrown/Drosera/pkg/log"
)

// HTTPWallet submits asset movements to an external signer daemon over
// JSON. The daemon owns the keys; this process only requests actions.
type HTTPWallet struct {
	baseURL string
	client  *http.Client
}

// NewHTTPWallet builds a wallet client for the given signer base URL.
func NewHTTPWallet(baseURL string) *HTTPWallet {
	return &HTTPWallet{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type transferReq struct {
	Token  evm.Address `json:"token"`
	To     evm.Address `json:"to"`
	Amount string      `json:"amount"`
}

type redeemReq struct {
	Pool evm.Address `json:"pool"`
}

type redeemResp struct {
	TokenA  evm.Address `json:"tokenA"`
	TokenB  evm.Address `json:"tokenB"`
	AmountA string      `json:"amountA"`
	AmountB string      `json:"amountB"`
}

// Transfer moves amount of token to the destination.
func (w *HTTPWallet) Transfer(ctx context.Context, token, to evm.Address, amount *big.Int) error {
	return w.post(ctx, "/v1/transfer", transferReq{Token: token, To: to, Amount: amount.String()}, nil)
}

// Redeem burns the pool shares held by the signer against the pool and
// reports the returned assets.
func (w *HTTPWallet) Redeem(ctx context.Context, pool evm.Address) (guard.RedeemResult, error) {
	var resp redeemResp
	if err := w.post(ctx, "/v1/redeem", redeemReq{Pool: pool}, &resp); err != nil {
		return guard.RedeemResult{}, err
	}
	amountA, ok := new(big.Int).SetString(resp.AmountA, 10)
	if !ok {
		return guard.RedeemResult{}, fmt.Errorf("wallet: bad amountA %q", resp.AmountA)
	}
	amountB, ok := new(big.Int).SetString(resp.AmountB, 10)
	if !ok {
		return guard.RedeemResult{}, fmt.Errorf("wallet: bad amountB %q", resp.AmountB)
	}
	return guard.RedeemResult{TokenA: resp.TokenA, TokenB: resp.TokenB, AmountA: amountA, AmountB: amountB}, nil
}

// TransferNative moves native funds to the destination.
func (w *HTTPWallet) TransferNative(ctx context.Context, to evm.Address, amount *big.Int) error {
	return w.post(ctx, "/v1/transfer_native", transferReq{To: to, Amount: amount.String()}, nil)
}

func (w *HTTPWallet) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("wallet: signer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// DryRun is a wallet that performs nothing and reports empty redemptions.
// Used when no signer is configured, so drills exercise the full decision
// and custody path without moving funds.
type DryRun struct {
	logger logpkg.Logger
}

// NewDryRun builds a dry-run wallet.
func NewDryRun(logger logpkg.Logger) *DryRun {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &DryRun{logger: logger.WithComponent("wallet")}
}

func (d *DryRun) Transfer(_ context.Context, token, to evm.Address, amount *big.Int) error {
	d.logger.Info("dry-run transfer",
		logpkg.Str("token", token.Hex()),
		logpkg.Str("to", to.Hex()),
		logpkg.Str("amount", amount.String()),
	)
	return nil
}

func (d *DryRun) Redeem(_ context.Context, pool evm.Address) (guard.RedeemResult, error) {
	d.logger.Info("dry-run redeem", logpkg.Str("pool", pool.Hex()))
	return guard.RedeemResult{AmountA: new(big.Int), AmountB: new(big.Int)}, nil
}

func (d *DryRun) TransferNative(_ context.Context, to evm.Address, amount *big.Int) error {
	d.logger.Info("dry-run native transfer",
		logpkg.Str("to", to.Hex()),
		logpkg.Str("amount", amount.String()),
	)
	return nil
}
