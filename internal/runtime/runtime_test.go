package runtime

import (
	"context"
	"math/big"
	"testing"

	cfgpkg "github.com/wizzybrown/Drosera/internal/config"
	"github.com/wizzybrown/Drosera/internal/evm"
	"github.com/wizzybrown/Drosera/internal/guard"
)

type nopWallet struct{}

func (nopWallet) Transfer(_ context.Context, _, _ evm.Address, _ *big.Int) error { return nil }
func (nopWallet) Redeem(_ context.Context, _ evm.Address) (guard.RedeemResult, error) {
	return guard.RedeemResult{AmountA: new(big.Int), AmountB: new(big.Int)}, nil
}
func (nopWallet) TransferNative(_ context.Context, _ evm.Address, _ *big.Int) error { return nil }

func testConfig() cfgpkg.Resolved {
	addr := func(b byte) evm.Address {
		var a evm.Address
		a[19] = b
		return a
	}
	return cfgpkg.Resolved{
		Pool:      addr(0xbb),
		Monitored: addr(0xaa),
		Owner:     addr(0x01),
		Trigger:   addr(0x02),
	}
}

func TestOpenWiresComponents(t *testing.T) {
	rt, err := Open(Options{DataDir: t.TempDir(), Config: testConfig(), Wallet: nopWallet{}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	if rt.Guard() == nil || rt.Journal() == nil || rt.Collector() == nil || rt.Responder() == nil {
		t.Fatalf("components not wired")
	}
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if got := rt.Guard().State().Owner; got != testConfig().Owner {
		t.Fatalf("guard owner = %s", got.Hex())
	}
}

func TestOpenRequiresWallet(t *testing.T) {
	if _, err := Open(Options{DataDir: t.TempDir(), Config: testConfig()}); err == nil {
		t.Fatalf("expected error without wallet")
	}
}
