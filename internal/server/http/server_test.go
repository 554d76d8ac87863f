package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cfgpkg "github.com/wizzybrown/Drosera/internal/config"
	"github.com/wizzybrown/Drosera/internal/evm"
	"github.com/wizzybrown/Drosera/internal/guard"
	"github.com/wizzybrown/Drosera/internal/runtime"
)

var (
	testPool    = addr(0xbb)
	testOwner   = addr(0x01)
	testTrigger = addr(0x02)
	otherParty  = addr(0x99)
)

func addr(b byte) evm.Address {
	var a evm.Address
	a[19] = b
	return a
}

type stubWallet struct{}

func (stubWallet) Transfer(_ context.Context, _, _ evm.Address, _ *big.Int) error { return nil }
func (stubWallet) Redeem(_ context.Context, _ evm.Address) (guard.RedeemResult, error) {
	return guard.RedeemResult{TokenA: addr(0xc1), TokenB: addr(0xc2), AmountA: big.NewInt(3), AmountB: big.NewInt(4)}, nil
}
func (stubWallet) TransferNative(_ context.Context, _ evm.Address, _ *big.Int) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *runtime.Runtime) {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{
		DataDir: t.TempDir(),
		Config: cfgpkg.Resolved{
			Pool:      testPool,
			Monitored: addr(0xaa),
			Owner:     testOwner,
			Trigger:   testTrigger,
		},
		Wallet: stubWallet{},
	})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	srv := httptest.NewServer(New(rt, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, rt
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestStatusReportsGuardState(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var st statusResp
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Owner != testOwner.Hex() || st.Trigger != testTrigger.Hex() || st.Paused {
		t.Fatalf("status = %+v", st)
	}
	if st.Pool != testPool.Hex() {
		t.Fatalf("pool = %s", st.Pool)
	}
}

func TestWithdrawEndToEnd(t *testing.T) {
	srv, rt := newTestServer(t)
	ctx := context.Background()
	if err := rt.Guard().Credit(ctx, testOwner, testPool, big.NewInt(1000)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	resp := postJSON(t, srv.URL+"/v1/guard/withdraw", withdrawReq{Caller: testTrigger, Pool: testPool})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var receipt guard.WithdrawalReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.Amount.Int64() != 1000 || receipt.RedeemedA.Int64() != 3 {
		t.Fatalf("receipt = %+v", receipt)
	}

	// Second attempt on the drained position.
	resp2 := postJSON(t, srv.URL+"/v1/guard/withdraw", withdrawReq{Caller: testTrigger, Pool: testPool})
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("drained status = %d, want 422", resp2.StatusCode)
	}
}

func TestWithdrawRejectsStranger(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/v1/guard/withdraw", withdrawReq{Caller: otherParty, Pool: testPool})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestPauseBlocksWithdraw(t *testing.T) {
	srv, rt := newTestServer(t)
	if err := rt.Guard().Credit(context.Background(), testOwner, testPool, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	resp := postJSON(t, srv.URL+"/v1/guard/pause", pauseReq{Caller: testOwner, Paused: true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("pause status = %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/v1/guard/withdraw", withdrawReq{Caller: testTrigger, Pool: testPool})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("withdraw while paused = %d, want 409", resp.StatusCode)
	}
}

func TestTriggerRotationViaAPI(t *testing.T) {
	srv, rt := newTestServer(t)
	next := addr(0x42)
	resp := postJSON(t, srv.URL+"/v1/guard/trigger", triggerReq{Caller: testOwner, Trigger: next})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if rt.Guard().State().Trigger != next {
		t.Fatalf("trigger not rotated")
	}
}

func TestInvalidAmountRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/v1/guard/withdraw", map[string]string{
		"caller": testTrigger.Hex(),
		"pool":   testPool.Hex(),
		"amount": "not-a-number",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestJournalEndpoint(t *testing.T) {
	srv, rt := newTestServer(t)
	ctx := context.Background()
	if err := rt.Guard().Credit(ctx, testOwner, testPool, big.NewInt(5)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := rt.Guard().SetPaused(ctx, testOwner, true); err != nil {
		t.Fatalf("pause: %v", err)
	}

	resp, err := http.Get(srv.URL + "/v1/journal?kind=pause_change")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		Entries []journalEntryView `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Entries) != 1 || out.Entries[0].Kind != "pause_change" {
		t.Fatalf("entries = %+v", out.Entries)
	}
	if !strings.Contains(string(out.Entries[0].Payload), "true") {
		t.Fatalf("payload = %s", out.Entries[0].Payload)
	}
}

func TestSnapshotsWithoutOperator(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/snapshots")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
