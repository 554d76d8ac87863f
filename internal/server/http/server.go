package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/wizzybrown/Drosera/internal/evm"
	"github.com/wizzybrown/Drosera/internal/guard"
	"github.com/wizzybrown/Drosera/internal/journal"
	"github.com/wizzybrown/Drosera/internal/operator"
	"github.com/wizzybrown/Drosera/internal/runtime"
	"github.com/wizzybrown/Drosera/internal/trap"
)

// Server is the JSON admin API over the runtime: guard operations, status,
// snapshot history, and the journal.
type Server struct {
	rt  *runtime.Runtime
	op  *operator.Operator
	srv *http.Server
	lis net.Listener
}

// New builds the admin server. op may be nil when no operator loop runs in
// this process.
func New(rt *runtime.Runtime, op *operator.Operator) *Server {
	mux := http.NewServeMux()
	s := &Server{rt: rt, op: op, srv: &http.Server{Handler: cors(mux)}}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/guard/withdraw", s.handleWithdraw)
	mux.HandleFunc("/v1/guard/sweep", s.handleSweep)
	mux.HandleFunc("/v1/guard/credit", s.handleCredit)
	mux.HandleFunc("/v1/guard/pause", s.handlePause)
	mux.HandleFunc("/v1/guard/trigger", s.handleTrigger)
	mux.HandleFunc("/v1/guard/ownership", s.handleOwnership)
	mux.HandleFunc("/v1/snapshots", s.handleSnapshots)
	mux.HandleFunc("/v1/journal", s.handleJournal)
	return s
}

// Handler exposes the routed handler, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeGuardErr maps guard sentinels onto HTTP statuses.
func writeGuardErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, guard.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, guard.ErrHalted):
		status = http.StatusConflict
	case errors.Is(err, guard.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, guard.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// parseAmount reads a decimal string; empty means zero.
func parseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return new(big.Int), true
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResp struct {
	Owner      string `json:"owner"`
	Trigger    string `json:"trigger"`
	Paused     bool   `json:"paused"`
	Pool       string `json:"pool"`
	Monitored  string `json:"monitored"`
	JournalSeq uint64 `json:"journalSeq"`
	Pending    int    `json:"pending"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	st := s.rt.Guard().State()
	cfg := s.rt.Config()
	resp := statusResp{
		Owner:      st.Owner.Hex(),
		Trigger:    st.Trigger.Hex(),
		Paused:     st.Paused,
		Pool:       cfg.Pool.Hex(),
		Monitored:  cfg.Monitored.Hex(),
		JournalSeq: s.rt.Journal().LastSeq(),
	}
	if s.op != nil {
		if pending, err := s.op.Pending(); err == nil {
			resp.Pending = pending
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type withdrawReq struct {
	Caller evm.Address `json:"caller"`
	Pool   evm.Address `json:"pool"`
	Amount string      `json:"amount"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req withdrawReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	receipt, err := s.rt.Guard().EmergencyWithdraw(r.Context(), req.Caller, req.Pool, amount)
	if err != nil {
		writeGuardErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

type sweepReq struct {
	Caller evm.Address `json:"caller"`
	Token  evm.Address `json:"token"`
	To     evm.Address `json:"to"`
	Amount string      `json:"amount"`
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req sweepReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	// The zero token sweeps the native balance.
	if req.Token.IsZero() {
		if err := s.rt.Guard().WithdrawNative(r.Context(), req.Caller, req.To); err != nil {
			writeGuardErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.rt.Guard().WithdrawToken(r.Context(), req.Caller, req.Token, req.To, amount); err != nil {
		writeGuardErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type creditReq struct {
	Caller evm.Address `json:"caller"`
	Token  evm.Address `json:"token"`
	Amount string      `json:"amount"`
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req creditReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.rt.Guard().Credit(r.Context(), req.Caller, req.Token, amount); err != nil {
		writeGuardErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pauseReq struct {
	Caller evm.Address `json:"caller"`
	Paused bool        `json:"paused"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req pauseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.rt.Guard().SetPaused(r.Context(), req.Caller, req.Paused); err != nil {
		writeGuardErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type triggerReq struct {
	Caller  evm.Address `json:"caller"`
	Trigger evm.Address `json:"trigger"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req triggerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.rt.Guard().SetTrigger(r.Context(), req.Caller, req.Trigger); err != nil {
		writeGuardErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ownershipReq struct {
	Caller evm.Address `json:"caller"`
	Owner  evm.Address `json:"owner"`
}

func (s *Server) handleOwnership(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req ownershipReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.rt.Guard().TransferOwnership(r.Context(), req.Caller, req.Owner); err != nil {
		writeGuardErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type snapshotView struct {
	Inflow     string `json:"inflow"`
	Outflow    string `json:"outflow"`
	Net        string `json:"net"`
	ReserveA   string `json:"reserveA"`
	ReserveB   string `json:"reserveB"`
	ObservedMs int64  `json:"observedMs"`
	Monitored  string `json:"monitored"`
	Pool       string `json:"pool"`
}

func viewSnapshot(s trap.Snapshot) snapshotView {
	return snapshotView{
		Inflow:     s.Inflow.String(),
		Outflow:    s.Outflow.String(),
		Net:        s.Net().String(),
		ReserveA:   s.ReserveA.String(),
		ReserveB:   s.ReserveB.String(),
		ObservedMs: s.ObservedAt.UnixMilli(),
		Monitored:  s.Monitored.Hex(),
		Pool:       s.Pool.Hex(),
	}
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.op == nil {
		writeJSON(w, http.StatusOK, map[string]any{"snapshots": []snapshotView{}})
		return
	}
	history, err := s.op.History()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	views := make([]snapshotView, 0, len(history))
	for _, snap := range history {
		views = append(views, viewSnapshot(snap))
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": views})
}

type journalEntryView struct {
	Seq     uint64          `json:"seq"`
	Kind    string          `json:"kind"`
	ID      string          `json:"id"`
	TsMs    int64           `json:"tsMs"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	opts := journal.ScanOptions{Kind: journal.Kind(q.Get("kind"))}
	if v := q.Get("start"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		opts.Start = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		opts.Limit = n
	}
	entries, err := s.rt.Journal().Scan(opts)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	views := make([]journalEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, journalEntryView{
			Seq:     e.Seq,
			Kind:    string(e.Kind),
			ID:      e.ID,
			TsMs:    e.TsMs,
			Payload: json.RawMessage(e.Payload),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": views})
}
