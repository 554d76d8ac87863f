package operator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wizzybrown/Drosera/internal/evm"
)

func TestHTTPFeedFetchWindow(t *testing.T) {
	want := []evm.EventRecord{mintRecord(42)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/logs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req feedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Subscriptions) != 1 || req.Subscriptions[0].Target != testPool {
			t.Errorf("subscriptions not transported: %+v", req.Subscriptions)
		}
		_ = json.NewEncoder(w).Encode(feedResponse{Records: want})
	}))
	defer srv.Close()

	feed := NewHTTPFeed(srv.URL)
	subs := []evm.Subscription{{Target: testPool, Signature: "Mint", Topic: inflowTopic}}
	got, err := feed.FetchWindow(context.Background(), subs)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	if got[0].Emitter != testPool || got[0].Topics[1] != testMonitored.Word() {
		t.Fatalf("record not transported faithfully: %+v", got[0])
	}
	if len(got[0].Payload) != 32 {
		t.Fatalf("payload length = %d", len(got[0].Payload))
	}
}

func TestHTTPFeedErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	feed := NewHTTPFeed(srv.URL)
	if _, err := feed.FetchWindow(context.Background(), nil); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}
