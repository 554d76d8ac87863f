package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithdrawCommandPostsRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/guard/withdraw" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cmd := NewGuardCommand(func() string { return srv.URL })
	cmd.SetArgs([]string{"withdraw",
		"--caller", "0x0000000000000000000000000000000000000002",
		"--pool", "0x00000000000000000000000000000000000000bb",
		"--amount", "500",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got["caller"] != "0x0000000000000000000000000000000000000002" || got["amount"] != "500" {
		t.Fatalf("request body = %+v", got)
	}
}

func TestGuardCommandSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	cmd := NewGuardCommand(func() string { return srv.URL })
	cmd.SetArgs([]string{"pause", "--caller", "0x0000000000000000000000000000000000000099"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for 401 response")
	}
}
