package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// callerFromEnv returns the identity presented to the guard, from
// DROSERA_CALLER.
func callerFromEnv() string {
	return os.Getenv("DROSERA_CALLER")
}

// postJSON posts body to path and prints the response. Non-2xx responses
// become errors so the command exits non-zero.
func postJSON(baseURL BaseURLFunc, path string, body map[string]any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(strings.TrimRight(baseURL(), "/")+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(out)))
	}
	if len(bytes.TrimSpace(out)) > 0 {
		fmt.Println(strings.TrimSpace(string(out)))
	} else {
		fmt.Println("status:", resp.Status)
	}
	return nil
}

// getJSON fetches path and pretty-prints the JSON response.
func getJSON(baseURL BaseURLFunc, path string) error {
	resp, err := http.Get(strings.TrimRight(baseURL(), "/") + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(out)))
	}
	var buf bytes.Buffer
	if json.Indent(&buf, bytes.TrimSpace(out), "", "  ") == nil {
		fmt.Println(buf.String())
	} else {
		fmt.Println(strings.TrimSpace(string(out)))
	}
	return nil
}
