package operator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wizzybrown/Drosera/internal/evm"
)

// HTTPFeed fetches event windows from a JSON log feed. Each call posts the
// subscription set and receives the records that arrived since the previous
// call for this consumer.
type HTTPFeed struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFeed builds a feed client for the given base URL.
func NewHTTPFeed(baseURL string) *HTTPFeed {
	return &HTTPFeed{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type feedRequest struct {
	Subscriptions []evm.Subscription `json:"subscriptions"`
}

type feedResponse struct {
	Records []evm.EventRecord `json:"records"`
}

// FetchWindow implements LogSource.
func (f *HTTPFeed) FetchWindow(ctx context.Context, subs []evm.Subscription) ([]evm.EventRecord, error) {
	body, err := json.Marshal(feedRequest{Subscriptions: subs})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/logs", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("operator: feed returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("operator: decoding feed response: %w", err)
	}
	return out.Records, nil
}
