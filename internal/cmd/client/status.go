package client

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// NewStatusCommand reports guard state and runtime health.
func NewStatusCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show guard and runtime status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(baseURL, "/v1/status")
		},
	}
}

// NewSnapshotsCommand prints the persisted snapshot history.
func NewSnapshotsCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "Show the snapshot history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(baseURL, "/v1/snapshots")
		},
	}
}

// NewJournalCommand reads the action journal.
func NewJournalCommand(baseURL BaseURLFunc) *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Read the action journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			start, _ := cmd.Flags().GetUint64("start")
			limit, _ := cmd.Flags().GetInt("limit")
			q := url.Values{}
			if kind != "" {
				q.Set("kind", kind)
			}
			if start > 0 {
				q.Set("start", fmt.Sprintf("%d", start))
			}
			if limit > 0 {
				q.Set("limit", fmt.Sprintf("%d", limit))
			}
			path := "/v1/journal"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			return getJSON(baseURL, path)
		},
	}
	journalCmd.Flags().String("kind", "", "Filter by record kind")
	journalCmd.Flags().Uint64("start", 0, "First sequence to return")
	journalCmd.Flags().Int("limit", 0, "Maximum entries (0 = no cap)")
	return journalCmd
}
