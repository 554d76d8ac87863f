package client

import (
	"github.com/spf13/cobra"
)

// BaseURLFunc resolves the admin API base URL at call time.
type BaseURLFunc func() string

// Register attaches the guard, status, snapshot, and journal command groups
// to the given root command.
func Register(root *cobra.Command, baseURL BaseURLFunc) {
	root.AddCommand(NewGuardCommand(baseURL))
	root.AddCommand(NewStatusCommand(baseURL))
	root.AddCommand(NewSnapshotsCommand(baseURL))
	root.AddCommand(NewJournalCommand(baseURL))
}
