package client

import (
	"github.com/spf13/cobra"
)

// NewGuardCommand builds the guard command group: withdraw, sweep, credit,
// pause/resume, set-trigger, transfer-ownership.
func NewGuardCommand(baseURL BaseURLFunc) *cobra.Command {
	guardCmd := &cobra.Command{Use: "guard", Short: "Withdrawal guard operations"}

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Execute the emergency withdrawal",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, _ := cmd.Flags().GetString("caller")
			pool, _ := cmd.Flags().GetString("pool")
			amount, _ := cmd.Flags().GetString("amount")
			return postJSON(baseURL, "/v1/guard/withdraw", map[string]any{
				"caller": caller, "pool": pool, "amount": amount,
			})
		},
	}
	withdrawCmd.Flags().String("caller", callerFromEnv(), "Caller identity (hex address)")
	withdrawCmd.Flags().String("pool", "", "Pool identity (hex address)")
	withdrawCmd.Flags().String("amount", "", "Share amount to withdraw (decimal, empty = all)")
	guardCmd.AddCommand(withdrawCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep a held asset to a destination (owner only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, _ := cmd.Flags().GetString("caller")
			token, _ := cmd.Flags().GetString("token")
			to, _ := cmd.Flags().GetString("to")
			amount, _ := cmd.Flags().GetString("amount")
			body := map[string]any{"caller": caller, "to": to, "amount": amount}
			if token != "" {
				body["token"] = token
			}
			return postJSON(baseURL, "/v1/guard/sweep", body)
		},
	}
	sweepCmd.Flags().String("caller", callerFromEnv(), "Caller identity (hex address)")
	sweepCmd.Flags().String("token", "", "Token identity (empty sweeps the native balance)")
	sweepCmd.Flags().String("to", "", "Destination identity (hex address)")
	sweepCmd.Flags().String("amount", "", "Amount to sweep (decimal, empty = all)")
	guardCmd.AddCommand(sweepCmd)

	creditCmd := &cobra.Command{
		Use:   "credit",
		Short: "Record a custody balance (owner only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, _ := cmd.Flags().GetString("caller")
			token, _ := cmd.Flags().GetString("token")
			amount, _ := cmd.Flags().GetString("amount")
			body := map[string]any{"caller": caller, "amount": amount}
			if token != "" {
				body["token"] = token
			}
			return postJSON(baseURL, "/v1/guard/credit", body)
		},
	}
	creditCmd.Flags().String("caller", callerFromEnv(), "Caller identity (hex address)")
	creditCmd.Flags().String("token", "", "Token identity (empty credits the native balance)")
	creditCmd.Flags().String("amount", "", "Amount to credit (decimal)")
	guardCmd.AddCommand(creditCmd)

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Engage the kill-switch (owner only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, _ := cmd.Flags().GetString("caller")
			return postJSON(baseURL, "/v1/guard/pause", map[string]any{"caller": caller, "paused": true})
		},
	}
	pauseCmd.Flags().String("caller", callerFromEnv(), "Caller identity (hex address)")
	guardCmd.AddCommand(pauseCmd)

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Release the kill-switch (owner only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, _ := cmd.Flags().GetString("caller")
			return postJSON(baseURL, "/v1/guard/pause", map[string]any{"caller": caller, "paused": false})
		},
	}
	resumeCmd.Flags().String("caller", callerFromEnv(), "Caller identity (hex address)")
	guardCmd.AddCommand(resumeCmd)

	setTriggerCmd := &cobra.Command{
		Use:   "set-trigger",
		Short: "Rotate the trigger identity (owner only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, _ := cmd.Flags().GetString("caller")
			trigger, _ := cmd.Flags().GetString("trigger")
			return postJSON(baseURL, "/v1/guard/trigger", map[string]any{"caller": caller, "trigger": trigger})
		},
	}
	setTriggerCmd.Flags().String("caller", callerFromEnv(), "Caller identity (hex address)")
	setTriggerCmd.Flags().String("trigger", "", "New trigger identity (hex address)")
	guardCmd.AddCommand(setTriggerCmd)

	transferCmd := &cobra.Command{
		Use:   "transfer-ownership",
		Short: "Transfer guard ownership (owner only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, _ := cmd.Flags().GetString("caller")
			owner, _ := cmd.Flags().GetString("owner")
			return postJSON(baseURL, "/v1/guard/ownership", map[string]any{"caller": caller, "owner": owner})
		},
	}
	transferCmd.Flags().String("caller", callerFromEnv(), "Caller identity (hex address)")
	transferCmd.Flags().String("owner", "", "New owner identity (hex address)")
	guardCmd.AddCommand(transferCmd)

	return guardCmd
}
