package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nicolasacchi/vmcli/internal/ratelimit"
)

type statusOutput struct {
	UserID     string            `json:"user_id,omitempty"`
	Username   string            `json:"username,omitempty"`
	ExpiresAt  time.Time         `json:"expires_at"`
	Expired    bool              `json:"expired"`
	Source     string            `json:"source"`
	RateLimits []ratelimit.Entry `json:"rate_limits"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and rate limit status",
	Long:  "Show the credential in use and the last known rate limits. No request is made.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cred, ok := app.Client.Session().Current()
		if !ok {
			return ExitWithError(ExitAuthError, "not logged in")
		}

		out := statusOutput{
			UserID:     cred.User.ID,
			Username:   cred.User.Username,
			ExpiresAt:  cred.ExpiresAt,
			Expired:    cred.Expired(time.Now()),
			Source:     "environment",
			RateLimits: app.RateLimit.Snapshot(),
		}
		if app.credPath != "" {
			out.Source = app.credPath
		}

		state := "VALID"
		if out.Expired {
			state = "EXPIRED (refreshed on next call)"
		}
		app.Printer.Info("Session: %s, token %s until %s", out.Source, state, cred.ExpiresAt.Local().Format("2006-01-02 15:04"))

		if len(out.RateLimits) > 0 {
			fmt.Fprintln(os.Stderr)
			w := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ENDPOINT\tREMAINING\tLIMIT\tRETRY IN\tUPDATED\n")
			fmt.Fprintf(w, "--------\t---------\t-----\t--------\t-------\n")
			for _, e := range out.RateLimits {
				retry := "-"
				if wait := app.RateLimit.WaitTime(e.Endpoint); wait > 0 {
					retry = wait.Round(time.Second).String()
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", e.Endpoint, e.Remaining, e.Limit, retry, e.UpdatedAt.Local().Format("15:04:05"))
			}
			w.Flush()
		}

		return app.Printer.JSON(out)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
