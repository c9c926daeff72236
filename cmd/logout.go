package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nicolasacchi/vmcli/internal/api"
	"github.com/nicolasacchi/vmcli/internal/config"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved credential",
	Long:  "Ends the session and deletes the --credential file. Venmo keeps the\nauthorization itself until it is revoked in the Venmo app.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app.Client.Logout()

		removed := ""
		if app.credPath != "" {
			path, err := config.ExpandTilde(app.credPath)
			if err != nil {
				return ExitWithError(ExitUserError, "%v", err)
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return ExitWithError(ExitUserError, "removing credential: %v", err)
			}
			removed = app.credPath
			app.Printer.Info("Removed %s", removed)
		} else {
			app.Printer.Info("Logged out; unset %s and %s to forget the tokens", config.EnvAccessToken, config.EnvRefreshToken)
		}
		// finish would otherwise report the ended session
		app.restored = api.Credential{}

		return app.Printer.JSON(struct {
			LoggedOut bool   `json:"logged_out"`
			Removed   string `json:"removed,omitempty"`
		}{true, removed})
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
