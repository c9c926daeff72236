package cmd

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/nicolasacchi/vmcli/internal/api"
	"github.com/nicolasacchi/vmcli/internal/output"
)

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the logged-in user and balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		me, err := app.Client.GetMe(cmd.Context())
		if err != nil {
			return apiFailure(err, "fetching profile")
		}
		if app.Printer.IsTable() {
			return app.Printer.Table(userHeader, [][]string{userRow(me)})
		}
		return app.Printer.JSON(me)
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the current Venmo balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		me, err := app.Client.GetMe(cmd.Context())
		if err != nil {
			return apiFailure(err, "fetching balance")
		}
		if app.Printer.IsTable() {
			return app.Printer.Table([]string{"USER", "BALANCE"}, [][]string{{me.Username, output.Balance(me.Balance)}})
		}
		return app.Printer.JSON(struct {
			UserID  string              `json:"user_id"`
			Balance decimal.NullDecimal `json:"balance"`
		}{me.ID, me.Balance})
	},
}

func init() {
	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(balanceCmd)
}

var userHeader = []string{"ID", "USERNAME", "NAME", "BALANCE"}

func userRow(u api.User) []string {
	return []string{u.ID, u.Username, u.DisplayName, output.Balance(u.Balance)}
}

// currentUser returns the logged-in user, fetching it when the credential
// was restored without a user snapshot.
func currentUser(ctx context.Context) (api.User, error) {
	if cred, ok := app.Client.Session().Current(); ok && cred.User.ID != "" {
		return cred.User, nil
	}
	return app.Client.GetMe(ctx)
}
