package cmd

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/nicolasacchi/vmcli/internal/api"
	"github.com/nicolasacchi/vmcli/internal/output"
)

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "List recent payments and charges",
	RunE:  runPayments,
}

var paymentCmd = &cobra.Command{
	Use:   "payment <id>",
	Short: "Show a single payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tx, err := app.Client.GetTransaction(ctx, args[0])
		if err != nil {
			return apiFailure(err, "fetching payment")
		}
		me, err := currentUser(ctx)
		if err != nil {
			return apiFailure(err, "fetching profile")
		}
		return printTransactions(me.ID, []api.Transaction{tx})
	},
}

func init() {
	paymentsCmd.Flags().Int("limit", api.DefaultRecentLimit, "max payments to return (0=all)")
	paymentsCmd.Flags().String("from", "", "start date (YYYY-MM-DD, today, yesterday, -Nd)")
	paymentsCmd.Flags().String("to", "", "end date, inclusive")
	paymentsCmd.Flags().String("days", "", "number of days back from today")
	rootCmd.AddCommand(paymentsCmd)
	rootCmd.AddCommand(paymentCmd)
}

func runPayments(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	daysFlag, _ := cmd.Flags().GetString("days")

	from, to, err := parseDateRange(fromFlag, toFlag, daysFlag)
	if err != nil {
		return ExitWithError(ExitUserError, "%v", err)
	}

	txns, err := fetchPayments(ctx, api.ListPaymentsParams{
		Limit:  limit,
		After:  from,
		Before: endOfDay(to),
	})
	if err != nil {
		return err
	}

	me, err := currentUser(ctx)
	if err != nil {
		return apiFailure(err, "fetching profile")
	}
	return printTransactions(me.ID, txns)
}

// fetchPayments keeps a partial list when a later page fails.
func fetchPayments(ctx context.Context, params api.ListPaymentsParams) ([]api.Transaction, error) {
	txns, err := app.Client.GetRecentTransactions(ctx, params)
	if err != nil {
		if len(txns) == 0 {
			return nil, apiFailure(err, "fetching payments")
		}
		app.Printer.Warn("payments incomplete after %d entries: %v", len(txns), err)
	}
	return txns, nil
}

type annotatedTransaction struct {
	Direction    api.Direction   `json:"direction"`
	SignedAmount decimal.Decimal `json:"signed_amount"`
	Counterparty string          `json:"counterparty"`
	api.Transaction
}

func annotate(selfID string, txns []api.Transaction) []annotatedTransaction {
	out := make([]annotatedTransaction, 0, len(txns))
	for _, tx := range txns {
		counterparty := tx.Actor.DisplayName
		if tx.Actor.ID == selfID {
			counterparty = tx.Target.Name()
		}
		out = append(out, annotatedTransaction{
			Direction:    tx.Direction(selfID),
			SignedAmount: tx.SignedAmount(selfID),
			Counterparty: counterparty,
			Transaction:  tx,
		})
	}
	return out
}

func printTransactions(selfID string, txns []api.Transaction) error {
	annotated := annotate(selfID, txns)
	if !app.Printer.IsTable() {
		return app.Printer.JSON(annotated)
	}

	rows := make([][]string, len(annotated))
	for i, tx := range annotated {
		date := tx.DateCreated
		if len(date) > 10 {
			date = date[:10]
		}
		rows[i] = []string{tx.ID, date, string(tx.Direction), tx.Counterparty, output.Amount(tx.SignedAmount), tx.Status, tx.Note}
	}
	return app.Printer.Table([]string{"ID", "DATE", "DIRECTION", "WITH", "AMOUNT", "STATUS", "NOTE"}, rows)
}
