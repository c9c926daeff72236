package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nicolasacchi/vmcli/internal/api"
	"github.com/nicolasacchi/vmcli/internal/output"
	"github.com/nicolasacchi/vmcli/internal/resolver"
)

var payCmd = &cobra.Command{
	Use:   "pay <recipient> <amount>",
	Short: "Send money",
	Long: "Send money to an email address, phone number, user id or friend.\n" +
		"Recipients may be prefixed with email:, phone: or user: to skip detection;\n" +
		"anything else is matched against your friends list. A bare 10 or 11 digit\n" +
		"number is only accepted if it is a friend's user id; otherwise write\n" +
		"phone:5551234567 or user:5551234567.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransfer(cmd, args, false)
	},
}

var chargeCmd = &cobra.Command{
	Use:   "charge <recipient> <amount>",
	Short: "Request money",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransfer(cmd, args, true)
	},
}

// audienceFlag is a pflag.Value restricted to valid audiences.
type audienceFlag struct {
	value api.Audience
}

var _ pflag.Value = (*audienceFlag)(nil)

func (a *audienceFlag) String() string { return string(a.value) }
func (a *audienceFlag) Type() string   { return "audience" }

func (a *audienceFlag) Set(s string) error {
	v := api.Audience(strings.ToLower(s))
	if !v.Valid() {
		return fmt.Errorf("must be public, friends or private")
	}
	a.value = v
	return nil
}

func init() {
	for _, c := range []*cobra.Command{payCmd, chargeCmd} {
		c.Flags().StringP("note", "m", "", "payment note (required)")
		c.MarkFlagRequired("note")
		c.Flags().Var(&audienceFlag{}, "audience", "who can see it: public, friends or private (default: config)")
		c.Flags().Bool("dry-run", false, "resolve the recipient and print the request without sending")
		rootCmd.AddCommand(c)
	}
}

func runTransfer(cmd *cobra.Command, args []string, charge bool) error {
	ctx := cmd.Context()
	note, _ := cmd.Flags().GetString("note")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	amount, err := parseAmount(args[1])
	if err != nil {
		return ExitWithError(ExitUserError, "%v", err)
	}
	if charge {
		amount = amount.Neg()
	}

	audience := app.Config.Audience()
	if f, ok := cmd.Flags().Lookup("audience").Value.(*audienceFlag); ok && f.value != "" {
		audience = f.value
	}

	recipient, err := resolveRecipient(ctx, args[0])
	if err != nil {
		return err
	}

	req := api.PaymentRequest{
		RecipientType: recipient.Type,
		Recipient:     recipient.Value,
		Note:          note,
		Amount:        amount,
		Audience:      audience,
	}
	if dryRun {
		return app.Printer.JSON(req)
	}

	res, err := app.Client.PostTransaction(ctx, req)
	if err != nil {
		return apiFailure(err, "sending payment")
	}

	verb := "Paid"
	if charge {
		verb = "Requested"
	}
	app.Printer.Info("%s %s %s, balance now %s", verb, res.Payment.Target.Name(), output.Amount(amount.Abs()), output.Balance(res.Balance))

	return printPayment(ctx, res.Payment)
}

// printPayment prints a created payment annotated from the caller's side. The
// payment has already been sent, so a failed profile fetch only drops the
// annotation.
func printPayment(ctx context.Context, payment api.Transaction) error {
	me, err := currentUser(ctx)
	if err != nil {
		app.Printer.Warn("fetching profile failed (%v); printing the payment without direction", err)
		return app.Printer.JSON(payment)
	}
	return printTransactions(me.ID, []api.Transaction{payment})
}

// parseAmount accepts "12.50" or "$12.50". Amounts must be positive with at
// most two decimal places.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("amount must be positive, got %s", s)
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Decimal{}, fmt.Errorf("amount %s has more than two decimal places", s)
	}
	return d, nil
}

func resolveRecipient(ctx context.Context, query string) (resolver.Recipient, error) {
	r, err := resolver.Detect(query)
	var lookup *resolver.NeedsLookupError
	if !errors.As(err, &lookup) {
		if err != nil {
			return r, ExitWithError(ExitUserError, "%v", err)
		}
		return r, nil
	}

	me, err := currentUser(ctx)
	if err != nil {
		return r, apiFailure(err, "fetching profile")
	}
	friends, err := app.Client.GetFriends(ctx, me.ID, 0)
	if err != nil {
		return r, apiFailure(err, "fetching friends")
	}
	friend, err := resolver.ResolveFriend(friends, lookup.Query)
	if err != nil {
		if lookup.Numeric {
			return r, ExitWithError(ExitUserError, "%v", lookup)
		}
		return r, ExitWithError(ExitUserError, "%v", err)
	}
	app.Printer.Info("Recipient: %s (@%s, id %s)", friend.DisplayName, friend.Username, friend.ID)
	return resolver.Recipient{Type: api.RecipientUserID, Value: friend.ID}, nil
}
