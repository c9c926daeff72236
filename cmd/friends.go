package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nicolasacchi/vmcli/internal/api"
)

var userCmd = &cobra.Command{
	Use:   "user <id>",
	Short: "Show a Venmo user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := app.Client.GetUser(cmd.Context(), args[0])
		if err != nil {
			return apiFailure(err, "fetching user")
		}
		if app.Printer.IsTable() {
			return app.Printer.Table(userHeader, [][]string{userRow(u)})
		}
		return app.Printer.JSON(u)
	},
}

var friendsCmd = &cobra.Command{
	Use:   "friends",
	Short: "List friends",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		search, _ := cmd.Flags().GetString("search")

		if userID == "" {
			me, err := currentUser(ctx)
			if err != nil {
				return apiFailure(err, "fetching profile")
			}
			userID = me.ID
		}

		// A search has to see the whole list before truncating.
		fetchLimit := limit
		if search != "" {
			fetchLimit = 0
		}
		friends, err := app.Client.GetFriends(ctx, userID, fetchLimit)
		if err != nil {
			if len(friends) == 0 {
				return apiFailure(err, "fetching friends")
			}
			app.Printer.Warn("friends list incomplete after %d entries: %v", len(friends), err)
		}

		if search != "" {
			friends = filterFriends(friends, search)
			if limit > 0 && len(friends) > limit {
				friends = friends[:limit]
			}
		}

		app.Printer.Info("%d friend(s)", len(friends))
		if app.Printer.IsTable() {
			rows := make([][]string, len(friends))
			for i, f := range friends {
				rows[i] = userRow(f)
			}
			return app.Printer.Table(userHeader, rows)
		}
		return app.Printer.JSON(friends)
	},
}

func init() {
	friendsCmd.Flags().String("user", "", "user id whose friends to list (default: you)")
	friendsCmd.Flags().Int("limit", 0, "max friends to return (0=all)")
	friendsCmd.Flags().StringP("search", "s", "", "filter by username or name (case-insensitive substring)")
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(friendsCmd)
}

func filterFriends(friends []api.User, search string) []api.User {
	search = strings.ToLower(search)
	filtered := []api.User{}
	for _, f := range friends {
		if strings.Contains(strings.ToLower(f.Username), search) ||
			strings.Contains(strings.ToLower(f.DisplayName), search) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}
