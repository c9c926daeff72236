package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nicolasacchi/vmcli/internal/api"
	"github.com/nicolasacchi/vmcli/internal/auth"
	"github.com/nicolasacchi/vmcli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vmcli configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		initFlag, _ := cmd.Flags().GetBool("init")
		if initFlag {
			return runConfigInit(cmd)
		}
		return runConfigShow(cmd)
	},
}

func init() {
	configCmd.Flags().Bool("init", false, "run interactive setup wizard")
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command) error {
	reader := bufio.NewReader(os.Stdin)

	dir, err := config.EnsureDir(flagConfig)
	if err != nil {
		return ExitWithError(ExitUserError, "creating config directory: %v", err)
	}
	app.Printer.Info("Config directory: %s", dir)

	_, cfgPath, err := config.Paths(flagConfig)
	if err != nil {
		return ExitWithError(ExitUserError, "resolving config path: %v", err)
	}
	existing, err := config.Load(cfgPath)
	if err != nil {
		return ExitWithError(ExitUserError, "loading config: %v", err)
	}

	ask := func(prompt, current string) string {
		if current != "" {
			prompt += fmt.Sprintf(" [%s]", current)
		}
		app.Printer.Info("%s:", prompt)
		answer, _ := reader.ReadString('\n')
		if answer = strings.TrimSpace(answer); answer != "" {
			return answer
		}
		return current
	}

	cfg := &config.Config{
		ClientID:    ask("Client ID (from https://venmo.com/account/settings/developers)", existing.ClientID),
		CallbackURL: existing.CallbackURL,
		Scopes:      existing.Scopes,
		BaseURL:     existing.BaseURL,
	}
	cfg.ClientSecret = ask("Client secret", existing.ClientSecret)

	defaultRedirect := fmt.Sprintf("http://localhost:%d%s", auth.DefaultCallbackPort, auth.CallbackPath)
	if cfg.CallbackURL == "" {
		cfg.CallbackURL = defaultRedirect
	}
	cfg.CallbackURL = ask("Redirect URL registered for the app", cfg.CallbackURL)

	audience := ask("Default payment audience (public, friends, private)", string(existing.Audience()))
	if !api.Audience(audience).Valid() {
		return ExitWithError(ExitUserError, "invalid audience %q", audience)
	}
	if audience != string(api.AudiencePublic) {
		cfg.DefaultAudience = audience
	}

	if err := cfg.Validate(); err != nil {
		return ExitWithError(ExitUserError, "%v", err)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return ExitWithError(ExitUserError, "saving config: %v", err)
	}
	app.Printer.Info("Configuration saved to: %s", cfgPath)

	fmt.Fprintln(os.Stderr)
	app.Printer.Info("Next: vmcli login --save ~/.config/vmcli/credential.json")
	return nil
}

func runConfigShow(cmd *cobra.Command) error {
	_, cfgPath, err := config.Paths(flagConfig)
	if err != nil {
		return ExitWithError(ExitUserError, "resolving config path: %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return ExitWithError(ExitUserError, "loading config: %v", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = auth.DefaultScopes
	}

	out := struct {
		ClientID        string   `json:"client_id"`
		ClientSecret    string   `json:"client_secret"`
		BaseURL         string   `json:"base_url"`
		CallbackURL     string   `json:"callback_url,omitempty"`
		Scopes          []string `json:"scopes"`
		DefaultAudience string   `json:"default_audience"`
		ConfigPath      string   `json:"config_path"`
	}{
		ClientID:        cfg.ClientID,
		ClientSecret:    mask(cfg.ClientSecret),
		BaseURL:         cfg.APIBaseURL(),
		CallbackURL:     cfg.CallbackURL,
		Scopes:          scopes,
		DefaultAudience: string(cfg.Audience()),
		ConfigPath:      cfgPath,
	}

	return app.Printer.JSON(out)
}

// mask keeps the last four characters of a secret.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
