package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nicolasacchi/vmcli/internal/api"
	"github.com/nicolasacchi/vmcli/internal/config"
	"github.com/nicolasacchi/vmcli/internal/output"
	"github.com/nicolasacchi/vmcli/internal/ratelimit"
)

const (
	ExitSuccess      = 0
	ExitUserError    = 1
	ExitAPIError     = 2
	ExitAuthError    = 3
	ExitNetworkError = 4
)

// App holds shared dependencies for all subcommands.
type App struct {
	Config     *config.Config
	ConfigPath string
	Client     *api.Client
	Printer    *output.Printer
	RateLimit  *ratelimit.Tracker
	Logger     zerolog.Logger

	// restored is the credential the session was resumed from; credPath is
	// the --credential file it came from, if any.
	restored api.Credential
	credPath string
}

var (
	app            App
	flagPretty     bool
	flagCompact    bool
	flagTable      bool
	flagQuiet      bool
	flagDebug      bool
	flagConfig     string
	flagCredential string
	version        string
)

var rootCmd = &cobra.Command{
	Use:           "vmcli",
	Short:         "Venmo CLI: balance, friends, payments",
	Long:          "Access a Venmo account from the terminal.\nOutputs structured JSON to stdout for piping into jq; use --table for humans.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode := output.ModeFromFlags(flagPretty, flagCompact, flagTable)
		app.Printer = output.NewPrinter(os.Stdout, os.Stderr, mode, flagQuiet)
		app.Logger = newLogger(flagDebug, flagQuiet)

		// config manages its own file
		if skipInit(cmd) {
			return nil
		}

		configDir, cfgPath, err := config.Paths(flagConfig)
		if err != nil {
			return exitError(ExitUserError, "config path: %v", err)
		}
		app.ConfigPath = cfgPath

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return exitError(ExitUserError, "loading config: %v", err)
		}
		app.Config = cfg

		if err := cfg.Validate(); err != nil {
			return exitError(ExitUserError, "%v", err)
		}

		app.RateLimit = ratelimit.NewTracker(configDir, app.Logger)

		transport := api.NewHTTPTransport(cfg.APIBaseURL(),
			api.WithRateLimiter(app.RateLimit),
			api.WithUserAgent("vmcli/"+version),
			api.WithTransportLogger(app.Logger),
		)
		session := api.NewSession(cfg.ClientID, cfg.ClientSecret, transport,
			api.WithSessionLogger(app.Logger),
		)
		app.Client = api.NewClient(session, api.WithLogger(app.Logger))

		if noCredential(cmd) {
			return nil
		}
		return restoreCredential()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagPretty, "pretty", false, "force pretty-printed JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "compact", false, "force compact JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagTable, "table", false, "print aligned columns instead of JSON")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "suppress informational messages on stderr")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "log requests and session events to stderr")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagCredential, "credential", "", "credential file written by 'vmcli login --save' (default: VMCLI_ACCESS_TOKEN etc.)")
}

// Execute runs the root command. Called from main.
func Execute(v string) error {
	version = v
	rootCmd.Version = v

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	finish()

	var ee *exitErr
	if err != nil && (!errors.As(err, &ee) || !ee.printed) && !flagQuiet {
		// cobra usage errors and anything not reported through ExitWithError
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("vmcli:"), err)
	}
	return err
}

// ExitCode maps an error returned by Execute to the process exit code.
func ExitCode(err error) int {
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUserError
}

func newLogger(debug, quiet bool) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case debug:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.ErrorLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly, NoColor: color.NoColor}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// restoreCredential resumes the session from --credential or the
// environment.
func restoreCredential() error {
	var (
		cred *api.Credential
		err  error
	)
	if flagCredential != "" {
		cred, err = config.LoadCredential(flagCredential)
		app.credPath = flagCredential
	} else {
		cred, err = config.CredentialFromEnv(time.Now())
	}
	if err != nil {
		return exitError(ExitAuthError, "%v", err)
	}
	if cred == nil {
		return exitError(ExitAuthError, "not logged in. Run: vmcli login --save <file>, then pass --credential <file>")
	}

	if err := app.Client.Restore(*cred); err != nil {
		return exitError(ExitAuthError, "restoring session: %v", err)
	}
	app.restored = *cred
	return nil
}

// finish persists rate limits and hands back a credential the session
// refreshed during the command.
func finish() {
	if app.RateLimit != nil {
		if err := app.RateLimit.Persist(); err != nil {
			app.Logger.Warn().Err(err).Msg("saving rate limit cache")
		}
	}
	if app.Client == nil || app.restored.AccessToken == "" && app.restored.RefreshToken == "" {
		return
	}

	cur, ok := app.Client.Session().Current()
	if !ok {
		app.Printer.Warn("session ended; run 'vmcli login' again")
		return
	}
	if cur.AccessToken == app.restored.AccessToken {
		return
	}

	if app.credPath != "" {
		if err := writeCredential(app.credPath, cur); err != nil {
			app.Printer.Warn("could not update %s: %v", app.credPath, err)
		} else {
			app.Printer.Info("access token refreshed, %s updated", app.credPath)
		}
		return
	}

	data, _ := json.Marshal(cur)
	app.Printer.Warn("access token refreshed; new credential:")
	fmt.Fprintln(os.Stderr, string(data))
}

func writeCredential(path string, cred api.Credential) error {
	expanded, err := config.ExpandTilde(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credential: %w", err)
	}
	return config.WriteFileLocked(expanded, append(data, '\n'))
}

// skipInit returns true for commands that need no config or client at all.
func skipInit(cmd *cobra.Command) bool {
	name := fullCmdName(cmd)
	// config --init creates config, doesn't need to load it
	return name == "vmcli config" || name == "vmcli help" || name == "vmcli completion"
}

// noCredential returns true for commands that build a client but start
// logged out.
func noCredential(cmd *cobra.Command) bool {
	return fullCmdName(cmd) == "vmcli login"
}

func fullCmdName(cmd *cobra.Command) string {
	var parts []string
	for c := cmd; c != nil; c = c.Parent() {
		parts = append([]string{c.Name()}, parts...)
	}
	return strings.Join(parts, " ")
}

type exitErr struct {
	code    int
	msg     string
	printed bool
}

func (e *exitErr) Error() string { return e.msg }

func exitError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// ExitWithError prints an error to stderr and returns an error for the exit code.
func ExitWithError(code int, format string, args ...any) error {
	app.Printer.Error(format, args...)
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...), printed: true}
}

// apiFailure reports a failed API call with an exit code chosen by fault kind.
func apiFailure(err error, what string) error {
	code := ExitAPIError
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrNotAuthenticated):
		return ExitWithError(ExitAuthError, "%s: %v (run 'vmcli login')", what, err)
	case errors.Is(err, context.Canceled):
		return ExitWithError(ExitUserError, "%s: %v", what, err)
	case errors.Is(err, api.ErrTransportFailure):
		code = ExitNetworkError
	case errors.As(err, &apiErr):
		code = apiErr.ExitCode()
	}

	var retry interface{ IsRetryable() bool }
	if errors.As(err, &retry) && retry.IsRetryable() {
		return ExitWithError(code, "%s: %v (temporary, try again)", what, err)
	}
	return ExitWithError(code, "%s: %v", what, err)
}
