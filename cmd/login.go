package cmd

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nicolasacchi/vmcli/internal/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize vmcli with a Venmo account",
	Long: "Opens the Venmo authorization page, waits for the redirect on a local port and\n" +
		"exchanges the code for a credential. The credential is printed as JSON, or\n" +
		"written to --save. Pass it back to other commands with --credential.",
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().String("code", "", "exchange an authorization code obtained elsewhere")
	loginCmd.Flags().Int("port", 0, "local callback port (default: from callback_url, else 18272)")
	loginCmd.Flags().String("save", "", "write the credential to this file (0600) instead of stdout")
	loginCmd.Flags().Bool("no-browser", false, "print the authorization URL without opening a browser")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	code, _ := cmd.Flags().GetString("code")
	port, _ := cmd.Flags().GetInt("port")
	savePath, _ := cmd.Flags().GetString("save")
	noBrowser, _ := cmd.Flags().GetBool("no-browser")

	if code == "" {
		if port == 0 {
			port = callbackPort(app.Config.CallbackURL)
		}
		listener, err := auth.ListenCallback(port)
		if err != nil {
			return ExitWithError(ExitUserError, "starting callback server: %v", err)
		}
		defer listener.Close()

		redirect := app.Config.CallbackURL
		if redirect == "" {
			redirect = listener.RedirectURL()
		}

		state := uuid.New().String()
		authURL := auth.AuthorizeURL(app.Config.APIBaseURL(), app.Config.ClientID, redirect, state, app.Config.Scopes)

		app.Printer.Info("Open this URL to authorize:")
		fmt.Fprintln(os.Stderr, authURL)
		if !noBrowser {
			_ = openBrowser(authURL)
		}
		app.Printer.Info("Waiting for authorization (timeout: %s)...", auth.CallbackTimeout)

		result, err := listener.Wait(ctx, state)
		if err != nil {
			return ExitWithError(ExitAuthError, "authorization callback: %v", err)
		}
		code = result.Code
	}

	cred, err := app.Client.Login(ctx, code)
	if err != nil {
		return apiFailure(err, "login")
	}
	app.Printer.Info("Logged in as %s (%s), token valid until %s",
		cred.User.DisplayName, cred.User.Username, cred.ExpiresAt.Local().Format("2006-01-02 15:04"))

	if savePath != "" {
		if err := writeCredential(savePath, cred); err != nil {
			return ExitWithError(ExitUserError, "saving credential: %v", err)
		}
		app.Printer.Info("Credential saved to %s", savePath)
		return nil
	}
	return app.Printer.JSON(cred)
}

// callbackPort extracts the port of a localhost redirect URL.
func callbackPort(redirect string) int {
	if redirect == "" {
		return auth.DefaultCallbackPort
	}
	u, err := url.Parse(redirect)
	if err != nil {
		return auth.DefaultCallbackPort
	}
	if p, err := strconv.Atoi(u.Port()); err == nil {
		return p
	}
	return auth.DefaultCallbackPort
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	return cmd.Start()
}
