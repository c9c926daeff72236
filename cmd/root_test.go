package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nicolasacchi/vmcli/internal/api"
	"github.com/nicolasacchi/vmcli/internal/output"
)

func TestAPIFailure(t *testing.T) {
	saved := app
	t.Cleanup(func() { app = saved })
	var stderr bytes.Buffer
	app.Printer = output.NewPrinter(&bytes.Buffer{}, &stderr, output.ModeCompact, false)

	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantRetry bool
	}{
		{"not logged in", api.ErrNotAuthenticated, ExitAuthError, false},
		{"revoked", fmt.Errorf("%w: %w", api.ErrNotAuthenticated, &api.APIError{StatusCode: 401, Code: api.RevokedTokenCode}), ExitAuthError, false},
		{"connectivity", &api.TransportError{Err: errors.New("connection reset")}, ExitNetworkError, true},
		{"server rejection", &api.APIError{StatusCode: 400, Code: 1100, Message: "Invalid amount"}, ExitAPIError, false},
		{"cancelled", &api.TransportError{Err: context.Canceled}, ExitUserError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stderr.Reset()
			err := apiFailure(tt.err, "doing it")
			if got := ExitCode(err); got != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d", got, tt.wantCode)
			}
			if retry := strings.Contains(err.Error(), "try again"); retry != tt.wantRetry {
				t.Errorf("message %q: retry hint = %v, want %v", err, retry, tt.wantRetry)
			}
			if !strings.Contains(stderr.String(), "doing it") {
				t.Errorf("stderr = %q, want the failure printed", stderr.String())
			}
		})
	}
}
