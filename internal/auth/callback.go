package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	DefaultCallbackPort = 18272
	CallbackTimeout     = 5 * time.Minute
	CallbackPath        = "/callback"
)

// CallbackResult holds the data received from the OAuth redirect.
type CallbackResult struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackListener is a one-shot local HTTP server receiving the OAuth
// redirect that carries the authorization code.
type CallbackListener struct {
	ln      net.Listener
	server  *http.Server
	results chan *CallbackResult
}

// ListenCallback binds the callback server on localhost:port. Port 0 picks a
// free port; use RedirectURL to learn it.
func ListenCallback(port int) (*CallbackListener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("port %d unavailable: %w", port, err)
	}

	l := &CallbackListener{
		ln:      ln,
		results: make(chan *CallbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, l.handle)
	l.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go l.server.Serve(ln)
	return l, nil
}

// RedirectURL is the URL to register as the OAuth redirect.
func (l *CallbackListener) RedirectURL() string {
	port := l.ln.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://localhost:%d%s", port, CallbackPath)
}

func (l *CallbackListener) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result := &CallbackResult{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html><html><body>
<h2>Venmo authorization received</h2>
<p>You can close this tab and return to the terminal.</p>
</body></html>`)

	select {
	case l.results <- result:
	default:
	}
}

// Wait blocks until the redirect arrives, validates its state parameter and
// returns the authorization code. The server is shut down on return.
func (l *CallbackListener) Wait(ctx context.Context, expectedState string) (*CallbackResult, error) {
	ctx, cancel := context.WithTimeout(ctx, CallbackTimeout)
	defer cancel()
	defer l.Close()

	select {
	case result := <-l.results:
		if result.State != expectedState {
			return nil, fmt.Errorf("state mismatch: expected %q, got %q (possible CSRF attack)", expectedState, result.State)
		}
		if result.Error != "" {
			return result, fmt.Errorf("authorization denied: %s: %s", result.Error, result.ErrorDescription)
		}
		if result.Code == "" {
			return nil, fmt.Errorf("no authorization code received in callback")
		}
		return result, nil

	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for Venmo authorization: %w", ctx.Err())
	}
}

// Close shuts the server down.
func (l *CallbackListener) Close() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return l.server.Shutdown(shutdownCtx)
}
