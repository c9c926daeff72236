package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/nicolasacchi/vmcli/internal/auth"
)

const (
	tokenPath = "/oauth/access_token"

	// DefaultTokenLifetime is assumed when the token endpoint reports no
	// expiry and the access token carries no exp claim.
	DefaultTokenLifetime = 60 * 24 * time.Hour
)

// Session owns the authentication state of one Venmo user. It is the only
// writer of its CredentialStore. Safe for concurrent use; at most one
// refresh is in flight at any time.
type Session struct {
	clientID     string
	clientSecret string
	transport    Transport
	store        CredentialStore

	loginMu   sync.Mutex
	refreshes singleflight.Group

	now    func() time.Time
	logger zerolog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock replaces time.Now for expiry bookkeeping.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithSessionLogger sets the logger for session lifecycle events.
func WithSessionLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession creates a logged-out session for the given application.
func NewSession(clientID, clientSecret string, transport Transport, opts ...SessionOption) *Session {
	s := &Session{
		clientID:     clientID,
		clientSecret: clientSecret,
		transport:    transport,
		now:          time.Now,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login exchanges an OAuth authorization code for a credential.
// If a session is already active it returns that credential together with
// ErrAlreadyAuthenticated and makes no request.
func (s *Session) Login(ctx context.Context, code string) (Credential, error) {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	if cur, ok := s.store.Load(); ok {
		return cur, ErrAlreadyAuthenticated
	}
	if code == "" {
		return Credential{}, fmt.Errorf("empty authorization code")
	}

	grant, err := s.requestToken(ctx, url.Values{"code": {code}})
	if err != nil {
		return Credential{}, fmt.Errorf("exchanging authorization code: %w", err)
	}
	if grant.User == nil {
		return Credential{}, fmt.Errorf("token response has no user")
	}

	user := *grant.User
	if grant.Balance.Valid {
		user.Balance = grant.Balance
	}
	cred := Credential{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    s.expiry(grant),
		User:         user,
	}
	s.store.replace(cred)

	s.logger.Info().Str("user_id", user.ID).Time("expires_at", cred.ExpiresAt).Msg("logged in")
	return cred, nil
}

// Restore resumes a session from a credential obtained earlier. An expired
// credential is accepted and refreshed on first use.
func (s *Session) Restore(cred Credential) error {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	if _, ok := s.store.Load(); ok {
		return ErrAlreadyAuthenticated
	}
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return fmt.Errorf("credential has neither access nor refresh token")
	}
	s.store.replace(cred)

	s.logger.Debug().Str("user_id", cred.User.ID).Time("expires_at", cred.ExpiresAt).Msg("session restored")
	return nil
}

// EnsureValid returns a credential that is valid now, refreshing it first if
// it has expired. Every authenticated operation starts here.
func (s *Session) EnsureValid(ctx context.Context) (Credential, error) {
	cred, _, err := s.ensureValid(ctx)
	return cred, err
}

func (s *Session) ensureValid(ctx context.Context) (Credential, uint64, error) {
	cur, gen, ok := s.store.snapshot()
	if !ok {
		return Credential{}, 0, ErrNotAuthenticated
	}
	if !cur.Expired(s.now()) {
		return cur, gen, nil
	}

	if err := ctx.Err(); err != nil {
		return Credential{}, 0, &TransportError{Err: err}
	}

	// The flight is shared, so no single caller's cancellation may end it.
	// Each caller still stops waiting when its own ctx is done.
	ch := s.refreshes.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requestTimeout)
		defer cancel()
		return s.refresh(fctx, gen)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, 0, res.Err
		}
		return res.Val.(Credential), gen, nil
	case <-ctx.Done():
		return Credential{}, 0, &TransportError{Err: ctx.Err()}
	}
}

// refresh runs inside the single-flight group for session gen.
func (s *Session) refresh(ctx context.Context, gen uint64) (Credential, error) {
	cur, curGen, ok := s.store.snapshot()
	if !ok || curGen != gen {
		return Credential{}, ErrNotAuthenticated
	}
	if !cur.Expired(s.now()) {
		// Refreshed by a flight that finished before this one started.
		return cur, nil
	}

	s.logger.Debug().Str("user_id", cur.User.ID).Msg("access token expired, refreshing")

	grant, err := s.requestToken(ctx, url.Values{"refresh_token": {cur.RefreshToken}})
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) || ctx.Err() != nil {
			// Nothing was learned about the token; keep it for the next attempt.
			return Credential{}, fmt.Errorf("refreshing session: %w", err)
		}
		s.store.clear(gen)
		s.logger.Info().Err(err).Str("user_id", cur.User.ID).Msg("refresh rejected, session invalidated")
		return Credential{}, fmt.Errorf("%w: refresh rejected: %w", ErrNotAuthenticated, err)
	}

	next, ok := s.store.update(gen, func(c Credential) Credential {
		c.AccessToken = grant.AccessToken
		if grant.RefreshToken != "" {
			c.RefreshToken = grant.RefreshToken
		}
		c.ExpiresAt = s.expiry(grant)
		return c
	})
	if !ok {
		return Credential{}, ErrNotAuthenticated
	}

	s.logger.Debug().Str("user_id", next.User.ID).Time("expires_at", next.ExpiresAt).Msg("session refreshed")
	return next, nil
}

// Invalidate ends the session. Only a new Login or Restore brings it back.
func (s *Session) Invalidate() {
	if s.store.clear(0) {
		s.logger.Info().Msg("logged out")
	}
}

// invalidate ends session gen if it is still the current one.
func (s *Session) invalidate(gen uint64) {
	if s.store.clear(gen) {
		s.logger.Info().Msg("token revoked, logged out")
	}
}

// Current returns the stored credential without checking its expiry.
func (s *Session) Current() (Credential, bool) {
	return s.store.Load()
}

// LoggedIn reports whether a credential is stored.
func (s *Session) LoggedIn() bool {
	_, ok := s.store.Load()
	return ok
}

// updateUser applies fn to the cached user snapshot of session gen.
func (s *Session) updateUser(gen uint64, fn func(User) User) {
	s.store.update(gen, func(c Credential) Credential {
		c.User = fn(c.User)
		return c
	})
}

func (s *Session) requestToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	resp, err := s.transport.Post(ctx, tokenPath, form)
	if err != nil {
		return nil, err
	}
	if err := Classify(resp); err != nil {
		return nil, err
	}

	var grant tokenResponse
	if err := json.Unmarshal(resp.Body, &grant); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if grant.AccessToken == "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "token response has no access_token"}
	}
	return &grant, nil
}

func (s *Session) expiry(grant *tokenResponse) time.Time {
	if grant.ExpiresIn > 0 {
		return s.now().Add(time.Duration(grant.ExpiresIn) * time.Second)
	}
	if exp, ok := auth.ExpiryFromToken(grant.AccessToken); ok {
		return exp
	}
	return s.now().Add(DefaultTokenLifetime)
}
