package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicolasacchi/vmcli/internal/paginate"
)

const (
	BaseURL        = "https://api.venmo.com/v1"
	requestTimeout = 30 * time.Second

	// FriendsPageSize is the page size used when fetching a whole friends list.
	FriendsPageSize = 50
	// PaymentsPageSize is the page size used when fetching all payments.
	PaymentsPageSize = 50
	// DefaultRecentLimit is the number of recent payments the CLI shows.
	DefaultRecentLimit = 25

	dateParamLayout = "2006-01-02T15:04:05"
)

// Client is the Venmo API client. Every call goes through the session's
// EnsureValid first, so any call may refresh the session as a side effect.
type Client struct {
	session   *Session
	transport Transport
	logger    zerolog.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client issuing requests for session over the
// session's transport.
func NewClient(session *Session, opts ...ClientOption) *Client {
	c := &Client{
		session:   session,
		transport: session.transport,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call runs the common request skeleton: ensure a valid credential, attach
// its access token, send, classify, decode the envelope.
func call[T any](ctx context.Context, c *Client, method, path string, params url.Values) (envelope[T], uint64, error) {
	cred, gen, err := c.session.ensureValid(ctx)
	if err != nil {
		return envelope[T]{}, 0, err
	}

	form := url.Values{}
	for k, v := range params {
		form[k] = append([]string(nil), v...)
	}
	form.Set("access_token", cred.AccessToken)

	var resp *Response
	if method == http.MethodPost {
		resp, err = c.transport.Post(ctx, path, form)
	} else {
		resp, err = c.transport.Get(ctx, path, form)
	}
	if err != nil {
		return envelope[T]{}, gen, err
	}

	env, err := decodeEnvelope[T](resp)
	if err != nil {
		return env, gen, c.sessionFault(gen, err)
	}
	return env, gen, nil
}

// sessionFault invalidates session gen when err is a revoked-token rejection
// and converts it to ErrNotAuthenticated. Other errors pass through.
func (c *Client) sessionFault(gen uint64, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Revoked() {
		c.session.invalidate(gen)
		return fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	return err
}

// --- Session ---

// Session returns the session this client authenticates with.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Login(ctx context.Context, code string) (Credential, error) {
	return c.session.Login(ctx, code)
}

func (c *Client) Restore(cred Credential) error {
	return c.session.Restore(cred)
}

func (c *Client) Logout() {
	c.session.Invalidate()
}

// --- Users ---

// GetMe fetches the authenticated user with their balance and replaces the
// session's cached user snapshot.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	env, gen, err := call[meData](ctx, c, http.MethodGet, "/me", nil)
	if err != nil {
		return User{}, err
	}

	me := env.Data.User
	if env.Data.Balance.Valid {
		me.Balance = env.Data.Balance
	}
	c.session.updateUser(gen, func(User) User { return me })
	return me, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (User, error) {
	env, _, err := call[User](ctx, c, http.MethodGet, "/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return User{}, err
	}
	return env.Data, nil
}

// FriendsPage fetches one page of userID's friends. An empty cursor fetches
// the first page of pageSize entries; later pages reuse the cursor's query.
func (c *Client) FriendsPage(ctx context.Context, userID string, pageSize int, cursor paginate.Cursor) (paginate.Page[User], error) {
	params, err := pageParams(cursor, pageSize)
	if err != nil {
		return paginate.Page[User]{}, err
	}

	env, _, err := call[[]User](ctx, c, http.MethodGet, "/users/"+url.PathEscape(userID)+"/friends", params)
	if err != nil {
		return paginate.Page[User]{}, err
	}

	page := paginate.Page[User]{Items: env.Data, Next: env.Cursor()}
	c.logger.Debug().Str("user_id", userID).Int("items", len(page.Items)).Bool("more", page.Next != "").Msg("friends page")
	return page, nil
}

// GetFriends returns userID's friends in server order. limit <= 0 fetches
// the whole list.
func (c *Client) GetFriends(ctx context.Context, userID string, limit int) ([]User, error) {
	pageSize := FriendsPageSize
	if limit > 0 {
		pageSize = limit
	}
	return paginate.All(ctx, func(ctx context.Context, cursor paginate.Cursor) (paginate.Page[User], error) {
		return c.FriendsPage(ctx, userID, pageSize, cursor)
	}, limit)
}

// --- Payments ---

func (c *Client) GetTransaction(ctx context.Context, paymentID string) (Transaction, error) {
	env, _, err := call[Transaction](ctx, c, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return Transaction{}, err
	}
	return env.Data, nil
}

// PaymentsPage fetches one page of the authenticated user's payments.
func (c *Client) PaymentsPage(ctx context.Context, params ListPaymentsParams, cursor paginate.Cursor) (paginate.Page[Transaction], error) {
	pageSize := PaymentsPageSize
	if params.Limit > 0 {
		pageSize = params.Limit
	}
	q, err := pageParams(cursor, pageSize)
	if err != nil {
		return paginate.Page[Transaction]{}, err
	}
	if cursor == "" {
		if !params.After.IsZero() {
			q.Set("after", params.After.UTC().Format(dateParamLayout))
		}
		if !params.Before.IsZero() {
			q.Set("before", params.Before.UTC().Format(dateParamLayout))
		}
	}

	env, _, err := call[[]Transaction](ctx, c, http.MethodGet, "/payments", q)
	if err != nil {
		return paginate.Page[Transaction]{}, err
	}

	page := paginate.Page[Transaction]{Items: env.Data, Next: env.Cursor()}
	c.logger.Debug().Int("items", len(page.Items)).Bool("more", page.Next != "").Msg("payments page")
	return page, nil
}

// GetRecentTransactions returns the authenticated user's most recent
// payments, newest first as the server orders them. params.Limit <= 0
// fetches all of them.
func (c *Client) GetRecentTransactions(ctx context.Context, params ListPaymentsParams) ([]Transaction, error) {
	return paginate.All(ctx, func(ctx context.Context, cursor paginate.Cursor) (paginate.Page[Transaction], error) {
		return c.PaymentsPage(ctx, params, cursor)
	}, params.Limit)
}

// PostTransaction pays or, with a negative amount, charges a recipient. The
// cached user balance is set from the response, or marked unknown when the
// response has none.
func (c *Client) PostTransaction(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if !req.RecipientType.Valid() {
		return PaymentResult{}, fmt.Errorf("invalid recipient type %q", req.RecipientType)
	}
	if req.Recipient == "" {
		return PaymentResult{}, fmt.Errorf("empty recipient")
	}
	if req.Amount.IsZero() {
		return PaymentResult{}, fmt.Errorf("amount must not be zero")
	}
	audience := req.Audience
	if audience == "" {
		audience = AudiencePublic
	}
	if !audience.Valid() {
		return PaymentResult{}, fmt.Errorf("invalid audience %q (expected public, friends or private)", audience)
	}

	form := url.Values{}
	form.Set(string(req.RecipientType), req.Recipient)
	form.Set("note", req.Note)
	form.Set("amount", req.Amount.String())
	form.Set("audience", string(audience))

	env, gen, err := call[PaymentResult](ctx, c, http.MethodPost, "/payments", form)
	if err != nil {
		return PaymentResult{}, err
	}

	balance := env.Data.Balance
	c.session.updateUser(gen, func(u User) User {
		u.Balance = balance
		return u
	})
	return env.Data, nil
}

// pageParams builds the query for a page request. The cursor, when present,
// already carries limit and offset; the access token is set by call.
func pageParams(cursor paginate.Cursor, pageSize int) (url.Values, error) {
	if cursor == "" {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		return q, nil
	}
	q, err := url.ParseQuery(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid page cursor: %w", err)
	}
	return q, nil
}
