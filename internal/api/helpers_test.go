package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

const (
	testClientID     = "1234"
	testClientSecret = "client-secret"
	testUserID       = "145434160922624933"
)

// fakeVenmo routes "METHOD /path" to handlers and counts calls per route.
type fakeVenmo struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
}

func newFakeVenmo(t *testing.T) *fakeVenmo {
	t.Helper()
	f := &fakeVenmo{
		t:        t,
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeVenmo) handle(route string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[route] = h
}

func (f *fakeVenmo) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *fakeVenmo) serve(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.calls[route]++
	h, ok := f.handlers[route]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": 283, "message": "Resource not found."},
		})
		return
	}
	h(w, r)
}

// testClock is a settable clock shared by a session under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestClient(f *fakeVenmo, clock *testClock) *Client {
	tr := NewHTTPTransport(f.srv.URL, WithHTTPClient(f.srv.Client()))
	sess := NewSession(testClientID, testClientSecret, tr, WithClock(clock.Now))
	return NewClient(sess)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func testUser() map[string]any {
	return map[string]any{
		"id":           testUserID,
		"username":     "alice",
		"first_name":   "Alice",
		"last_name":    "Liddell",
		"display_name": "Alice Liddell",
		"email":        "alice@example.com",
	}
}

// tokenGrant answers both code exchange and refresh. Code exchanges get the
// user payload; refreshes only get tokens.
func tokenGrant(access, refresh string, expiresIn int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		body := map[string]any{
			"access_token":  access,
			"refresh_token": refresh,
			"expires_in":    expiresIn,
			"token_type":    "bearer",
		}
		if r.PostForm.Get("code") != "" {
			body["user"] = testUser()
			body["balance"] = "100.00"
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func errorEnvelope(status, code int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, map[string]any{
			"error": map[string]any{"code": code, "message": message},
		})
	}
}
