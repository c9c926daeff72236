package resolver

import (
	"errors"
	"strings"
	"testing"

	"github.com/nicolasacchi/vmcli/internal/api"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		in        string
		wantType  api.RecipientType
		wantValue string
	}{
		{"bob@example.com", api.RecipientEmail, "bob@example.com"},
		{"  bob@example.com ", api.RecipientEmail, "bob@example.com"},
		{"+1 (555) 123-4567", api.RecipientPhone, "15551234567"},
		{"555.123.4567", api.RecipientPhone, "5551234567"},
		{"145434160922624933", api.RecipientUserID, "145434160922624933"},
		{"email:odd-address", api.RecipientEmail, "odd-address"},
		{"phone:555-123", api.RecipientPhone, "555123"},
		{"user:5551234567", api.RecipientUserID, "5551234567"},
		{"ID:42", api.RecipientUserID, "42"},
	}

	for _, tt := range tests {
		got, err := Detect(tt.in)
		if err != nil {
			t.Errorf("Detect(%q): %v", tt.in, err)
			continue
		}
		if got.Type != tt.wantType || got.Value != tt.wantValue {
			t.Errorf("Detect(%q) = %s %q, want %s %q", tt.in, got.Type, got.Value, tt.wantType, tt.wantValue)
		}
	}
}

func TestDetect_NeedsLookup(t *testing.T) {
	for _, in := range []string{"bob", "@bob", "Bob Smith", "123-45"} {
		_, err := Detect(in)
		var lookup *NeedsLookupError
		if !errors.As(err, &lookup) {
			t.Errorf("Detect(%q) error = %v, want NeedsLookupError", in, err)
			continue
		}
		if strings.HasPrefix(lookup.Query, "@") {
			t.Errorf("Detect(%q) lookup query kept handle prefix: %q", in, lookup.Query)
		}
	}
}

func TestDetect_BareNumberIsAmbiguous(t *testing.T) {
	for _, in := range []string{"5551234567", "15551234567"} {
		_, err := Detect(in)
		var lookup *NeedsLookupError
		if !errors.As(err, &lookup) || !lookup.Numeric {
			t.Errorf("Detect(%q) error = %v, want numeric NeedsLookupError", in, err)
			continue
		}
		if lookup.Query != in {
			t.Errorf("Detect(%q) lookup query = %q", in, lookup.Query)
		}
		if !strings.Contains(err.Error(), "user:"+in) {
			t.Errorf("error %q does not suggest the user: prefix", err)
		}
	}

	// Neighbouring lengths stay user ids.
	for _, in := range []string{"123456789", "123456789012"} {
		got, err := Detect(in)
		if err != nil || got.Type != api.RecipientUserID {
			t.Errorf("Detect(%q) = %v, %v, want user id", in, got, err)
		}
	}
}

func TestDetect_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "email:", "user:"} {
		if _, err := Detect(in); err == nil {
			t.Errorf("Detect(%q) expected error", in)
		}
	}
}

func testFriends() []api.User {
	return []api.User{
		{ID: "1001001", Username: "bob-smith", DisplayName: "Bob Smith"},
		{ID: "1001002", Username: "bobby", DisplayName: "Bob Jones"},
		{ID: "2002001", Username: "carol", DisplayName: "Carol"},
	}
}

func TestResolveFriend(t *testing.T) {
	tests := []struct {
		query  string
		wantID string
	}{
		{"bob-smith", "1001001"},
		{"@BOBBY", "1001002"},
		{"carol", "2002001"},
		{"bob jones", "1001002"},
		{"2002", "2002001"},
		{"1001002", "1001002"},
	}

	for _, tt := range tests {
		got, err := ResolveFriend(testFriends(), tt.query)
		if err != nil {
			t.Errorf("ResolveFriend(%q): %v", tt.query, err)
			continue
		}
		if got.ID != tt.wantID {
			t.Errorf("ResolveFriend(%q) = %s, want %s", tt.query, got.ID, tt.wantID)
		}
	}
}

func TestResolveFriend_Ambiguous(t *testing.T) {
	_, err := ResolveFriend(testFriends(), "1001")
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
	if !strings.Contains(err.Error(), "bob-smith") || !strings.Contains(err.Error(), "bobby") {
		t.Errorf("error should list the candidates: %v", err)
	}
}

func TestResolveFriend_NotFound(t *testing.T) {
	if _, err := ResolveFriend(testFriends(), "dave"); err == nil {
		t.Fatal("expected not found error")
	}
	if _, err := ResolveFriend(testFriends(), "abc"); err == nil {
		t.Fatal("short queries must not prefix-match")
	}
	if _, err := ResolveFriend(nil, ""); err == nil {
		t.Fatal("expected error for empty query")
	}
}
