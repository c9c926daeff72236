// Package resolver turns the free-form recipient a user types into the
// identifier POST /payments expects.
package resolver

import (
	"fmt"
	"strings"

	"github.com/nicolasacchi/vmcli/internal/api"
)

// Recipient is a resolved payment recipient.
type Recipient struct {
	Type  api.RecipientType
	Value string
}

// NeedsLookupError is returned by Detect for input that looks like a username
// or name and must be matched against the friends list with ResolveFriend.
type NeedsLookupError struct {
	Query string
	// Numeric is set for a bare 10 or 11 digit string, which could be
	// either a phone number or a user id.
	Numeric bool
}

func (e *NeedsLookupError) Error() string {
	if e.Numeric {
		return fmt.Sprintf("%q could be a phone number or a user id; write phone:%s or user:%s", e.Query, e.Query, e.Query)
	}
	return fmt.Sprintf("%q is not an email, phone number or user id", e.Query)
}

// Detect classifies query without any network access. Explicit prefixes
// (email:, phone:, user:) win; otherwise an "@" means email and a formatted
// number of 10 or 11 digits (with + - ( ) . or spaces) means a phone number.
// Other all-digit strings are user ids, except bare 10 or 11 digit ones:
// those are looked up among friends by id and otherwise need a prefix.
// A leading "@" is a username handle.
func Detect(query string) (Recipient, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Recipient{}, fmt.Errorf("empty recipient")
	}

	if kind, value, ok := strings.Cut(query, ":"); ok {
		switch strings.ToLower(kind) {
		case "email":
			return Recipient{Type: api.RecipientEmail, Value: value}, nonEmpty(value)
		case "phone":
			return Recipient{Type: api.RecipientPhone, Value: digitsOnly(value)}, nonEmpty(digitsOnly(value))
		case "user", "id":
			return Recipient{Type: api.RecipientUserID, Value: value}, nonEmpty(value)
		}
	}

	if strings.HasPrefix(query, "@") {
		return Recipient{}, &NeedsLookupError{Query: strings.TrimPrefix(query, "@")}
	}
	if strings.Contains(query, "@") {
		return Recipient{Type: api.RecipientEmail, Value: query}, nil
	}

	if digits := digitsOnly(query); isDigits(digits) {
		phoneLength := len(digits) == 10 || len(digits) == 11
		switch {
		case phoneLength && digits != query:
			return Recipient{Type: api.RecipientPhone, Value: digits}, nil
		case phoneLength:
			return Recipient{}, &NeedsLookupError{Query: query, Numeric: true}
		case digits == query:
			return Recipient{Type: api.RecipientUserID, Value: query}, nil
		}
	}

	return Recipient{}, &NeedsLookupError{Query: query}
}

// ResolveFriend matches query against friends by username, display name or
// id, all case-insensitive. An id prefix of at least 4 characters also
// matches. More than one match is an error.
func ResolveFriend(friends []api.User, query string) (api.User, error) {
	query = strings.TrimPrefix(strings.TrimSpace(query), "@")
	if query == "" {
		return api.User{}, fmt.Errorf("empty recipient")
	}

	var matches []api.User
	for _, f := range friends {
		if matchesFriend(f, query) {
			matches = append(matches, f)
		}
	}

	switch len(matches) {
	case 0:
		return api.User{}, fmt.Errorf("no friend found matching %q", query)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Username
		}
		return api.User{}, fmt.Errorf("ambiguous recipient %q matches %d friends (%s); use a username or user id",
			query, len(matches), strings.Join(names, ", "))
	}
}

func matchesFriend(u api.User, query string) bool {
	if strings.EqualFold(u.Username, query) || strings.EqualFold(u.ID, query) {
		return true
	}
	if u.DisplayName != "" && strings.EqualFold(u.DisplayName, query) {
		return true
	}
	return len(query) >= 4 && strings.HasPrefix(u.ID, query)
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '+', '-', '(', ')', '.', ' ':
			return -1
		}
		return r
	}, s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func nonEmpty(v string) error {
	if v == "" {
		return fmt.Errorf("empty recipient")
	}
	return nil
}
