package auth

import (
	"strings"

	"golang.org/x/oauth2"
)

const (
	authorizePath = "/oauth/authorize"
	tokenPath     = "/oauth/access_token"
)

// DefaultScopes are requested when the config names none.
var DefaultScopes = []string{"make_payments", "access_profile", "access_friends", "access_feed", "access_balance", "access_email", "access_phone"}

// AuthorizeURL builds the page the user visits to grant access. After
// approval Venmo redirects to redirectURL with ?code=...&state=state.
func AuthorizeURL(baseURL, clientID, redirectURL, state string, scopes []string) string {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	base := strings.TrimRight(baseURL, "/")
	cfg := oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURL,
		Scopes:      scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + authorizePath,
			TokenURL: base + tokenPath,
		},
	}
	return cfg.AuthCodeURL(state)
}
