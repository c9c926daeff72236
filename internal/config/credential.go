package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nicolasacchi/vmcli/internal/api"
	"github.com/nicolasacchi/vmcli/internal/auth"
)

// Environment variables for a caller-held credential.
const (
	EnvAccessToken  = "VMCLI_ACCESS_TOKEN"
	EnvRefreshToken = "VMCLI_REFRESH_TOKEN"
	EnvExpiresAt    = "VMCLI_EXPIRES_AT" // RFC 3339
)

// LoadCredential reads a credential file in the format printed by
// 'vmcli login'.
func LoadCredential(path string) (*api.Credential, error) {
	expanded, err := ExpandTilde(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}

	var cred api.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("parsing credential %s: %w", path, err)
	}
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return nil, fmt.Errorf("credential %s has no tokens", path)
	}
	return &cred, nil
}

// CredentialFromEnv builds a credential from VMCLI_ACCESS_TOKEN,
// VMCLI_REFRESH_TOKEN and VMCLI_EXPIRES_AT. It returns nil when neither token
// is set. Without VMCLI_EXPIRES_AT the expiry is read from the access token,
// or assumed to be a full token lifetime away.
func CredentialFromEnv(now time.Time) (*api.Credential, error) {
	access := os.Getenv(EnvAccessToken)
	refresh := os.Getenv(EnvRefreshToken)
	if access == "" && refresh == "" {
		return nil, nil
	}

	cred := &api.Credential{AccessToken: access, RefreshToken: refresh}
	switch v := os.Getenv(EnvExpiresAt); {
	case v != "":
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: expected RFC 3339", EnvExpiresAt, v)
		}
		cred.ExpiresAt = t
	case access == "":
		// Only a refresh token: leave expired so the first call refreshes.
	default:
		if exp, ok := auth.ExpiryFromToken(access); ok {
			cred.ExpiresAt = exp
		} else {
			cred.ExpiresAt = now.Add(api.DefaultTokenLifetime)
		}
	}
	return cred, nil
}
