package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nicolasacchi/vmcli/internal/api"
)

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := &Config{
		ClientID:        "1234",
		ClientSecret:    "secret",
		CallbackURL:     "http://127.0.0.1:18272/callback",
		Scopes:          []string{"access_profile", "access_friends"},
		DefaultAudience: "private",
	}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != FilePermissions {
		t.Errorf("permissions = %o, want %o", perm, FilePermissions)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed, stat err = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ClientID != cfg.ClientID || loaded.ClientSecret != cfg.ClientSecret {
		t.Errorf("client = %q/%q, want %q/%q", loaded.ClientID, loaded.ClientSecret, cfg.ClientID, cfg.ClientSecret)
	}
	if len(loaded.Scopes) != 2 || loaded.Scopes[1] != "access_friends" {
		t.Errorf("Scopes = %v", loaded.Scopes)
	}
	if loaded.Audience() != api.AudiencePrivate {
		t.Errorf("Audience = %q, want private", loaded.Audience())
	}
}

func TestLoad_NotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/config.json")
	if err != nil {
		t.Fatalf("Load nonexistent: %v", err)
	}
	if cfg.ClientID != "" {
		t.Errorf("ClientID should be empty for nonexistent config")
	}
	if cfg.APIBaseURL() != api.BaseURL {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL(), api.BaseURL)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte("{invalid"), 0600)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VMCLI_CLIENT_ID", "env-id")
	t.Setenv("VMCLI_CLIENT_SECRET", "env-secret")
	t.Setenv("VMCLI_BASE_URL", "http://localhost:9999/v1/")

	cfg, err := Load("/nonexistent/config.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ClientID != "env-id" {
		t.Errorf("ClientID = %q, want %q", cfg.ClientID, "env-id")
	}
	if cfg.ClientSecret != "env-secret" {
		t.Errorf("ClientSecret = %q, want %q", cfg.ClientSecret, "env-secret")
	}
	if got := cfg.APIBaseURL(); got != "http://localhost:9999/v1" {
		t.Errorf("APIBaseURL = %q", got)
	}
}

func TestPaths_EnvOverride(t *testing.T) {
	t.Setenv("VMCLI_CONFIG", "/tmp/vmcli-test/custom.json")

	dir, path, err := Paths("")
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	if dir != "/tmp/vmcli-test" || path != "/tmp/vmcli-test/custom.json" {
		t.Errorf("Paths = %q, %q", dir, path)
	}

	_, path, _ = Paths("/explicit/config.json")
	if path != "/explicit/config.json" {
		t.Errorf("explicit override ignored: %q", path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"complete", Config{ClientID: "1", ClientSecret: "s"}, false},
		{"missing secret", Config{ClientID: "1"}, true},
		{"missing both", Config{}, true},
		{"bad audience", Config{ClientID: "1", ClientSecret: "s", DefaultAudience: "everyone"}, true},
	}

	for _, tt := range tests {
		err := tt.cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestLoadCredential(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cred.json")
	os.WriteFile(path, []byte(`{
  "access_token": "a",
  "refresh_token": "r",
  "expires_at": "2024-05-01T12:00:00Z",
  "user": {"id": "42", "username": "alice", "balance": "10.50"}
}`), 0600)

	cred, err := LoadCredential(path)
	if err != nil {
		t.Fatalf("LoadCredential: %v", err)
	}
	if cred.AccessToken != "a" || cred.RefreshToken != "r" || cred.User.ID != "42" {
		t.Errorf("cred = %+v", cred)
	}
	if !cred.ExpiresAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("ExpiresAt = %v", cred.ExpiresAt)
	}
	if !cred.User.Balance.Valid || cred.User.Balance.Decimal.String() != "10.5" {
		t.Errorf("Balance = %+v", cred.User.Balance)
	}

	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, []byte(`{}`), 0600)
	if _, err := LoadCredential(empty); err == nil {
		t.Error("expected error for credential without tokens")
	}
}

func TestCredentialFromEnv(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("unset", func(t *testing.T) {
		t.Setenv(EnvAccessToken, "")
		t.Setenv(EnvRefreshToken, "")
		cred, err := CredentialFromEnv(now)
		if err != nil || cred != nil {
			t.Errorf("got %+v, %v; want nil, nil", cred, err)
		}
	})

	t.Run("explicit expiry", func(t *testing.T) {
		t.Setenv(EnvAccessToken, "a")
		t.Setenv(EnvRefreshToken, "r")
		t.Setenv(EnvExpiresAt, "2024-06-01T00:00:00Z")
		cred, err := CredentialFromEnv(now)
		if err != nil {
			t.Fatalf("CredentialFromEnv: %v", err)
		}
		if !cred.ExpiresAt.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("ExpiresAt = %v", cred.ExpiresAt)
		}
	})

	t.Run("opaque token without expiry", func(t *testing.T) {
		t.Setenv(EnvAccessToken, "opaque")
		t.Setenv(EnvRefreshToken, "r")
		t.Setenv(EnvExpiresAt, "")
		cred, err := CredentialFromEnv(now)
		if err != nil {
			t.Fatalf("CredentialFromEnv: %v", err)
		}
		if !cred.ExpiresAt.Equal(now.Add(api.DefaultTokenLifetime)) {
			t.Errorf("ExpiresAt = %v", cred.ExpiresAt)
		}
	})

	t.Run("refresh token only", func(t *testing.T) {
		t.Setenv(EnvAccessToken, "")
		t.Setenv(EnvRefreshToken, "r")
		t.Setenv(EnvExpiresAt, "")
		cred, err := CredentialFromEnv(now)
		if err != nil {
			t.Fatalf("CredentialFromEnv: %v", err)
		}
		if !cred.Expired(now) {
			t.Error("refresh-only credential should start expired")
		}
	})

	t.Run("bad expiry", func(t *testing.T) {
		t.Setenv(EnvAccessToken, "a")
		t.Setenv(EnvExpiresAt, "tomorrow")
		if _, err := CredentialFromEnv(now); err == nil {
			t.Error("expected error for non-RFC3339 expiry")
		}
	})
}

func TestExpandTilde(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}

	for _, tt := range tests {
		got, err := ExpandTilde(tt.input)
		if err != nil {
			t.Errorf("ExpandTilde(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExpandTilde(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
