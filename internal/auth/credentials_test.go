package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func withCredentialsFile(t *testing.T, contents string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ".credentials.json")
	if contents != "" {
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatalf("write credentials fixture: %v", err)
		}
	}
	orig := credentialsFilePath
	credentialsFilePath = func() string { return path }
	t.Cleanup(func() { credentialsFilePath = orig })
}

func withKeychain(t *testing.T, creds *OAuthCredentials) {
	t.Helper()
	orig := readKeychain
	readKeychain = func() *OAuthCredentials { return creds }
	t.Cleanup(func() { readKeychain = orig })
}

const fileCreds = `{
  "claudeAiOauth": {
    "accessToken": "sk-ant-oat01-filetoken",
    "refreshToken": "rt-1",
    "subscriptionType": "default_claude_pro",
    "expiresAt": 1800000000000
  }
}`

func TestFileCredentialsUsedWhenNoKeychain(t *testing.T) {
	withCredentialsFile(t, fileCreds)
	withKeychain(t, nil)

	creds := ClaudeCodeCredentials()
	if creds == nil {
		t.Fatal("ClaudeCodeCredentials returned nil")
	}
	if creds.AccessToken != "sk-ant-oat01-filetoken" {
		t.Errorf("AccessToken = %q", creds.AccessToken)
	}
	if creds.SubscriptionType != "default_claude_pro" {
		t.Errorf("SubscriptionType = %q", creds.SubscriptionType)
	}
	if want := time.UnixMilli(1800000000000); !creds.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", creds.ExpiresAt, want)
	}
}

func TestFreshestTokenWins(t *testing.T) {
	withCredentialsFile(t, fileCreds)

	// Keychain entry expires before the file entry: file should win.
	withKeychain(t, &OAuthCredentials{
		AccessToken: "sk-ant-oat01-stale",
		ExpiresAt:   time.UnixMilli(1700000000000),
	})
	if got := ClaudeCodeCredentials().AccessToken; got != "sk-ant-oat01-filetoken" {
		t.Fatalf("stale keychain: got token %q, want file token", got)
	}

	// Keychain fresher than file: keychain wins.
	withKeychain(t, &OAuthCredentials{
		AccessToken: "sk-ant-oat01-fresh",
		ExpiresAt:   time.UnixMilli(1900000000000),
	})
	if got := ClaudeCodeCredentials().AccessToken; got != "sk-ant-oat01-fresh" {
		t.Fatalf("fresh keychain: got token %q, want keychain token", got)
	}
}

func TestMalformedCredentialsFileIgnored(t *testing.T) {
	withCredentialsFile(t, "{not json")
	withKeychain(t, nil)

	if creds := ClaudeCodeCredentials(); creds != nil {
		t.Fatalf("expected nil credentials, got %+v", creds)
	}
}

func TestEmptyAccessTokenIgnored(t *testing.T) {
	withCredentialsFile(t, `{"claudeAiOauth": {"accessToken": ""}}`)
	withKeychain(t, nil)

	if creds := ClaudeCodeCredentials(); creds != nil {
		t.Fatalf("expected nil credentials, got %+v", creds)
	}
}

func TestTokenCacheRoundTrip(t *testing.T) {
	t.Setenv("QUOTAMON_CONFIG_DIR", t.TempDir())
	withCredentialsFile(t, "")
	withKeychain(t, nil)

	if got := LoadToken(); got != "" {
		t.Fatalf("LoadToken on empty cache = %q", got)
	}
	if IsAuthenticated() {
		t.Fatal("IsAuthenticated true with no sources")
	}

	if err := StoreToken("sk-ant-oat01-manual"); err != nil {
		t.Fatalf("StoreToken: %v", err)
	}
	if got := OAuthToken(); got != "sk-ant-oat01-manual" {
		t.Fatalf("OAuthToken = %q, want cached token", got)
	}

	info, err := os.Stat(tokenPath())
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}

	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if IsAuthenticated() {
		t.Fatal("IsAuthenticated true after ClearToken")
	}
	// Clearing twice is fine.
	if err := ClearToken(); err != nil {
		t.Fatalf("second ClearToken: %v", err)
	}
}

func TestClaudeCodeCredentialsPreferredOverCache(t *testing.T) {
	t.Setenv("QUOTAMON_CONFIG_DIR", t.TempDir())
	withCredentialsFile(t, fileCreds)
	withKeychain(t, nil)

	if err := StoreToken("sk-ant-oat01-manual"); err != nil {
		t.Fatalf("StoreToken: %v", err)
	}
	if got := OAuthToken(); got != "sk-ant-oat01-filetoken" {
		t.Fatalf("OAuthToken = %q, want live credentials to win", got)
	}
}
