// Package auth reads OAuth credentials for the usage API.
//
// Credential sources, freshest token wins:
//  1. macOS Keychain item "Claude Code-credentials"
//  2. ~/.claude/.credentials.json (Linux / older installs)
//  3. quotamon's own token cache (~/.config/quotamon/token.json)
//
// The Claude Code credential format:
//
//	{"claudeAiOauth": {"accessToken": "sk-ant-oat01-...", "refreshToken": "...",
//	 "subscriptionType": "default_claude_pro", "expiresAt": 1800000000000}}
package auth

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"quotamon/internal/config"
	"quotamon/internal/logging"
)

// OAuthCredentials is one credential candidate from a Claude Code install.
type OAuthCredentials struct {
	AccessToken      string
	RefreshToken     string
	SubscriptionType string
	ExpiresAt        time.Time
}

// Wire format uses millisecond timestamps.
type credentialsJSON struct {
	ClaudeAiOauth struct {
		AccessToken      string `json:"accessToken"`
		RefreshToken     string `json:"refreshToken"`
		SubscriptionType string `json:"subscriptionType"`
		ExpiresAt        int64  `json:"expiresAt"`
	} `json:"claudeAiOauth"`
}

func (c *credentialsJSON) toCredentials() *OAuthCredentials {
	o := c.ClaudeAiOauth
	if o.AccessToken == "" {
		return nil
	}
	creds := &OAuthCredentials{
		AccessToken:      o.AccessToken,
		RefreshToken:     o.RefreshToken,
		SubscriptionType: o.SubscriptionType,
	}
	if o.ExpiresAt > 0 {
		creds.ExpiresAt = time.UnixMilli(o.ExpiresAt)
	}
	return creds
}

func parseCredentials(data []byte) *OAuthCredentials {
	var cj credentialsJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return nil
	}
	return cj.toCredentials()
}

// credentialsFilePath is a var so tests can point it at a fixture.
var credentialsFilePath = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", ".credentials.json")
}

// readKeychain reads the Claude Code Keychain item via /usr/bin/security.
// Replaceable in tests; always nil off darwin.
var readKeychain = func() *OAuthCredentials {
	if runtime.GOOS != "darwin" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "/usr/bin/security",
		"find-generic-password", "-s", "Claude Code-credentials", "-w").Output()
	if err != nil {
		return nil
	}
	raw := strings.TrimSpace(string(out))
	if raw == "" {
		return nil
	}
	return parseCredentials([]byte(raw))
}

// CredentialsFilePath returns the Claude Code credentials file location.
// The dashboard watches it to pick up re-logins immediately.
func CredentialsFilePath() string {
	return credentialsFilePath()
}

func readCredentialsFile() *OAuthCredentials {
	path := credentialsFilePath()
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return parseCredentials(data)
}

// ClaudeCodeCredentials returns the freshest credential candidate, comparing
// Keychain and file by expiry when both are present.
func ClaudeCodeCredentials() *OAuthCredentials {
	kc := readKeychain()
	fc := readCredentialsFile()

	switch {
	case kc == nil:
		return fc
	case fc == nil:
		return kc
	case fc.ExpiresAt.After(kc.ExpiresAt):
		logging.Auth("credentials file is fresher than keychain, using file")
		return fc
	default:
		return kc
	}
}

// Token cache: quotamon's own fallback store for manually pasted tokens.

type cachedToken struct {
	OAuthToken string `json:"oauth_token"`
}

func tokenPath() string {
	return filepath.Join(config.Dir(), "token.json")
}

// StoreToken persists a manually supplied OAuth token, mode 0600.
func StoreToken(token string) error {
	if err := config.EnsureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cachedToken{OAuthToken: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tokenPath(), data, 0o600)
}

// LoadToken returns the cached token, or "" when absent or unreadable.
func LoadToken() string {
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return ""
	}
	var ct cachedToken
	if err := json.Unmarshal(data, &ct); err != nil {
		return ""
	}
	return ct.OAuthToken
}

// ClearToken removes the cached token.
func ClearToken() error {
	err := os.Remove(tokenPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// OAuthToken returns a working OAuth token. Claude Code's live credentials
// are preferred over the cache because Claude Code refreshes them.
func OAuthToken() string {
	if creds := ClaudeCodeCredentials(); creds != nil {
		return creds.AccessToken
	}
	return LoadToken()
}

// SubscriptionType returns the subscription identifier from Claude Code
// credentials, or "" when unavailable.
func SubscriptionType() string {
	if creds := ClaudeCodeCredentials(); creds != nil {
		return creds.SubscriptionType
	}
	return ""
}

// IsAuthenticated reports whether any OAuth token source is usable.
func IsAuthenticated() bool {
	return OAuthToken() != ""
}
