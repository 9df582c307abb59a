package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/tfischer/inboxpilot/internal/instrumentation"
)

// AuthError reports an unusable credential: no stored token, or a refresh
// credential the provider rejected. It is fatal for a run.
type AuthError struct {
	Account string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for account %q: %v", e.Account, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateAccountName rejects account names that could escape the cache
// directory when used in a filename.
func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name must not be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("account name %q may only contain letters, digits, '-' and '_'", account)
	}
	return nil
}

// getTokenFilePath returns the token cache file for an account,
// e.g. ~/.cache/inboxpilot/google-default.token.
func getTokenFilePath(account string) string {
	return filepath.Join(userCacheDir(), "inboxpilot", fmt.Sprintf("google-%s.token", account))
}

// credentialsFilePath returns the OAuth client secret file location. The
// INBOXPILOT_CREDENTIALS environment variable overrides the default of
// ~/.config/inboxpilot/credentials.json.
func credentialsFilePath() string {
	if v := os.Getenv("INBOXPILOT_CREDENTIALS"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "credentials.json"
	}
	return filepath.Join(home, ".config", "inboxpilot", "credentials.json")
}

// getOAuthConfig reads the OAuth client secret JSON downloaded from the
// Google Cloud console. The gmail.modify scope covers read, label and send.
func getOAuthConfig() (*oauth2.Config, error) {
	path := credentialsFilePath()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", path, err)
	}
	conf, err := googleoauth.ConfigFromJSON(b, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file %s: %w", path, err)
	}
	return conf, nil
}

// HasTokenForAccount checks if a stored OAuth token exists for the account.
func HasTokenForAccount(account string) bool {
	if err := validateAccountName(account); err != nil {
		return false
	}
	_, err := os.Stat(getTokenFilePath(account))
	return err == nil
}

// HasToken checks if a stored OAuth token exists for the default account.
func HasToken() bool {
	return HasTokenForAccount("default")
}

// GetAuthURL returns the OAuth consent URL for the interactive bootstrap.
func GetAuthURL() (string, error) {
	conf, err := getOAuthConfig()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline), nil
}

// SaveToken exchanges an authorization code for tokens and persists them for
// the account.
func SaveToken(ctx context.Context, account, authCode string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	conf, err := getOAuthConfig()
	if err != nil {
		return err
	}
	tok, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return writeToken(account, tok)
}

func writeToken(account string, tok *oauth2.Token) error {
	path := getTokenFilePath(account)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	// Token files hold live credentials; keep them private.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func readToken(account string) (*oauth2.Token, error) {
	data, err := os.ReadFile(getTokenFilePath(account))
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}
	return tok, nil
}

// persistingTokenSource wraps a refreshing token source and writes any newly
// minted token back to the cache file, so the refreshed credential survives
// the process.
type persistingTokenSource struct {
	account string
	base    oauth2.TokenSource

	// metrics counts refresh attempts. May be nil.
	metrics *instrumentation.Metrics

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(context.Background(), instrumentation.ResultFailure)
		return nil, &AuthError{Account: s.account, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.AccessToken != tok.AccessToken {
		s.metrics.RecordOAuthTokenRefresh(context.Background(), instrumentation.ResultSuccess)
		s.last = tok
		// Persisting the refreshed token is best-effort; it is still valid
		// for this run even if the write fails.
		_ = writeToken(s.account, tok)
	}
	return tok, nil
}

// GetTokenSourceForAccount returns a token source for the stored credential.
// The source refreshes expired access tokens and persists the result. A
// missing or rejected credential surfaces as *AuthError. metrics may be nil;
// when set, every authentication and refresh attempt is counted.
func GetTokenSourceForAccount(ctx context.Context, account string, metrics *instrumentation.Metrics) (oauth2.TokenSource, error) {
	ts, err := newTokenSource(ctx, account, metrics)
	if err != nil {
		metrics.RecordOAuthAuth(ctx, instrumentation.ResultFailure)
		return nil, err
	}
	metrics.RecordOAuthAuth(ctx, instrumentation.ResultSuccess)
	return ts, nil
}

func newTokenSource(ctx context.Context, account string, metrics *instrumentation.Metrics) (oauth2.TokenSource, error) {
	if err := validateAccountName(account); err != nil {
		return nil, &AuthError{Account: account, Err: err}
	}

	conf, err := getOAuthConfig()
	if err != nil {
		return nil, &AuthError{Account: account, Err: err}
	}

	tok, err := readToken(account)
	if err != nil {
		return nil, &AuthError{Account: account, Err: fmt.Errorf("no stored Google OAuth token: %w", err)}
	}

	ts := &persistingTokenSource{
		account: account,
		base:    conf.TokenSource(ctx, tok),
		metrics: metrics,
		last:    tok,
	}

	// Force an eager refresh so an expired or revoked refresh token fails
	// the run up front, before any message is touched.
	if _, err := ts.Token(); err != nil {
		return nil, err
	}

	return ts, nil
}

// GetHTTPClientForAccount returns an HTTP client that authenticates requests
// with the account's OAuth token.
func GetHTTPClientForAccount(ctx context.Context, account string, metrics *instrumentation.Metrics) (*http.Client, error) {
	ts, err := GetTokenSourceForAccount(ctx, account, metrics)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		panic("No Windows TEMP or TMP environment variables found")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
