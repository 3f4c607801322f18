// Package auth runs the OAuth installed-app flow for Google Calendar and
// caches the resulting token.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/tasktrack/pkg/config"
	"github.com/harrisonrobin/tasktrack/pkg/logging"
)

const (
	// ClientSecretsFile is the Google API credentials.json downloaded from the
	// cloud console, read from the app directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile holds the access and refresh token, next to the credentials.
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local server listens for the OAuth redirect.
	LocalhostAuthPort = "6789"

	authTimeout = 5 * time.Minute
)

// CalendarScopes are the scopes sync needs.
var CalendarScopes = []string{
	calendar.CalendarEventsScope,
	calendar.CalendarReadonlyScope,
}

// Flow holds where credentials live and where the flow reports progress.
type Flow struct {
	Dir    string
	Logger *log.Logger
	// Out receives the authorization URL the user must open.
	Out io.Writer
}

// NewFlow returns a Flow rooted at the app config directory.
func NewFlow(logger *log.Logger) (*Flow, error) {
	dir, err := config.AppDir()
	if err != nil {
		return nil, fmt.Errorf("could not find path to configuration directory: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Flow{Dir: dir, Logger: logger, Out: os.Stdout}, nil
}

func (f *Flow) TokenPath() string {
	return filepath.Join(f.Dir, TokenFile)
}

// Config creates an oauth2.Config from the client secrets file and scopes.
func (f *Flow) Config(scopes []string) (*oauth2.Config, error) {
	clientSecretsFile := filepath.Join(f.Dir, ClientSecretsFile)
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	cfg.RedirectURL = f.redirectURL(cfg.RedirectURL)
	return cfg, nil
}

// redirectURL forces localhost and out-of-band redirects onto
// LocalhostAuthPort so they reach the local callback server.
func (f *Flow) redirectURL(raw string) string {
	if raw == "urn:ietf:wg:oauth:2.0:oob" {
		forced := fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
		f.Logger.Debug("overriding out-of-band redirect", "redirect", forced)
		return forced
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		f.Logger.Warn("could not parse redirect URL, using it as is", "redirect", raw, "err", err)
		return raw
	}
	if parsed.Hostname() != "localhost" && parsed.Hostname() != "127.0.0.1" {
		f.Logger.Warn("redirect URL is not a localhost callback", "redirect", raw)
		return raw
	}
	if parsed.Port() != "" && parsed.Port() != LocalhostAuthPort {
		f.Logger.Warn("redirect port mismatch, forcing local port", "configured", parsed.Port(), "port", LocalhostAuthPort)
	}
	parsed.Host = net.JoinHostPort(parsed.Hostname(), LocalhostAuthPort)
	return parsed.String()
}

// Client returns an authenticated *http.Client. It loads the cached token,
// or runs the browser flow when there is none.
func (f *Flow) Client(ctx context.Context, scopes []string) (*http.Client, error) {
	cfg, err := f.Config(scopes)
	if err != nil {
		return nil, err
	}

	tokenFile := f.TokenPath()
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		f.Logger.Info("no cached token, starting web authorization", "path", tokenFile)
		tok, err = f.tokenFromWeb(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}

	// Re-save when the token source refreshed the access token.
	go func() {
		current, err := cfg.TokenSource(ctx, tok).Token()
		if err != nil {
			f.Logger.Warn("could not read current token for re-saving", "err", err)
			return
		}
		if current.AccessToken != tok.AccessToken || current.RefreshToken != tok.RefreshToken {
			f.Logger.Debug("token refreshed, saving", "path", tokenFile)
			if err := saveToken(tokenFile, current); err != nil {
				f.Logger.Warn("could not save refreshed token", "err", err)
			}
		}
	}()

	return cfg.Client(ctx, tok), nil
}

// Reset deletes the cached token so the next Client call re-authorizes.
func (f *Flow) Reset() error {
	err := os.Remove(f.TokenPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete token file %s, please delete it manually: %w", f.TokenPath(), err)
	}
	if err == nil {
		f.Logger.Info("removed existing token", "path", f.TokenPath())
	}
	return nil
}

// CalendarService creates an authenticated Google Calendar service.
func (f *Flow) CalendarService(ctx context.Context) (*calendar.Service, error) {
	client, err := f.Client(ctx, CalendarScopes)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client for Calendar API: %w", err)
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Google Calendar service: %w", err)
	}
	return srv, nil
}

// tokenFromWeb runs the authorization code flow, capturing the redirect on a
// local HTTP server.
func (f *Flow) tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler:      callbackHandler(codeCh, errCh),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		f.Logger.Debug("listening for OAuth2 redirect", "redirect", cfg.RedirectURL)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	defer server.Shutdown(context.Background())

	// AccessTypeOffline makes Google return a refresh token.
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(f.Out, "Open the following URL in your browser to authorize tasktrack:\n%s\n", authURL)
	f.Logger.Info("waiting for authorization code")

	select {
	case code := <-codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(exchangeCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authorization timed out, please try again")
	}
}

func callbackHandler(codeCh chan<- string, errCh chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Authorization code not found", http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("authorization code not found in redirect URL"):
			default:
			}
			return
		}
		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		select {
		case codeCh <- code:
		default:
		}
	})
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

// saveToken writes the token readable by the owner only.
func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to encode OAuth token: %w", err)
	}
	return nil
}
