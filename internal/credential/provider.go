// Package credential obtains bearer tokens for the workflow engine through an
// OAuth2 client-credentials exchange.
package credential

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultTimeout = 15 * time.Second
	minTimeout     = 10 * time.Second
)

// AuthError wraps every failure of the token exchange.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("credential exchange failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
}

// Provider fetches a fresh token on every call. Nothing is cached.
type Provider struct {
	cc         clientcredentials.Config
	httpClient *http.Client
}

func NewProvider(cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout < minTimeout {
		timeout = DefaultTimeout
	}
	var scopes []string
	if cfg.Scope != "" {
		scopes = []string{cfg.Scope}
	}
	return &Provider{
		cc: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Acquire returns a bearer token. clientcredentials.Config.Token always hits
// the token endpoint; only its TokenSource caches.
func (p *Provider) Acquire(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.cc.Token(ctx)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	if tok.AccessToken == "" {
		return "", &AuthError{Err: fmt.Errorf("response has no access_token")}
	}
	return tok.AccessToken, nil
}
