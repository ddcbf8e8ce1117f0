// Package identity acquires access tokens for the file storage provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/rpggio/lectern/internal/repository"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

var (
	// ErrAuthRequired indicates no signed-in account can supply a token
	// silently; the user has to sign in interactively.
	ErrAuthRequired = errors.New("authentication required")
	// ErrNotConfigured indicates the OAuth client has no client ID.
	ErrNotConfigured = errors.New("identity provider not configured")
)

// TokenSource yields bearer tokens for storage calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// AccountStore persists the signed-in account's tokens.
type AccountStore interface {
	LoadAccount(ctx context.Context) (*oauth2.Token, error)
	SaveAccount(ctx context.Context, token *oauth2.Token) error
}

// Config describes the OAuth client.
type Config struct {
	ClientID     string
	ClientSecret string
	Tenant       string
	RedirectURL  string
	Scopes       []string
	// Endpoint overrides the Microsoft identity platform endpoint.
	Endpoint *oauth2.Endpoint
	// HTTPClient is used for token exchange and refresh.
	HTTPClient *http.Client
}

// Provider acquires tokens silently from the stored account and falls back
// to the authorization-code flow when none is available.
type Provider struct {
	oauth  *oauth2.Config
	store  AccountStore
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	source oauth2.TokenSource
	last   *oauth2.Token
}

// NewProvider creates a Provider.
func NewProvider(cfg Config, store AccountStore, logger *slog.Logger) *Provider {
	endpoint := microsoft.AzureADEndpoint(cfg.Tenant)
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		store:  store,
		client: cfg.HTTPClient,
		logger: logger,
	}
}

// Token returns an access token for the signed-in account, refreshing it
// when expired.
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.source == nil {
		stored, err := p.store.LoadAccount(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrAuthRequired
		}
		if err != nil {
			return "", fmt.Errorf("loading account: %w", err)
		}
		p.last = stored
		p.source = oauth2.ReuseTokenSource(stored, p.oauth.TokenSource(p.tokenContext(), stored))
	}

	tok, err := p.source.Token()
	if err != nil {
		p.source = nil
		if p.logger != nil {
			p.logger.WarnContext(ctx, "silent token acquisition failed", "error", err)
		}
		return "", fmt.Errorf("%w: %v", ErrAuthRequired, err)
	}

	if p.last == nil || tok.AccessToken != p.last.AccessToken {
		p.last = tok
		if err := p.store.SaveAccount(ctx, tok); err != nil && p.logger != nil {
			p.logger.WarnContext(ctx, "persisting refreshed token failed", "error", err)
		}
	}
	return tok.AccessToken, nil
}

// LoginURL returns the interactive sign-in URL.
func (p *Provider) LoginURL(state string) (string, error) {
	if p.oauth.ClientID == "" {
		return "", ErrNotConfigured
	}
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// CompleteLogin exchanges an authorization code and stores the account.
func (p *Provider) CompleteLogin(ctx context.Context, code string) error {
	if p.oauth.ClientID == "" {
		return ErrNotConfigured
	}
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	if err := p.store.SaveAccount(ctx, tok); err != nil {
		return fmt.Errorf("saving account: %w", err)
	}

	p.mu.Lock()
	p.last = tok
	p.source = oauth2.ReuseTokenSource(tok, p.oauth.TokenSource(p.tokenContext(), tok))
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.InfoContext(ctx, "storage account signed in")
	}
	return nil
}

// tokenContext outlives any single request since refreshes happen lazily.
func (p *Provider) tokenContext() context.Context {
	ctx := context.Background()
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}
	return ctx
}

// StaticProvider returns a fixed token. An empty token reports
// ErrAuthRequired.
type StaticProvider string

// Token implements TokenSource.
func (s StaticProvider) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrAuthRequired
	}
	return string(s), nil
}
