package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/auth"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

// Provider yields authenticated HTTP and SDK clients backed by the credential store.
type Provider struct {
	serverURL   string
	bearerToken string // ephemeral token that bypasses the credential store
	store       sdk.CredentialStore

	httpOnce sync.Once
	httpCli  *http.Client
	httpErr  error

	sdkOnce   sync.Once
	sdkClient *sdk.Client
	sdkErr    error
}

// NewProvider constructs a new Provider bound to the given server URL.
func NewProvider(serverURL string) *Provider {
	return &Provider{serverURL: serverURL}
}

// SetBearerToken injects an ephemeral bearer token (--token or SCOUT_TOKEN).
func (p *Provider) SetBearerToken(token string) {
	p.bearerToken = token
}

// SetCredentialStore overrides the default ~/.scout credential store.
func (p *Provider) SetCredentialStore(store sdk.CredentialStore) {
	p.store = store
}

// ServerURL returns the server the provider talks to.
func (p *Provider) ServerURL() string {
	return p.serverURL
}

// Credentials loads the stored credentials.
func (p *Provider) Credentials() (*sdk.Credentials, error) {
	store := p.store
	if store == nil {
		fileStore, err := auth.NewFileStore()
		if err != nil {
			return nil, err
		}
		store = fileStore
	}
	return store.LoadCredentials()
}

// HTTPClient returns an http.Client that sends the caller's bearer token.
func (p *Provider) HTTPClient() (*http.Client, error) {
	p.httpOnce.Do(func() {
		// Priority 1: Ephemeral bearer token
		if p.bearerToken != "" {
			p.httpCli = newTokenClient(&oauth2.Token{AccessToken: p.bearerToken, TokenType: "Bearer"})
			return
		}

		// Priority 2: Credential store
		creds, err := p.Credentials()
		if err != nil {
			p.httpErr = fmt.Errorf("%w; please run `scoutctl auth login --token ...`", err)
			return
		}
		if creds.IsExpired() {
			p.httpErr = errors.New("access token expired; please run `scoutctl auth login` with a fresh token")
			return
		}
		if creds.ServerURL != "" && creds.ServerURL != p.serverURL {
			p.httpErr = fmt.Errorf("stored token was issued for %s, not %s", creds.ServerURL, p.serverURL)
			return
		}

		p.httpCli = newTokenClient(&oauth2.Token{
			AccessToken: creds.AccessToken,
			TokenType:   creds.TokenType,
			Expiry:      creds.ExpiresAt,
		})
	})

	if p.httpErr != nil {
		return nil, p.httpErr
	}
	return p.httpCli, nil
}

// SDKClient returns an authenticated SDK client backed by HTTPClient.
func (p *Provider) SDKClient() (*sdk.Client, error) {
	p.sdkOnce.Do(func() {
		httpClient, err := p.HTTPClient()
		if err != nil {
			p.sdkErr = err
			return
		}
		p.sdkClient = sdk.NewClient(p.serverURL, sdk.WithHTTPClient(httpClient))
	})

	if p.sdkErr != nil {
		return nil, p.sdkErr
	}
	return p.sdkClient, nil
}

func newTokenClient(token *oauth2.Token) *http.Client {
	return oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(token))
}
