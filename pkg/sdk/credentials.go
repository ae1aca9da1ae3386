package sdk

import "time"

// Credentials is a bearer token minted by `scoutapi token issue` together
// with the server it was issued for.
type Credentials struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	ServerURL   string    `json:"server_url,omitempty"`
}

// IsExpired reports whether the token has a known expiry in the past.
func (c *Credentials) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// CredentialStore persists credentials between CLI invocations.
type CredentialStore interface {
	SaveCredentials(credentials *Credentials) error
	LoadCredentials() (*Credentials, error)
	DeleteCredentials() error
}
