package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes are the Google OAuth scopes the automation needs.
//
//   - Gmail: read and label messages in the watched inbox
//   - Drive: upload attachments and manage the files it created
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/drive.file",
}

// Credentials holds an offline OAuth grant. The refresh token is
// obtained once out of band and supplied through configuration, so the
// service can mint access tokens unattended.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

func (c Credentials) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
}

// TokenSource returns a self-refreshing token source backed by the
// stored refresh token. The initial exchange is validated so a revoked
// grant surfaces at startup rather than mid-cycle.
func (c Credentials) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	ts := c.config().TokenSource(ctx, &oauth2.Token{
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	})
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("google oauth refresh failed: %w", err)
	}
	return oauth2.ReuseTokenSource(nil, ts), nil
}

// HTTPClient returns an HTTP client that attaches OAuth tokens to every
// request, for use with the Gmail and Drive services.
func (c Credentials) HTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := c.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// AuthURL returns the consent URL used during the one-time manual grant
// that produces the refresh token.
func (c Credentials) AuthURL() string {
	conf := c.config()
	return conf.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code from the consent flow for a
// token carrying the long-lived refresh token.
func (c Credentials) Exchange(ctx context.Context, authCode string) (*oauth2.Token, error) {
	t, err := c.config().Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if t.RefreshToken == "" {
		return nil, fmt.Errorf("google did not return a refresh token; revoke access and retry")
	}
	return t, nil
}
