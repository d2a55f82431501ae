package quickbooks

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

const (
	// ScopeAccounting grants access to the accounting API.
	ScopeAccounting = "com.intuit.quickbooks.accounting"

	authorizationEndpoint = "https://appcenter.intuit.com/connect/oauth2"
	tokenEndpoint         = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	revokeEndpoint        = "https://developer.api.intuit.com/v2/oauth2/tokens/revoke"

	sandboxAPIHost    = "https://sandbox-quickbooks.api.intuit.com"
	productionAPIHost = "https://quickbooks.api.intuit.com"
)

// Config carries the Intuit app credentials and environment selection.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	WebhookToken string
	Production   bool
}

// ConfigFromEnv builds a Config from environment variables. The client
// id and secret are mandatory.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		ClientID:     os.Getenv("QUICKBOOKS_CLIENT_ID"),
		ClientSecret: os.Getenv("QUICKBOOKS_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("QUICKBOOKS_REDIRECT_URI"),
		WebhookToken: os.Getenv("QUICKBOOKS_WEBHOOK_TOKEN"),
		Production:   os.Getenv("QUICKBOOKS_PRODUCTION") == "true",
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return Config{}, fmt.Errorf("QUICKBOOKS_CLIENT_ID and QUICKBOOKS_CLIENT_SECRET must be set")
	}

	return cfg, nil
}

// APIHost returns the QBO REST host for the configured environment.
func (c Config) APIHost() string {
	if c.Production {
		return productionAPIHost
	}
	return sandboxAPIHost
}

// oauthConfig builds the oauth2 config used for the consent redirect.
func (c Config) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       []string{ScopeAccounting},
		Endpoint: oauth2.Endpoint{
			AuthURL:  authorizationEndpoint,
			TokenURL: tokenEndpoint,
		},
	}
}
