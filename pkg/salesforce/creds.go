package salesforce

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
)

// JWTCredentials are the settings for the JWT bearer flow.
type JWTCredentials struct {
	Domain      string
	Username    string
	ConsumerKey string
	KeyPath     string
	RateLimit   float64
}

// JWTProvider is a CredentialProvider performing the Salesforce JWT bearer
// flow with a locally stored private key.
type JWTProvider struct {
	creds JWTCredentials
}

// NewJWTProvider creates a provider from static credentials.
func NewJWTProvider(creds JWTCredentials) *JWTProvider {
	return &JWTProvider{creds: creds}
}

// ClientFor implements CredentialProvider.
func (p *JWTProvider) ClientFor(_ context.Context, kind string) (Client, error) {
	if kind != "salesforce" {
		return nil, eris.Errorf("sf: unsupported credential kind %q", kind)
	}
	if p.creds.ConsumerKey == "" || p.creds.Username == "" || p.creds.KeyPath == "" {
		return nil, &AuthRequiredError{Kind: kind}
	}

	pemData, err := os.ReadFile(p.creds.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "sf: read JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         p.creds.Domain,
		Username:       p.creds.Username,
		ConsumerKey:    p.creds.ConsumerKey,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "sf: init")
	}

	var opts []ClientOption
	if p.creds.RateLimit > 0 {
		opts = append(opts, WithRateLimit(p.creds.RateLimit))
	}
	return NewClient(sf, opts...), nil
}
