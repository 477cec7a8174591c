package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sunsong/certbot-dns-alicloud/internal/authenticator"
	"github.com/sunsong/certbot-dns-alicloud/internal/credentials"
	"github.com/sunsong/certbot-dns-alicloud/internal/logger"
	"github.com/sunsong/certbot-dns-alicloud/internal/provider"
)

// newProvider resolves the configured provider factory and builds the
// provider, loading and permission-checking the credentials file when the
// backend needs it.
func newProvider(ctx context.Context, config *Config) (provider.Provider, error) {
	factory, ok := provider.GetFactory(config.Provider)
	if !ok {
		return nil, logger.Errorf("provider factory not found: %s", config.Provider)
	}

	var creds *credentials.Credentials
	if config.Provider == provider.AliDNSName {
		if config.CredentialsFile == "" {
			return nil, fmt.Errorf("credentials file is required for the %s provider (--credentials or ALICLOUD_CREDENTIALS_FILE)", provider.AliDNSName)
		}
		c, err := credentials.Load(config.CredentialsFile)
		if err != nil {
			return nil, err
		}
		creds = c
	}

	p, err := factory(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	return p, nil
}

// newAuthenticator wires the provider into a dns-01 authenticator with the
// configured propagation wait and TTL.
func newAuthenticator(p provider.Provider, config *Config) *authenticator.Authenticator {
	return authenticator.New(p,
		authenticator.WithPropagation(time.Duration(config.PropagationSeconds)*time.Second),
		authenticator.WithTTL(config.TTL),
	)
}
