package cmd

import (
	"context"
	"time"

	"github.com/sunsong/certbot-dns-alicloud/internal/authenticator"
	"github.com/sunsong/certbot-dns-alicloud/internal/logger"
)

// RunPresent creates the challenge TXT record for a domain and waits for
// propagation, for operators driving the ACME transaction externally.
func RunPresent(domain, value string, config *Config) error {
	ctx := context.Background()

	p, err := newProvider(ctx, config)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	fqdn := authenticator.ChallengeFQDN(domain)

	if err := p.CreateRecord(ctx, fqdn, value, config.TTL); err != nil {
		return err
	}

	wait := time.Duration(config.PropagationSeconds) * time.Second
	logger.Info("TXT record created for %s, waiting %s for DNS propagation", fqdn, wait)
	time.Sleep(wait)

	return nil
}

// RunCleanup deletes the challenge TXT record for a domain.
func RunCleanup(domain, value string, config *Config) error {
	ctx := context.Background()

	p, err := newProvider(ctx, config)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	fqdn := authenticator.ChallengeFQDN(domain)

	if err := p.DeleteRecord(ctx, fqdn, value); err != nil {
		return err
	}

	logger.Info("TXT record removed for %s", fqdn)
	return nil
}
