package cmd

import (
	"context"

	"github.com/sunsong/certbot-dns-alicloud/internal/issuer"
	"github.com/sunsong/certbot-dns-alicloud/internal/logger"
)

// RunObtain performs a full certificate issuance: it solves a dns-01
// challenge for each domain through the configured provider and writes the
// certificate artifacts to the output directory.
func RunObtain(domains []string, config *Config) error {
	ctx := context.Background()

	p, err := newProvider(ctx, config)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	logger.Info("Using DNS provider: %s", p.Name())

	iss, err := issuer.New(issuer.Config{
		Domains:      domains,
		Email:        config.Email,
		DirectoryURL: config.Server,
		OutputDir:    config.OutputDir,
	})
	if err != nil {
		return err
	}

	result, err := iss.Issue(ctx, newAuthenticator(p, config))
	if err != nil {
		return err
	}

	logger.Info("Certificate written to %s", result.CertificatePath)
	logger.Info("Private key written to %s", result.PrivateKeyPath)
	if result.IssuerCertificatePath != "" {
		logger.Info("Issuer certificate written to %s", result.IssuerCertificatePath)
	}

	return nil
}
