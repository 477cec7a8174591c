package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-acme/lego/v4/lego"

	"github.com/sunsong/certbot-dns-alicloud/internal/provider"
)

// Config represents the application configuration
type Config struct {
	CredentialsFile    string
	PropagationSeconds int
	Provider           string
	TTL                int
	Email              string
	Server             string
	OutputDir          string
}

// LoadConfig reads configuration from the environment, applying defaults.
// Command-line flags override these values afterwards.
func LoadConfig() (*Config, error) {
	config := &Config{
		PropagationSeconds: 10,
		Provider:           provider.AliDNSName,
		TTL:                provider.MinAliDNSTTL,
		Server:             lego.LEDirectoryProduction,
		OutputDir:          "certificates",
	}

	config.CredentialsFile = os.Getenv("ALICLOUD_CREDENTIALS_FILE")

	if seconds := os.Getenv("PROPAGATION_SECONDS"); seconds != "" {
		s, err := strconv.Atoi(seconds)
		if err != nil {
			return nil, fmt.Errorf("invalid PROPAGATION_SECONDS: %w", err)
		}
		config.PropagationSeconds = s
	}

	if prov := os.Getenv("DNS_PROVIDER"); prov != "" {
		config.Provider = strings.ToLower(prov)
	}

	if ttl := os.Getenv("DNS_TTL"); ttl != "" {
		t, err := strconv.Atoi(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid DNS_TTL: %w", err)
		}
		config.TTL = t
	}

	config.Email = os.Getenv("ACME_EMAIL")

	if server := os.Getenv("ACME_SERVER"); server != "" {
		config.Server = server
	}

	if dir := os.Getenv("OUTPUT_DIR"); dir != "" {
		config.OutputDir = dir
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration invariants after flag overrides.
func (c *Config) Validate() error {
	if c.PropagationSeconds < 0 {
		return fmt.Errorf("propagation seconds must be non-negative, got %d", c.PropagationSeconds)
	}

	if c.Provider == provider.AliDNSName {
		if c.TTL < provider.MinAliDNSTTL || c.TTL > provider.MaxAliDNSTTL {
			return fmt.Errorf("TTL must be between %d and %d for AliCloud DNS, got %d",
				provider.MinAliDNSTTL, provider.MaxAliDNSTTL, c.TTL)
		}
	} else if c.TTL <= 0 {
		return fmt.Errorf("TTL must be positive, got %d", c.TTL)
	}

	return nil
}
