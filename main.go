package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/sunsong/certbot-dns-alicloud/cmd"
	"github.com/sunsong/certbot-dns-alicloud/internal/logger"
	"github.com/sunsong/certbot-dns-alicloud/internal/provider"
)

// CLI holds the command-line interface structure.
type CLI struct {
	Obtain struct {
		Domains   []string `arg:"" help:"Domains to include in the certificate (wildcards like *.example.com allowed)."`
		Email     string   `help:"ACME account email."`
		Server    string   `help:"ACME directory URL (defaults to Let's Encrypt production)."`
		OutputDir string   `help:"Directory for the certificate artifacts."`
	} `cmd:"" help:"Obtain a certificate using a DNS-01 challenge."`

	Present struct {
		Domain string `arg:"" help:"Domain to present the challenge for."`
		Value  string `arg:"" help:"Challenge TXT record value."`
	} `cmd:"" help:"Create the challenge TXT record and wait for propagation."`

	Cleanup struct {
		Domain string `arg:"" help:"Domain to clean the challenge up for."`
		Value  string `arg:"" help:"Challenge TXT record value."`
	} `cmd:"" help:"Delete the challenge TXT record."`

	Version struct{} `cmd:"" help:"Print the current version."`

	Credentials        string `help:"AliCloud credentials INI file." type:"path"`
	PropagationSeconds int    `help:"Seconds to wait for DNS propagation (default 10)." default:"-1"`
	Provider           string `help:"DNS provider to use."`
	TTL                int    `help:"TTL for challenge TXT records."`
	ListProviders      bool   `help:"List available DNS providers."`
}

var (
	buildVersion = "dev"
)

const fallbackVersion = "0.0.0-dev"

func versionString() string {
	if trimmed := strings.TrimSpace(buildVersion); trimmed != "" {
		return trimmed
	}
	return fallbackVersion
}

func main() {
	logger.SetLevelFromString(os.Getenv("LOG_LEVEL"))

	var cli CLI
	ctx := kong.Parse(&cli)

	if cli.ListProviders {
		fmt.Println("Available providers:")
		for _, name := range provider.List() {
			fmt.Println("-", name)
		}
		return
	}

	if ctx.Command() == "version" {
		fmt.Println(versionString())
		return
	}

	config, err := cmd.LoadConfig()
	if err != nil {
		ctx.FatalIfErrorf(fmt.Errorf("failed to load configuration: %w", err))
	}

	applyFlags(&cli, config)
	if err := config.Validate(); err != nil {
		ctx.FatalIfErrorf(err)
	}

	logger.Debug("Configuration loaded: provider=%s, propagation=%ds, ttl=%d",
		config.Provider, config.PropagationSeconds, config.TTL)

	switch ctx.Command() {
	case "obtain <domains>":
		err = cmd.RunObtain(cli.Obtain.Domains, config)
	case "present <domain> <value>":
		err = cmd.RunPresent(cli.Present.Domain, cli.Present.Value, config)
	case "cleanup <domain> <value>":
		err = cmd.RunCleanup(cli.Cleanup.Domain, cli.Cleanup.Value, config)
	default:
		err = fmt.Errorf("unknown command: %s", ctx.Command())
	}

	if err != nil {
		logger.Error("Command %q failed: %v", ctx.Command(), err)
		os.Exit(1)
	}
}

// applyFlags overrides environment configuration with explicit flag values.
func applyFlags(cli *CLI, config *cmd.Config) {
	if cli.Credentials != "" {
		config.CredentialsFile = cli.Credentials
	}
	if cli.PropagationSeconds >= 0 {
		config.PropagationSeconds = cli.PropagationSeconds
	}
	if cli.Provider != "" {
		config.Provider = strings.ToLower(cli.Provider)
	}
	if cli.TTL != 0 {
		config.TTL = cli.TTL
	}
	if cli.Obtain.Email != "" {
		config.Email = cli.Obtain.Email
	}
	if cli.Obtain.Server != "" {
		config.Server = cli.Obtain.Server
	}
	if cli.Obtain.OutputDir != "" {
		config.OutputDir = cli.Obtain.OutputDir
	}
}
