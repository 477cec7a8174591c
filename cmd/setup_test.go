package cmd

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/sunsong/certbot-dns-alicloud/internal/logger"
	"github.com/sunsong/certbot-dns-alicloud/internal/provider"
)

func TestNewProviderUnknownFactory(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	config := &Config{Provider: "bogus"}
	_, err := newProvider(context.Background(), config)

	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "provider factory not found"))
	assert.True(t, strings.Contains(buf.String(), "[ERROR] provider factory not found: bogus"))
}

func TestNewProviderAliDNSRequiresCredentialsFile(t *testing.T) {
	config := &Config{Provider: provider.AliDNSName}
	_, err := newProvider(context.Background(), config)

	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "credentials file is required"))
}
