// Package authenticator sequences the dns-01 challenge record lifecycle
// against a DNS provider: create the challenge TXT record, wait a fixed
// propagation delay, and delete the record on cleanup. It satisfies the lego
// challenge.Provider contract so any lego-based ACME client can drive it.
package authenticator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-acme/lego/v4/challenge/dns01"

	"github.com/sunsong/certbot-dns-alicloud/internal/logger"
	"github.com/sunsong/certbot-dns-alicloud/internal/provider"
)

const (
	// DefaultPropagation is the wait after creating the challenge record.
	DefaultPropagation = 10 * time.Second
	// DefaultTTL is the challenge record TTL (AliCloud's minimum).
	DefaultTTL = 600

	// apiTimeout bounds a single provider API call.
	apiTimeout = 30 * time.Second
)

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithPropagation sets the propagation wait after record creation.
func WithPropagation(d time.Duration) Option {
	return func(a *Authenticator) {
		a.propagation = d
	}
}

// WithTTL sets the TTL for challenge TXT records.
func WithTTL(ttl int) Option {
	return func(a *Authenticator) {
		a.ttl = ttl
	}
}

// Authenticator performs and cleans up dns-01 challenges on a DNS provider.
type Authenticator struct {
	provider    provider.Provider
	propagation time.Duration
	ttl         int
	sleep       func(time.Duration)
}

// New creates an Authenticator on top of the given provider.
func New(p provider.Provider, opts ...Option) *Authenticator {
	a := &Authenticator{
		provider:    p,
		propagation: DefaultPropagation,
		ttl:         DefaultTTL,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Present creates the challenge TXT record and blocks for the propagation
// delay before returning control to the ACME client. The domain is handed to
// the challenge-info computation untouched; wildcard names pass through.
func (a *Authenticator) Present(domain, token, keyAuth string) error {
	info := dns01.GetChallengeInfo(domain, keyAuth)

	ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
	defer cancel()

	logger.Debug("Presenting challenge for %s: fqdn=%s", domain, info.EffectiveFQDN)

	if err := a.provider.CreateRecord(ctx, info.EffectiveFQDN, info.Value, a.ttl); err != nil {
		return fmt.Errorf("present %s: %w", domain, err)
	}

	logger.Info("TXT record created for %s, waiting %s for DNS propagation", info.EffectiveFQDN, a.propagation)
	a.sleep(a.propagation)

	return nil
}

// CleanUp deletes the challenge TXT record created by Present.
func (a *Authenticator) CleanUp(domain, token, keyAuth string) error {
	info := dns01.GetChallengeInfo(domain, keyAuth)

	ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
	defer cancel()

	logger.Debug("Cleaning up challenge for %s: fqdn=%s", domain, info.EffectiveFQDN)

	if err := a.provider.DeleteRecord(ctx, info.EffectiveFQDN, info.Value); err != nil {
		return fmt.Errorf("cleanup %s: %w", domain, err)
	}

	return nil
}

// Timeout reports how long the ACME client should poll for the record to
// propagate and at which interval.
func (a *Authenticator) Timeout() (timeout, interval time.Duration) {
	return a.propagation + 2*time.Minute, 4 * time.Second
}

// ChallengeFQDN returns the dns-01 record name for a domain, derived through
// the same challenge-info computation Present and CleanUp use (minus CNAME
// following, which needs live DNS). A leading wildcard label is dropped
// first, since ACME validates *.example.com at example.com.
func ChallengeFQDN(domain string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(domain, "*."), ".")
	return dns01.GetChallengeInfo(name, "").FQDN
}
