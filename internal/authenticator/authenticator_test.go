package authenticator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/go-acme/lego/v4/challenge/dns01"
)

type recordedCall struct {
	op    string
	fqdn  string
	value string
	ttl   int
}

// fakeProvider records every call in order and can be made to fail.
type fakeProvider struct {
	calls      []recordedCall
	failCreate bool
	failDelete bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateRecord(ctx context.Context, fqdn, value string, ttl int) error {
	f.calls = append(f.calls, recordedCall{op: "create", fqdn: fqdn, value: value, ttl: ttl})
	if f.failCreate {
		return fmt.Errorf("create failed")
	}
	return nil
}

func (f *fakeProvider) DeleteRecord(ctx context.Context, fqdn, value string) error {
	f.calls = append(f.calls, recordedCall{op: "delete", fqdn: fqdn, value: value})
	if f.failDelete {
		return fmt.Errorf("delete failed")
	}
	return nil
}

func (f *fakeProvider) Close(ctx context.Context) error { return nil }

// newTestAuthenticator returns an authenticator whose sleeps are recorded
// instead of executed.
func newTestAuthenticator(p *fakeProvider, slept *[]time.Duration, opts ...Option) *Authenticator {
	a := New(p, opts...)
	a.sleep = func(d time.Duration) {
		*slept = append(*slept, d)
		p.calls = append(p.calls, recordedCall{op: "sleep"})
	}
	return a
}

func TestPresentCreatesThenWaits(t *testing.T) {
	fake := &fakeProvider{}
	var slept []time.Duration
	auth := newTestAuthenticator(fake, &slept)

	err := auth.Present("example.com", "token", "token.key-auth")
	assert.NoError(t, err)

	ops := make([]string, 0, len(fake.calls))
	for _, call := range fake.calls {
		ops = append(ops, call.op)
	}
	assert.Equal(t, []string{"create", "sleep"}, ops)

	info := dns01.GetChallengeInfo("example.com", "token.key-auth")
	assert.Equal(t, info.EffectiveFQDN, fake.calls[0].fqdn)
	assert.Equal(t, info.Value, fake.calls[0].value)
	assert.Equal(t, DefaultTTL, fake.calls[0].ttl)

	assert.Equal(t, []time.Duration{DefaultPropagation}, slept)
}

func TestCleanUpDeletesMatchingRecord(t *testing.T) {
	fake := &fakeProvider{}
	var slept []time.Duration
	auth := newTestAuthenticator(fake, &slept)

	assert.NoError(t, auth.Present("example.com", "token", "token.key-auth"))
	assert.NoError(t, auth.CleanUp("example.com", "token", "token.key-auth"))

	var created, deleted *recordedCall
	for i := range fake.calls {
		switch fake.calls[i].op {
		case "create":
			created = &fake.calls[i]
		case "delete":
			deleted = &fake.calls[i]
		}
	}

	assert.NotZero(t, created)
	assert.NotZero(t, deleted)
	assert.Equal(t, created.fqdn, deleted.fqdn)
	assert.Equal(t, created.value, deleted.value)
}

func TestPresentPropagationOption(t *testing.T) {
	fake := &fakeProvider{}
	var slept []time.Duration
	auth := newTestAuthenticator(fake, &slept, WithPropagation(3*time.Second))

	assert.NoError(t, auth.Present("example.com", "token", "token.key-auth"))
	assert.Equal(t, []time.Duration{3 * time.Second}, slept)
}

func TestPresentZeroPropagation(t *testing.T) {
	fake := &fakeProvider{}
	var slept []time.Duration
	auth := newTestAuthenticator(fake, &slept, WithPropagation(0))

	assert.NoError(t, auth.Present("example.com", "token", "token.key-auth"))
	assert.Equal(t, []time.Duration{0}, slept)
}

func TestPresentWildcardDomain(t *testing.T) {
	fake := &fakeProvider{}
	var slept []time.Duration
	auth := newTestAuthenticator(fake, &slept)

	// The wildcard name is handed through untouched; the challenge record
	// lands on the base domain per the dns-01 contract.
	assert.NoError(t, auth.Present("*.example.com", "token", "token.key-auth"))

	info := dns01.GetChallengeInfo("*.example.com", "token.key-auth")
	assert.Equal(t, info.EffectiveFQDN, fake.calls[0].fqdn)
}

func TestPresentCreateFailureSkipsWait(t *testing.T) {
	fake := &fakeProvider{failCreate: true}
	var slept []time.Duration
	auth := newTestAuthenticator(fake, &slept)

	err := auth.Present("example.com", "token", "token.key-auth")
	assert.Error(t, err)
	assert.Equal(t, 0, len(slept))
}

func TestCleanUpFailure(t *testing.T) {
	fake := &fakeProvider{failDelete: true}
	var slept []time.Duration
	auth := newTestAuthenticator(fake, &slept)

	err := auth.CleanUp("example.com", "token", "token.key-auth")
	assert.Error(t, err)
}

func TestTimeoutCoversPropagation(t *testing.T) {
	auth := New(&fakeProvider{}, WithPropagation(30*time.Second))

	timeout, interval := auth.Timeout()
	assert.True(t, timeout > 30*time.Second)
	assert.True(t, interval > 0)
}

func TestWithTTL(t *testing.T) {
	fake := &fakeProvider{}
	var slept []time.Duration
	auth := newTestAuthenticator(fake, &slept, WithTTL(1200))

	assert.NoError(t, auth.Present("example.com", "token", "token.key-auth"))
	assert.Equal(t, 1200, fake.calls[0].ttl)
}

func TestChallengeFQDN(t *testing.T) {
	assert.Equal(t, "_acme-challenge.example.com.", ChallengeFQDN("example.com"))
	assert.Equal(t, "_acme-challenge.example.com.", ChallengeFQDN("*.example.com"))
	assert.Equal(t, "_acme-challenge.www.example.com.", ChallengeFQDN("www.example.com."))
}

// The manual record commands and the ACME flow must agree on the record name.
func TestChallengeFQDNMatchesPresent(t *testing.T) {
	fake := &fakeProvider{}
	var slept []time.Duration
	auth := newTestAuthenticator(fake, &slept)

	assert.NoError(t, auth.Present("sub.example.com", "token", "token.key-auth"))
	assert.Equal(t, ChallengeFQDN("sub.example.com"), fake.calls[0].fqdn)
}
