package provider

import (
	"context"
	"fmt"
	"sort"

	"github.com/sunsong/certbot-dns-alicloud/internal/credentials"
)

// Provider is the record-level contract a DNS backend fulfils for dns-01
// challenges. Both calls are single synchronous operations against the
// backend API; failures abort the current certificate operation.
type Provider interface {
	Name() string
	CreateRecord(ctx context.Context, fqdn, value string, ttl int) error
	DeleteRecord(ctx context.Context, fqdn, value string) error
	Close(ctx context.Context) error
}

// Factory builds a Provider. Backends that authenticate through the
// credentials INI file receive it; others (e.g. Route53 via the AWS default
// chain) may ignore it.
type Factory func(ctx context.Context, creds *credentials.Credentials) (Provider, error)

// APIError wraps a failure of a DNS backend API call.
type APIError struct {
	Provider string
	Op       string
	Err      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

var (
	// factories holds the registered provider factories.
	factories = make(map[string]Factory)
)

// RegisterFactory registers a provider factory function.
// This is called by provider implementations in their init() function.
func RegisterFactory(name string, factory Factory) {
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("provider factory already registered: %s", name))
	}
	factories[name] = factory
}

// GetFactory retrieves a provider factory by name.
func GetFactory(name string) (Factory, bool) {
	factory, ok := factories[name]
	return factory, ok
}

// List returns the names of all registered providers, sorted alphabetically.
func List() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
