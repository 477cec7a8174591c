// Package issuer obtains certificates from an ACME CA using dns-01
// challenges and writes the resulting artifacts to disk.
package issuer

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/sunsong/certbot-dns-alicloud/internal/logger"
)

// Config holds the issuance parameters.
type Config struct {
	Domains      []string
	Email        string
	DirectoryURL string // ACME directory, defaults to Let's Encrypt production
	OutputDir    string
	KeyType      certcrypto.KeyType // defaults to RSA2048
}

// Result captures the file paths of the written certificate artifacts.
type Result struct {
	CertificatePath       string
	PrivateKeyPath        string
	IssuerCertificatePath string
}

// Issuer drives a single certificate issuance against an ACME CA.
type Issuer struct {
	cfg             Config
	clientFactory   clientFactory
	accountKeyMaker func() (crypto.PrivateKey, error)
}

// New validates the config and constructs an Issuer.
func New(cfg Config) (*Issuer, error) {
	if len(cfg.Domains) == 0 {
		return nil, errors.New("at least one domain is required")
	}
	for i := range cfg.Domains {
		cfg.Domains[i] = strings.TrimSpace(cfg.Domains[i])
		if cfg.Domains[i] == "" {
			return nil, errors.New("domain entries cannot be empty")
		}
	}
	if strings.TrimSpace(cfg.Email) == "" {
		return nil, errors.New("email is required")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return nil, errors.New("output directory is required")
	}
	if cfg.DirectoryURL == "" {
		cfg.DirectoryURL = lego.LEDirectoryProduction
	}
	if cfg.KeyType == "" {
		cfg.KeyType = certcrypto.RSA2048
	}

	return &Issuer{
		cfg:           cfg,
		clientFactory: defaultClientFactory,
		accountKeyMaker: func() (crypto.PrivateKey, error) {
			return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		},
	}, nil
}

// Issue registers an ACME account, solves dns-01 challenges through the given
// provider, obtains the certificate, and writes the artifacts to disk.
func (i *Issuer) Issue(ctx context.Context, prov challenge.Provider) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	accountKey, err := i.accountKeyMaker()
	if err != nil {
		return nil, fmt.Errorf("generate account key: %w", err)
	}

	user := &accountUser{
		email: i.cfg.Email,
		key:   accountKey,
	}

	legoCfg := lego.NewConfig(user)
	legoCfg.CADirURL = i.cfg.DirectoryURL
	legoCfg.Certificate.KeyType = i.cfg.KeyType

	client, err := i.clientFactory(legoCfg)
	if err != nil {
		return nil, fmt.Errorf("create acme client: %w", err)
	}

	if err := client.SetDNS01Provider(prov); err != nil {
		return nil, fmt.Errorf("configure dns-01 provider: %w", err)
	}

	reg, err := client.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
	if err != nil {
		return nil, fmt.Errorf("register account: %w", err)
	}
	user.registration = reg

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("Requesting certificate for %s", strings.Join(i.cfg.Domains, ", "))

	certRes, err := client.Obtain(certificate.ObtainRequest{
		Domains: i.cfg.Domains,
		Bundle:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("obtain certificate: %w", err)
	}

	return i.writeArtifacts(certRes)
}

func (i *Issuer) writeArtifacts(certRes *certificate.Resource) (*Result, error) {
	if certRes == nil {
		return nil, errors.New("certificate resource is nil")
	}

	if err := os.MkdirAll(i.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure output directory: %w", err)
	}

	baseName := fileSegment(i.cfg.Domains[0])
	certPath := filepath.Join(i.cfg.OutputDir, baseName+".crt")
	keyPath := filepath.Join(i.cfg.OutputDir, baseName+".key")
	issuerPath := filepath.Join(i.cfg.OutputDir, baseName+"-issuer.crt")

	if len(certRes.PrivateKey) == 0 {
		return nil, errors.New("empty private key received from ACME server")
	}
	if err := os.WriteFile(keyPath, certRes.PrivateKey, 0o600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}

	if len(certRes.Certificate) == 0 {
		return nil, errors.New("empty certificate payload received from ACME server")
	}
	if err := os.WriteFile(certPath, certRes.Certificate, 0o644); err != nil {
		return nil, fmt.Errorf("write certificate: %w", err)
	}

	result := &Result{
		CertificatePath: certPath,
		PrivateKeyPath:  keyPath,
	}

	if len(certRes.IssuerCertificate) > 0 {
		if err := os.WriteFile(issuerPath, certRes.IssuerCertificate, 0o644); err != nil {
			return nil, fmt.Errorf("write issuer certificate: %w", err)
		}
		result.IssuerCertificatePath = issuerPath
	}

	return result, nil
}

// fileSegment turns a domain into a safe artifact file name; a wildcard
// prefix is dropped so *.example.com shares its base name with example.com.
func fileSegment(domain string) string {
	var b strings.Builder
	b.Grow(len(domain))
	for _, r := range strings.ToLower(strings.TrimSpace(domain)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	segment := strings.Trim(b.String(), "._-")
	if segment == "" {
		return "certificate"
	}
	return segment
}

type clientFactory func(*lego.Config) (acmeClient, error)

// acmeClient is the slice of the lego client the issuer needs, extracted for
// testing.
type acmeClient interface {
	Register(options registration.RegisterOptions) (*registration.Resource, error)
	SetDNS01Provider(p challenge.Provider) error
	Obtain(request certificate.ObtainRequest) (*certificate.Resource, error)
}

func defaultClientFactory(cfg *lego.Config) (acmeClient, error) {
	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &legoClientAdapter{client: client}, nil
}

type legoClientAdapter struct {
	client *lego.Client
}

func (l *legoClientAdapter) Register(options registration.RegisterOptions) (*registration.Resource, error) {
	return l.client.Registration.Register(options)
}

func (l *legoClientAdapter) SetDNS01Provider(p challenge.Provider) error {
	return l.client.Challenge.SetDNS01Provider(p)
}

func (l *legoClientAdapter) Obtain(request certificate.ObtainRequest) (*certificate.Resource, error) {
	return l.client.Certificate.Obtain(request)
}

type accountUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *accountUser) GetEmail() string {
	return u.email
}

func (u *accountUser) GetRegistration() *registration.Resource {
	return u.registration
}

func (u *accountUser) GetPrivateKey() crypto.PrivateKey {
	return u.key
}
