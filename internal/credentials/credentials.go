package credentials

import (
	"fmt"

	"gopkg.in/ini.v1"

	"github.com/sunsong/certbot-dns-alicloud/internal/logger"
	"github.com/sunsong/certbot-dns-alicloud/internal/util"
)

// INI keys expected in the credentials file.
const (
	KeyAccessKey = "dns_alicloud_access_key"
	KeySecretKey = "dns_alicloud_secret_key"
	KeyRegion    = "dns_alicloud_region"
)

// Credentials holds the AliCloud API credentials read from the INI file.
type Credentials struct {
	AccessKey string
	SecretKey string
	Region    string
}

// ConfigError reports a missing or unreadable credentials configuration.
// Key is set when a specific INI key was absent or empty.
type ConfigError struct {
	Path string
	Key  string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("credentials file %s: missing required key %q", e.Path, e.Key)
	}
	return fmt.Sprintf("credentials file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads the AliCloud credentials from the INI file at path.
// All three keys must be present and non-empty. A file readable by other
// users produces a warning on every call; it never fails the load.
func Load(path string) (*Credentials, error) {
	warnIfWorldReadable(path)

	file, err := ini.Load(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	section := file.Section("")

	creds := &Credentials{
		AccessKey: section.Key(KeyAccessKey).String(),
		SecretKey: section.Key(KeySecretKey).String(),
		Region:    section.Key(KeyRegion).String(),
	}

	for _, required := range []struct {
		key   string
		value string
	}{
		{KeyAccessKey, creds.AccessKey},
		{KeySecretKey, creds.SecretKey},
		{KeyRegion, creds.Region},
	} {
		if required.value == "" {
			return nil, &ConfigError{Path: path, Key: required.key}
		}
	}

	logger.Debug("Credentials loaded from %s: access key=%s, secret key=%s, region=%s",
		path, util.MaskValue(creds.AccessKey), util.MaskSecret(creds.SecretKey), creds.Region)

	return creds, nil
}
