package credentials

import (
	"os"

	"github.com/sunsong/certbot-dns-alicloud/internal/logger"
)

// groupOtherRead covers the read bits for group and other users.
const groupOtherRead = 0o044

// WorldReadable reports whether the file at path can be read by users other
// than its owner.
func WorldReadable(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().Perm()&groupOtherRead != 0, nil
}

// warnIfWorldReadable emits an operator-facing warning when the credentials
// file is readable by other users. It runs on every load and cannot be
// suppressed; only fixing the file permissions silences it. Stat failures are
// ignored here, the subsequent load reports them with more context.
func warnIfWorldReadable(path string) {
	readable, err := WorldReadable(path)
	if err != nil {
		return
	}
	if readable {
		logger.Warn("Credentials file %s is readable by group/other users; consider restricting it with chmod 600", path)
	}
}
