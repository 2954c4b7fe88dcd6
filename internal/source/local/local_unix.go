//go:build !windows

package local

import (
	"os"
	"syscall"

	"github.com/qinghai5060/sealio/internal/errors"
)

// fsyncDir flushes the metadata of directory dir, so a freshly renamed
// file survives a crash.
func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}

	err = d.Sync()
	if syncNotSupported(err) || errors.Is(err, syscall.ENOENT) {
		err = nil
	}

	if cerr := d.Close(); err == nil {
		err = cerr
	}

	return err
}

// syncNotSupported reports whether err means the filesystem cannot fsync.
func syncNotSupported(err error) bool {
	return errors.Is(err, syscall.ENOTSUP) || errors.Is(err, syscall.EINVAL)
}
