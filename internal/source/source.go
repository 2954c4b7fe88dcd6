// Package source provides access to ciphertext stored at different kinds of
// locations: local files as well as objects on sftp, s3 and http servers. A
// location string selects the scheme, each scheme registers a Factory with a
// Registry.
package source

import (
	"context"
	"io"
)

// FileInfo is returned by Stat() and contains information about a file.
type FileInfo struct {
	Size int64
	Name string
}

// A Source is a single file at some location. The streams a source hands
// out are forward-only, neither reading nor writing supports seeking.
type Source interface {
	// Location returns a description of where the file lives, with
	// credentials removed, suitable for display.
	Location() string

	// Open opens the file for reading. If the file does not exist, the
	// returned error satisfies errors.Is(err, os.ErrNotExist) for every
	// scheme.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Create opens the file for writing, replacing an already existing
	// file.
	Create(ctx context.Context) (io.WriteCloser, error)

	// Stat returns information about the file. Errors are translated
	// like for Open.
	Stat(ctx context.Context) (FileInfo, error)

	// Close releases the source. Clients shared through a Pool stay
	// open.
	Close() error
}

// ApplyEnvironmenter fills in a source configuration from the environment
type ApplyEnvironmenter interface {
	ApplyEnvironment()
}
