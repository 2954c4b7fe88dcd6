// Package local provides sources reading and writing files on the local
// filesystem. Written files appear under their final name only after they
// were written and synced completely.
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/limiter"
	"github.com/qinghai5060/sealio/internal/source"
)

// Source is a file on the local filesystem.
type Source struct {
	cfg Config
	lim limiter.Limiter
}

// ensure statically that *Source implements source.Source.
var _ source.Source = &Source{}

// NewFactory returns a factory for files on the local filesystem.
func NewFactory() source.Factory {
	return source.NewLimitedSourceFactory("local", ParseConfig, source.NoPassword, open)
}

func open(_ context.Context, cfg Config, lim limiter.Limiter) (*Source, error) {
	return &Source{cfg: cfg, lim: lim}, nil
}

// Location returns this source's location.
func (s *Source) Location() string {
	return s.cfg.Path
}

// Open opens the file for reading.
func (s *Source) Open(_ context.Context) (io.ReadCloser, error) {
	debug.Log("Open %v", s.cfg.Path)

	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return limiter.LimitReadCloser(f, s.lim), nil
}

// Stat returns information about the file.
func (s *Source) Stat(_ context.Context) (source.FileInfo, error) {
	debug.Log("Stat %v", s.cfg.Path)

	fi, err := os.Stat(s.cfg.Path)
	if err != nil {
		return source.FileInfo{}, errors.WithStack(err)
	}

	return source.FileInfo{Size: fi.Size(), Name: fi.Name()}, nil
}

// Create opens the file for writing. Data is written to a file with a
// temporary name first and renamed to its final name by Close, an
// interrupted run leaves no partial file behind.
func (s *Source) Create(_ context.Context) (io.WriteCloser, error) {
	debug.Log("Create %v", s.cfg.Path)
	dir := filepath.Dir(s.cfg.Path)
	tmpname := filepath.Base(s.cfg.Path) + "-tmp-"

	f, err := os.CreateTemp(dir, tmpname)
	if errors.Is(err, os.ErrNotExist) {
		debug.Log("error %v: creating dir", err)

		// error is caused by a missing directory, try to create it
		mkdirErr := os.MkdirAll(dir, 0700)
		if mkdirErr != nil {
			debug.Log("error creating dir %v: %v", dir, mkdirErr)
		} else {
			// try again
			f, err = os.CreateTemp(dir, tmpname)
		}
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &tempWriter{
		f:     f,
		w:     limiter.LimitWriteCloser(f, s.lim),
		final: s.cfg.Path,
		sync:  s.cfg.Sync,
	}, nil
}

// Close releases the source, the file itself stays.
func (s *Source) Close() error {
	return nil
}

// tempWriter writes to a file with a temporary name and moves it to its
// final name on Close.
type tempWriter struct {
	f     *os.File
	w     io.Writer
	final string
	sync  bool
}

func (w *tempWriter) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

func (w *tempWriter) Close() (err error) {
	defer func() {
		if err != nil {
			// remove the temporary file, it is incomplete
			_ = w.f.Close()
			_ = os.Remove(w.f.Name())
		}
	}()

	if w.sync {
		err = w.f.Sync()
		if err != nil && !syncNotSupported(err) {
			return errors.WithStack(err)
		}
	}

	// Close, then rename. Windows doesn't like the reverse order.
	if err = w.f.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err = os.Rename(w.f.Name(), w.final); err != nil {
		return errors.WithStack(err)
	}

	// now sync the directory to commit the rename
	if w.sync {
		err = fsyncDir(filepath.Dir(w.final))
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}
