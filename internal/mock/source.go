// Package mock provides a configurable source for tests.
package mock

import (
	"context"
	"io"

	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/source"
)

// Source implements a mock source.
type Source struct {
	LocationFn func() string
	OpenFn     func(ctx context.Context) (io.ReadCloser, error)
	CreateFn   func(ctx context.Context) (io.WriteCloser, error)
	StatFn     func(ctx context.Context) (source.FileInfo, error)
	CloseFn    func() error
}

// NewSource returns a new mock Source instance.
func NewSource() *Source {
	return &Source{}
}

// Location returns a location string.
func (m *Source) Location() string {
	if m.LocationFn == nil {
		return ""
	}

	return m.LocationFn()
}

// Open opens the file for reading.
func (m *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if m.OpenFn == nil {
		return nil, errors.New("not implemented")
	}

	return m.OpenFn(ctx)
}

// Create opens the file for writing.
func (m *Source) Create(ctx context.Context) (io.WriteCloser, error) {
	if m.CreateFn == nil {
		return nil, errors.New("not implemented")
	}

	return m.CreateFn(ctx)
}

// Stat returns information about the file.
func (m *Source) Stat(ctx context.Context) (source.FileInfo, error) {
	if m.StatFn == nil {
		return source.FileInfo{}, errors.New("not implemented")
	}

	return m.StatFn(ctx)
}

// Close closes the source.
func (m *Source) Close() error {
	if m.CloseFn == nil {
		return nil
	}

	return m.CloseFn()
}

// ensure statically that *Source implements source.Source.
var _ source.Source = &Source{}
