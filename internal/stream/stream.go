// Package stream implements forward-only plaintext views over encrypted
// byte streams. A Reader decrypts data pulled from a ciphertext source, a
// Writer encrypts data pushed towards a ciphertext destination. All
// cryptography is delegated to an engine, which receives the raw stream
// once at construction and hands back a handle; the adapters only
// translate between the handle and the usual io contracts.
package stream

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/qinghai5060/sealio/internal/errors"
)

// An InputOpener opens a decrypting view of a ciphertext source. The
// returned handle yields plaintext and reports io.EOF, possibly wrapped,
// once the final authenticated part of the stream has been consumed. Every
// other handle error means the ciphertext is truncated, forged or could
// not be read.
type InputOpener interface {
	OpenInput(src io.Reader, associatedData []byte) (io.Reader, error)
}

// An OutputOpener opens an encrypting view of a ciphertext destination.
// The returned handle accepts plaintext. Closing the handle seals the
// stream; ciphertext written to dst before that is incomplete.
type OutputOpener interface {
	OpenOutput(dst io.Writer, associatedData []byte) (io.WriteCloser, error)
}

// An Engine provides both directions of a streaming AEAD scheme.
type Engine interface {
	InputOpener
	OutputOpener
}

// Options control how an adapter treats the stream it wraps.
type Options struct {
	// LeaveOpen prevents Close from closing the wrapped source or
	// destination. When unset, the adapter owns the underlying stream and
	// closes it together with the cryptographic handle.
	LeaveOpen bool
}

var (
	// ErrClosed is returned when an adapter is used after Close.
	ErrClosed = fmt.Errorf("stream adapter already closed: %w", fs.ErrClosed)

	// ErrUnsupported is returned for operations outside the forward-only
	// contract, like seeking or writing to a Reader.
	ErrUnsupported = fmt.Errorf("operation not supported by stream adapter: %w", errors.ErrUnsupported)

	// ErrNotReadable is returned by NewReader when there is no engine or
	// the ciphertext source cannot be read from.
	ErrNotReadable = fmt.Errorf("ciphertext source is not readable: %w", fs.ErrInvalid)

	// ErrNotWritable is returned by NewWriter when there is no engine or
	// the destination cannot be written to.
	ErrNotWritable = fmt.Errorf("ciphertext destination is not writable: %w", fs.ErrInvalid)
)
