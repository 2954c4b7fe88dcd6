package stream

import (
	"io"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/errors"
)

// A Writer is a forward-only encrypting view of a ciphertext destination.
// Plaintext written to it is pushed through an encrypting handle obtained
// once at construction. The stream is only complete once Close has sealed
// it. A Writer is not safe for concurrent use.
type Writer struct {
	handle io.WriteCloser
	dst    io.Writer
	opts   Options

	closed bool
}

var _ io.WriteCloser = &Writer{}

// NewWriter opens an encrypting view over dst, bound to associatedData.
// The opener is invoked exactly once; errors it returns are passed through
// unmodified. Unless opts.LeaveOpen is set, closing the Writer also closes
// dst if dst is an io.Closer.
func NewWriter(open OutputOpener, dst io.Writer, associatedData []byte, opts Options) (*Writer, error) {
	if open == nil || dst == nil {
		return nil, ErrNotWritable
	}
	if w, ok := dst.(interface{ Writable() bool }); ok && !w.Writable() {
		return nil, ErrNotWritable
	}

	handle, err := open.OpenOutput(dst, associatedData)
	if err != nil {
		return nil, err
	}

	debug.Log("opened encrypting writer, %d bytes associated data, leave open %v",
		len(associatedData), opts.LeaveOpen)

	return &Writer{handle: handle, dst: dst, opts: opts}, nil
}

// Write passes p to the encrypting handle.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.handle.Write(p)
}

// Flush forwards to the handle when it supports flushing and does nothing
// otherwise. Flushing does not seal the stream, only Close does.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	if f, ok := w.handle.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Read fails unconditionally, the view is write-only.
func (w *Writer) Read(p []byte) (int, error) {
	return 0, ErrUnsupported
}

// Seek fails unconditionally, the view is forward-only.
func (w *Writer) Seek(offset int64, whence int) (int64, error) {
	return 0, ErrUnsupported
}

// Close seals the stream by closing the encrypting handle first, then
// closes the destination unless LeaveOpen was set. Calling Close again
// does nothing.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	debug.Log("closing encrypting writer, leave open %v", w.opts.LeaveOpen)

	errs := []error{w.handle.Close()}
	if !w.opts.LeaveOpen {
		if c, ok := w.dst.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
