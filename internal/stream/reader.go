package stream

import (
	"io"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/errors"
)

// A Reader is a forward-only plaintext view of an encrypted stream. It
// pulls ciphertext from the wrapped source through a decrypting handle
// obtained once at construction and never replaced. A Reader is not safe
// for concurrent use.
type Reader struct {
	handle io.Reader
	src    io.Reader
	opts   Options

	eof    bool
	closed bool
}

var _ io.ReadCloser = &Reader{}
var _ io.WriterTo = &Reader{}

// NewReader opens a decrypting view of the ciphertext in src, bound to
// associatedData. The opener is invoked exactly once; errors it returns
// are passed through unmodified. Unless opts.LeaveOpen is set, closing the
// Reader also closes src if src is an io.Closer.
func NewReader(open InputOpener, src io.Reader, associatedData []byte, opts Options) (*Reader, error) {
	if open == nil || src == nil {
		return nil, ErrNotReadable
	}
	if r, ok := src.(interface{ Readable() bool }); ok && !r.Readable() {
		return nil, ErrNotReadable
	}

	handle, err := open.OpenInput(src, associatedData)
	if err != nil {
		return nil, err
	}

	debug.Log("opened decrypting reader, %d bytes associated data, leave open %v",
		len(associatedData), opts.LeaveOpen)

	return &Reader{handle: handle, src: src, opts: opts}, nil
}

// Read fills p with plaintext from the handle. A handle error that wraps
// io.EOF signals clean exhaustion of the stream and is normalized to plain
// io.EOF; all other errors, io.ErrUnexpectedEOF included, pass through
// unchanged.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if r.eof {
		return 0, io.EOF
	}

	n, err := r.handle.Read(p)
	if err != nil && errors.Is(err, io.EOF) {
		r.eof = true
		err = io.EOF
	}
	return n, err
}

// WriteTo drains the remaining plaintext into w. On clean exhaustion it
// returns the number of bytes written and a nil error.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if r.eof {
		return 0, nil
	}

	n, err := io.Copy(w, r.handle)
	if err != nil && errors.Is(err, io.EOF) {
		err = nil
	}
	if err == nil {
		r.eof = true
	}
	return n, err
}

// Seek fails unconditionally, the view is forward-only. The method exists
// so that callers probing for io.Seeker get a definite answer at the first
// call instead of silently corrupted offsets.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	return 0, ErrUnsupported
}

// Write fails unconditionally, the view is read-only.
func (r *Reader) Write(p []byte) (int, error) {
	return 0, ErrUnsupported
}

// Close releases the decrypting handle and then, unless LeaveOpen was set,
// the ciphertext source. Calling Close again does nothing.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	debug.Log("closing decrypting reader, leave open %v", r.opts.LeaveOpen)

	var errs []error
	if c, ok := r.handle.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if !r.opts.LeaveOpen {
		if c, ok := r.src.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
