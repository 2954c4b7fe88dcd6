// Package limiter implements rate limiting for sealed streams moving to
// and from remote locations.
package limiter

import (
	"io"
	"net/http"
)

// Limiter rate limits the raw ciphertext I/O of a transfer. Plaintext is
// never throttled, the limits apply where the bytes actually cross the
// network.
type Limiter interface {
	// Upstream returns a rate limited reader that is intended to be used in
	// uploads.
	Upstream(r io.Reader) io.Reader

	// UpstreamWriter returns a rate limited writer that is intended to be used
	// in uploads.
	UpstreamWriter(w io.Writer) io.Writer

	// Downstream returns a rate limited reader that is intended to be used
	// for downloads.
	Downstream(r io.Reader) io.Reader

	// DownstreamWriter returns a rate limited writer that is intended to be used
	// for downloads.
	DownstreamWriter(w io.Writer) io.Writer

	// Transport returns an http.RoundTripper limited with the limiter.
	Transport(http.RoundTripper) http.RoundTripper
}
