package limiter

import (
	"context"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

type staticLimiter struct {
	upstream   *rate.Limiter
	downstream *rate.Limiter
}

// Limits represents static upload and download limits.
// For both, zero means unlimited.
type Limits struct {
	UploadKb   int
	DownloadKb int
}

// NewStaticLimiter constructs a Limiter with a fixed (static) upload and
// download rate cap
func NewStaticLimiter(l Limits) Limiter {
	var (
		upstreamBucket   *rate.Limiter
		downstreamBucket *rate.Limiter
	)

	if l.UploadKb > 0 {
		upstreamBucket = rate.NewLimiter(toByteRate(l.UploadKb), int(toByteRate(l.UploadKb)))
	}

	if l.DownloadKb > 0 {
		downstreamBucket = rate.NewLimiter(toByteRate(l.DownloadKb), int(toByteRate(l.DownloadKb)))
	}

	return staticLimiter{
		upstream:   upstreamBucket,
		downstream: downstreamBucket,
	}
}

func (l staticLimiter) Upstream(r io.Reader) io.Reader {
	return l.limitReader(r, l.upstream)
}

func (l staticLimiter) UpstreamWriter(w io.Writer) io.Writer {
	return l.limitWriter(w, l.upstream)
}

func (l staticLimiter) Downstream(r io.Reader) io.Reader {
	return l.limitReader(r, l.downstream)
}

func (l staticLimiter) DownstreamWriter(w io.Writer) io.Writer {
	return l.limitWriter(w, l.downstream)
}

type roundTripper func(*http.Request) (*http.Response, error)

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req)
}

func (l staticLimiter) roundTripper(rt http.RoundTripper, req *http.Request) (*http.Response, error) {
	type readCloser struct {
		io.Reader
		io.Closer
	}

	if req.Body != nil {
		req.Body = &readCloser{
			Reader: l.Upstream(req.Body),
			Closer: req.Body,
		}
	}

	res, err := rt.RoundTrip(req)

	if res != nil && res.Body != nil {
		res.Body = &readCloser{
			Reader: l.Downstream(res.Body),
			Closer: res.Body,
		}
	}

	return res, err
}

// Transport returns an HTTP transport limited with the limiter l.
func (l staticLimiter) Transport(rt http.RoundTripper) http.RoundTripper {
	return roundTripper(func(req *http.Request) (*http.Response, error) {
		return l.roundTripper(rt, req)
	})
}

func (l staticLimiter) limitReader(r io.Reader, b *rate.Limiter) io.Reader {
	if b == nil {
		return r
	}
	return rateLimitedReader{r, b}
}

func (l staticLimiter) limitWriter(w io.Writer, b *rate.Limiter) io.Writer {
	if b == nil {
		return w
	}
	return rateLimitedWriter{w, b}
}

type rateLimitedReader struct {
	reader  io.Reader
	limiter *rate.Limiter
}

func (r rateLimitedReader) Read(b []byte) (int, error) {
	n, err := r.reader.Read(b)
	if errWait := waitN(r.limiter, n); errWait != nil {
		return n, errWait
	}
	return n, err
}

type rateLimitedWriter struct {
	writer  io.Writer
	limiter *rate.Limiter
}

func (w rateLimitedWriter) Write(b []byte) (int, error) {
	if err := waitN(w.limiter, len(b)); err != nil {
		return 0, err
	}
	return w.writer.Write(b)
}

// waitN waits for n tokens in chunks no larger than the limiter's burst,
// as WaitN refuses single requests beyond it.
func waitN(limiter *rate.Limiter, n int) error {
	burst := limiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := limiter.WaitN(context.Background(), chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

func toByteRate(val int) rate.Limit {
	return rate.Limit(float64(val) * 1024.)
}
