package limiter

import "io"

// LimitReadCloser wraps rc so reads count against l's download limit.
// Close is passed through.
func LimitReadCloser(rc io.ReadCloser, l Limiter) io.ReadCloser {
	return limitedReadCloser{
		original: rc,
		limited:  l.Downstream(rc),
	}
}

type limitedReadCloser struct {
	original io.ReadCloser
	limited  io.Reader
}

func (l limitedReadCloser) Read(b []byte) (n int, err error) {
	return l.limited.Read(b)
}

func (l limitedReadCloser) Close() error {
	return l.original.Close()
}

// LimitWriteCloser wraps wc so writes count against l's upload limit.
// Close is passed through.
func LimitWriteCloser(wc io.WriteCloser, l Limiter) io.WriteCloser {
	return limitedWriteCloser{
		original: wc,
		limited:  l.UpstreamWriter(wc),
	}
}

type limitedWriteCloser struct {
	original io.WriteCloser
	limited  io.Writer
}

func (l limitedWriteCloser) Write(b []byte) (n int, err error) {
	return l.limited.Write(b)
}

func (l limitedWriteCloser) Close() error {
	return l.original.Close()
}
