// Package web provides sources fetching files from HTTP servers, including
// servers reached over a local unix socket.
package web

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/source"
)

// Source is a single file served over HTTP.
type Source struct {
	cfg    Config
	client *http.Client
}

// ensure statically that *Source implements source.Source.
var _ source.Source = &Source{}

// NewFactory returns a factory for web sources using the given URL scheme.
func NewFactory(scheme string) source.Factory {
	return source.NewHTTPSourceFactory(scheme, ParseConfig, StripPassword, open)
}

func open(_ context.Context, cfg Config, rt http.RoundTripper) (*Source, error) {
	return &Source{cfg: cfg, client: &http.Client{Transport: rt}}, nil
}

// Location returns this source's location.
func (s *Source) Location() string {
	return StripPassword(s.cfg.URL.String())
}

// drainAndClose discards the rest of the body and closes it, the connection
// can then be reused.
func drainAndClose(res *http.Response) error {
	_, err := io.Copy(io.Discard, res.Body)
	cerr := res.Body.Close()

	if err != nil {
		return errors.Wrap(err, "drain")
	}
	return cerr
}

// Open requests the file with GET and hands out the response body.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	debug.Log("Open %v", s.Location())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL.String(), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if res.StatusCode == http.StatusNotFound {
		_ = drainAndClose(res)
		return nil, errors.Wrapf(os.ErrNotExist, "GET %v", res.Status)
	}
	if res.StatusCode != http.StatusOK {
		_ = drainAndClose(res)
		return nil, errors.Errorf("unexpected HTTP response (%v)", res.Status)
	}

	return res.Body, nil
}

// Stat requests information about the file with HEAD. The server must
// answer with a content length.
func (s *Source) Stat(ctx context.Context) (source.FileInfo, error) {
	debug.Log("Stat %v", s.Location())

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.cfg.URL.String(), nil)
	if err != nil {
		return source.FileInfo{}, errors.WithStack(err)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return source.FileInfo{}, errors.WithStack(err)
	}
	if err := drainAndClose(res); err != nil {
		return source.FileInfo{}, err
	}

	if res.StatusCode == http.StatusNotFound {
		return source.FileInfo{}, errors.Wrapf(os.ErrNotExist, "HEAD %v", res.Status)
	}
	if res.StatusCode != http.StatusOK {
		return source.FileInfo{}, errors.Errorf("unexpected HTTP response (%v)", res.Status)
	}
	if res.ContentLength < 0 {
		return source.FileInfo{}, errors.New("server did not announce a content length")
	}

	return source.FileInfo{Size: res.ContentLength, Name: path.Base(s.cfg.URL.Path)}, nil
}

// Create uploads the file with PUT. The request runs while data is written,
// Close waits for the server's answer.
func (s *Source) Create(ctx context.Context) (io.WriteCloser, error) {
	debug.Log("Create %v", s.Location())

	pr, pw := io.Pipe()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.cfg.URL.String(), pr)
	if err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	ch := make(chan error, 1)
	go func() {
		res, err := s.client.Do(req)
		if err != nil {
			err = errors.WithStack(err)
			_ = pr.CloseWithError(err)
			ch <- err
			return
		}

		if err := drainAndClose(res); err != nil {
			debug.Log("drainAndClose returned error %v", err)
		}
		switch res.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		default:
			err = errors.Errorf("unexpected HTTP response (%v)", res.Status)
		}

		// unblock a pending Write if the server rejected the upload early
		_ = pr.CloseWithError(err)
		ch <- err
	}()

	return &uploadWriter{pw: pw, result: ch}, nil
}

// Close releases the source.
func (s *Source) Close() error {
	return nil
}

// uploadWriter feeds an in-flight PUT request. Close waits for the server's
// answer.
type uploadWriter struct {
	pw     *io.PipeWriter
	result <-chan error
}

func (w *uploadWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *uploadWriter) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.result
}
