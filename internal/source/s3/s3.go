// Package s3 provides sources reading and writing objects on s3 compatible
// servers.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/source"
)

// Client is a connection to an s3 compatible server, shared by all sources
// for the same endpoint.
type Client struct {
	*minio.Client
}

// Close implements io.Closer so clients can live in a source.Pool. There is
// nothing to close, the HTTP transport is owned by the caller.
func (c *Client) Close() error {
	return nil
}

type poolKey struct {
	endpoint string
	useHTTP  bool
	keyID    string
	secret   string
	region   string
	lookup   string
}

// Pool caches clients keyed by endpoint and credentials, the credential
// chain is resolved once per endpoint instead of once per file.
type Pool = source.Pool[poolKey, *Client]

// NewPool returns a client pool for up to size endpoints.
func NewPool(size int) *Pool {
	return source.NewPool[poolKey, *Client](size)
}

// NewFactory returns a factory for s3 sources which share clients from
// pool.
func NewFactory(pool *Pool) source.Factory {
	openFn := func(ctx context.Context, cfg Config, rt http.RoundTripper) (*Source, error) {
		return open(ctx, cfg, rt, pool)
	}

	return source.NewHTTPSourceFactory("s3", ParseConfig, nil, openFn)
}

func open(_ context.Context, cfg Config, rt http.RoundTripper, pool *Pool) (*Source, error) {
	debug.Log("open, config %#v", cfg)

	key := poolKey{
		endpoint: cfg.Endpoint,
		useHTTP:  cfg.UseHTTP,
		keyID:    cfg.KeyID,
		secret:   cfg.Secret.Unwrap(),
		region:   cfg.Region,
		lookup:   cfg.BucketLookup,
	}
	client, err := pool.Get(key, func() (*Client, error) {
		return newClient(cfg, rt)
	})
	if err != nil {
		return nil, err
	}

	return &Source{client: client, cfg: cfg}, nil
}

func newClient(cfg Config, rt http.RoundTripper) (*Client, error) {
	if cfg.KeyID == "" && cfg.Secret.String() != "" {
		return nil, errors.Fatalf("unable to open S3 source: Key ID ($AWS_ACCESS_KEY_ID) is empty")
	} else if cfg.KeyID != "" && cfg.Secret.String() == "" {
		return nil, errors.Fatalf("unable to open S3 source: Secret ($AWS_SECRET_ACCESS_KEY) is empty")
	}

	creds := credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.Static{
			Value: credentials.Value{
				AccessKeyID:     cfg.KeyID,
				SecretAccessKey: cfg.Secret.Unwrap(),
			},
		},
		&credentials.EnvMinio{},
		&credentials.FileAWSCredentials{},
		&credentials.FileMinioClient{},
		&credentials.IAM{
			Client: &http.Client{
				Transport: http.DefaultTransport,
			},
		},
	})

	c, err := creds.Get()
	if err != nil {
		return nil, errors.Wrap(err, "creds.Get")
	}

	if c.SignerType == credentials.SignatureAnonymous {
		debug.Log("using anonymous access for %#v", cfg.Endpoint)
	}

	options := &minio.Options{
		Creds:     creds,
		Secure:    !cfg.UseHTTP,
		Region:    cfg.Region,
		Transport: rt,
	}

	switch strings.ToLower(cfg.BucketLookup) {
	case "", "auto":
		options.BucketLookup = minio.BucketLookupAuto
	case "dns":
		options.BucketLookup = minio.BucketLookupDNS
	case "path":
		options.BucketLookup = minio.BucketLookupPath
	default:
		return nil, fmt.Errorf(`bad bucket-lookup style %q must be "auto", "path" or "dns"`, cfg.BucketLookup)
	}

	client, err := minio.New(cfg.Endpoint, options)
	if err != nil {
		return nil, errors.Wrap(err, "minio.New")
	}

	return &Client{client}, nil
}

// Source is a single object on an s3 compatible server.
type Source struct {
	client *Client
	cfg    Config
}

// ensure statically that *Source implements source.Source.
var _ source.Source = &Source{}

// notExist marks errors for missing objects so callers can test with
// errors.Is(err, os.ErrNotExist) like for local files.
func notExist(err error) error {
	var e minio.ErrorResponse
	if errors.As(err, &e) && e.Code == "NoSuchKey" {
		return fmt.Errorf("%w: %w", os.ErrNotExist, err)
	}
	return err
}

// Location returns this source's location.
func (s *Source) Location() string {
	return "s3:" + path.Join(s.cfg.Endpoint, s.cfg.Bucket, s.cfg.Key)
}

// Open opens the object for reading. Minio sends the GetObject request
// lazily, Stat forces it out so a missing object fails here instead of on
// the first read.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	debug.Log("Open %v/%v", s.cfg.Bucket, s.cfg.Key)

	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, s.cfg.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "client.GetObject")
	}

	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, notExist(errors.Wrap(err, "Stat"))
	}

	return obj, nil
}

// Stat returns information about the object.
func (s *Source) Stat(ctx context.Context) (source.FileInfo, error) {
	debug.Log("Stat %v/%v", s.cfg.Bucket, s.cfg.Key)

	fi, err := s.client.StatObject(ctx, s.cfg.Bucket, s.cfg.Key, minio.StatObjectOptions{})
	if err != nil {
		return source.FileInfo{}, notExist(errors.Wrap(err, "client.StatObject"))
	}

	return source.FileInfo{Size: fi.Size, Name: path.Base(s.cfg.Key)}, nil
}

// Create opens the object for writing. The upload runs while data is
// written, Close waits for it to finish.
func (s *Source) Create(ctx context.Context) (io.WriteCloser, error) {
	debug.Log("Create %v/%v", s.cfg.Bucket, s.cfg.Key)

	opts := minio.PutObjectOptions{
		StorageClass: s.cfg.StorageClass,
		ContentType:  "application/octet-stream",
		// the total size is not known in advance, parts are buffered in
		// memory before they are sent
		PartSize: 16 * 1024 * 1024,
	}

	pr, pw := io.Pipe()
	ch := make(chan error, 1)
	go func() {
		info, err := s.client.PutObject(ctx, s.cfg.Bucket, s.cfg.Key, pr, -1, opts)
		debug.Log("PutObject(%v, %v) returned %v, %v", s.cfg.Bucket, s.cfg.Key, info.Size, err)
		// unblock a pending Write if the upload died early
		_ = pr.CloseWithError(err)
		ch <- errors.Wrap(err, "client.PutObject")
	}()

	return &uploadWriter{pw: pw, result: ch}, nil
}

// Close releases the source. The client is owned by the pool and stays
// usable.
func (s *Source) Close() error {
	return nil
}

// uploadWriter feeds an in-flight PutObject. Close waits for the upload to
// finish.
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
