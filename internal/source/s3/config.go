package s3

import (
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/options"
)

// Config contains all configuration necessary to connect to an s3 compatible
// server.
type Config struct {
	Endpoint string
	UseHTTP  bool
	KeyID    string
	Secret   options.SecretString
	Bucket   string
	Key      string

	StorageClass string `option:"storage-class" help:"set S3 storage class (STANDARD, STANDARD_IA, ONEZONE_IA, INTELLIGENT_TIERING or REDUCED_REDUNDANCY)"`
	Region       string `option:"region" help:"set region"`
	BucketLookup string `option:"bucket-lookup" help:"bucket lookup style: 'auto', 'dns', or 'path'"`
}

// NewConfig returns a new Config with the default values filled in.
func NewConfig() Config {
	return Config{}
}

func init() {
	options.Register("s3", Config{})
}

// ParseConfig parses the string s and extracts the s3 config. The two
// supported configuration formats are s3://host/bucketname/objectkey and
// s3:host/bucketname/objectkey. The host can also be a valid s3 region
// name.
func ParseConfig(s string) (*Config, error) {
	switch {
	case strings.HasPrefix(s, "s3:http"):
		// assume that a URL has been specified, parse it and use the host
		// as the endpoint and the path as the bucket name and object key
		url, err := url.Parse(s[3:])
		if err != nil {
			return nil, errors.Wrap(err, "url.Parse")
		}

		if url.Path == "" {
			return nil, errors.New("s3: bucket name not found")
		}

		bucket, key, _ := strings.Cut(url.Path[1:], "/")
		return createConfig(url.Host, bucket, key, url.Scheme == "http")
	case strings.HasPrefix(s, "s3://"):
		s = s[5:]
	case strings.HasPrefix(s, "s3:"):
		s = s[3:]
	default:
		return nil, errors.New("s3: invalid format")
	}
	// use the first entry of the path as the endpoint and the remainder as
	// bucket name and object key
	endpoint, rest, _ := strings.Cut(s, "/")
	bucket, key, _ := strings.Cut(rest, "/")
	return createConfig(endpoint, bucket, key, false)
}

func createConfig(endpoint, bucket, key string, useHTTP bool) (*Config, error) {
	if endpoint == "" {
		return nil, errors.New("s3: invalid format, host/region not found")
	}
	if bucket == "" {
		return nil, errors.New("s3: invalid format, bucket name not found")
	}
	if key == "" {
		return nil, errors.New("s3: invalid format, object key not found")
	}

	cfg := NewConfig()
	cfg.Endpoint = endpoint
	cfg.UseHTTP = useHTTP
	cfg.Bucket = bucket
	cfg.Key = path.Clean(key)
	return &cfg, nil
}

// ApplyEnvironment saves values from the environment to the config.
func (cfg *Config) ApplyEnvironment() {
	if cfg.KeyID == "" {
		cfg.KeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if cfg.Secret.String() == "" {
		cfg.Secret = options.NewSecretString(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	}
	if cfg.Region == "" {
		cfg.Region = os.Getenv("AWS_DEFAULT_REGION")
	}
}
