package web

import (
	"net/url"
	"strings"

	"github.com/qinghai5060/sealio/internal/errors"
)

// Config holds the URL of a file served over HTTP.
type Config struct {
	URL *url.URL
}

// NewConfig returns a new Config with the default values filled in.
func NewConfig() Config {
	return Config{}
}

// Schemes lists the URL schemes this package handles. The +unix variants
// reach servers listening on a local socket, the socket path and the
// request path are separated by a colon as in
// http+unix:///run/srv.sock:/file.
var Schemes = []string{"http", "https", "http+unix", "https+unix"}

// ParseConfig parses the string s as a URL.
func ParseConfig(s string) (*Config, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	supported := false
	for _, scheme := range Schemes {
		if u.Scheme == scheme {
			supported = true
			break
		}
	}
	if !supported {
		return nil, errors.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	cfg := NewConfig()
	cfg.URL = u
	return &cfg, nil
}

// StripPassword removes the password from the URL. If s cannot be parsed
// as a valid URL, it is returned as is (the result is used for logging
// errors).
func StripPassword(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return s
	}

	if _, set := u.User.Password(); !set {
		return s
	}

	// a password was set: we replace it with ***
	return strings.Replace(u.String(), u.User.String()+"@", u.User.Username()+":***@", 1)
}
