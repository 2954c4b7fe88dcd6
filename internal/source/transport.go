package source

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/peterbourgon/unixtransport"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/errors"
)

// TransportOptions collects various options which can be set for an HTTP
// based transport.
type TransportOptions struct {
	// contains filenames of PEM encoded root certificates to trust
	RootCertFilenames []string

	// skip TLS certificate verification
	InsecureTLS bool
}

// Transport returns a new http.RoundTripper with default settings applied.
// If a custom rootCertFilename is non-empty, it must point to a valid PEM
// file, otherwise the function will return an error.
func Transport(opts TransportOptions) (http.RoundTripper, error) {
	// copied from net/http
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if opts.InsecureTLS {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if opts.RootCertFilenames != nil {
		if opts.InsecureTLS {
			return nil, errors.Errorf("refusing to read root certificates with verification disabled")
		}

		pool := x509.NewCertPool()
		for _, filename := range opts.RootCertFilenames {
			if filename == "" {
				return nil, errors.Errorf("empty filename for root certificate supplied")
			}

			b, err := os.ReadFile(filename)
			if err != nil {
				return nil, errors.Errorf("unable to read root certificate: %v", err)
			}
			if ok := pool.AppendCertsFromPEM(b); !ok {
				return nil, errors.Errorf("cannot parse root certificate from %q", filename)
			}
		}

		tr.TLSClientConfig = &tls.Config{RootCAs: pool}
	}

	// teach the transport http+unix:// and https+unix:// addresses
	unixtransport.Register(tr)

	// wrap in the debug round tripper
	return debug.RoundTripper(tr), nil
}
