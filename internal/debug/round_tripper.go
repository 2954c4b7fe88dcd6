package debug

import (
	"net/http"
	"net/http/httputil"
)

var secretHeaders = []string{
	"Authorization",
	"X-Auth-Key",
	"X-Auth-Token",
}

// redactHeader replaces header values which are likely to contain credentials
// and returns the original values so that they can be restored afterwards.
func redactHeader(header http.Header) map[string][]string {
	origHeaders := make(map[string][]string)
	for _, hdr := range secretHeaders {
		origHeaders[hdr] = header[hdr]
		if header[hdr] != nil {
			header[hdr] = []string{"**redacted**"}
		}
	}
	return origHeaders
}

func restoreHeader(header http.Header, origHeaders map[string][]string) {
	for hdr, val := range origHeaders {
		if val != nil {
			header[hdr] = val
		} else {
			delete(header, hdr)
		}
	}
}

type loggingRoundTripper struct {
	http.RoundTripper
}

func (tr loggingRoundTripper) RoundTrip(req *http.Request) (res *http.Response, err error) {
	origHeaders := redactHeader(req.Header)

	trace, err := httputil.DumpRequestOut(req, false)
	if err != nil {
		Log("DumpRequestOut() error: %v\n", err)
	} else {
		Log("------------  HTTP REQUEST -----------\n%s", trace)
	}

	restoreHeader(req.Header, origHeaders)

	res, err = tr.RoundTripper.RoundTrip(req)
	if err != nil {
		Log("RoundTrip() returned error: %v", err)
	}

	if res != nil {
		trace, err := httputil.DumpResponse(res, false)
		if err != nil {
			Log("DumpResponse() error: %v\n", err)
		} else {
			Log("------------  HTTP RESPONSE ----------\n%s", trace)
		}
	}

	return res, err
}
