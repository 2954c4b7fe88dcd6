//go:build !debug

package debug

import "net/http"

// RoundTripper returns a transport that dumps requests and responses to the
// debug log. In release builds it is a pass-through.
func RoundTripper(upstream http.RoundTripper) http.RoundTripper {
	return upstream
}
