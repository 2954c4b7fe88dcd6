package debug

import (
	"net/http"
	"testing"

	"github.com/qinghai5060/sealio/internal/test"
)

func TestRedactHeader(t *testing.T) {
	header := make(http.Header)
	header["Authorization"] = []string{"123"}
	header["X-Auth-Token"] = []string{"1234"}
	header["X-Auth-Key"] = []string{"12345"}
	header["Host"] = []string{"my.host"}

	orig := redactHeader(header)
	for _, hdr := range secretHeaders {
		test.Equals(t, "**redacted**", header[hdr][0])
	}
	test.Equals(t, "my.host", header["Host"][0])

	restoreHeader(header, orig)
	test.Equals(t, "123", header["Authorization"][0])
	test.Equals(t, "1234", header["X-Auth-Token"][0])
	test.Equals(t, "12345", header["X-Auth-Key"][0])
	test.Equals(t, "my.host", header["Host"][0])
}

func TestRedactHeaderAbsent(t *testing.T) {
	header := make(http.Header)
	header["Authorization"] = []string{"123"}

	orig := redactHeader(header)
	if _, ok := header["X-Auth-Key"]; ok {
		t.Errorf("redacting added the absent header: %v", header["X-Auth-Key"])
	}

	restoreHeader(header, orig)
	if _, ok := header["X-Auth-Key"]; ok {
		t.Errorf("restoring added the absent header: %v", header["X-Auth-Key"])
	}
	test.Equals(t, "123", header["Authorization"][0])
}
