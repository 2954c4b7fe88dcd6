package debug_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/keys"

	rtest "github.com/qinghai5060/sealio/internal/test"
)

func TestLogFormat(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	debug.TestSetOutput(t, buf)

	debug.Log("sealing %v", "archive.tar")

	line := buf.String()
	rtest.Assert(t, strings.Contains(line, "debug/log_test.go:"), "caller position missing in %q", line)
	rtest.Assert(t, strings.HasSuffix(line, "sealing archive.tar\n"), "message missing in %q", line)
}

func TestLogShortensKeyIDs(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	debug.TestSetOutput(t, buf)

	master, err := keys.NewRandomKey()
	rtest.OK(t, err)
	id := master.ID()

	debug.Log("key %v", id)

	rtest.Assert(t, strings.Contains(buf.String(), "key "+id.Str()+"\n"), "abbreviated id missing in %q", buf.String())
	rtest.Assert(t, !strings.Contains(buf.String(), id.String()), "unabbreviated id in %q", buf.String())
}

func BenchmarkLogStatic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		debug.Log("static message")
	}
}

func BenchmarkLogKeyID(b *testing.B) {
	master, err := keys.NewRandomKey()
	if err != nil {
		b.Fatal(err)
	}
	id := master.ID()

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		debug.Log("key %v", id)
	}
}
