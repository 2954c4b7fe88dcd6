package agefile_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/qinghai5060/sealio/internal/engine"
	"github.com/qinghai5060/sealio/internal/engine/agefile"
	"github.com/qinghai5060/sealio/internal/stream"
	rtest "github.com/qinghai5060/sealio/internal/test"
)

func generate(t testing.TB) (identity, recipient string) {
	identity, recipient, err := agefile.Generate()
	rtest.OK(t, err)
	return identity, recipient
}

func newEngine(t testing.TB, recipients, identities []string) stream.Engine {
	e, err := agefile.New(engine.Params{Recipients: recipients, Identities: identities})
	rtest.OK(t, err)
	return e
}

func seal(t testing.TB, e stream.Engine, plaintext []byte) []byte {
	buf := &bytes.Buffer{}
	w, err := stream.NewWriter(e, buf, nil, stream.Options{})
	rtest.OK(t, err)
	_, err = w.Write(plaintext)
	rtest.OK(t, err)
	rtest.OK(t, w.Close())
	return buf.Bytes()
}

func open(e stream.Engine, ciphertext []byte) ([]byte, error) {
	r, err := stream.NewReader(e, bytes.NewReader(ciphertext), nil, stream.Options{})
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func TestGenerate(t *testing.T) {
	identity, recipient := generate(t)
	rtest.Assert(t, strings.HasPrefix(identity, "AGE-SECRET-KEY-1"),
		"unexpected identity format %q", identity)
	rtest.Assert(t, strings.HasPrefix(recipient, "age1"),
		"unexpected recipient format %q", recipient)

	other, _ := generate(t)
	rtest.Assert(t, identity != other, "generated identities must differ")
}

func TestRoundTrip(t *testing.T) {
	identity, recipient := generate(t)
	e := newEngine(t, []string{recipient}, []string{identity})

	for _, size := range []int{0, 5, 600, 1 << 17} {
		data := rtest.Random(42, size)
		plaintext, err := open(e, seal(t, e, data))
		rtest.OK(t, err)
		rtest.Equals(t, data, plaintext)
	}
}

func TestMultipleRecipients(t *testing.T) {
	identityA, recipientA := generate(t)
	identityB, recipientB := generate(t)

	sealer := newEngine(t, []string{recipientA, recipientB}, nil)
	data := rtest.Random(42, 600)
	ciphertext := seal(t, sealer, data)

	// either identity alone unlocks the stream
	for _, identity := range []string{identityA, identityB} {
		opener := newEngine(t, nil, []string{identity})
		plaintext, err := open(opener, ciphertext)
		rtest.OK(t, err)
		rtest.Equals(t, data, plaintext)
	}
}

func TestWrongIdentity(t *testing.T) {
	_, recipient := generate(t)
	sealer := newEngine(t, []string{recipient}, nil)
	ciphertext := seal(t, sealer, rtest.Random(42, 600))

	stranger, _ := generate(t)
	opener := newEngine(t, nil, []string{stranger})

	// the header is parsed when the view is opened
	_, err := stream.NewReader(opener, bytes.NewReader(ciphertext), nil, stream.Options{})
	rtest.Assert(t, err != nil, "expected an error for an identity the stream is not sealed to")
}

func TestAssociatedDataRefused(t *testing.T) {
	identity, recipient := generate(t)
	e := newEngine(t, []string{recipient}, []string{identity})

	_, err := stream.NewWriter(e, &bytes.Buffer{}, []byte("aad"), stream.Options{})
	rtest.Assert(t, err != nil, "expected sealing with associated data to be refused")

	ciphertext := seal(t, e, rtest.Random(42, 100))
	_, err = stream.NewReader(e, bytes.NewReader(ciphertext), []byte("aad"), stream.Options{})
	rtest.Assert(t, err != nil, "expected opening with associated data to be refused")
}

func TestTampered(t *testing.T) {
	identity, recipient := generate(t)
	e := newEngine(t, []string{recipient}, []string{identity})

	data := rtest.Random(42, 1<<15)
	ciphertext := seal(t, e, data)

	for _, pos := range []int{len(ciphertext) / 2, len(ciphertext) - 1} {
		tampered := append([]byte{}, ciphertext...)
		tampered[pos] ^= 0x42

		_, err := open(e, tampered)
		rtest.Assert(t, err != nil, "expected an error for flipped byte at %d", pos)
	}
}

func TestTruncated(t *testing.T) {
	identity, recipient := generate(t)
	e := newEngine(t, []string{recipient}, []string{identity})

	data := rtest.Random(42, 1<<15)
	ciphertext := seal(t, e, data)

	for _, cut := range []int{0, 10, len(ciphertext) / 2, len(ciphertext) - 1} {
		_, err := open(e, ciphertext[:cut])
		rtest.Assert(t, err != nil, "expected an error for stream cut at %d", cut)
	}
}

func TestParams(t *testing.T) {
	identity, recipient := generate(t)

	for _, test := range []struct {
		name   string
		params engine.Params
	}{
		{"key material", engine.Params{Key: make([]byte, 32), Recipients: []string{recipient}}},
		{"cipher", engine.Params{Cipher: "aes256-gcm", Recipients: []string{recipient}}},
		{"segment size", engine.Params{SegmentSize: 4096, Recipients: []string{recipient}}},
		{"neither side", engine.Params{}},
		{"bad recipient", engine.Params{Recipients: []string{"age1malformed"}}},
		{"bad identity", engine.Params{Identities: []string{"AGE-SECRET-KEY-MALFORMED"}}},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := agefile.New(test.params)
			rtest.Assert(t, err != nil, "expected an error")
		})
	}

	// a bad identity must not leak into the error message
	_, err := agefile.New(engine.Params{Identities: []string{identity + "tampered"}})
	rtest.Assert(t, err != nil, "expected an error")
	rtest.Assert(t, !strings.Contains(err.Error(), "AGE-SECRET-KEY"),
		"identity leaked into error: %v", err)
}

func TestOneDirectionOnly(t *testing.T) {
	identity, recipient := generate(t)

	sealer := newEngine(t, []string{recipient}, nil)
	_, err := stream.NewReader(sealer, bytes.NewReader(nil), nil, stream.Options{})
	rtest.Assert(t, err != nil, "expected opening without identities to fail")

	opener := newEngine(t, nil, []string{identity})
	_, err = stream.NewWriter(opener, &bytes.Buffer{}, nil, stream.Options{})
	rtest.Assert(t, err != nil, "expected sealing without recipients to fail")
}

func TestFactory(t *testing.T) {
	f := agefile.NewFactory()
	rtest.Equals(t, "age", f.Name)
	rtest.Assert(t, !f.Traits.NeedsKey, "engine must not request key material")
	rtest.Assert(t, !f.Traits.AssociatedData, "engine cannot bind associated data")

	identity, recipient := generate(t)
	e, err := f.New(engine.Params{Recipients: []string{recipient}, Identities: []string{identity}})
	rtest.OK(t, err)

	data := rtest.Random(42, 100)
	plaintext, err := open(e, seal(t, e, data))
	rtest.OK(t, err)
	rtest.Equals(t, data, plaintext)
}
