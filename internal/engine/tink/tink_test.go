package tink_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/qinghai5060/sealio/internal/engine"
	"github.com/qinghai5060/sealio/internal/engine/tink"
	"github.com/qinghai5060/sealio/internal/keys"
	"github.com/qinghai5060/sealio/internal/stream"
	rtest "github.com/qinghai5060/sealio/internal/test"
)

func newEngine(t testing.TB, key keys.Key, segmentSize int) stream.Engine {
	e, err := tink.New(engine.Params{Key: key, SegmentSize: segmentSize})
	rtest.OK(t, err)
	return e
}

func seal(t testing.TB, e stream.Engine, plaintext, associatedData []byte) []byte {
	buf := &bytes.Buffer{}
	w, err := stream.NewWriter(e, buf, associatedData, stream.Options{})
	rtest.OK(t, err)
	_, err = w.Write(plaintext)
	rtest.OK(t, err)
	rtest.OK(t, w.Close())
	return buf.Bytes()
}

func open(e stream.Engine, ciphertext, associatedData []byte) ([]byte, error) {
	r, err := stream.NewReader(e, bytes.NewReader(ciphertext), associatedData, stream.Options{})
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func TestRoundTrip(t *testing.T) {
	key := keys.NewRandomKey()
	e := newEngine(t, key, 0)

	// sizes around the default segment size of 4096
	for _, size := range []int{0, 5, 4095, 4096, 4097, 3*4096 + 21, 1 << 20} {
		data := rtest.Random(42, size)
		aad := rtest.Random(23, 16)

		plaintext, err := open(e, seal(t, e, data, aad), aad)
		rtest.OK(t, err)
		rtest.Equals(t, data, plaintext)
	}
}

func TestWrongKey(t *testing.T) {
	e := newEngine(t, keys.NewRandomKey(), 0)
	ciphertext := seal(t, e, rtest.Random(42, 600), nil)

	other := newEngine(t, keys.NewRandomKey(), 0)
	_, err := open(other, ciphertext, nil)
	rtest.Assert(t, err != nil, "expected an error for the wrong key")
}

func TestWrongAssociatedData(t *testing.T) {
	e := newEngine(t, keys.NewRandomKey(), 0)
	ciphertext := seal(t, e, rtest.Random(42, 600), []byte("used during sealing"))

	for _, aad := range [][]byte{nil, []byte("something else")} {
		_, err := open(e, ciphertext, aad)
		rtest.Assert(t, err != nil, "expected an error for associated data %q", aad)
	}
}

func TestTampered(t *testing.T) {
	e := newEngine(t, keys.NewRandomKey(), 0)

	data := rtest.Random(42, 1<<15)
	ciphertext := seal(t, e, data, nil)

	for _, pos := range []int{0, len(ciphertext) / 2, len(ciphertext) - 1} {
		tampered := append([]byte{}, ciphertext...)
		tampered[pos] ^= 0x42

		_, err := open(e, tampered, nil)
		rtest.Assert(t, err != nil, "expected an error for flipped byte at %d", pos)
	}
}

func TestTruncated(t *testing.T) {
	e := newEngine(t, keys.NewRandomKey(), 0)

	data := rtest.Random(42, 3*4096)
	ciphertext := seal(t, e, data, nil)

	// cuts land inside the header, inside the first segment and inside the
	// final segment
	for _, cut := range []int{1, 1000, len(ciphertext) / 2, len(ciphertext) - 1} {
		_, err := open(e, ciphertext[:cut], nil)
		rtest.Assert(t, err != nil, "expected an error for stream cut at %d", cut)
	}
}

func TestSegmentSizeMismatch(t *testing.T) {
	key := keys.NewRandomKey()
	e := newEngine(t, key, 4096)

	data := rtest.Random(42, 3*4096)
	ciphertext := seal(t, e, data, nil)

	other := newEngine(t, key, 8192)
	_, err := open(other, ciphertext, nil)
	rtest.Assert(t, err != nil, "expected an error for mismatched segment size")
}

func TestParams(t *testing.T) {
	for _, test := range []struct {
		key     []byte
		cipher  string
		segment int
	}{
		{key: nil, cipher: ""},
		{key: make([]byte, 16), cipher: ""},
		{key: make([]byte, 32), cipher: "aes256-gcm"},
		// too small to hold the key derivation header
		{key: make([]byte, 32), segment: 10},
	} {
		_, err := tink.New(engine.Params{Key: test.key, Cipher: test.cipher, SegmentSize: test.segment})
		rtest.Assert(t, err != nil, "expected error for key len %d, cipher %q, segment %d",
			len(test.key), test.cipher, test.segment)
	}
}

func TestFactory(t *testing.T) {
	f := tink.NewFactory()
	rtest.Equals(t, "tink", f.Name)
	rtest.Assert(t, f.Traits.NeedsKey, "engine must request key material")
	rtest.Assert(t, f.Traits.AssociatedData, "engine must accept associated data")

	e, err := f.New(engine.Params{Key: keys.NewRandomKey()})
	rtest.OK(t, err)

	data := rtest.Random(42, 100)
	plaintext, err := open(e, seal(t, e, data, nil), nil)
	rtest.OK(t, err)
	rtest.Equals(t, data, plaintext)
}
