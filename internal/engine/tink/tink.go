// Package tink provides a streaming AEAD engine backed by Tink's
// AES-GCM-HKDF construction. The wire format is Tink's, including the
// stream header, so files sealed here can be opened by any Tink
// implementation holding the same key.
package tink

import (
	"io"

	"github.com/tink-crypto/tink-go/v2/streamingaead/subtle"

	"github.com/qinghai5060/sealio/internal/engine"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/stream"
)

// Name is the engine name used for registration and in file headers.
const Name = "tink"

// CipherAESGCMHKDF is the only cipher this engine speaks.
const CipherAESGCMHKDF = "aes256-gcm-hkdf"

const (
	keySize = 32
	// defaultSegmentSize matches Tink's own default for streaming keys.
	defaultSegmentSize = 4096
)

// Engine seals and opens streams in Tink's AES-GCM-HKDF format.
type Engine struct {
	a *subtle.AESGCMHKDF
}

var _ stream.Engine = &Engine{}

// New returns an engine for params. The key must be 32 bytes. An empty
// cipher selects AES-256-GCM-HKDF, the only supported choice.
func New(params engine.Params) (stream.Engine, error) {
	if len(params.Key) != keySize {
		return nil, errors.Errorf("key must be %d bytes, got %d", keySize, len(params.Key))
	}

	switch params.Cipher {
	case "", CipherAESGCMHKDF:
	default:
		return nil, errors.Errorf("unknown cipher %q", params.Cipher)
	}

	segmentSize := defaultSegmentSize
	if params.SegmentSize > 0 {
		segmentSize = params.SegmentSize
	}

	a, err := subtle.NewAESGCMHKDF(params.Key, "SHA256", keySize, segmentSize, 0)
	if err != nil {
		return nil, errors.Wrap(err, "NewAESGCMHKDF")
	}

	return &Engine{a: a}, nil
}

// NewFactory returns the factory for this engine.
func NewFactory() engine.Factory {
	return engine.Factory{
		Name: Name,
		Traits: engine.Traits{
			AssociatedData: true,
			NeedsKey:       true,
		},
		New: New,
	}
}

// OpenInput returns the decrypting view of src. The stream header is
// consumed lazily, so key and integrity failures surface on Read, not
// here.
func (e *Engine) OpenInput(src io.Reader, associatedData []byte) (io.Reader, error) {
	return e.a.NewDecryptingReader(src, associatedData)
}

// OpenOutput returns the encrypting view of dst. Closing the view writes
// the final segment.
func (e *Engine) OpenOutput(dst io.Writer, associatedData []byte) (io.WriteCloser, error) {
	return e.a.NewEncryptingWriter(dst, associatedData)
}
