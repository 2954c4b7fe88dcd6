// Package secureio provides the sio streaming AEAD engine. Streams are
// protected with the sio-go channel construction on top of either
// AES-256-GCM or ChaCha20-Poly1305; a fresh random nonce prefix is written
// in front of every ciphertext stream.
package secureio

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	sio "github.com/secure-io/sio-go"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/qinghai5060/sealio/internal/engine"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/stream"
)

// Name is the engine name used for registration and in file headers.
const Name = "sio"

// Supported ciphers.
const (
	CipherAESGCM   = "aes256-gcm"
	CipherChaCha20 = "chacha20-poly1305"
)

const keySize = 32

// Engine seals and opens streams with a sio stream cipher.
type Engine struct {
	s *sio.Stream
}

var _ stream.Engine = &Engine{}

// New returns an engine for params. The key must be 32 bytes. An empty
// cipher selects AES-256-GCM.
func New(params engine.Params) (stream.Engine, error) {
	if len(params.Key) != keySize {
		return nil, errors.Errorf("key must be %d bytes, got %d", keySize, len(params.Key))
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch params.Cipher {
	case "", CipherAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(params.Key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case CipherChaCha20:
		aead, err = chacha20poly1305.New(params.Key)
	default:
		return nil, errors.Errorf("unknown cipher %q", params.Cipher)
	}
	if err != nil {
		return nil, errors.Wrap(err, "creating AEAD")
	}

	bufSize := sio.BufSize
	if params.SegmentSize > 0 {
		bufSize = params.SegmentSize
	}

	return &Engine{s: sio.NewStream(aead, bufSize)}, nil
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

// OpenInput reads the nonce prefix from src and returns the decrypting
// view of the remaining stream.
func (e *Engine) OpenInput(src io.Reader, associatedData []byte) (io.Reader, error) {
	nonce := make([]byte, e.s.NonceSize())
	if _, err := io.ReadFull(src, nonce); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrap(engine.ErrNotAuthentic, "ciphertext shorter than nonce")
		}
		return nil, err
	}

	return &reader{rd: e.s.DecryptReader(src, nonce, associatedData)}, nil
}

// OpenOutput writes a random nonce prefix to dst and returns the
// encrypting view. Closing the view seals the stream.
func (e *Engine) OpenOutput(dst io.Writer, associatedData []byte) (io.WriteCloser, error) {
	nonce := make([]byte, e.s.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "rand.Read")
	}
	if _, err := dst.Write(nonce); err != nil {
		return nil, err
	}

	return e.s.EncryptWriter(dst, nonce, associatedData), nil
}

// reader marks the library's integrity failures with engine.ErrNotAuthentic.
type reader struct {
	rd *sio.DecReader
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.rd.Read(p)
	if err != nil && errors.Is(err, sio.NotAuthentic) {
		err = fmt.Errorf("%w: %w", engine.ErrNotAuthentic, err)
	}
	return n, err
}
