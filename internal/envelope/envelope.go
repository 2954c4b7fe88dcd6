// Package envelope defines the container format for sealed files. Every
// file starts with an intro line, a length-prefixed JSON header and a
// header checksum, followed by the engine's ciphertext. The header names
// the engine and everything needed to open the stream again, except key
// material. All header bytes are bound into the payload as associated
// data for engines that support it.
package envelope

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/keys"
)

// Version is the current envelope format version.
const Version = 1

// CompressionZstd compresses the plaintext with zstd before it is sealed.
const CompressionZstd = "zstd"

var (
	// intro line at the start of every sealed file
	intro = []byte("sealio/v1\n")
	// size of the header-length field following the intro
	headerLengthSize = binary.Size(uint32(0))
	// size of the header checksum following the header
	checksumSize = binary.Size(uint64(0))
)

const maxHeaderSize = 1 << 20

// A Header describes how the payload of a sealed file was produced.
type Header struct {
	Version     uint      `json:"version"`
	Engine      string    `json:"engine"`
	Cipher      string    `json:"cipher,omitempty"`
	SegmentSize int       `json:"segment_size,omitempty"`
	Compression string    `json:"compression,omitempty"`
	KDF         *KDF      `json:"kdf,omitempty"`
	KeyID       *keys.ID  `json:"key_id,omitempty"`
	Salt        []byte    `json:"salt,omitempty"`
	Created     time.Time `json:"created"`
}

// KDF records how the file key is derived from a password. It is only
// set when a file is sealed directly with a password instead of a
// keyfile.
type KDF struct {
	Name string `json:"name"`
	N    int    `json:"N"`
	R    int    `json:"r"`
	P    int    `json:"p"`
	Salt []byte `json:"salt"`
}

// NewHeader returns a header for engineName with the version and creation
// time filled in.
func NewHeader(engineName string) *Header {
	return &Header{
		Version: Version,
		Engine:  engineName,
		Created: time.Now(),
	}
}

func (h *Header) String() string {
	return fmt.Sprintf("<Header engine %s, created %s>", h.Engine, h.Created.Format(time.RFC3339))
}

// Valid checks the fields the format gives meaning to.
func (h *Header) Valid() error {
	switch {
	case h.Version != Version:
		return InvalidFileError{Message: fmt.Sprintf("unsupported version %d", h.Version)}
	case h.Engine == "":
		return InvalidFileError{Message: "no engine name"}
	case h.SegmentSize < 0:
		return InvalidFileError{Message: "negative segment size"}
	case h.Compression != "" && h.Compression != CompressionZstd:
		return InvalidFileError{Message: fmt.Sprintf("unknown compression %q", h.Compression)}
	}
	return nil
}

// WriteHeader serializes h to w and returns the exact bytes written. The
// caller passes them to the engine as associated data so the payload is
// bound to its header.
func WriteHeader(w io.Writer, h *Header) ([]byte, error) {
	if err := h.Valid(); err != nil {
		return nil, errors.Wrap(err, "WriteHeader")
	}

	hdr, err := json.Marshal(h)
	if err != nil {
		return nil, errors.Wrap(err, "Marshal")
	}
	if len(hdr) > maxHeaderSize {
		return nil, errors.Wrap(InvalidFileError{Message: "header is larger than maxHeaderSize"}, "WriteHeader")
	}

	buf := &bytes.Buffer{}
	buf.Write(intro)
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(hdr))); err != nil {
		return nil, errors.Wrap(err, "binary.Write")
	}
	buf.Write(hdr)
	if err := binary.Write(buf, binary.LittleEndian, xxhash.Sum64(hdr)); err != nil {
		return nil, errors.Wrap(err, "binary.Write")
	}

	aad := buf.Bytes()
	if _, err := w.Write(aad); err != nil {
		return nil, errors.Wrap(err, "Write")
	}

	debug.Log("wrote header for engine %v, %v bytes", h.Engine, len(aad))
	return aad, nil
}

// ReadHeader parses the envelope at the start of r and leaves r
// positioned at the first payload byte. It returns the header and the
// bytes it occupied on the wire, which the engine needs as associated
// data. The checksum catches plain corruption before any key material is
// touched, it is no substitute for the engine's authentication.
func ReadHeader(r io.Reader) (*Header, []byte, error) {
	prefix := make([]byte, len(intro)+headerLengthSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, nil, errors.Wrap(InvalidFileError{Message: "file is too small"}, "ReadHeader")
		}
		return nil, nil, err
	}
	if !bytes.Equal(prefix[:len(intro)], intro) {
		return nil, nil, errors.Wrap(InvalidFileError{Message: "not a sealio file"}, "ReadHeader")
	}

	hlen := binary.LittleEndian.Uint32(prefix[len(intro):])
	debug.Log("header length: %v", hlen)

	switch {
	case hlen == 0:
		return nil, nil, errors.Wrap(InvalidFileError{Message: "header length is zero"}, "ReadHeader")
	case hlen > maxHeaderSize:
		return nil, nil, errors.Wrap(InvalidFileError{Message: "header is larger than maxHeaderSize"}, "ReadHeader")
	}

	rest := make([]byte, int(hlen)+checksumSize)
	if _, err := io.ReadFull(r, rest); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, nil, errors.Wrap(InvalidFileError{Message: "header is truncated"}, "ReadHeader")
		}
		return nil, nil, err
	}

	hdr := rest[:hlen]
	sum := binary.LittleEndian.Uint64(rest[hlen:])
	if xxhash.Sum64(hdr) != sum {
		return nil, nil, errors.Wrap(InvalidFileError{Message: "header checksum mismatch"}, "ReadHeader")
	}

	h := &Header{}
	if err := json.Unmarshal(hdr, h); err != nil {
		return nil, nil, errors.Wrap(err, "Unmarshal")
	}
	if err := h.Valid(); err != nil {
		return nil, nil, errors.Wrap(err, "ReadHeader")
	}

	aad := make([]byte, 0, len(prefix)+len(rest))
	aad = append(aad, prefix...)
	aad = append(aad, rest...)

	return h, aad, nil
}

// InvalidFileError is returned when a file does not look like a sealed
// file.
type InvalidFileError struct {
	Message string
}

func (e InvalidFileError) Error() string {
	return e.Message
}

// Compressor wraps w according to h.Compression. The returned writer has
// to be closed before the encrypting view is sealed so the final frame is
// flushed.
func (h *Header) Compressor(w io.Writer) (io.WriteCloser, error) {
	switch h.Compression {
	case "":
		return nopWriteCloser{w}, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, errors.Wrap(err, "zstd.NewWriter")
		}
		return enc, nil
	}
	return nil, errors.Errorf("unknown compression %q", h.Compression)
}

// Decompressor wraps r according to h.Compression.
func (h *Header) Decompressor(r io.Reader) (io.ReadCloser, error) {
	switch h.Compression {
	case "":
		return io.NopCloser(r), nil
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "zstd.NewReader")
		}
		return dec.IOReadCloser(), nil
	}
	return nil, errors.Errorf("unknown compression %q", h.Compression)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
