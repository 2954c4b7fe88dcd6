// Package keys manages sealio's key material: random master keys, the
// scrypt KDF behind password derived keys, password sealed keyfiles and
// per-stream subkey derivation. Master keys never reach an engine
// directly, engines only see subkeys.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/qinghai5060/sealio/internal/errors"
)

// Size is the size of a master key in bytes.
const Size = 32

// A Key is symmetric key material.
type Key []byte

// NewRandomKey returns a fresh random master key.
func NewRandomKey() (Key, error) {
	k := make(Key, Size)
	if _, err := rand.Read(k); err != nil {
		return nil, errors.Wrap(err, "rand.Read")
	}
	return k, nil
}

// ParseHex decodes a hex encoded master key.
func ParseHex(s string) (Key, error) {
	k, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(err, "decoding key")
	}
	if len(k) != Size {
		return nil, errors.Errorf("key must be %d bytes, got %d", Size, len(k))
	}
	return Key(k), nil
}

// Valid reports whether k has the right size.
func (k Key) Valid() bool {
	return len(k) == Size
}

// idSize is the length of a key check value in bytes.
const idSize = 8

// An ID is a short check value that identifies a key without revealing it.
type ID [idSize]byte

// ID returns the check value for k. It is derived independently of any
// stream material, so it stays stable across streams.
func (k Key) ID() ID {
	rd := hkdf.New(sha256.New, k, nil, []byte("sealio/v1/keyid"))
	var id ID
	_, _ = io.ReadFull(rd, id[:])
	return id
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Str returns an abbreviated form for the debug log.
func (id ID) Str() string {
	return id.String()[:8]
}

// ParseID decodes an ID from its hex form.
func ParseID(s string) (ID, error) {
	var id ID
	buf, err := hex.DecodeString(s)
	if err != nil {
		return id, errors.Wrap(err, "decoding key id")
	}
	if len(buf) != idSize {
		return id, errors.Errorf("key id must be %d bytes, got %d", idSize, len(buf))
	}
	copy(id[:], buf)
	return id, nil
}

// MarshalText encodes the ID for JSON headers.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes the ID from JSON headers.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Subkey derives the per-stream key for an engine from master and salt.
// The engine name scopes the derivation, so material handed to one engine
// is useless to another.
func Subkey(master Key, salt []byte, engineName string) (Key, error) {
	if !master.Valid() {
		return nil, errors.New("invalid master key")
	}

	rd := hkdf.New(sha256.New, master, salt, []byte("sealio/v1/"+engineName))
	k := make(Key, Size)
	if _, err := io.ReadFull(rd, k); err != nil {
		return nil, errors.Wrap(err, "hkdf")
	}
	return k, nil
}
