// Package agefile provides an engine writing the age file format. It is
// the one asymmetric engine: streams are sealed to X25519 recipients and
// opened with identities, no shared key changes hands. The format has no
// room for associated data, callers asking for it are refused.
package agefile

import (
	"io"

	"filippo.io/age"

	"github.com/qinghai5060/sealio/internal/engine"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/stream"
)

// Name is the engine name used for registration and in file headers.
const Name = "age"

// Engine seals streams to a set of recipients and opens them with a set
// of identities. Either set may be empty, restricting the engine to one
// direction.
type Engine struct {
	recipients []age.Recipient
	identities []age.Identity
}

var _ stream.Engine = &Engine{}

// New returns an engine for params. At least one recipient or identity
// is required. Key material, cipher and segment size must be left empty,
// the age format fixes all three.
func New(params engine.Params) (stream.Engine, error) {
	if len(params.Key) != 0 {
		return nil, errors.New("the age engine is asymmetric, configure recipients and identities instead of a key")
	}
	if params.Cipher != "" {
		return nil, errors.Errorf("unknown cipher %q", params.Cipher)
	}
	if params.SegmentSize != 0 {
		return nil, errors.New("the age format has a fixed segment size")
	}
	if len(params.Recipients) == 0 && len(params.Identities) == 0 {
		return nil, errors.New("need at least one recipient or identity")
	}

	e := &Engine{}
	for _, s := range params.Recipients {
		r, err := age.ParseX25519Recipient(s)
		if err != nil {
			return nil, errors.Wrapf(err, "recipient %q", s)
		}
		e.recipients = append(e.recipients, r)
	}
	for _, s := range params.Identities {
		// the error must not echo s, identities are secret
		id, err := age.ParseX25519Identity(s)
		if err != nil {
			return nil, errors.Wrap(err, "parsing identity")
		}
		e.identities = append(e.identities, id)
	}

	return e, nil
}

// NewFactory returns the factory for this engine.
func NewFactory() engine.Factory {
	return engine.Factory{
		Name: Name,
		Traits: engine.Traits{
			AssociatedData: false,
			NeedsKey:       false,
		},
		New: New,
	}
}

// OpenInput returns the decrypting view of src. The age header is parsed
// here, so a stream none of the identities can unlock fails immediately.
func (e *Engine) OpenInput(src io.Reader, associatedData []byte) (io.Reader, error) {
	if len(associatedData) > 0 {
		return nil, errors.New("the age format cannot bind associated data")
	}
	if len(e.identities) == 0 {
		return nil, errors.New("no identities configured")
	}
	return age.Decrypt(src, e.identities...)
}

// OpenOutput returns the encrypting view of dst, sealed to all configured
// recipients. Closing the view writes the final chunk.
func (e *Engine) OpenOutput(dst io.Writer, associatedData []byte) (io.WriteCloser, error) {
	if len(associatedData) > 0 {
		return nil, errors.New("the age format cannot bind associated data")
	}
	if len(e.recipients) == 0 {
		return nil, errors.New("no recipients configured")
	}
	return age.Encrypt(dst, e.recipients...)
}

// Generate creates a fresh X25519 identity and returns it together with
// the matching recipient.
func Generate() (identity, recipient string, err error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", errors.Wrap(err, "generating identity")
	}
	return id.String(), id.Recipient().String(), nil
}
