// Package engine manages the streaming AEAD schemes available to sealio.
// Concrete engines live in subpackages and are registered explicitly by
// the command line setup, keyed by name. The schemes themselves come from
// third-party libraries; this package only describes and selects them.
package engine

import (
	"sort"

	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/stream"
)

// ErrNotAuthentic marks ciphertext that failed stream authentication.
// Engines whose library reports integrity failures distinctly wrap them
// with this marker so that callers can test for it.
var ErrNotAuthentic = errors.New("ciphertext is not authentic")

// Params carries everything an engine may need to set up its scheme. Each
// engine uses the fields it understands and rejects combinations it
// cannot honor.
type Params struct {
	// Key is the symmetric key for keyed engines.
	Key []byte

	// Cipher selects the AEAD inside the scheme. Empty selects the
	// engine default.
	Cipher string

	// SegmentSize is the ciphertext segment size in bytes, 0 for the
	// engine default.
	SegmentSize int

	// Recipients and Identities configure asymmetric engines, in the
	// textual form of the respective library.
	Recipients []string
	Identities []string
}

// Traits describe what an engine can do, so that a request can be
// validated before any key material is touched.
type Traits struct {
	// AssociatedData reports whether the engine authenticates caller
	// provided associated data.
	AssociatedData bool

	// NeedsKey reports whether the engine requires symmetric key
	// material.
	NeedsKey bool
}

// A Factory constructs a named engine from Params.
type Factory struct {
	Name   string
	Traits Traits
	New    func(Params) (stream.Engine, error)
}

// Registry maps engine names to factories.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds factory to the registry. Registering a name twice is a
// programming error.
func (r *Registry) Register(factory Factory) {
	if _, ok := r.factories[factory.Name]; ok {
		panic("duplicate engine " + factory.Name)
	}
	r.factories[factory.Name] = factory
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Names returns all registered engine names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
