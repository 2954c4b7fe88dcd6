package engine_test

import (
	"testing"

	"github.com/qinghai5060/sealio/internal/engine"
	"github.com/qinghai5060/sealio/internal/stream"
	rtest "github.com/qinghai5060/sealio/internal/test"
)

func testFactory(name string) engine.Factory {
	return engine.Factory{
		Name: name,
		New: func(engine.Params) (stream.Engine, error) {
			return nil, nil
		},
	}
}

func TestRegistry(t *testing.T) {
	r := engine.NewRegistry()

	_, ok := r.Lookup("sio")
	rtest.Assert(t, !ok, "lookup on empty registry succeeded")

	r.Register(testFactory("sio"))
	r.Register(testFactory("age"))
	r.Register(testFactory("tink"))

	f, ok := r.Lookup("tink")
	rtest.Assert(t, ok, "registered engine not found")
	rtest.Equals(t, "tink", f.Name)

	rtest.Equals(t, []string{"age", "sio", "tink"}, r.Names())
}

func TestRegistryDuplicate(t *testing.T) {
	r := engine.NewRegistry()
	r.Register(testFactory("sio"))

	defer func() {
		rtest.Assert(t, recover() != nil, "expected panic for duplicate registration")
	}()
	r.Register(testFactory("sio"))
}
