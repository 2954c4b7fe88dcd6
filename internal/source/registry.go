package source

import (
	"context"
	"net/http"

	"github.com/qinghai5060/sealio/internal/limiter"
)

// Registry maps scheme names to the factories handling them.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(factory Factory) {
	if r.factories[factory.Scheme()] != nil {
		panic("duplicate scheme")
	}
	r.factories[factory.Scheme()] = factory
}

func (r *Registry) Lookup(scheme string) Factory {
	return r.factories[scheme]
}

// A Factory parses location strings for one scheme and opens the sources
// they describe.
type Factory interface {
	Scheme() string
	ParseConfig(s string) (interface{}, error)
	StripPassword(s string) string
	Open(ctx context.Context, cfg interface{}, rt http.RoundTripper, lim limiter.Limiter) (Source, error)
}

type genericSourceFactory[C any, T Source] struct {
	scheme          string
	parseConfigFn   func(s string) (*C, error)
	stripPasswordFn func(s string) string
	openFn          func(ctx context.Context, cfg C, rt http.RoundTripper, lim limiter.Limiter) (T, error)
}

func (f *genericSourceFactory[C, T]) Scheme() string {
	return f.scheme
}

func (f *genericSourceFactory[C, T]) ParseConfig(s string) (interface{}, error) {
	return f.parseConfigFn(s)
}
func (f *genericSourceFactory[C, T]) StripPassword(s string) string {
	if f.stripPasswordFn != nil {
		return f.stripPasswordFn(s)
	}
	return s
}
func (f *genericSourceFactory[C, T]) Open(ctx context.Context, cfg interface{}, rt http.RoundTripper, lim limiter.Limiter) (Source, error) {
	return f.openFn(ctx, *cfg.(*C), rt, lim)
}

// NewHTTPSourceFactory creates a factory for a scheme that talks to its
// server over HTTP. Rate limiting is applied to the shared transport by the
// caller, so openFn only receives the round tripper.
func NewHTTPSourceFactory[C any, T Source](
	scheme string,
	parseConfigFn func(s string) (*C, error),
	stripPasswordFn func(s string) string,
	openFn func(ctx context.Context, cfg C, rt http.RoundTripper) (T, error)) Factory {

	return &genericSourceFactory[C, T]{
		scheme:          scheme,
		parseConfigFn:   parseConfigFn,
		stripPasswordFn: stripPasswordFn,
		openFn: func(ctx context.Context, cfg C, rt http.RoundTripper, _ limiter.Limiter) (T, error) {
			return openFn(ctx, cfg, rt)
		},
	}
}

// NewLimitedSourceFactory creates a factory for a scheme that moves bytes
// outside of HTTP and therefore wraps its streams with the limiter itself.
func NewLimitedSourceFactory[C any, T Source](
	scheme string,
	parseConfigFn func(s string) (*C, error),
	stripPasswordFn func(s string) string,
	openFn func(ctx context.Context, cfg C, lim limiter.Limiter) (T, error)) Factory {

	return &genericSourceFactory[C, T]{
		scheme:          scheme,
		parseConfigFn:   parseConfigFn,
		stripPasswordFn: stripPasswordFn,
		openFn: func(ctx context.Context, cfg C, _ http.RoundTripper, lim limiter.Limiter) (T, error) {
			return openFn(ctx, cfg, lim)
		},
	}
}
