package source

import (
	"io"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/qinghai5060/sealio/internal/debug"
)

// Pool caches dialed clients so that several files processed in one run
// share a connection instead of dialing per file. When the pool is full the
// least recently used client is evicted and closed, so the pool must be
// sized for the number of servers used at the same time.
type Pool[K comparable, C io.Closer] struct {
	mu    sync.Mutex
	cache *lru.Cache[K, C]
}

// NewPool returns a pool holding up to size clients.
func NewPool[K comparable, C io.Closer](size int) *Pool[K, C] {
	cache, err := lru.NewWithEvict[K, C](size, func(key K, client C) {
		debug.Log("closing client for %v", key)
		if err := client.Close(); err != nil {
			debug.Log("Close returned error %v", err)
		}
	})
	if err != nil {
		// only reachable with size <= 0
		panic(err)
	}

	return &Pool[K, C]{cache: cache}
}

// Get returns the client cached under key, dialing a new one if none is
// cached yet.
func (p *Pool[K, C]) Get(key K, dial func() (C, error)) (C, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.cache.Get(key); ok {
		debug.Log("reusing client for %v", key)
		return client, nil
	}

	client, err := dial()
	if err != nil {
		var zero C
		return zero, err
	}

	p.cache.Add(key, client)
	return client, nil
}

// Remove drops the client cached under key, closing it.
func (p *Pool[K, C]) Remove(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cache.Remove(key)
}

// Close closes all clients in the pool.
func (p *Pool[K, C]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cache.Purge()
}
