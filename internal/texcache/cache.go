// Package texcache caches decoded images for the terminal front-end. Loads
// run on a fixed worker pool; callers poll with GetOrLoad once per frame.
package texcache

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Kind is the entity an image belongs to.
type Kind int

const (
	KindAccount Kind = iota
	KindContact
	KindChat
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindContact:
		return "contact"
	case KindChat:
		return "chat"
	case KindMessage:
		return "message"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Key identifies one cached image.
type Key struct {
	Account uint32
	Kind    Kind
	ID      uint32
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%d", k.Account, k.Kind, k.ID)
}

// Loader produces a texture. It runs on a worker goroutine.
type Loader func(ctx context.Context) (Texture, error)

// Options configures a Cache.
type Options struct {
	Workers int
	// QueueSize bounds pending loads; requests beyond it are retried on
	// the next GetOrLoad.
	QueueSize int
	// Repaint is called after a texture has been inserted.
	Repaint func()
	Logger  *zap.Logger
}

type job struct {
	key    Key
	loader Loader
}

// Cache is safe for concurrent use. Entries are never replaced once set.
type Cache struct {
	mu       sync.RWMutex
	entries  map[Key]Texture
	inflight map[Key]struct{}

	jobs    chan job
	repaint func()
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts a cache with its worker pool.
func New(opts Options) *Cache {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Repaint == nil {
		opts.Repaint = func() {}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		entries:  make(map[Key]Texture),
		inflight: make(map[Key]struct{}),
		jobs:     make(chan job, opts.QueueSize),
		repaint:  opts.Repaint,
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	for range opts.Workers {
		c.wg.Add(1)
		go c.worker()
	}
	return c
}

// GetOrLoad returns the cached texture for key. On a miss it schedules
// loader, unless a load for key is already pending, and returns false.
func (c *Cache) GetOrLoad(key Key, loader Loader) (Texture, bool) {
	c.mu.RLock()
	tex, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return tex, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tex, ok := c.entries[key]; ok {
		return tex, true
	}
	if _, pending := c.inflight[key]; pending || c.ctx.Err() != nil {
		return Texture{}, false
	}
	select {
	case c.jobs <- job{key: key, loader: loader}:
		c.inflight[key] = struct{}{}
	default:
		c.logger.Debug("texture queue full", zap.Stringer("key", key))
	}
	return Texture{}, false
}

// Get returns a cached texture without scheduling anything.
func (c *Cache) Get(key Key) (Texture, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tex, ok := c.entries[key]
	return tex, ok
}

// Len returns the number of cached textures.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the workers. Pending loads are abandoned.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Cache) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case j := <-c.jobs:
			c.load(j)
		}
	}
}

func (c *Cache) load(j job) {
	tex, err := j.loader(c.ctx)

	c.mu.Lock()
	delete(c.inflight, j.key)
	inserted := false
	if err == nil {
		if _, exists := c.entries[j.key]; !exists {
			c.entries[j.key] = tex
			inserted = true
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("failed to load texture", zap.Stringer("key", j.key), zap.Error(err))
		return
	}
	if inserted {
		c.repaint()
	}
}
