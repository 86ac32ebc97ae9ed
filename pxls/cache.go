package pxls

import (
	"context"
	"sync"
	"time"
)

// Shared is a reference-counted buffer handle. Readers take RLock,
// the stream applier takes Lock to mutate contents in place.
// Handles stay valid after invalidation; they just detach from the cache.
type Shared[T any] struct {
	sync.RWMutex
	Value T
}

// fetchResult is the outcome one in-flight fetch publishes to its waiters.
// stale means the cache generation changed while the fetch was in flight
// and the result was discarded; waiters retry under the new generation.
type fetchResult[T any] struct {
	done  chan struct{}
	value *Shared[T]
	err   error
	stale bool
}

type cacheSlot[T any] struct {
	value   *Shared[T]
	pending *fetchResult[T]
}

var cacheLog = LogFn(LogLevelDebug, "cache")

// clientCache is one lazy slot per board resource. Slot occupancy is
// guarded by a single mutex that is never held across network i/o;
// the buffer contents behind each slot have their own rw lock.
//
// Where several buffers are held together the lock order is fixed:
// metadata, color buffer, timestamp buffer, canvas epoch. See applyPixel
// and reconstructTimestamps.
type clientCache struct {
	mu sync.Mutex
	// generation increments on invalidateAll. a fetch that started under
	// an older generation discards its result instead of storing it.
	generation uint64

	info       cacheSlot[BoardInfo]
	colors     cacheSlot[[]byte]
	initial    cacheSlot[[]byte]
	mask       cacheSlot[[]byte]
	timestamps cacheSlot[[]uint32]
	createdAt  cacheSlot[time.Time]
}

// getOrFetch returns the slot's buffer, fetching it at most once however
// many callers arrive concurrently. Callers for a slot with a fetch in
// flight wait for that fetch instead of issuing their own. A fetch error
// leaves the slot empty so a later call retries.
func getOrFetch[T any](
	ctx context.Context,
	cache *clientCache,
	slot *cacheSlot[T],
	name string,
	fetch func(ctx context.Context) (T, error),
) (*Shared[T], error) {
	for {
		cache.mu.Lock()
		if slot.value != nil {
			value := slot.value
			cache.mu.Unlock()
			return value, nil
		}
		if pending := slot.pending; pending != nil {
			cache.mu.Unlock()
			select {
			case <-pending.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if pending.stale {
				continue
			}
			return pending.value, pending.err
		}
		pending := &fetchResult[T]{
			done: make(chan struct{}),
		}
		slot.pending = pending
		generation := cache.generation
		cache.mu.Unlock()

		value, err := fetch(ctx)

		cache.mu.Lock()
		slot.pending = nil
		if cache.generation != generation {
			// the cache was invalidated while this fetch was in flight.
			// the result belongs to the previous connection epoch.
			pending.stale = true
			cache.mu.Unlock()
			close(pending.done)
			cacheLog("discard stale %s (generation %d)", name, generation)
			continue
		}
		if err == nil {
			shared := &Shared[T]{Value: value}
			slot.value = shared
			pending.value = shared
		} else {
			pending.err = err
		}
		cache.mu.Unlock()
		close(pending.done)
		if err == nil {
			cacheLog("fill %s (generation %d)", name, generation)
		}
		if err != nil {
			return nil, err
		}
		return pending.value, nil
	}
}

// peek returns the slot's buffer if populated, nil otherwise.
// Never triggers a fetch.
func peek[T any](cache *clientCache, slot *cacheSlot[T]) *Shared[T] {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return slot.value
}

// invalidateAll atomically empties every slot. Called on (re)connect,
// not on disconnect, so stale data stays servable while offline.
func (self *clientCache) invalidateAll() {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.generation += 1
	self.info.value = nil
	self.colors.value = nil
	self.initial.value = nil
	self.mask.value = nil
	self.timestamps.value = nil
	self.createdAt.value = nil
	cacheLog("invalidate all (generation %d)", self.generation)
}

// peekApplyTargets reads the mutable slots under one lock hold, so an
// invalidation cannot interleave between them. Keeps the
// timestamps-imply-epoch invariant check race-free: the applier never
// sees a timestamp buffer from one generation with the epoch of another.
func (self *clientCache) peekApplyTargets() (*Shared[[]byte], *Shared[[]uint32], *Shared[time.Time]) {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.colors.value, self.timestamps.value, self.createdAt.value
}

// Info returns the canvas metadata, fetching it on first access.
func (self *Client) Info(ctx context.Context) (*Shared[BoardInfo], error) {
	return getOrFetch(ctx, &self.cache, &self.cache.info, "info", func(ctx context.Context) (BoardInfo, error) {
		var info BoardInfo
		err := self.getJson(ctx, "info", &info)
		return info, err
	})
}

// Colors returns the current color buffer, one palette index per pixel.
func (self *Client) Colors(ctx context.Context) (*Shared[[]byte], error) {
	return getOrFetch(ctx, &self.cache, &self.cache.colors, "colors", func(ctx context.Context) ([]byte, error) {
		return self.fetchPixelBuffer(ctx, bufferColors)
	})
}

// InitialColors returns the color buffer as it was when the canvas opened.
func (self *Client) InitialColors(ctx context.Context) (*Shared[[]byte], error) {
	return getOrFetch(ctx, &self.cache, &self.cache.initial, "initial colors", func(ctx context.Context) ([]byte, error) {
		return self.fetchPixelBuffer(ctx, bufferInitialColors)
	})
}

// Mask returns the placemask buffer constraining where placement is allowed.
func (self *Client) Mask(ctx context.Context) (*Shared[[]byte], error) {
	return getOrFetch(ctx, &self.cache, &self.cache.mask, "mask", func(ctx context.Context) ([]byte, error) {
		return self.fetchPixelBuffer(ctx, bufferPlacemask)
	})
}
