package pxls

import (
	"context"
	"fmt"
	"math"
	"time"
)

// applyPixels applies a batch of streamed pixel changes to whatever
// buffers are already cached, without re-fetching. The first error stops
// the batch; later pixels in the batch still reach the server-side state
// a future fetch would return.
func (self *Client) applyPixels(ctx context.Context, pixels []Pixel) error {
	for _, pixel := range pixels {
		if err := self.applyPixel(ctx, pixel); err != nil {
			return err
		}
	}
	return nil
}

func (self *Client) applyPixel(ctx context.Context, pixel Pixel) error {
	info, err := self.Info(ctx)
	if err != nil {
		return err
	}

	// one consistent snapshot of the mutable slots; peeking them one by
	// one could interleave with an invalidation and pair a timestamp
	// buffer with a cleared epoch
	colors, timestamps, epoch := self.cache.peekApplyTargets()

	// NOTE: locks must happen in this order everywhere buffers are held
	// together: metadata, color buffer, timestamp buffer, canvas epoch.
	// Otherwise we risk deadlock with reconstructTimestamps.
	info.RLock()
	defer info.RUnlock()
	width := info.Value.Width
	height := info.Value.Height
	if pixel.X < 0 || width <= pixel.X || pixel.Y < 0 || height <= pixel.Y {
		return &ConsistencyError{
			Kind:   ConsistencyPixelOutOfRange,
			Detail: fmt.Sprintf("(%d, %d) on a %dx%d board", pixel.X, pixel.Y, width, height),
		}
	}
	index := pixel.Y*width + pixel.X

	if colors != nil {
		colors.Lock()
		colors.Value[index] = pixel.Color
		colors.Unlock()
	}

	if timestamps != nil {
		if epoch == nil {
			return &ConsistencyError{Kind: ConsistencyMissingEpoch}
		}
		timestamps.Lock()
		defer timestamps.Unlock()
		epoch.RLock()
		seconds := int64(time.Since(epoch.Value) / time.Second)
		epoch.RUnlock()
		if seconds < 0 || math.MaxUint32 < seconds {
			return &ConsistencyError{
				Kind:   ConsistencyUnrepresentableAge,
				Detail: fmt.Sprintf("pixel (%d, %d) aged %ds", pixel.X, pixel.Y, seconds),
			}
		}
		timestamps.Value[index] = uint32(seconds)
	}
	return nil
}
