package pxls

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Timestamps returns a derived buffer of u32 seconds since the canvas
// epoch per pixel, 0 meaning never touched. The service exposes no exact
// per-pixel times, so the buffer is reconstructed by merging the heatmap
// and the virginmap: the heatmap gives somewhat accurate times for the
// last few hours, and the virginmap disambiguates a heatmap value of 0
// between "untouched" and "older than the heatmap window".
func (self *Client) Timestamps(ctx context.Context) (*Shared[[]uint32], error) {
	return getOrFetch(ctx, &self.cache, &self.cache.timestamps, "timestamps", self.reconstructTimestamps)
}

// CanvasEpoch returns the inferred canvas start instant, computing it on
// first access as now - (heatmapCooldown + 1) seconds. The +1 keeps the
// oldest representable real touch distinct from the virgin sentinel 0.
func (self *Client) CanvasEpoch(ctx context.Context) (*Shared[time.Time], error) {
	info, err := self.Info(ctx)
	if err != nil {
		return nil, err
	}
	info.RLock()
	heatmapCooldown := info.Value.HeatmapCooldown
	info.RUnlock()
	return self.canvasEpoch(ctx, time.Now(), heatmapCooldown)
}

func (self *Client) canvasEpoch(ctx context.Context, now time.Time, heatmapCooldown int) (*Shared[time.Time], error) {
	return getOrFetch(ctx, &self.cache, &self.cache.createdAt, "canvas epoch", func(ctx context.Context) (time.Time, error) {
		// now - heatmapCooldown is not entirely accurate as a start time,
		// but it suffices. (Scanning the full heatmap and virginmap for the
		// lowest non-virgin value would be more accurate and twice the work.)
		canvasAge := time.Duration(heatmapCooldown+1) * time.Second
		return now.Add(-canvasAge), nil
	})
}

func (self *Client) reconstructTimestamps(ctx context.Context) ([]uint32, error) {
	info, err := self.Info(ctx)
	if err != nil {
		return nil, err
	}
	info.RLock()
	heatmapCooldown := info.Value.HeatmapCooldown
	info.RUnlock()

	now := time.Now()
	epoch, err := self.canvasEpoch(ctx, now, heatmapCooldown)
	if err != nil {
		return nil, err
	}
	epoch.RLock()
	canvasStart := epoch.Value
	epoch.RUnlock()

	// two independent fetches, joined
	type fetchedBuffer struct {
		buffer []byte
		err    error
	}
	heatC := make(chan fetchedBuffer)
	virginC := make(chan fetchedBuffer)
	go func() {
		buffer, err := self.fetchPixelBuffer(ctx, bufferHeatmap)
		heatC <- fetchedBuffer{buffer, err}
	}()
	go func() {
		buffer, err := self.fetchPixelBuffer(ctx, bufferVirginmap)
		virginC <- fetchedBuffer{buffer, err}
	}()
	heat := <-heatC
	virgin := <-virginC
	if heat.err != nil {
		return nil, heat.err
	}
	if virgin.err != nil {
		return nil, virgin.err
	}

	timestamps := make([]uint32, len(heat.buffer))
	for i, h := range heat.buffer {
		if virgin.buffer[i] != 0 {
			// virgin pixel, reserved sentinel
			continue
		}
		pixelTime := now.Add(-time.Duration(h) * time.Second)
		seconds := int64(pixelTime.Sub(canvasStart) / time.Second)
		if seconds < 0 || math.MaxUint32 < seconds {
			// 136 years is a pretty long time
			return nil, &ConsistencyError{
				Kind:   ConsistencyUnrepresentableAge,
				Detail: fmt.Sprintf("pixel %d is %ds old", i, seconds),
			}
		}
		timestamps[i] = uint32(seconds)
	}
	return timestamps, nil
}
