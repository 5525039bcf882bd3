package stream

import "sync"

// Controls carries the live playback knobs shared between the player and
// the streaming loop. Volume changes and pause take effect on the next
// frame without restarting the stream.
type Controls struct {
	mu     sync.Mutex
	volume float64
	paused bool
}

func NewControls(volume float64) *Controls {
	return &Controls{volume: clampVolume(volume)}
}

func (c *Controls) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = clampVolume(v)
}

func (c *Controls) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

func (c *Controls) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = paused
}

func (c *Controls) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func clampVolume(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 2.0 {
		return 2.0
	}
	return v
}
