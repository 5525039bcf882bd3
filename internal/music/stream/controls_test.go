package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControlsClampVolume(t *testing.T) {
	c := NewControls(5.0)
	assert.Equal(t, 2.0, c.Volume())

	c.SetVolume(-0.5)
	assert.Equal(t, 0.0, c.Volume())

	c.SetVolume(1.3)
	assert.Equal(t, 1.3, c.Volume())
}

func TestControlsPause(t *testing.T) {
	c := NewControls(1.0)
	assert.False(t, c.Paused())
	c.SetPaused(true)
	assert.True(t, c.Paused())
	c.SetPaused(false)
	assert.False(t, c.Paused())
}

func TestScaleSample(t *testing.T) {
	assert.Equal(t, int16(1000), scaleSample(1000, 1.0))
	assert.Equal(t, int16(500), scaleSample(1000, 0.5))
	assert.Equal(t, int16(0), scaleSample(1000, 0.0))

	// Gain above 1.0 clips instead of wrapping.
	assert.Equal(t, int16(32767), scaleSample(20000, 2.0))
	assert.Equal(t, int16(-32768), scaleSample(-20000, 2.0))
}
