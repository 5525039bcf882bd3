package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "3:05", (&Track{Duration: 3*time.Minute + 5*time.Second}).FormatDuration())
	assert.Equal(t, "0:59", (&Track{Duration: 59 * time.Second}).FormatDuration())
	assert.Equal(t, "62:00", (&Track{Duration: 62 * time.Minute}).FormatDuration())
	assert.Equal(t, "live", (&Track{}).FormatDuration())
}

func TestCloneIsIndependent(t *testing.T) {
	orig := &Track{Title: "a", StreamURL: "stream://a"}
	c := orig.Clone()
	c.StreamURL = ""
	assert.Equal(t, "stream://a", orig.StreamURL)
	assert.Equal(t, "a", c.Title)
}
