// Package track defines the playable audio item passed between the
// resolver, the queue and the playback engine.
package track

import (
	"fmt"
	"time"
)

// Track is one playable audio item. Immutable after creation except for
// StreamURL, which is short-lived and refreshed by the resolver when it
// expires.
type Track struct {
	Title   string
	PageURL string

	// StreamURL is a directly fetchable audio endpoint. Empty means it
	// must be (re-)resolved before playback.
	StreamURL string

	// Duration is zero for live or unknown-length streams.
	Duration time.Duration

	Thumbnail string
	Uploader  string

	// Source labels where the track came from ("YouTube", a playlist
	// name, ...).
	Source string

	// RequesterID is the Discord user who queued the track.
	RequesterID string
}

// Clone returns a copy, used when repeat modes re-queue a finished track.
func (t *Track) Clone() *Track {
	c := *t
	return &c
}

// FormatDuration renders m:ss, or "live" when the length is unknown.
func (t *Track) FormatDuration() string {
	if t.Duration <= 0 {
		return "live"
	}
	total := int(t.Duration.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
