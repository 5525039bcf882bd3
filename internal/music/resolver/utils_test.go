package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsPlaylistURL(t *testing.T) {
	assert.True(t, isPlaylistURL("https://www.youtube.com/playlist?list=PL123"))
	assert.True(t, isPlaylistURL("https://music.youtube.com/playlist?list=PL123"))

	// Watch URLs stay single-video even when a list param tags along.
	assert.False(t, isPlaylistURL("https://www.youtube.com/watch?v=abc&list=PL123"))
	assert.False(t, isPlaylistURL("https://youtu.be/abc"))
	assert.False(t, isPlaylistURL("lofi hip hop"))
	assert.False(t, isPlaylistURL("https://example.com/playlist?list=PL123"))
}

func TestIsVideoURL(t *testing.T) {
	assert.True(t, isVideoURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.True(t, isVideoURL("https://youtu.be/dQw4w9WgXcQ"))
	assert.True(t, isVideoURL("https://music.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.False(t, isVideoURL("never gonna give you up"))
}

func TestCleanVideoURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			in:   "https://www.youtube.com/watch?v=abc123&list=PL9&index=4&t=42s",
			want: "https://www.youtube.com/watch?v=abc123",
		},
		{
			in:   "https://youtu.be/abc123?si=tracking",
			want: "https://youtu.be/abc123",
		},
		{
			in:   "https://music.youtube.com/watch?v=abc123&feature=share",
			want: "https://music.youtube.com/watch?v=abc123",
		},
		{
			// Unparseable or foreign URLs pass through untouched.
			in:   "https://example.com/watch?v=abc123",
			want: "https://example.com/watch?v=abc123",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanVideoURL(tt.in), tt.in)
	}
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://example.com"))
	assert.True(t, isURL("http://example.com"))
	assert.False(t, isURL("example.com"))
	assert.False(t, isURL("some search text"))
}

func TestParseClockDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"3:05", 3*time.Minute + 5*time.Second},
		{"0:59", 59 * time.Second},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"10:00:00", 10 * time.Hour},
		{"LIVE", 0},
		{"", 0},
		{"42", 0},
		{"1:xx", 0},
		{"1:2:3:4", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseClockDuration(tt.in), tt.in)
	}
}
