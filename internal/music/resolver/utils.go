package resolver

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var youtubeURLPattern = regexp.MustCompile(`(?:https?://)?(?:www\.|music\.)?(youtube\.com|youtu\.be)/\S+`)

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isYouTubeURL(s string) bool {
	return youtubeURLPattern.MatchString(s)
}

func isPlaylistURL(s string) bool {
	if !isYouTubeURL(s) {
		return false
	}
	// A watch URL with a list param is still a single-video request; only
	// dedicated playlist pages expand.
	return strings.Contains(s, "/playlist?") || strings.Contains(s, "playlist?list=")
}

func isVideoURL(s string) bool {
	return strings.Contains(s, "youtube.com/watch?v=") ||
		strings.Contains(s, "music.youtube.com/watch?v=") ||
		strings.Contains(s, "youtu.be/")
}

// cleanVideoURL strips tracking/list params down to the canonical watch URL.
func cleanVideoURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	switch host := u.Hostname(); host {
	case "youtu.be":
		vid := strings.Trim(u.Path, "/")
		if vid == "" {
			return raw
		}
		return fmt.Sprintf("https://youtu.be/%s", vid)

	case "www.youtube.com", "youtube.com", "music.youtube.com":
		if u.Path == "/watch" {
			if vid := u.Query().Get("v"); vid != "" {
				return fmt.Sprintf("https://%s/watch?v=%s", host, vid)
			}
		}
		return raw

	default:
		return raw
	}
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// parseClockDuration converts a "h:mm:ss" or "m:ss" listing duration into a
// time.Duration. Returns 0 for live streams and anything unparseable.
func parseClockDuration(s string) time.Duration {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}
