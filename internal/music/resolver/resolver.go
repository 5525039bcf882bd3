// Package resolver turns user queries (video URL, playlist URL, or search
// text) into playable tracks with a direct audio stream URL.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kkdai/youtube/v2"
	"github.com/ppalone/ytsearch"
	"github.com/rs/zerolog/log"

	"github.com/honey001700-lgtm/Durazno/internal/music/track"
	"github.com/honey001700-lgtm/Durazno/pkg/retrylimit"
	"github.com/honey001700-lgtm/Durazno/pkg/util"
)

// ErrNoResults means the query matched nothing playable. Command handlers
// report it and leave the queue untouched.
var ErrNoResults = errors.New("no playable results for query")

const (
	playlistWorkers  = 4
	metadataAttempts = 2
)

// TrackResolver resolves queries against YouTube. Metadata calls go through
// an adaptive rate limiter so large playlist expansions back off instead of
// hammering the endpoint.
type TrackResolver struct {
	yt      *youtube.Client
	search  *ytsearch.Client
	limiter *retrylimit.AdaptiveLimiter
}

func New() *TrackResolver {
	return &TrackResolver{
		yt:      &youtube.Client{},
		search:  ytsearch.NewClient(nil),
		limiter: retrylimit.NewAdaptiveLimiter(5, 1, 10, 1, 0.5),
	}
}

// Resolve expands a query into one or more tracks. Playlists resolve with
// partial success: unavailable entries are skipped and logged, and the call
// fails only when nothing at all was playable.
func (r *TrackResolver) Resolve(ctx context.Context, query, requesterID string) ([]*track.Track, error) {
	switch {
	case isPlaylistURL(query):
		return r.resolvePlaylist(ctx, query, requesterID)
	case isVideoURL(query):
		return r.resolveVideo(ctx, cleanVideoURL(query), requesterID)
	case isURL(query):
		return nil, fmt.Errorf("%w: unsupported URL %q", ErrNoResults, query)
	default:
		return r.resolveSearch(ctx, query, requesterID)
	}
}

// RefreshStreamURL re-resolves the short-lived stream URL of an already
// known track. An empty return with nil error never happens; failure means
// the caller must treat the track as unplayable.
func (r *TrackResolver) RefreshStreamURL(ctx context.Context, t *track.Track) (string, error) {
	video, err := r.fetchVideo(ctx, t.PageURL)
	if err != nil {
		return "", fmt.Errorf("refresh %q: %w", t.PageURL, err)
	}

	streamURL, err := r.audioStreamURL(ctx, video)
	if err != nil {
		return "", fmt.Errorf("refresh %q: %w", t.PageURL, err)
	}

	// Fill metadata gaps while the fresh lookup is at hand.
	if t.Duration == 0 {
		t.Duration = video.Duration
	}
	if t.Thumbnail == "" {
		t.Thumbnail = thumbnailURL(video)
	}
	if t.Uploader == "" {
		t.Uploader = video.Author
	}
	return streamURL, nil
}

func (r *TrackResolver) resolveVideo(ctx context.Context, url, requesterID string) ([]*track.Track, error) {
	video, err := r.fetchVideo(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResults, err)
	}
	t, err := r.trackFromVideo(ctx, video, requesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResults, err)
	}
	return []*track.Track{t}, nil
}

func (r *TrackResolver) resolvePlaylist(ctx context.Context, url, requesterID string) ([]*track.Track, error) {
	playlist, err := r.yt.GetPlaylistContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResults, err)
	}

	var (
		mu      sync.Mutex
		byIndex = make([]*track.Track, len(playlist.Videos))
		skipped int
	)

	type job struct {
		index int
		entry *youtube.PlaylistEntry
	}
	jobs := make([]job, len(playlist.Videos))
	for i, entry := range playlist.Videos {
		jobs[i] = job{index: i, entry: entry}
	}

	// Per-entry failures are swallowed here: a playlist resolving 3 of 5
	// entries returns 3 tracks.
	_ = util.Parallel(jobs, playlistWorkers, func(ctx context.Context, j job) error {
		var video *youtube.Video
		err := retrylimit.WithRetryMax(ctx, func() error {
			var vErr error
			video, vErr = r.yt.VideoFromPlaylistEntryContext(ctx, j.entry)
			return vErr
		}, r.limiter, metadataAttempts)
		if err != nil {
			log.Warn().Err(err).Str("video_id", j.entry.ID).Msg("Skipping unavailable playlist entry")
			mu.Lock()
			skipped++
			mu.Unlock()
			return nil
		}

		t, err := r.trackFromVideo(ctx, video, requesterID)
		if err != nil {
			log.Warn().Err(err).Str("video_id", j.entry.ID).Msg("Skipping playlist entry without audio stream")
			mu.Lock()
			skipped++
			mu.Unlock()
			return nil
		}

		mu.Lock()
		byIndex[j.index] = t
		mu.Unlock()
		return nil
	})

	tracks := make([]*track.Track, 0, len(byIndex))
	for _, t := range byIndex {
		if t != nil {
			tracks = append(tracks, t)
		}
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: playlist had no playable entries", ErrNoResults)
	}
	if skipped > 0 {
		log.Info().Int("resolved", len(tracks)).Int("skipped", skipped).
			Str("playlist", playlist.Title).Msg("Playlist resolved partially")
	}
	return tracks, nil
}

func (r *TrackResolver) resolveSearch(ctx context.Context, query, requesterID string) ([]*track.Track, error) {
	res, err := r.search.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", ErrNoResults, err)
	}
	if len(res.Results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoResults, query)
	}
	return r.resolveVideo(ctx, watchURL(res.Results[0].VideoID), requesterID)
}

// SearchTitles returns up to limit (title, page URL) pairs without
// resolving stream URLs; used by the search command, which enqueues nothing.
func (r *TrackResolver) SearchTitles(ctx context.Context, query string, limit int) ([]*track.Track, error) {
	res, err := r.search.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", ErrNoResults, err)
	}
	if len(res.Results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoResults, query)
	}

	tracks := make([]*track.Track, 0, limit)
	for _, v := range res.Results {
		if len(tracks) >= limit {
			break
		}
		tracks = append(tracks, &track.Track{
			Title:    v.Title,
			PageURL:  watchURL(v.VideoID),
			Duration: parseClockDuration(v.Duration),
			Uploader: v.Channel,
			Source:   "YouTube",
		})
	}
	return tracks, nil
}

func (r *TrackResolver) fetchVideo(ctx context.Context, url string) (*youtube.Video, error) {
	var video *youtube.Video
	err := retrylimit.WithRetryMax(ctx, func() error {
		var vErr error
		video, vErr = r.yt.GetVideoContext(ctx, url)
		return vErr
	}, r.limiter, metadataAttempts)
	return video, err
}

func (r *TrackResolver) trackFromVideo(ctx context.Context, video *youtube.Video, requesterID string) (*track.Track, error) {
	streamURL, err := r.audioStreamURL(ctx, video)
	if err != nil {
		return nil, err
	}
	return &track.Track{
		Title:       video.Title,
		PageURL:     watchURL(video.ID),
		StreamURL:   streamURL,
		Duration:    video.Duration,
		Thumbnail:   thumbnailURL(video),
		Uploader:    video.Author,
		Source:      "YouTube",
		RequesterID: requesterID,
	}, nil
}

// audioStreamURL picks the highest-bitrate audio-only encoding.
func (r *TrackResolver) audioStreamURL(ctx context.Context, video *youtube.Video) (string, error) {
	formats := video.Formats.Type("audio")
	if len(formats) == 0 {
		formats = video.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return "", errors.New("no audio formats available")
	}

	best := formats[0]
	for _, f := range formats[1:] {
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return r.yt.GetStreamURLContext(ctx, video, &best)
}

func thumbnailURL(video *youtube.Video) string {
	if len(video.Thumbnails) == 0 {
		return ""
	}
	return video.Thumbnails[len(video.Thumbnails)-1].URL
}
