// Package music holds the playback-facing slash commands: /music,
// /playlist, and /channels.
package music

import (
	"context"
	"time"

	"github.com/honey001700-lgtm/Durazno/internal/music/player"
	"github.com/honey001700-lgtm/Durazno/internal/music/track"
)

const resolveTimeout = 60 * time.Second

// Manager hands out per-guild players and answers voice-state questions.
// The bot runtime implements it.
type Manager interface {
	Player(guildID string) *player.Player
	UserVoiceChannel(guildID, userID string) string
}

// Resolver turns free text, video URLs, and playlist URLs into tracks.
type Resolver interface {
	Resolve(ctx context.Context, query, requesterID string) ([]*track.Track, error)
	SearchTitles(ctx context.Context, query string, limit int) ([]*track.Track, error)
}

// Deps is everything the music commands need from the runtime.
type Deps struct {
	Players  Manager
	Resolver Resolver
}
