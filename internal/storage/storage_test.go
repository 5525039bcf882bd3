package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPlaylistLifecycle(t *testing.T) {
	s := newTestStorage(t)

	created, err := s.CreatePlaylist("user-1", "chill")
	require.NoError(t, err)
	require.True(t, created)

	// Duplicate and blank names are rejected.
	created, err = s.CreatePlaylist("user-1", "chill")
	require.NoError(t, err)
	assert.False(t, created)
	created, err = s.CreatePlaylist("user-1", "  ")
	require.NoError(t, err)
	assert.False(t, created)

	ok, err := s.AddTracks("user-1", "chill", []PlaylistEntry{
		{Query: "https://youtu.be/abc", Title: "First"},
		{Query: "https://youtu.be/def", Title: "Second"},
	})
	require.NoError(t, err)
	require.True(t, ok)

	entries, exists, err := s.GetPlaylist("user-1", "chill")
	require.NoError(t, err)
	require.True(t, exists)
	require.Len(t, entries, 2)
	assert.Equal(t, "First", entries[0].Title)

	removed, err := s.RemoveTrack("user-1", "chill", 0)
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, "First", removed.Title)

	entries, _, err = s.GetPlaylist("user-1", "chill")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Second", entries[0].Title)

	// Out-of-range removal is a no-op.
	removed, err = s.RemoveTrack("user-1", "chill", 5)
	require.NoError(t, err)
	assert.Nil(t, removed)

	deleted, err := s.DeletePlaylist("user-1", "chill")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, exists, err = s.GetPlaylist("user-1", "chill")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPlaylistsAreScopedPerUser(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.CreatePlaylist("user-1", "mine")
	require.NoError(t, err)

	_, exists, err := s.GetPlaylist("user-2", "mine")
	require.NoError(t, err)
	assert.False(t, exists)

	lists, err := s.ListPlaylists("user-1")
	require.NoError(t, err)
	assert.Len(t, lists, 1)
}

func TestAddTracksToMissingPlaylist(t *testing.T) {
	s := newTestStorage(t)

	ok, err := s.AddTracks("user-1", "nope", []PlaylistEntry{{Title: "x"}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChannelAllowlist(t *testing.T) {
	s := newTestStorage(t)

	// No restriction configured: everything is allowed.
	allowed, err := s.IsChannelAllowed("guild-1", "ch-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	added, err := s.AddChannel("guild-1", "ch-1")
	require.NoError(t, err)
	require.True(t, added)
	added, err = s.AddChannel("guild-1", "ch-1")
	require.NoError(t, err)
	assert.False(t, added)

	allowed, err = s.IsChannelAllowed("guild-1", "ch-1")
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, err = s.IsChannelAllowed("guild-1", "ch-2")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Another guild's list is independent.
	allowed, err = s.IsChannelAllowed("guild-2", "ch-2")
	require.NoError(t, err)
	assert.True(t, allowed)

	removed, err := s.RemoveChannel("guild-1", "ch-1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.RemoveChannel("guild-1", "ch-1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.AddChannel("guild-1", "ch-3")
	require.NoError(t, err)
	s.ClearChannels("guild-1")

	allowed, err = s.IsChannelAllowed("guild-1", "anything")
	require.NoError(t, err)
	assert.True(t, allowed)
}
