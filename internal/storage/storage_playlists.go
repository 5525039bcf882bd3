package storage

import "strings"

// PlaylistEntry is one saved song reference. Query is the canonical page
// URL when known, otherwise the user's original search text.
type PlaylistEntry struct {
	Query       string `json:"query"`
	Title       string `json:"title"`
	Source      string `json:"source,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Uploader    string `json:"uploader,omitempty"`
	DurationSec int    `json:"duration,omitempty"`
	UserQuery   string `json:"user_query,omitempty"`
}

func playlistKey(userID string) string {
	return "playlists:" + userID
}

func (s *Storage) loadPlaylists(userID string) (map[string][]PlaylistEntry, error) {
	lists := map[string][]PlaylistEntry{}
	if _, err := s.get(playlistKey(userID), &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// ListPlaylists returns all playlists owned by the user.
func (s *Storage) ListPlaylists(userID string) (map[string][]PlaylistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPlaylists(userID)
}

// GetPlaylist returns one playlist, or ok=false if it does not exist.
func (s *Storage) GetPlaylist(userID, name string) ([]PlaylistEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.loadPlaylists(userID)
	if err != nil {
		return nil, false, err
	}
	entries, ok := lists[name]
	return entries, ok, nil
}

// CreatePlaylist makes an empty playlist. Returns false if the name is
// blank or already taken.
func (s *Storage) CreatePlaylist(userID, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.loadPlaylists(userID)
	if err != nil {
		return false, err
	}
	if _, exists := lists[name]; exists {
		return false, nil
	}
	lists[name] = []PlaylistEntry{}
	s.put(playlistKey(userID), lists)
	return true, nil
}

// DeletePlaylist removes a playlist. Returns false if it does not exist.
func (s *Storage) DeletePlaylist(userID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.loadPlaylists(userID)
	if err != nil {
		return false, err
	}
	if _, exists := lists[name]; !exists {
		return false, nil
	}
	delete(lists, name)
	s.put(playlistKey(userID), lists)
	return true, nil
}

// AddTracks appends entries to an existing playlist. Returns false if the
// playlist does not exist or entries is empty.
func (s *Storage) AddTracks(userID, name string, entries []PlaylistEntry) (bool, error) {
	if len(entries) == 0 {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.loadPlaylists(userID)
	if err != nil {
		return false, err
	}
	if _, exists := lists[name]; !exists {
		return false, nil
	}
	lists[name] = append(lists[name], entries...)
	s.put(playlistKey(userID), lists)
	return true, nil
}

// RemoveTrack deletes the entry at index (0-based) and returns it.
func (s *Storage) RemoveTrack(userID, name string, index int) (*PlaylistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.loadPlaylists(userID)
	if err != nil {
		return nil, err
	}
	entries, exists := lists[name]
	if !exists || index < 0 || index >= len(entries) {
		return nil, nil
	}
	removed := entries[index]
	lists[name] = append(entries[:index], entries[index+1:]...)
	s.put(playlistKey(userID), lists)
	return &removed, nil
}
