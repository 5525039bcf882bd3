package storage

import "slices"

func channelKey(guildID string) string {
	return "channels:" + guildID
}

func (s *Storage) loadChannels(guildID string) ([]string, error) {
	var channels []string
	if _, err := s.get(channelKey(guildID), &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// ListChannels returns the guild's allowed-channel IDs. Empty means no
// restriction.
func (s *Storage) ListChannels(guildID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadChannels(guildID)
}

// AddChannel allows a channel. Returns false if it was already allowed.
func (s *Storage) AddChannel(guildID, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels, err := s.loadChannels(guildID)
	if err != nil {
		return false, err
	}
	if slices.Contains(channels, channelID) {
		return false, nil
	}
	s.put(channelKey(guildID), append(channels, channelID))
	return true, nil
}

// RemoveChannel revokes a channel. Returns false if it was not in the list.
func (s *Storage) RemoveChannel(guildID, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels, err := s.loadChannels(guildID)
	if err != nil {
		return false, err
	}
	idx := slices.Index(channels, channelID)
	if idx < 0 {
		return false, nil
	}
	s.put(channelKey(guildID), slices.Delete(channels, idx, idx+1))
	return true, nil
}

// ClearChannels drops the guild's restriction entirely.
func (s *Storage) ClearChannels(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds.Delete(channelKey(guildID))
}

// IsChannelAllowed reports whether commands may run in the channel. A guild
// with no configured channels allows all of them.
func (s *Storage) IsChannelAllowed(guildID, channelID string) (bool, error) {
	channels, err := s.ListChannels(guildID)
	if err != nil {
		return false, err
	}
	if len(channels) == 0 {
		return true, nil
	}
	return slices.Contains(channels, channelID), nil
}
