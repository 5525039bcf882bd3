// Package storage persists user playlists and guild channel allowlists in
// a JSON-file datastore.
package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/keshon/datastore"
)

// Storage wraps the JSON datastore. The datastore serializes raw key
// access; the mutex here serializes our read-modify-write cycles so two
// concurrent mutations cannot drop each other's update.
type Storage struct {
	ds *datastore.DataStore
	mu sync.Mutex
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// get unmarshals the value under key into out. Returns false when the key
// is absent. The datastore hands values back as decoded JSON (map[string]any
// etc.), so they take one marshal round-trip to become typed again.
func (s *Storage) get(key string, out any) (bool, error) {
	raw, ok := s.ds.Get(key)
	if !ok {
		return false, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return false, fmt.Errorf("marshal stored value: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal %q: %w", key, err)
	}
	return true, nil
}

func (s *Storage) put(key string, value any) {
	s.ds.Add(key, value)
}
