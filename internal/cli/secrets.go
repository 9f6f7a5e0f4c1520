package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Seat is a remembered player credential for one game
type Seat struct {
	Secret string `yaml:"secret"`
	Color  string `yaml:"color"`
}

// SecretStore keeps the secrets handed out on create and join, keyed by game ID.
// The server never reveals a secret twice, so losing this file loses the seat.
type SecretStore struct {
	path  string
	Games map[string]Seat `yaml:"games"`
}

// LoadSecretStore reads the store at path. A missing file is an empty store.
func LoadSecretStore(path string) (*SecretStore, error) {
	store := &SecretStore{path: path, Games: map[string]Seat{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file %s: %w", path, err)
	}
	if store.Games == nil {
		store.Games = map[string]Seat{}
	}
	return store, nil
}

// Get returns the seat for a game
func (s *SecretStore) Get(gameID string) (Seat, bool) {
	seat, ok := s.Games[gameID]
	return seat, ok
}

// Put remembers a seat and writes the store to disk
func (s *SecretStore) Put(gameID string, seat Seat) error {
	s.Games[gameID] = seat
	return s.save()
}

// GameIDs returns the remembered games in a stable order
func (s *SecretStore) GameIDs() []string {
	ids := make([]string, 0, len(s.Games))
	for id := range s.Games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *SecretStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// resolveSecret prefers an explicit secret, then the remembered one
func resolveSecret(gameID, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if seat, ok := secrets.Get(gameID); ok {
		return seat.Secret, nil
	}
	return "", fmt.Errorf("no secret known for game %s: pass --secret", gameID)
}
