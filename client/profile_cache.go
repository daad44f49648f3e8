package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ProfileCache persists the last known profile per user so the app can render
// immediately on startup while the fresh copy loads. Entries are keyed by
// user id, a separate hint file records who signed in last.
type ProfileCache struct {
	dir string
}

func NewProfileCache(dir string) (*ProfileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating profile cache dir: %w", err)
	}
	return &ProfileCache{dir: dir}, nil
}

func (c *ProfileCache) profilePath(userId uuid.UUID) string {
	return filepath.Join(c.dir, "profile_"+userId.String()+".json")
}

func (c *ProfileCache) lastUserPath() string {
	return filepath.Join(c.dir, "last_user")
}

// Load returns the cached profile for the user, or nil if none is cached.
func (c *ProfileCache) Load(userId uuid.UUID) (*Profile, error) {
	data, err := os.ReadFile(c.profilePath(userId))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading cached profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		// A corrupt cache entry is treated as a miss.
		return nil, nil
	}
	return &profile, nil
}

func (c *ProfileCache) Store(profile Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("error serializing profile: %w", err)
	}

	if err := os.WriteFile(c.profilePath(profile.Id), data, 0644); err != nil {
		return fmt.Errorf("error writing cached profile: %w", err)
	}

	if err := os.WriteFile(c.lastUserPath(), []byte(profile.Id.String()), 0644); err != nil {
		return fmt.Errorf("error writing last user hint: %w", err)
	}
	return nil
}

func (c *ProfileCache) Delete(userId uuid.UUID) error {
	if err := os.Remove(c.profilePath(userId)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error removing cached profile: %w", err)
	}

	if last, _ := c.LastUser(); last != nil && *last == userId {
		if err := os.Remove(c.lastUserPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error removing last user hint: %w", err)
		}
	}
	return nil
}

// LastUser returns the id of the most recently signed in user, or nil.
func (c *ProfileCache) LastUser() (*uuid.UUID, error) {
	data, err := os.ReadFile(c.lastUserPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading last user hint: %w", err)
	}

	userId, err := uuid.Parse(string(data))
	if err != nil {
		return nil, nil
	}
	return &userId, nil
}
