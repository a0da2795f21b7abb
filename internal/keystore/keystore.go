// Package keystore keeps the API key in the OS credential store, with an
// environment fallback.
package keystore

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	Service = "sightline"
	User    = "api-key"
)

// EnvVars are consulted in order when the keyring has no key.
var EnvVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

var ErrNoKey = errors.New("no API key configured")

type Store struct {
	Service string
	User    string
	Getenv  func(string) string
}

func New() *Store {
	return &Store{Service: Service, User: User, Getenv: os.Getenv}
}

// Get returns the key and where it came from. An unusable keyring still
// allows the environment fallback.
func (s *Store) Get() (key, source string, err error) {
	key, err = keyring.Get(s.Service, s.User)
	if err == nil && key != "" {
		return key, "keyring", nil
	}
	for _, name := range EnvVars {
		if v := strings.TrimSpace(s.Getenv(name)); v != "" {
			return v, name, nil
		}
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", "", fmt.Errorf("read keyring: %w", err)
	}
	return "", "", ErrNoKey
}

func (s *Store) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty API key")
	}
	if err := keyring.Set(s.Service, s.User, key); err != nil {
		return fmt.Errorf("save key: %w", err)
	}
	return nil
}

// Delete removes the stored key. Deleting a missing key is not an error.
func (s *Store) Delete() error {
	err := keyring.Delete(s.Service, s.User)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}

// Source describes where Get would find the key, without revealing it.
func (s *Store) Source() string {
	key, src, err := s.Get()
	if err != nil {
		return "none"
	}
	return fmt.Sprintf("%s (%s)", src, Mask(key))
}

// Mask keeps the last four characters of key.
func Mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 4) + key[len(key)-4:]
}
