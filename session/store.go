// Package session keeps the signed-in credentials of dashreq and implements
// auth.Provider on top of them.
package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/nojima/dashreq/internal/json"
	"github.com/nojima/dashreq/logging"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Session is what a successful login leaves behind.
type Session struct {
	// Issuer is sent as the jwt-issuer header.
	Issuer string        `json:"issuer,omitempty"`
	Token  *oauth2.Token `json:"token"`
}

func (s *Session) accessToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

func (s *Session) refreshToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.RefreshToken
}

// Store persists a Session as a JSON file readable only by its owner.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the stored session, or nil when there is none.
func (s *Store) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading session file '%s'", s.path)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrapf(err, "parsing session file '%s'", s.path)
	}
	if session.Token == nil {
		return nil, nil
	}
	return &session, nil
}

// Save writes session atomically.
func (s *Store) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling session")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "creating directory '%s'", dir)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return errors.Wrap(err, "creating temporary session file")
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "restricting session file permissions")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing session file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "writing session file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrapf(err, "replacing session file '%s'", s.path)
	}
	return nil
}

// Clear removes the stored session. Clearing an absent session is not an
// error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "removing session file '%s'", s.path)
	}
	return nil
}

// Watch calls onChange with the reloaded session whenever the session file is
// written, replaced or removed by anyone, until ctx is done. The session
// passed to onChange is nil after a removal.
func (s *Store) Watch(ctx context.Context, onChange func(*Session)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "creating directory '%s'", dir)
	}
	// The directory is watched because Save replaces the file.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "watching '%s'", dir)
	}

	target := filepath.Clean(s.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				session, err := s.Load()
				if err != nil {
					logging.WithError(err).Warnf("failed to reload session")
					continue
				}
				onChange(session)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.WithError(err).Warnf("session watcher error")
			}
		}
	}()
	return nil
}
