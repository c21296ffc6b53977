package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wayfinder/internal/jsonx"
)

// ProfileStore abstracts persistence for preference profiles and their
// append-only event logs. The pipeline core itself never persists anything;
// it works on snapshots handed to it by the caller. Stores are
// constructor-injected so tests instantiate fresh instances instead of
// sharing module-level state.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (Profile, bool, error)
	Put(ctx context.Context, profile Profile) error
	Reset(ctx context.Context, userID string) (Profile, error)
	AppendEvent(ctx context.Context, event Event) error
	RecentEvents(ctx context.Context, userID string, limit int) ([]Event, error)
}

// MemoryStore is an in-process ProfileStore for tests and the demo CLI.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]Profile
	events   map[string][]Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]Profile),
		events:   make(map[string][]Event),
	}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	return profile, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, profile Profile) error {
	if strings.TrimSpace(profile.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, userID string) (Profile, error) {
	fresh := DefaultProfile(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = fresh
	s.events[userID] = nil
	return fresh, nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, event Event) error {
	if strings.TrimSpace(event.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	return nil
}

func (s *MemoryStore) RecentEvents(_ context.Context, userID string, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lastN(s.events[userID], limit), nil
}

// FileStore persists profiles and event logs as JSON files per user under a
// base directory. Writes go through a temp file rename so a crash never
// leaves a truncated profile on disk.
type FileStore struct {
	basePath string
	mu       sync.Mutex
	cache    map[string]*userRecord // userID -> loaded record
}

type userRecord struct {
	Profile Profile `json:"profile"`
	Events  []Event `json:"events"`
}

// NewFileStore creates a file-backed store rooted at basePath.
func NewFileStore(basePath string) *FileStore {
	return &FileStore{
		basePath: basePath,
		cache:    make(map[string]*userRecord),
	}
}

func (s *FileStore) Get(_ context.Context, userID string) (Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.loadLocked(userID)
	if err != nil {
		return Profile{}, false, err
	}
	if record == nil {
		return Profile{}, false, nil
	}
	return record.Profile, true, nil
}

func (s *FileStore) Put(_ context.Context, profile Profile) error {
	if strings.TrimSpace(profile.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.loadLocked(profile.UserID)
	if err != nil {
		return err
	}
	if record == nil {
		record = &userRecord{}
	}
	record.Profile = profile
	s.cache[profile.UserID] = record
	return s.saveLocked(profile.UserID, record)
}

func (s *FileStore) Reset(_ context.Context, userID string) (Profile, error) {
	fresh := DefaultProfile(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	record := &userRecord{Profile: fresh}
	s.cache[userID] = record
	if err := s.saveLocked(userID, record); err != nil {
		return Profile{}, err
	}
	return fresh, nil
}

func (s *FileStore) AppendEvent(_ context.Context, event Event) error {
	if strings.TrimSpace(event.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.loadLocked(event.UserID)
	if err != nil {
		return err
	}
	if record == nil {
		record = &userRecord{Profile: DefaultProfile(event.UserID)}
	}
	record.Events = append(record.Events, event)
	s.cache[event.UserID] = record
	return s.saveLocked(event.UserID, record)
}

func (s *FileStore) RecentEvents(_ context.Context, userID string, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.loadLocked(userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return lastN(record.Events, limit), nil
}

func (s *FileStore) loadLocked(userID string) (*userRecord, error) {
	if record, ok := s.cache[userID]; ok {
		return record, nil
	}
	data, err := os.ReadFile(s.userPath(userID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile for %s: %w", userID, err)
	}
	var record userRecord
	if err := jsonx.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode profile for %s: %w", userID, err)
	}
	s.cache[userID] = &record
	return &record, nil
}

func (s *FileStore) saveLocked(userID string, record *userRecord) error {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	data, err := jsonx.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile for %s: %w", userID, err)
	}
	path := s.userPath(userID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write profile for %s: %w", userID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace profile for %s: %w", userID, err)
	}
	return nil
}

func (s *FileStore) userPath(userID string) string {
	// Flatten anything path-like so user ids cannot escape the base dir.
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '.', ':':
			return '_'
		}
		return r
	}, userID)
	return filepath.Join(s.basePath, safe+".json")
}

func lastN(events []Event, limit int) []Event {
	if limit <= 0 || limit >= len(events) {
		out := make([]Event, len(events))
		copy(out, events)
		return out
	}
	out := make([]Event, limit)
	copy(out, events[len(events)-limit:])
	return out
}
