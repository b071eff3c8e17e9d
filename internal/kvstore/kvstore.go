// Package kvstore persists versioned JSON blobs on a key/value medium.
//
// Every value is wrapped in an envelope carrying a schema version. Load only
// hands data back when the stored version matches the caller's; anything
// else (missing entry, bad JSON, non-object, version drift) reads as absent.
// No operation returns an error: failures are logged and reported as false.
package kvstore

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"time"
)

// Prefix namespaces every key written by a Store.
const Prefix = "flashcards_"

// Medium is the raw storage the envelopes are written to.
type Medium interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

type envelope struct {
	Version   int             `json:"version"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Store reads and writes envelopes on a Medium.
type Store struct {
	medium Medium
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source used for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store writing to m.
func New(m Medium, opts ...Option) *Store {
	s := &Store{medium: m, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the data stored under key if its envelope version equals
// expectedVersion.
func (s *Store) Load(key string, expectedVersion int) (json.RawMessage, bool) {
	raw, ok, err := s.medium.GetItem(Prefix + key)
	if err != nil {
		s.logger.Error("kvstore: read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		s.logger.Warn("kvstore: stored value is not an object", "key", key)
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		s.logger.Warn("kvstore: stored value is not valid JSON", "key", key, "error", err)
		return nil, false
	}
	if env.Version != expectedVersion {
		s.logger.Warn("kvstore: version mismatch, ignoring stored value",
			"key", key,
			"stored_version", env.Version,
			"expected_version", expectedVersion,
		)
		return nil, false
	}
	if len(env.Data) == 0 {
		return json.RawMessage("null"), true
	}
	return env.Data, true
}

// LoadInto decodes the data stored under key into dst. It reports false,
// leaving dst untouched, whenever Load would report absent or the payload
// does not decode into dst.
func (s *Store) LoadInto(key string, expectedVersion int, dst any) bool {
	data, ok := s.Load(key, expectedVersion)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("kvstore: stored data has unexpected shape", "key", key, "error", err)
		return false
	}
	return true
}

// Save wraps data in a version envelope and writes it under key,
// overwriting whatever was there.
func (s *Store) Save(key string, data any, version int) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("kvstore: cannot serialize data", "key", key, "error", err)
		return false
	}
	raw, err := json.Marshal(envelope{
		Version:   version,
		Data:      payload,
		Timestamp: s.now().UnixMilli(),
	})
	if err != nil {
		s.logger.Error("kvstore: cannot serialize envelope", "key", key, "error", err)
		return false
	}
	if err := s.medium.SetItem(Prefix+key, string(raw)); err != nil {
		s.logger.Error("kvstore: write failed", "key", key, "bytes", len(raw), "error", err)
		return false
	}
	return true
}

// Clear removes the entry for key. A missing entry counts as success.
func (s *Store) Clear(key string) bool {
	if err := s.medium.RemoveItem(Prefix + key); err != nil {
		s.logger.Error("kvstore: remove failed", "key", key, "error", err)
		return false
	}
	return true
}
