// Package credstore implements the OAuth credential lifecycle spec.md §4.2
// describes: load from base64 or file, expiry check with a 5-minute skew
// buffer, provider-specific refresh, and atomic persistence, with refreshes
// collapsed via singleflight so concurrent callers share one HTTP exchange
// (spec.md §9 "credential refresh races").
package credstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Record is the OAuth credential record spec.md §3 describes: an access
// token, an optional refresh token, an optional expiry, and provider-
// specific extra fields (profileArn, authMethod, project id, ...).
type Record struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time     `json:"-"`
	Extra        map[string]any `json:"-"`
}

// expirySkew is the buffer spec.md §4.2 specifies: a token within 5 minutes
// of expiry is treated as already expired.
const expirySkew = 5 * time.Minute

// RefreshFunc performs the provider-specific HTTP exchange to obtain a new
// token from the current record's refresh token, returning the updated
// record.
type RefreshFunc func(ctx context.Context, current Record) (Record, error)

// Store holds one credential record behind a reader-writer lock, with
// refreshes single-flighted and persisted atomically to path after success.
type Store struct {
	mu      sync.RWMutex
	record  Record
	path    string
	refresh RefreshFunc
	group   singleflight.Group
	encode  func(Record) ([]byte, error)
	decode  func([]byte) (Record, error)
}

// New constructs a Store already holding record, to be persisted at path
// using the given encode/decode pair (each provider's on-disk shape differs,
// see spec.md §6's "Credential file shapes").
func New(record Record, path string, refresh RefreshFunc, encode func(Record) ([]byte, error), decode func([]byte) (Record, error)) *Store {
	return &Store{record: record, path: path, refresh: refresh, encode: encode, decode: decode}
}

// Load reads a credential record from a base64-encoded blob if non-empty,
// else from filePath, using decode to parse the provider-specific shape.
func Load(base64Blob, filePath string, decode func([]byte) (Record, error)) (Record, error) {
	var raw []byte
	switch {
	case base64Blob != "":
		b, err := base64.StdEncoding.DecodeString(base64Blob)
		if err != nil {
			return Record{}, fmt.Errorf("credentials malformed: %w", err)
		}
		raw = b
	case filePath != "":
		b, err := os.ReadFile(filePath)
		if err != nil {
			return Record{}, fmt.Errorf("reading credentials file %s: %w", filePath, err)
		}
		raw = b
	default:
		return Record{}, fmt.Errorf("credentials malformed: neither base64 nor file path supplied")
	}
	rec, err := decode(raw)
	if err != nil {
		return Record{}, fmt.Errorf("credentials malformed: %w", err)
	}
	return rec, nil
}

// Current returns a copy of the held record under the reader lock.
func (s *Store) Current() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

// IsExpired reports whether the record's expiry is within the skew buffer.
func (s *Store) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return isExpired(s.record)
}

func isExpired(r Record) bool {
	if r.ExpiresAt == nil {
		return false
	}
	return !time.Now().Add(expirySkew).Before(*r.ExpiresAt)
}

// EnsureFresh refreshes the credential if expired. Concurrent callers
// collapse onto one refresh via singleflight; a still-valid token is a
// no-op, satisfying the idempotency property in spec.md §8.
func (s *Store) EnsureFresh(ctx context.Context) error {
	if !s.IsExpired() {
		return nil
	}
	_, err, _ := s.group.Do(s.path, func() (any, error) {
		// Re-check after acquiring the singleflight slot: another
		// goroutine may have just refreshed while we waited.
		if !s.IsExpired() {
			return nil, nil
		}
		return nil, s.doRefresh(ctx)
	})
	return err
}

// Refresh unconditionally performs the provider exchange, bypassing the
// expiry check. Used by the adapter's forced-refresh-on-403 path.
func (s *Store) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do(s.path, func() (any, error) {
		return nil, s.doRefresh(ctx)
	})
	return err
}

func (s *Store) doRefresh(ctx context.Context) error {
	s.mu.RLock()
	current := s.record
	s.mu.RUnlock()

	updated, err := s.refresh(ctx, current)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.record = updated
	s.mu.Unlock()

	return s.Persist()
}

// Persist atomically writes the current record to path via write-then-rename.
func (s *Store) Persist() error {
	s.mu.RLock()
	record := s.record
	s.mu.RUnlock()

	if s.path == "" {
		return nil
	}

	raw, err := s.encode(record)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".creds-*")
	if err != nil {
		return fmt.Errorf("creating temp credentials file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp credentials file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming credentials file: %w", err)
	}
	return nil
}

// DecodeJSON is a convenience decode func for the common case of a flat JSON
// object with extra fields captured into Record.Extra.
func DecodeJSON(raw []byte) (Record, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Record{}, err
	}
	rec := Record{Extra: m}
	if v, ok := m["access_token"].(string); ok {
		rec.AccessToken = v
	}
	if v, ok := m["refresh_token"].(string); ok {
		rec.RefreshToken = v
	}
	return rec, nil
}
