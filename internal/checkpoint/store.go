package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/syncline-io/approvalsync/internal/domain"
)

// DefaultWindow is how far back the watermark is set when the store is
// initialized for the first time.
const DefaultWindow = 7 * 24 * time.Hour

// fileState is the on-disk shape of the checkpoint file. updated_at is
// advisory only and never read back for logic.
type fileState struct {
	LastSyncTime string `json:"last_sync_time"`
	UpdatedAt    string `json:"updated_at"`
}

// Store persists the sync watermark in a small JSON file. Writes go through
// a temp file and rename so a crash mid-write cannot leave a truncated value
// behind.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a store backed by path, creating parent directories and
// an initial watermark of now minus DefaultWindow when the file does not
// exist yet.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureFile() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}
	return s.Save(s.now().Add(-DefaultWindow))
}

// Load returns the persisted watermark. A file that has gone missing is
// re-initialized with the default; an unreadable or malformed value yields
// domain.ErrCheckpointUnavailable so the caller can apply its own fallback.
func (s *Store) Load() (time.Time, error) {
	if err := s.ensureFile(); err != nil {
		return time.Time{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrCheckpointUnavailable, err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrCheckpointUnavailable, err)
	}

	t, err := time.ParseInLocation(domain.TimeLayout, state.LastSyncTime, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrCheckpointUnavailable, err)
	}
	return t, nil
}

// Save atomically replaces the watermark via write-to-temp-then-rename.
func (s *Store) Save(t time.Time) error {
	state := fileState{
		LastSyncTime: t.Format(domain.TimeLayout),
		UpdatedAt:    s.now().Format(domain.TimeLayout),
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}

// Reset deletes the watermark and reinitializes the 7-day default.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	return s.ensureFile()
}
