// Package runstate persists the per-date completion record that makes a
// daily scheduled trigger safe to re-invoke: a rerun observes which stages
// already finished instead of duplicating crawls or emails.
package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/ports"
)

// ErrLocked is returned when another invocation holds the per-date lock.
// A second concurrent run for the same date is an error condition, not a
// race to resolve.
var ErrLocked = errors.New("run already in progress for this date")

// Store keeps one JSON record per calendar date under a directory.
// Records survive process restarts and are updated via write-to-temp plus
// rename, so a crash never leaves a partially written record behind.
type Store struct {
	dir string
}

var _ ports.RunStateStore = (*Store)(nil)

// New creates the state directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Lock takes an exclusive per-date lockfile. The caller must invoke the
// returned release function when the run ends.
func (s *Store) Lock(date string) (func(), error) {
	path := filepath.Join(s.dir, date+".lock")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w (lockfile %s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	_ = file.Close()

	return func() { _ = os.Remove(path) }, nil
}

// HasCrawled reports whether the crawl stage completed for the date.
func (s *Store) HasCrawled(date string) (bool, error) {
	record, err := s.load(date)
	if err != nil {
		return false, err
	}
	return record.Crawled, nil
}

// HasNotified reports whether the digest was delivered for the date.
func (s *Store) HasNotified(date string) (bool, error) {
	record, err := s.load(date)
	if err != nil {
		return false, err
	}
	return record.Notified, nil
}

// MarkCrawled records crawl completion. Idempotent; the document count is
// overwritten to the latest value.
func (s *Store) MarkCrawled(date string, docCount int) error {
	return s.update(date, func(record *domain.RunRecord) {
		record.Crawled = true
		record.DocCount = docCount
	})
}

// MarkNotified records digest delivery. Idempotent.
func (s *Store) MarkNotified(date string) error {
	return s.update(date, func(record *domain.RunRecord) {
		record.Notified = true
	})
}

func (s *Store) recordPath(date string) string {
	return filepath.Join(s.dir, date+".json")
}

func (s *Store) load(date string) (domain.RunRecord, error) {
	record := domain.RunRecord{Date: date}

	raw, err := os.ReadFile(s.recordPath(date))
	if errors.Is(err, fs.ErrNotExist) {
		return record, nil
	}
	if err != nil {
		return record, fmt.Errorf("read run record: %w", err)
	}

	if err := json.Unmarshal(raw, &record); err != nil {
		return record, fmt.Errorf("decode run record: %w", err)
	}
	return record, nil
}

func (s *Store) update(date string, mutate func(*domain.RunRecord)) error {
	record, err := s.load(date)
	if err != nil {
		return err
	}

	mutate(&record)
	record.Date = date
	record.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}

	tmp := s.recordPath(date) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write run record: %w", err)
	}
	if err := os.Rename(tmp, s.recordPath(date)); err != nil {
		return fmt.Errorf("commit run record: %w", err)
	}
	return nil
}
