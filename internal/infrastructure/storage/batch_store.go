package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/ports"
)

// FileBatchStore persists one day's crawled batch as a JSONL file, one
// paper per line, so a rerun (or --skip-crawl) can reuse it without
// touching the source again.
type FileBatchStore struct {
	dir string
}

var _ ports.BatchStore = (*FileBatchStore)(nil)

// NewFileBatchStore creates the batch directory if needed.
func NewFileBatchStore(dir string) (*FileBatchStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create batch dir: %w", err)
	}
	return &FileBatchStore{dir: dir}, nil
}

// SaveBatch replaces the stored batch for the date atomically.
func (s *FileBatchStore) SaveBatch(date string, papers []domain.Paper) error {
	tmp := s.path(date) + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create batch file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, paper := range papers {
		if err := encoder.Encode(paper); err != nil {
			_ = file.Close()
			return fmt.Errorf("encode paper %s: %w", paper.ID, err)
		}
	}
	if err := writer.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("flush batch: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := os.Rename(tmp, s.path(date)); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// LoadBatch reads the stored batch for the date. Malformed lines are
// skipped rather than failing the whole batch.
func (s *FileBatchStore) LoadBatch(date string) ([]domain.Paper, error) {
	file, err := os.Open(s.path(date))
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	defer file.Close()

	var papers []domain.Paper
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var paper domain.Paper
		if err := json.Unmarshal(line, &paper); err != nil {
			continue
		}
		papers = append(papers, paper)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}

	return papers, nil
}

// HasBatch reports whether a stored batch exists for the date.
func (s *FileBatchStore) HasBatch(date string) bool {
	info, err := os.Stat(s.path(date))
	return err == nil && !info.IsDir()
}

func (s *FileBatchStore) path(date string) string {
	return filepath.Join(s.dir, date+".jsonl")
}
