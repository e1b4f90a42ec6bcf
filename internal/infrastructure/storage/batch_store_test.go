package storage

import (
	"testing"
	"time"

	"ArxivDigest/internal/domain"
)

func TestBatchStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewFileBatchStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBatchStore: %v", err)
	}

	const date = "2026-08-30"
	papers := []domain.Paper{
		{
			ID:          "arXiv:2608.00001",
			Title:       "Retrieval pipelines",
			Abstract:    "We study rag systems.",
			Authors:     []string{"A. Author", "B. Author"},
			Categories:  []string{"cs.CL"},
			URL:         "https://arxiv.org/abs/2608.00001",
			PublishedAt: time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:          "arXiv:2608.00002",
			Title:       "Agent planning",
			Abstract:    "An agent plans ahead.",
			PublishedAt: time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC),
		},
	}

	if store.HasBatch(date) {
		t.Fatal("fresh store must not have a batch")
	}
	if err := store.SaveBatch(date, papers); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if !store.HasBatch(date) {
		t.Fatal("HasBatch must report the saved batch")
	}

	loaded, err := store.LoadBatch(date)
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(loaded))
	}
	if loaded[0].ID != papers[0].ID || loaded[0].Title != papers[0].Title {
		t.Fatalf("unexpected first paper: %+v", loaded[0])
	}
	if len(loaded[0].Authors) != 2 {
		t.Fatalf("authors lost: %+v", loaded[0])
	}
	if !loaded[1].PublishedAt.Equal(papers[1].PublishedAt) {
		t.Fatalf("published date lost: %v", loaded[1].PublishedAt)
	}
}

func TestBatchStoreOverwrite(t *testing.T) {
	t.Parallel()

	store, err := NewFileBatchStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBatchStore: %v", err)
	}

	const date = "2026-08-30"
	if err := store.SaveBatch(date, []domain.Paper{{ID: "a", Title: "first"}}); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if err := store.SaveBatch(date, []domain.Paper{{ID: "b", Title: "second"}, {ID: "c", Title: "third"}}); err != nil {
		t.Fatalf("SaveBatch overwrite: %v", err)
	}

	loaded, err := store.LoadBatch(date)
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if len(loaded) != 2 || loaded[0].ID != "b" {
		t.Fatalf("overwrite failed: %+v", loaded)
	}
}

func TestBatchStoreEmptyBatch(t *testing.T) {
	t.Parallel()

	store, err := NewFileBatchStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBatchStore: %v", err)
	}

	const date = "2026-08-30"
	if err := store.SaveBatch(date, nil); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	loaded, err := store.LoadBatch(date)
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty batch, got %d", len(loaded))
	}
}
