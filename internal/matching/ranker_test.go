package matching

import (
	"testing"
	"time"

	"ArxivDigest/internal/domain"
)

func datedPaper(id, title, abstract string, published time.Time) domain.Paper {
	return domain.Paper{ID: id, Title: title, Abstract: abstract, PublishedAt: published}
}

func TestRankThresholdAndOrder(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	batch := []domain.Paper{
		datedPaper("C", "Sparse attention kernels", "We optimize kernels.", day),
		datedPaper("A", "Retrieval pipelines", "We study rag twice: rag systems win.", day),
		datedPaper("B", "Planning systems", "An agent plans ahead.", day),
	}

	ranker := NewRanker(NewScorer(mustProfile(t, map[string]float64{"rag": 2.0, "agent": 1.0})), 0.5, 2)
	ranked := ranker.Rank(batch)

	if len(ranked) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(ranked))
	}
	if ranked[0].Paper.ID != "A" || ranked[1].Paper.ID != "B" {
		t.Fatalf("unexpected order: %s, %s", ranked[0].Paper.ID, ranked[1].Paper.ID)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Fatalf("expected descending scores: %v <= %v", ranked[0].Score, ranked[1].Score)
	}
	for _, sp := range ranked {
		if sp.Score < 0.5 {
			t.Fatalf("paper %s below threshold: %v", sp.Paper.ID, sp.Score)
		}
	}
}

func TestRankTieBreaks(t *testing.T) {
	t.Parallel()

	newer := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	older := newer.AddDate(0, 0, -1)

	// Identical text scores identically; ties resolve by recency, then ID.
	batch := []domain.Paper{
		datedPaper("B", "agent", "same text", older),
		datedPaper("A", "agent", "same text", older),
		datedPaper("Z", "agent", "same text", newer),
	}

	ranker := NewRanker(NewScorer(mustProfile(t, map[string]float64{"agent": 1.0})), 0, 0)
	ranked := ranker.Rank(batch)

	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	got := []string{ranked[0].Paper.ID, ranked[1].Paper.ID, ranked[2].Paper.ID}
	want := []string{"Z", "A", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got %v, want %v", got, want)
		}
	}
}

func TestRankTruncatesToTopK(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	batch := make([]domain.Paper, 0, 5)
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		batch = append(batch, datedPaper(id, "agent work", "agent text", day))
	}

	ranker := NewRanker(NewScorer(mustProfile(t, map[string]float64{"agent": 1.0})), 0, 3)
	ranked := ranker.Rank(batch)
	if len(ranked) != 3 {
		t.Fatalf("expected topK=3 results, got %d", len(ranked))
	}
}

func TestRankFewerSurvivorsThanK(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	batch := []domain.Paper{
		datedPaper("a", "agent work", "agent text", day),
		datedPaper("b", "unrelated", "nothing here", day),
	}

	ranker := NewRanker(NewScorer(mustProfile(t, map[string]float64{"agent": 1.0})), 0.1, 10)
	ranked := ranker.Rank(batch)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(ranked))
	}
}

func TestRankEmptyBatch(t *testing.T) {
	t.Parallel()

	ranker := NewRanker(NewScorer(mustProfile(t, map[string]float64{"agent": 1.0})), 0.5, 5)
	if ranked := ranker.Rank(nil); len(ranked) != 0 {
		t.Fatalf("expected empty result, got %d", len(ranked))
	}
}
