package matching

import (
	"testing"
	"time"

	"ArxivDigest/internal/domain"
)

func mustProfile(t *testing.T, raw map[string]float64) Profile {
	t.Helper()
	profile, err := NewProfile(raw)
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	return profile
}

func paper(id, title, abstract string) domain.Paper {
	return domain.Paper{
		ID:          id,
		Title:       title,
		Abstract:    abstract,
		PublishedAt: time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewProfileRejectsBadWeights(t *testing.T) {
	t.Parallel()

	if _, err := NewProfile(nil); err == nil {
		t.Fatal("expected error for empty profile")
	}
	if _, err := NewProfile(map[string]float64{"rag": 0}); err == nil {
		t.Fatal("expected error for zero weight")
	}
	if _, err := NewProfile(map[string]float64{"rag": -1}); err == nil {
		t.Fatal("expected error for negative weight")
	}
	if _, err := NewProfile(map[string]float64{"  ": 1}); err == nil {
		t.Fatal("expected error for blank keyword")
	}
}

func TestNewProfileNormalizesKeys(t *testing.T) {
	t.Parallel()

	profile := mustProfile(t, map[string]float64{" RAG ": 2.0})
	if _, ok := profile["rag"]; !ok {
		t.Fatalf("expected normalized key, got %v", profile)
	}
}

func TestScoreZeroWithoutOccurrences(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(mustProfile(t, map[string]float64{"rag": 2.0, "agent": 1.0}))
	batch := []domain.Paper{
		paper("a", "Graph neural networks", "We study message passing."),
	}
	scorer.PrepareBatch(batch)

	score, details := scorer.Score(batch[0])
	if score != 0 {
		t.Fatalf("expected score 0, got %v", score)
	}
	if len(details.Matched) != 0 {
		t.Fatalf("expected no matches, got %v", details.Matched)
	}
}

func TestScoreWordBoundary(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(mustProfile(t, map[string]float64{"rag": 1.0}))
	batch := []domain.Paper{
		paper("a", "Fragment assembly", "A fragmented corpus of fragments."),
		paper("b", "RAG pipelines", "Retrieval augmented generation, or rag."),
	}
	scorer.PrepareBatch(batch)

	score, _ := scorer.Score(batch[0])
	if score != 0 {
		t.Fatalf("substring must not match: got score %v", score)
	}

	score, details := scorer.Score(batch[1])
	if score <= 0 {
		t.Fatalf("whole word must match: got score %v", score)
	}
	if len(details.Matched) != 1 || details.Matched[0] != "rag" {
		t.Fatalf("unexpected matches: %v", details.Matched)
	}
}

func TestScoreLengthNormalization(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(mustProfile(t, map[string]float64{"agent": 1.0}))
	short := paper("short", "", "agent planning")
	long := paper("long", "", "agent planning with many additional filler words that stretch the abstract out considerably")
	scorer.PrepareBatch([]domain.Paper{short, long})

	shortScore, _ := scorer.Score(short)
	longScore, _ := scorer.Score(long)
	if shortScore < longScore {
		t.Fatalf("equal counts: shorter doc must score >= longer, got %v < %v", shortScore, longScore)
	}
}

func TestScoreTermSaturation(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(mustProfile(t, map[string]float64{"agent": 1.0}))
	once := paper("a", "", "agent one two three four five six seven eight nine")
	twice := paper("b", "", "agent agent two three four five six seven eight nine")
	scorer.PrepareBatch([]domain.Paper{once, twice})

	onceScore, _ := scorer.Score(once)
	twiceScore, _ := scorer.Score(twice)
	if twiceScore <= onceScore {
		t.Fatalf("more occurrences must score higher: %v <= %v", twiceScore, onceScore)
	}
	if twiceScore >= 2*onceScore {
		t.Fatalf("saturation must damp repeats: %v >= 2 * %v", twiceScore, onceScore)
	}
}

func TestScoreTitleBoost(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(mustProfile(t, map[string]float64{"agent": 1.0}))
	inTitle := paper("a", "agent systems", "we explore coordination")
	inAbstract := paper("b", "coordination systems", "we explore agent")
	scorer.PrepareBatch([]domain.Paper{inTitle, inAbstract})

	titleScore, _ := scorer.Score(inTitle)
	abstractScore, _ := scorer.Score(inAbstract)
	if titleScore <= abstractScore {
		t.Fatalf("title match must outrank abstract match: %v <= %v", titleScore, abstractScore)
	}
}

func TestScoreEmptyDocument(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(mustProfile(t, map[string]float64{"agent": 1.0}))
	empty := paper("a", "", "")
	scorer.PrepareBatch([]domain.Paper{empty})

	score, _ := scorer.Score(empty)
	if score != 0 {
		t.Fatalf("empty document must score 0, got %v", score)
	}
}

func TestScoreOverlapBonus(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(mustProfile(t, map[string]float64{"agent": 1.0}))
	both := paper("a", "agent planning", "the agent plans")
	scorer.PrepareBatch([]domain.Paper{both})

	score, details := scorer.Score(both)
	base := details.Contributions["agent"]
	if score <= base {
		t.Fatalf("overlap bonus missing: score %v <= base contribution %v", score, base)
	}
	if len(details.TitleKeywords) != 1 || len(details.AbstractKeywords) != 1 {
		t.Fatalf("unexpected details: %+v", details)
	}
}
