package matching

import (
	"sort"

	"ArxivDigest/internal/domain"
)

// Ranker applies the scorer across a batch, filters by threshold, and
// truncates to the top-K results in a deterministic total order.
type Ranker struct {
	scorer    *Scorer
	threshold float64
	topK      int
}

// NewRanker wires a scorer with the configured threshold and result cap.
func NewRanker(scorer *Scorer, threshold float64, topK int) *Ranker {
	return &Ranker{scorer: scorer, threshold: threshold, topK: topK}
}

// Rank scores every paper, drops scores strictly below the threshold,
// sorts by score descending with ties broken by publication recency then
// identifier, and returns at most topK survivors. An empty batch or a
// batch with no survivors yields an empty result, not an error.
func (r *Ranker) Rank(papers []domain.Paper) []domain.ScoredPaper {
	if len(papers) == 0 {
		return nil
	}

	r.scorer.PrepareBatch(papers)

	survivors := make([]domain.ScoredPaper, 0, len(papers))
	for _, paper := range papers {
		score, details := r.scorer.Score(paper)
		if score < r.threshold {
			continue
		}
		survivors = append(survivors, domain.ScoredPaper{
			Paper:   paper,
			Score:   score,
			Details: details,
		})
	}

	sort.Slice(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Paper.PublishedAt.Equal(b.Paper.PublishedAt) {
			return a.Paper.PublishedAt.After(b.Paper.PublishedAt)
		}
		return a.Paper.ID < b.Paper.ID
	})

	if r.topK > 0 && len(survivors) > r.topK {
		survivors = survivors[:r.topK]
	}

	return survivors
}
