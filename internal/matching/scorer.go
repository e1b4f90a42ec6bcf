package matching

import (
	"math"
	"regexp"
	"strings"

	"ArxivDigest/internal/domain"
)

// BM25 constants. The corpus for a single run is too small and ephemeral
// for stable global statistics, so document frequency and average length
// are rebuilt from the current batch on every run instead of being kept in
// a persistent index. Tunable alongside the scorer, not hidden elsewhere.
const (
	// k1 controls term-frequency saturation.
	k1 = 1.5
	// b controls document-length normalization.
	b = 0.75
	// titleWeight boosts matches found in the title over the abstract.
	titleWeight = 3.0
	// overlapBonus scales the multiplier applied when a keyword hits both
	// the title and the abstract.
	overlapBonus = 0.1
)

// Scorer computes a weighted BM25-saturation relevance score for one paper
// against a keyword profile. Call PrepareBatch before Score so per-batch
// statistics (document frequency, average length) are in place.
type Scorer struct {
	profile  Profile
	keywords []string
	patterns map[string]*regexp.Regexp

	docCount  int
	docFreq   map[string]int
	avgDocLen float64
}

// NewScorer compiles whole-word, case-insensitive patterns for every
// profile keyword. Word boundaries prevent "rag" from matching "fragment".
func NewScorer(profile Profile) *Scorer {
	keywords := profile.Keywords()
	patterns := make(map[string]*regexp.Regexp, len(keywords))
	for _, keyword := range keywords {
		patterns[keyword] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	}

	return &Scorer{
		profile:  profile,
		keywords: keywords,
		patterns: patterns,
		docFreq:  map[string]int{},
	}
}

// PrepareBatch rebuilds the per-run corpus statistics from the batch.
func (s *Scorer) PrepareBatch(papers []domain.Paper) {
	s.docCount = len(papers)
	s.docFreq = make(map[string]int, len(s.keywords))

	totalLen := 0
	for _, paper := range papers {
		text := paper.Title + " " + paper.Abstract
		totalLen += len(tokenize(text))
		for _, keyword := range s.keywords {
			if s.countMatches(text, keyword) > 0 {
				s.docFreq[keyword]++
			}
		}
	}

	s.avgDocLen = 0
	if s.docCount > 0 {
		s.avgDocLen = float64(totalLen) / float64(s.docCount)
	}
}

// Score returns the non-negative relevance score for one paper together
// with the matched-keyword breakdown. Keywords with zero occurrences
// contribute zero.
func (s *Scorer) Score(paper domain.Paper) (float64, domain.MatchDetails) {
	titleLen := len(tokenize(paper.Title))
	abstractLen := len(tokenize(paper.Abstract))

	details := domain.MatchDetails{Contributions: map[string]float64{}}
	total := 0.0
	overlapWeight := 0.0

	for _, keyword := range s.keywords {
		weight := s.profile[keyword]
		idf := s.idf(keyword)

		titlePart := 0.0
		if tf := s.countMatches(paper.Title, keyword); tf > 0 {
			titlePart = titleWeight * weight * idf * s.saturate(tf, titleLen)
			details.TitleKeywords = append(details.TitleKeywords, keyword)
		}

		abstractPart := 0.0
		if tf := s.countMatches(paper.Abstract, keyword); tf > 0 {
			abstractPart = weight * idf * s.saturate(tf, abstractLen)
			details.AbstractKeywords = append(details.AbstractKeywords, keyword)
		}

		if titlePart == 0 && abstractPart == 0 {
			continue
		}
		if titlePart > 0 && abstractPart > 0 {
			overlapWeight += weight
		}

		contribution := titlePart + abstractPart
		details.Matched = append(details.Matched, keyword)
		details.Contributions[keyword] = contribution
		total += contribution
	}

	// A keyword present in both positions signals stronger relevance than
	// either position alone.
	if overlapWeight > 0 {
		total *= 1.0 + overlapBonus*overlapWeight
	}

	return total, details
}

// saturate applies the BM25 term-frequency saturation with length
// normalization against the batch average.
func (s *Scorer) saturate(tf, docLen int) float64 {
	lenRatio := 0.0
	if s.avgDocLen > 0 {
		lenRatio = float64(docLen) / s.avgDocLen
	}
	return float64(tf) * (k1 + 1) / (float64(tf) + k1*(1-b+b*lenRatio))
}

// idf uses the standard BM25 inverse-document-frequency over the current
// batch, clamped to stay non-negative.
func (s *Scorer) idf(keyword string) float64 {
	df := float64(s.docFreq[keyword])
	n := float64(s.docCount)
	idf := math.Log((n-df+0.5)/(df+0.5) + 1)
	return math.Max(idf, 0)
}

func (s *Scorer) countMatches(text, keyword string) int {
	pattern, ok := s.patterns[keyword]
	if !ok {
		return 0
	}
	return len(pattern.FindAllStringIndex(text, -1))
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
