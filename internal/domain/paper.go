package domain

import "time"

// Paper is a core entity describing one publication fetched from a feed.
// Immutable once crawled; identified by the source-assigned ID.
type Paper struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Abstract    string    `json:"abstract"`
	Authors     []string  `json:"authors,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	URL         string    `json:"url"`
	PDFURL      string    `json:"pdf_url,omitempty"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Valid reports whether the paper carries the minimum field set required
// downstream. Malformed crawler records are rejected at the ingestion
// boundary instead of propagating optional-field ambiguity into scoring.
func (p Paper) Valid() bool {
	return p.ID != "" && p.Title != ""
}

// MatchDetails records which keywords matched where, for diagnostics and
// digest rendering.
type MatchDetails struct {
	TitleKeywords    []string
	AbstractKeywords []string
	Matched          []string
	Contributions    map[string]float64
}

// ScoredPaper pairs a paper with its computed relevance score. Recomputed
// each run, never persisted independently of the digest.
type ScoredPaper struct {
	Paper   Paper
	Score   float64
	Details MatchDetails
	Summary string
}

// Degraded reports whether the summary fell back to the raw abstract.
func (s ScoredPaper) Degraded() bool {
	return s.Summary == "" || s.Summary == s.Paper.Abstract
}

// Digest is the ranked, optionally summarized paper set assembled for one
// day's notification.
type Digest struct {
	Date     time.Time
	Papers   []ScoredPaper
	Overview string
}

// RunRecord is the durable per-date completion record. The two flags are
// independent: a crawl can succeed while delivery fails, and a rerun must
// observe exactly that.
type RunRecord struct {
	Date      string    `json:"date"`
	Crawled   bool      `json:"crawled"`
	Notified  bool      `json:"notified"`
	DocCount  int       `json:"doc_count"`
	UpdatedAt time.Time `json:"updated_at"`
}
