package ports

import (
	"context"
	"time"

	"ArxivDigest/internal/domain"
)

// PaperSource pulls fresh papers from upstream feeds for one day.
type PaperSource interface {
	FetchDaily(ctx context.Context, day time.Time) ([]domain.Paper, error)
}

// Summarizer turns a batch of papers into prose, one summary per paper in
// batch order. A batch call may fail with a rate-limit or API error.
type Summarizer interface {
	SummarizeBatch(ctx context.Context, papers []domain.Paper) ([]string, error)
	Overview(ctx context.Context, papers []domain.ScoredPaper) (string, error)
}

// Mailer renders and transmits the digest email.
type Mailer interface {
	SendDigest(ctx context.Context, subject, markdown string, recipients []string) error
}

// RunStateStore is the durable per-date completion record. Marks are
// idempotent; doc count is overwritten to the latest value.
type RunStateStore interface {
	Lock(date string) (release func(), err error)
	HasCrawled(date string) (bool, error)
	HasNotified(date string) (bool, error)
	MarkCrawled(date string, docCount int) error
	MarkNotified(date string) error
}

// BatchStore persists one day's crawled batch so a rerun can reuse it
// without re-fetching.
type BatchStore interface {
	SaveBatch(date string, papers []domain.Paper) error
	LoadBatch(date string) ([]domain.Paper, error)
	HasBatch(date string) bool
}

// PaperRepository keeps an audit trail of delivered papers for
// deduplication across runs.
type PaperRepository interface {
	AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error)
	SaveProcessed(ctx context.Context, paper domain.ScoredPaper) error
}

// Scheduler controls when the daily pipeline executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
