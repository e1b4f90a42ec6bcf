package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/matching"
	"ArxivDigest/internal/ports"
)

// State names the orchestrator's pipeline stages. FAILED is absorbing and
// reachable from any non-terminal state.
type State string

const (
	StatePending     State = "PENDING"
	StateCrawling    State = "CRAWLING"
	StateRanking     State = "RANKING"
	StateSummarizing State = "SUMMARIZING"
	StateSending     State = "SENDING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

const dateLayout = "2006-01-02"

// Options carry the per-invocation overrides.
type Options struct {
	// Date is the target date; zero means today (UTC).
	Date time.Time
	// Force re-crawls regardless of stored state.
	Force bool
	// SkipCrawl reuses the stored batch and fails fast if none exists.
	SkipCrawl bool
}

// Deps wires all driven adapters into the orchestrator.
type Deps struct {
	Source     ports.PaperSource
	Ranker     *matching.Ranker
	Profile    matching.Profile
	Summarizer ports.Summarizer // nil disables LLM summaries (degraded report)
	Mailer     ports.Mailer     // nil writes the digest locally instead
	RunState   ports.RunStateStore
	Batches    ports.BatchStore
	Repository ports.PaperRepository // nil disables the audit trail

	Recipients    []string
	BatchSize     int
	MaxRetries    int
	Parallelism   int
	RetryInterval time.Duration
	DigestDir     string
	Logger        *slog.Logger
}

// Result is the terminal outcome of one run.
type Result struct {
	State      State
	Date       string
	Crawled    int
	Ranked     int
	Degraded   int
	Sent       bool
	DigestPath string
}

// Orchestrator sequences crawl, rank, summarize, and deliver for a single
// target date under idempotency and partial-failure constraints.
type Orchestrator struct {
	deps Deps
	log  *slog.Logger
}

// NewOrchestrator validates wiring-level defaults and returns the run
// driver.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.BatchSize <= 0 {
		deps.BatchSize = 3
	}
	if deps.Parallelism <= 0 {
		deps.Parallelism = 1
	}
	if deps.RetryInterval <= 0 {
		deps.RetryInterval = 500 * time.Millisecond
	}
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{deps: deps, log: log}
}

// Run executes one pipeline invocation for the target date and returns
// the terminal outcome. Lower-level stage errors are classified here into
// the run's one terminal error; the run state record is never left
// partially updated.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Result, error) {
	day := opts.Date
	if day.IsZero() {
		day = time.Now().UTC()
	}
	date := day.Format(dateLayout)

	result := Result{State: StatePending, Date: date}

	release, err := o.deps.RunState.Lock(date)
	if err != nil {
		return o.fail(result, fmt.Errorf("%w: %v", ErrConcurrentRun, err))
	}
	defer release()

	if !opts.Force {
		notified, err := o.deps.RunState.HasNotified(date)
		if err != nil {
			return o.fail(result, fmt.Errorf("read run state: %w", err))
		}
		if notified {
			// Re-invoking a completed date must not produce a second email.
			o.log.Info("digest already delivered, nothing to do", "date", date)
			result.State = StateDone
			return result, nil
		}
	}

	result.State = StateCrawling
	batch, err := o.obtainBatch(ctx, opts, date, day)
	if err != nil {
		return o.fail(result, err)
	}
	result.Crawled = len(batch)

	result.State = StateRanking
	batch = o.dropProcessed(ctx, batch)
	ranked := o.deps.Ranker.Rank(batch)
	result.Ranked = len(ranked)
	o.log.Info("ranking done", "date", date, "candidates", len(batch), "selected", len(ranked))

	if len(ranked) == 0 {
		// Silence, not an empty email.
		o.log.Info("no relevant papers, skipping delivery", "date", date)
		result.State = StateDone
		return result, nil
	}

	result.State = StateSummarizing
	ranked, degraded, err := o.summarize(ctx, ranked)
	if err != nil {
		return o.fail(result, err)
	}
	result.Degraded = degraded

	digest := domain.Digest{Date: day, Papers: ranked}
	digest.Overview = o.overview(ctx, ranked)
	markdown := RenderDigest(digest, o.deps.Profile)

	result.State = StateSending
	if err := o.deliver(ctx, &result, date, markdown); err != nil {
		return o.fail(result, err)
	}

	o.recordProcessed(ctx, ranked)

	result.State = StateDone
	o.log.Info("run complete", "date", date,
		"crawled", result.Crawled, "ranked", result.Ranked,
		"degraded", result.Degraded, "sent", result.Sent)
	return result, nil
}

// obtainBatch resolves the document batch for the date: reuse the stored
// batch when the crawl already happened, otherwise fetch and persist it.
// The crawled mark is written only after the batch is durably stored.
func (o *Orchestrator) obtainBatch(ctx context.Context, opts Options, date string, day time.Time) ([]domain.Paper, error) {
	if opts.SkipCrawl {
		if !o.deps.Batches.HasBatch(date) {
			return nil, &ConfigError{Reason: fmt.Sprintf("--skip-crawl set but no stored batch for %s", date)}
		}
		o.log.Info("reusing stored batch", "date", date, "reason", "skip-crawl")
		return o.deps.Batches.LoadBatch(date)
	}

	crawled, err := o.deps.RunState.HasCrawled(date)
	if err != nil {
		return nil, &CrawlError{Err: err}
	}
	if crawled && !opts.Force && o.deps.Batches.HasBatch(date) {
		o.log.Info("reusing stored batch", "date", date, "reason", "already crawled")
		return o.deps.Batches.LoadBatch(date)
	}

	papers, err := o.deps.Source.FetchDaily(ctx, day)
	if err != nil {
		return nil, &CrawlError{Err: err}
	}

	valid := papers[:0]
	for _, paper := range papers {
		if paper.Valid() {
			valid = append(valid, paper)
		} else {
			o.log.Warn("dropping malformed paper", "id", paper.ID, "url", paper.URL)
		}
	}

	if err := o.deps.Batches.SaveBatch(date, valid); err != nil {
		return nil, &CrawlError{Err: fmt.Errorf("persist batch: %w", err)}
	}
	if err := o.deps.RunState.MarkCrawled(date, len(valid)); err != nil {
		return nil, &CrawlError{Err: fmt.Errorf("mark crawled: %w", err)}
	}

	o.log.Info("crawl done", "date", date, "papers", len(valid))
	return valid, nil
}

// summarize resolves every rank-order batch, in parallel up to the
// configured limit, retrying each batch a bounded number of times and
// falling back to the raw abstract when a batch still fails. Completed
// batches survive a mid-run cancellation.
func (o *Orchestrator) summarize(ctx context.Context, ranked []domain.ScoredPaper) ([]domain.ScoredPaper, int, error) {
	if o.deps.Summarizer == nil {
		o.log.Warn("no summarizer configured, using raw abstracts")
		for i := range ranked {
			ranked[i].Summary = ranked[i].Paper.Abstract
		}
		return ranked, len(ranked), nil
	}

	type span struct{ start, end int }
	spans := make([]span, 0, len(ranked)/o.deps.BatchSize+1)
	for start := 0; start < len(ranked); start += o.deps.BatchSize {
		end := min(start+o.deps.BatchSize, len(ranked))
		spans = append(spans, span{start: start, end: end})
	}

	// Results are collected by batch index so parallel completion order
	// cannot disturb rank order.
	results := make([][]string, len(spans))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(o.deps.Parallelism)
	for i, sp := range spans {
		group.Go(func() error {
			papers := make([]domain.Paper, 0, sp.end-sp.start)
			for _, scored := range ranked[sp.start:sp.end] {
				papers = append(papers, scored.Paper)
			}

			summaries, err := o.summarizeWithRetry(gctx, papers)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// Degrade this batch instead of aborting the run.
				o.log.Warn("summarize batch failed after retries, using raw abstracts",
					"batch", i, "papers", len(papers), "error", err)
				return nil
			}
			results[i] = summaries
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return ranked, 0, fmt.Errorf("summarization aborted: %w", err)
	}

	degraded := 0
	for i, sp := range spans {
		for j := sp.start; j < sp.end; j++ {
			if results[i] == nil {
				ranked[j].Summary = ranked[j].Paper.Abstract
				degraded++
				continue
			}
			ranked[j].Summary = results[i][j-sp.start]
		}
	}
	return ranked, degraded, nil
}

func (o *Orchestrator) summarizeWithRetry(ctx context.Context, papers []domain.Paper) ([]string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = o.deps.RetryInterval

	var summaries []string
	operation := func() error {
		out, err := o.deps.Summarizer.SummarizeBatch(ctx, papers)
		if err != nil {
			return err
		}
		if len(out) != len(papers) {
			return fmt.Errorf("summarizer returned %d summaries for %d papers", len(out), len(papers))
		}
		summaries = out
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(o.deps.MaxRetries)), ctx))
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// overview asks the summarizer for a cross-paper trends paragraph; a
// failure here costs only the section, never the run.
func (o *Orchestrator) overview(ctx context.Context, ranked []domain.ScoredPaper) string {
	if o.deps.Summarizer == nil {
		return ""
	}
	overview, err := o.deps.Summarizer.Overview(ctx, ranked)
	if err != nil {
		o.log.Warn("overview generation failed", "error", err)
		return ""
	}
	return overview
}

// deliver sends the digest, or writes it to the local digest directory
// when no mailer is configured. The notified mark is written only after
// the mailer reports success.
func (o *Orchestrator) deliver(ctx context.Context, result *Result, date, markdown string) error {
	if o.deps.Mailer == nil || len(o.deps.Recipients) == 0 {
		path, err := o.saveLocally(date, markdown)
		if err != nil {
			return &SendError{Err: err}
		}
		o.log.Warn("mail not configured, digest saved locally", "path", path)
		result.DigestPath = path
		return nil
	}

	subject := fmt.Sprintf("arXiv Paper Digest - %s", date)
	if err := o.deps.Mailer.SendDigest(ctx, subject, markdown, o.deps.Recipients); err != nil {
		if path, saveErr := o.saveLocally(date, markdown); saveErr == nil {
			result.DigestPath = path
		}
		return &SendError{Err: err}
	}

	if err := o.deps.RunState.MarkNotified(date); err != nil {
		return &SendError{Err: fmt.Errorf("mark notified: %w", err)}
	}
	result.Sent = true
	return nil
}

func (o *Orchestrator) saveLocally(date, markdown string) (string, error) {
	if o.deps.DigestDir == "" {
		return "", fmt.Errorf("no digest directory configured")
	}
	if err := os.MkdirAll(o.deps.DigestDir, 0o755); err != nil {
		return "", fmt.Errorf("create digest dir: %w", err)
	}
	path := filepath.Join(o.deps.DigestDir, date+".md")
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write digest: %w", err)
	}
	return path, nil
}

// dropProcessed filters papers already delivered on earlier runs. The
// audit trail is best effort: a repository error costs deduplication, not
// the run.
func (o *Orchestrator) dropProcessed(ctx context.Context, batch []domain.Paper) []domain.Paper {
	if o.deps.Repository == nil || len(batch) == 0 {
		return batch
	}

	ids := make([]string, len(batch))
	for i, paper := range batch {
		ids[i] = paper.ID
	}

	seen, err := o.deps.Repository.AlreadyProcessed(ctx, ids)
	if err != nil {
		o.log.Warn("dedup lookup failed, keeping full batch", "error", err)
		return batch
	}

	fresh := batch[:0]
	for _, paper := range batch {
		if !seen[paper.ID] {
			fresh = append(fresh, paper)
		}
	}
	return fresh
}

func (o *Orchestrator) recordProcessed(ctx context.Context, ranked []domain.ScoredPaper) {
	if o.deps.Repository == nil {
		return
	}
	for _, paper := range ranked {
		if err := o.deps.Repository.SaveProcessed(ctx, paper); err != nil {
			o.log.Warn("audit save failed", "id", paper.Paper.ID, "error", err)
		}
	}
}

func (o *Orchestrator) fail(result Result, err error) (Result, error) {
	result.State = StateFailed
	o.log.Error("run failed", "date", result.Date, "error", err)
	return result, err
}
