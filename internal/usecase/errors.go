package usecase

import (
	"errors"
	"fmt"
)

// ErrConcurrentRun signals a second invocation for a date whose run is
// still in progress.
var ErrConcurrentRun = errors.New("concurrent run for the same date")

// ConfigError reports an invalid flag/option combination. Fatal; no run
// is attempted.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// CrawlError wraps a transient source failure. The run transitions to
// FAILED with no state marked; the caller decides whether to retrigger.
type CrawlError struct {
	Err error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl failed: %v", e.Err)
}

func (e *CrawlError) Unwrap() error { return e.Err }

// SendError wraps a mailer failure after crawl, rank, and summarize all
// succeeded. Terminal: silently losing a digest is worse than a visible
// failed run, so the mailer is not retried internally. State stays "not
// notified" so a manual rerun with --skip-crawl can retry sending.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
