package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/ports"
)

// PostgresRepository keeps the delivered-paper audit trail in Postgres,
// used to deduplicate papers across runs (the same paper can reappear in
// multiple category listings on consecutive days).
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.PaperRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// AlreadyProcessed returns a map with the IDs that already exist in
// storage.
func (r *PostgresRepository) AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.builder.
		Select("external_id").
		From("processed_papers").
		Where(sq.Expr("external_id = ANY(?)", pq.StringArray(ids))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// SaveProcessed upserts the delivered paper snapshot.
func (r *PostgresRepository) SaveProcessed(ctx context.Context, paper domain.ScoredPaper) error {
	if r.db == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert("processed_papers").
		Columns("external_id", "title", "summary", "score", "matched_keywords").
		Values(
			paper.Paper.ID,
			paper.Paper.Title,
			paper.Summary,
			paper.Score,
			strings.Join(paper.Details.Matched, ","),
		).
		Suffix(`ON CONFLICT (external_id) DO UPDATE
                SET summary = EXCLUDED.summary,
                    score = EXCLUDED.score,
                    matched_keywords = EXCLUDED.matched_keywords,
                    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert processed: %w", err)
	}
	return nil
}
