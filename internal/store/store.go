// Package store provides PostgreSQL persistence for accepted tender records.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stafflink/tender-pipeline/internal/types"
)

// TenderStore persists validated tenders and serves the deduplication corpus.
// Insertion is idempotent per external identifier; no stronger transactional
// guarantee is assumed.
type TenderStore struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*TenderStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &TenderStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *TenderStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertIfAbsent inserts the validated tender keyed by its external
// identifier. Returns false without error when a record with the same
// external id already exists.
func (s *TenderStore) InsertIfAbsent(ctx context.Context, v *types.ValidatedTender) (bool, error) {
	if len(v.Errors) > 0 {
		return false, fmt.Errorf("refusing to persist a record with validation errors")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO tenders (external_id, title, agency, category, description, location,
		                      closing_date, estimated_value, required_headcount, duration_months,
		                      pay_rate, charge_rate, source, source_url, data_quality_score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (external_id) DO NOTHING`,
		v.Record.ExternalID, v.Record.Title, v.Record.Agency, v.Record.Category,
		v.Record.Description, v.Record.Location, v.ClosingDate, v.Record.EstimatedValue,
		v.Record.RequiredHeadcount, v.Record.DurationMonths, v.Record.PayRate,
		v.Record.ChargeRate, v.Record.Source, v.Record.SourceURL, v.DataQualityScore,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert tender: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListExisting returns the deduplication corpus for a source: the identifying
// fields of every previously accepted record.
func (s *TenderStore) ListExisting(ctx context.Context, source string) ([]types.ExistingTender, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT external_id, title, agency, estimated_value, closing_date
		 FROM tenders
		 WHERE source = $1 OR $1 = ''
		 ORDER BY closing_date`,
		source,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing tenders: %w", err)
	}
	defer rows.Close()

	var existing []types.ExistingTender
	for rows.Next() {
		var e types.ExistingTender
		if err := rows.Scan(&e.ExternalID, &e.Title, &e.Agency, &e.Value, &e.ClosingDate); err != nil {
			return nil, fmt.Errorf("failed to scan tender row: %w", err)
		}
		existing = append(existing, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading tender rows: %w", err)
	}

	return existing, nil
}
