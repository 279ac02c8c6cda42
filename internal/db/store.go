package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/visa_estimator/backend/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS applications (
	application_id          TEXT PRIMARY KEY,
	visa_type               TEXT,
	applicant_age           INTEGER,
	gender                  TEXT NOT NULL DEFAULT '',
	education_level         TEXT,
	nationality             TEXT,
	occupation              TEXT,
	processing_center       TEXT NOT NULL DEFAULT '',
	visit_purpose           TEXT NOT NULL DEFAULT '',
	duration_requested_days INTEGER,
	application_month       INTEGER,
	application_year        INTEGER NOT NULL DEFAULT 0,
	previous_visa           TEXT NOT NULL DEFAULT '',
	num_previous_visits     INTEGER,
	financial_proof_usd     DOUBLE PRECISION,
	has_sponsor             BOOLEAN,
	documents_complete      BOOLEAN,
	express_processing      BOOLEAN,
	processing_time_days    DOUBLE PRECISION,
	visa_status             TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	summary     JSONB
);
`

var applicationColumns = []string{
	"application_id", "visa_type", "applicant_age", "gender", "education_level",
	"nationality", "occupation", "processing_center", "visit_purpose",
	"duration_requested_days", "application_month", "application_year", "previous_visa",
	"num_previous_visits", "financial_proof_usd", "has_sponsor", "documents_complete",
	"express_processing", "processing_time_days", "visa_status",
}

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return err
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReplaceApplications swaps the reference dataset in one transaction.
func (s *Store) ReplaceApplications(ctx context.Context, records []models.HistoricalRecord) (int64, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		a := r.Application
		rows = append(rows, []any{
			r.ApplicationID, a.VisaType, a.ApplicantAge, r.Gender, a.EducationLevel,
			a.Nationality, a.Occupation, r.ProcessingCenter, r.VisitPurpose,
			a.DurationRequestedDays, a.ApplicationMonth, r.ApplicationYear, r.PreviousVisa,
			a.NumPreviousVisits, a.FinancialProofUSD, a.HasSponsor, a.DocumentsComplete,
			a.ExpressProcessing, r.ProcessingTimeDays, r.VisaStatus,
		})
	}
	var copyCount int64
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE applications`); err != nil {
			return err
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"applications"}, applicationColumns, pgx.CopyFromRows(rows))
		copyCount = n
		return err
	})
	return copyCount, err
}

func (s *Store) ListApplications(ctx context.Context) ([]models.HistoricalRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT application_id, visa_type, applicant_age, gender, education_level,
			nationality, occupation, processing_center, visit_purpose,
			duration_requested_days, application_month, application_year, previous_visa,
			num_previous_visits, financial_proof_usd, has_sponsor, documents_complete,
			express_processing, processing_time_days, visa_status
		FROM applications
		ORDER BY application_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HistoricalRecord
	for rows.Next() {
		var r models.HistoricalRecord
		a := &r.Application
		if err := rows.Scan(
			&r.ApplicationID, &a.VisaType, &a.ApplicantAge, &r.Gender, &a.EducationLevel,
			&a.Nationality, &a.Occupation, &r.ProcessingCenter, &r.VisitPurpose,
			&a.DurationRequestedDays, &a.ApplicationMonth, &r.ApplicationYear, &r.PreviousVisa,
			&a.NumPreviousVisits, &a.FinancialProofUSD, &a.HasSponsor, &a.DocumentsComplete,
			&a.ExpressProcessing, &r.ProcessingTimeDays, &r.VisaStatus,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreateRun(ctx context.Context, kind, status string) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `INSERT INTO runs (id, kind, status, started_at) VALUES ($1, $2, $3, $4)`, id, kind, status, time.Now().UTC())
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (models.Run, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id::text, kind, started_at, finished_at, status, summary FROM runs ORDER BY started_at DESC LIMIT 1`)
	var (
		r       models.Run
		summary []byte
	)
	if err := row.Scan(&r.ID, &r.Kind, &r.StartedAt, &r.FinishedAt, &r.Status, &summary); err != nil {
		return models.Run{}, err
	}
	r.Summary = summary
	return r, nil
}
