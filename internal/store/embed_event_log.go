package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"glanceboard.app/embedgate/internal/model"
)

type embedEventLogStore struct {
	pool *pgxpool.Pool
}

func NewEmbedEventLogStore(pool *pgxpool.Pool) EmbedEventLogStore {
	return &embedEventLogStore{pool: pool}
}

const embedEventLogColumns = `id, record_id, record_type, customer_id, embed_type, outcome,
	error, error_class, started_at, finished_at, created_at, updated_at`

func (s *embedEventLogStore) GetByID(ctx context.Context, id int64) (*model.EmbedEventLog, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+embedEventLogColumns+` FROM embed_event_logs WHERE id = $1`, id)
	log, err := scanEmbedEventLog(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return log, nil
}

func (s *embedEventLogStore) ListByRecord(ctx context.Context, recordID string, limit int32) ([]model.EmbedEventLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+embedEventLogColumns+` FROM embed_event_logs
		 WHERE record_id = $1 ORDER BY created_at DESC LIMIT $2`, recordID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.EmbedEventLog
	for rows.Next() {
		log, err := scanEmbedEventLog(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *log)
	}
	return result, rows.Err()
}

func (s *embedEventLogStore) Create(ctx context.Context, log *model.EmbedEventLog) (*model.EmbedEventLog, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO embed_event_logs (id, record_id, record_type, customer_id, embed_type, outcome)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+embedEventLogColumns,
		log.ID, log.RecordID, log.RecordType, log.CustomerID, log.EmbedType, log.Outcome)
	return scanEmbedEventLog(row)
}

func (s *embedEventLogStore) Update(ctx context.Context, log *model.EmbedEventLog, startedAt, finishedAt *time.Time) (*model.EmbedEventLog, error) {
	row := s.pool.QueryRow(
		ctx,
		`UPDATE embed_event_logs
		 SET outcome = $2,
		     customer_id = $3,
		     error = $4,
		     error_class = $5,
		     started_at = COALESCE($6, started_at),
		     finished_at = COALESCE($7, finished_at),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+embedEventLogColumns,
		log.ID, log.Outcome, log.CustomerID, log.Error, log.ErrorClass,
		toNullableTimestamp(startedAt), toNullableTimestamp(finishedAt))
	updated, err := scanEmbedEventLog(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func scanEmbedEventLog(row pgx.Row) (*model.EmbedEventLog, error) {
	var log model.EmbedEventLog
	var startedAt, finishedAt pgtype.Timestamptz
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(
		&log.ID,
		&log.RecordID,
		&log.RecordType,
		&log.CustomerID,
		&log.EmbedType,
		&log.Outcome,
		&log.Error,
		&log.ErrorClass,
		&startedAt,
		&finishedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	log.StartedAt = toTimePointer(startedAt)
	log.FinishedAt = toTimePointer(finishedAt)
	log.CreatedAt = createdAt.Time
	log.UpdatedAt = updatedAt.Time
	return &log, nil
}

func toNullableTimestamp(value *time.Time) pgtype.Timestamptz {
	if value == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{
		Time:  *value,
		Valid: true,
	}
}

func toTimePointer(value pgtype.Timestamptz) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}
