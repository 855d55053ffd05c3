package store

import (
	"context"
	"errors"
	"time"

	"glanceboard.app/embedgate/internal/model"
)

var ErrNotFound = errors.New("not found")

type EmbedEventLogStore interface {
	GetByID(ctx context.Context, id int64) (*model.EmbedEventLog, error)
	ListByRecord(ctx context.Context, recordID string, limit int32) ([]model.EmbedEventLog, error)
	Create(ctx context.Context, log *model.EmbedEventLog) (*model.EmbedEventLog, error)
	Update(ctx context.Context, log *model.EmbedEventLog, startedAt, finishedAt *time.Time) (*model.EmbedEventLog, error)
}
