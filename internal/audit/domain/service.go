package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

// Entry describes an activity to record.
type Entry struct {
	Actor       string
	Action      Action
	TargetType  string
	TargetID    string
	Description string
	Metadata    map[string]any
}

type SessionRequest struct {
	Actor  string `json:"-"`
	Action Action `json:"-"`
}

type ListRequest struct {
	pagination.Pagination
	Action  string
	Actor   string
	StartAt *time.Time
	EndAt   *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Entries []ActivityEntry `json:"entries"`
}

type ListFilter struct {
	Action  string
	Actor   string
	StartAt *time.Time
	EndAt   *time.Time
	Cursor  *Cursor
	Limit   int
}

type Cursor struct {
	ID         snowflake.ID
	OccurredAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *ActivityEntry) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]ActivityEntry, error)
	DeleteBefore(ctx context.Context, db *gorm.DB, before time.Time) (int64, error)
}

type Service interface {
	// Record appends an entry using tx so that it commits or rolls back with
	// the caller's write. A nil tx writes on the service's own handle.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	RecordSession(ctx context.Context, req SessionRequest) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
