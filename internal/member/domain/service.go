package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Fields are the member attributes supplied on register and update. Update
// overwrites every field together.
type Fields struct {
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Shift           Shift      `json:"shift"`
	Institute       *string    `json:"institute"`
	EnrolledOn      *time.Time `json:"enrolled_on"`
	EnrollmentMonth string     `json:"enrollment_month"`
}

type RegisterRequest struct {
	Fields
	Actor string `json:"-"`
}

type UpdateRequest struct {
	ID string `json:"-"`
	Fields
	Actor string `json:"-"`
}

type DeleteRequest struct {
	ID    string
	Actor string
}

// DeleteResult reports what the cascade removed.
type DeleteResult struct {
	Payments    int64 `json:"payments"`
	Attendances int64 `json:"attendances"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, member *Member) error
	Update(ctx context.Context, db *gorm.DB, member *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Member, error)
	Search(ctx context.Context, db *gorm.DB, query string) ([]Member, error)
	ListAll(ctx context.Context, db *gorm.DB) ([]Member, error)
	// DeleteCascade removes attendance rows, payments and the member itself.
	DeleteCascade(ctx context.Context, db *gorm.DB, id int64) (DeleteResult, error)
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Member, error)
	// RegisterTx inserts the member on the caller's transaction.
	RegisterTx(ctx context.Context, tx *gorm.DB, req RegisterRequest) (*Member, error)
	Update(ctx context.Context, req UpdateRequest) (*Member, error)
	Delete(ctx context.Context, req DeleteRequest) (DeleteResult, error)
	Search(ctx context.Context, query string) ([]Member, error)
	Get(ctx context.Context, id string) (*Member, error)
}

var (
	ErrMemberNotFound = errors.New("member_not_found")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidShift   = errors.New("invalid_shift")
)
