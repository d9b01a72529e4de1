package domain

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, item *MembershipType) error
	FindByTag(ctx context.Context, db *gorm.DB, tag string) (*MembershipType, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*MembershipType, error)
	List(ctx context.Context, db *gorm.DB) ([]MembershipType, error)
}

type Service interface {
	// Lookup resolves a tag to its duration and price. Unknown tags fail with
	// ErrInvalidMembershipType.
	Lookup(ctx context.Context, tag string) (*MembershipType, error)
	// LookupTx is Lookup on the caller's transaction handle.
	LookupTx(ctx context.Context, tx *gorm.DB, tag string) (*MembershipType, error)
	Get(ctx context.Context, id string) (*MembershipType, error)
	List(ctx context.Context) ([]MembershipType, error)
	// EnsureDefaults inserts DefaultCatalog entries whose tag is missing.
	EnsureDefaults(ctx context.Context) error
}

var (
	ErrInvalidMembershipType = errors.New("invalid_membership_type")
	ErrNotFound              = errors.New("membership_type_not_found")
	ErrInvalidID             = errors.New("invalid_id")
)

// NormalizeTag trims and lower-cases a catalog tag.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
