package domain

import (
	"context"
	"strings"
	"time"

	memberdomain "github.com/smallbiznis/gymdesk/internal/member/domain"
	"gorm.io/gorm"
)

// MemberRow is the slice of a member the resolver reads.
type MemberRow struct {
	ID        int64
	Institute *string
}

func (r MemberRow) IsStudent() bool {
	return r.Institute != nil && strings.TrimSpace(*r.Institute) != ""
}

type Repository interface {
	FindMember(ctx context.Context, db *gorm.DB, memberID int64) (*MemberRow, error)
	ListMembers(ctx context.Context, db *gorm.DB) ([]MemberRow, error)
	// PeriodEnds returns every period end recorded for the member.
	PeriodEnds(ctx context.Context, db *gorm.DB, memberID int64) ([]time.Time, error)
	// LatestPeriodEnds maps member id to its greatest period end.
	LatestPeriodEnds(ctx context.Context, db *gorm.DB) (map[int64]time.Time, error)
}

type Service interface {
	Resolve(ctx context.Context, memberID string) (*Resolution, error)
	// ResolveTx resolves on the caller's transaction handle.
	ResolveTx(ctx context.Context, tx *gorm.DB, memberID int64) (*Resolution, error)
	ResolveAll(ctx context.Context) (Summary, error)
	// Annotate resolves every given member from a single ledger read,
	// keeping the input order.
	Annotate(ctx context.Context, members []memberdomain.Member) ([]MemberStatus, error)
}
