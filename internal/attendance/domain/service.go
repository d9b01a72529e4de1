package domain

import (
	"context"
	"errors"
	"fmt"

	statusdomain "github.com/smallbiznis/gymdesk/internal/membershipstatus/domain"
	"gorm.io/gorm"
)

type CheckInRequest struct {
	MemberID string
	Actor    string
}

type CheckInResult struct {
	Attendance Attendance              `json:"attendance"`
	Status     statusdomain.Resolution `json:"status"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, attendance *Attendance) error
	ListByMember(ctx context.Context, db *gorm.DB, memberID int64, limit int) ([]Attendance, error)
	MemberExists(ctx context.Context, db *gorm.DB, memberID int64) (bool, error)
}

type Service interface {
	// CheckIn admits a member whose membership is still active.
	CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error)
	ListByMember(ctx context.Context, memberID string) ([]Attendance, error)
}

var ErrMembershipExpired = errors.New("membership_expired")

// MembershipExpiredError carries the resolution that rejected a check-in.
type MembershipExpiredError struct {
	Status statusdomain.Resolution
}

func (e *MembershipExpiredError) Error() string {
	if e.Status.ExpiresOn == nil {
		return fmt.Sprintf("membership_expired: member %d has no payments", e.Status.MemberID)
	}
	return fmt.Sprintf("membership_expired: member %d expired on %s", e.Status.MemberID, e.Status.ExpiresOn.Format("2006-01-02"))
}

func (e *MembershipExpiredError) Is(target error) bool {
	return target == ErrMembershipExpired
}
