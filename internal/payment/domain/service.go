package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	memberdomain "github.com/smallbiznis/gymdesk/internal/member/domain"
	"gorm.io/gorm"
)

// PaymentRequest records a payment for an existing member. StartDate
// defaults to today in the business time zone. Amount is stored as given,
// already discounted if the desk applied one.
type PaymentRequest struct {
	MemberID       string          `json:"-"`
	MembershipType string          `json:"membership_type"`
	Amount         decimal.Decimal `json:"amount"`
	StartDate      *time.Time      `json:"start_date"`
	Actor          string          `json:"-"`
}

// EnrollRequest creates a member and its first payment together.
type EnrollRequest struct {
	Member         memberdomain.Fields `json:"member"`
	MembershipType string              `json:"membership_type"`
	Amount         decimal.Decimal     `json:"amount"`
	StartDate      *time.Time          `json:"start_date"`
	Actor          string              `json:"-"`
}

type Receipt struct {
	Payment Payment   `json:"payment"`
	EndDate time.Time `json:"end_date"`
}

type EnrollResult struct {
	Member  memberdomain.Member `json:"member"`
	Payment Payment             `json:"payment"`
	EndDate time.Time           `json:"end_date"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	ListByMember(ctx context.Context, db *gorm.DB, memberID int64) ([]Payment, error)
	MemberExists(ctx context.Context, db *gorm.DB, memberID int64) (bool, error)
}

type Service interface {
	Enroll(ctx context.Context, req EnrollRequest) (*EnrollResult, error)
	RegisterInitialPayment(ctx context.Context, req PaymentRequest) (*Receipt, error)
	Renew(ctx context.Context, req PaymentRequest) (*Receipt, error)
	// History lists a member's payments, most recent first.
	History(ctx context.Context, memberID string) ([]Payment, error)
}

var (
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidDiscount = errors.New("invalid_discount")
)
