package repository

import (
	"context"

	"github.com/smallbiznis/gymdesk/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const paymentColumns = `id, member_id, membership_type_id, membership_tag, duration_days, kind, amount, paid_at, period_start, period_end, recorded_by`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.MemberID,
		payment.MembershipTypeID,
		payment.MembershipTag,
		payment.DurationDays,
		payment.Kind,
		payment.Amount,
		payment.PaidAt,
		payment.PeriodStart,
		payment.PeriodEnd,
		payment.RecordedBy,
	).Error
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID int64) ([]domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE member_id = ?
		 ORDER BY paid_at DESC, id DESC`,
		memberID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MemberExists(ctx context.Context, db *gorm.DB, memberID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM members WHERE id = ?`,
		memberID,
	).Scan(&count).Error
	return count > 0, err
}
