package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/gymdesk/internal/membershipstatus/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindMember(ctx context.Context, db *gorm.DB, memberID int64) (*domain.MemberRow, error) {
	var row domain.MemberRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, institute FROM members WHERE id = ?`,
		memberID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) ListMembers(ctx context.Context, db *gorm.DB) ([]domain.MemberRow, error) {
	var rows []domain.MemberRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, institute FROM members ORDER BY id ASC`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) PeriodEnds(ctx context.Context, db *gorm.DB, memberID int64) ([]time.Time, error) {
	var rows []struct {
		PeriodEnd time.Time
	}
	err := db.WithContext(ctx).Raw(
		`SELECT period_end FROM payments WHERE member_id = ?`,
		memberID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ends := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		ends = append(ends, row.PeriodEnd)
	}
	return ends, nil
}

// LatestPeriodEnds reduces in Go; sqlite returns MAX over timestamps as text.
func (r *repo) LatestPeriodEnds(ctx context.Context, db *gorm.DB) (map[int64]time.Time, error) {
	var rows []struct {
		MemberID  int64
		PeriodEnd time.Time
	}
	err := db.WithContext(ctx).Raw(
		`SELECT member_id, period_end FROM payments`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[int64]time.Time, len(rows))
	for _, row := range rows {
		if current, ok := latest[row.MemberID]; !ok || row.PeriodEnd.After(current) {
			latest[row.MemberID] = row.PeriodEnd
		}
	}
	return latest, nil
}
