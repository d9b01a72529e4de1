package repository

import (
	"context"

	"github.com/smallbiznis/gymdesk/internal/attendance/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, attendance *domain.Attendance) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO attendances (id, member_id, checked_in_at, recorded_by)
		 VALUES (?, ?, ?, ?)`,
		attendance.ID,
		attendance.MemberID,
		attendance.CheckedInAt,
		attendance.RecordedBy,
	).Error
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID int64, limit int) ([]domain.Attendance, error) {
	var items []domain.Attendance
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, checked_in_at, recorded_by
		 FROM attendances
		 WHERE member_id = ?
		 ORDER BY checked_in_at DESC, id DESC
		 LIMIT ?`,
		memberID,
		limit,
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
