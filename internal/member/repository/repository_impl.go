package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/gymdesk/internal/member/domain"
	pkgdb "github.com/smallbiznis/gymdesk/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const memberColumns = `id, name, phone, shift, institute, enrolled_on, enrollment_month, registered_by, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO members (`+memberColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.Name,
		member.Phone,
		member.Shift,
		member.Institute,
		member.EnrolledOn,
		member.EnrollmentMonth,
		member.RegisteredBy,
		member.CreatedAt,
		member.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`UPDATE members
		 SET name = ?, phone = ?, shift = ?, institute = ?, enrolled_on = ?, enrollment_month = ?, updated_at = ?
		 WHERE id = ?`,
		member.Name,
		member.Phone,
		member.Shift,
		member.Institute,
		member.EnrolledOn,
		member.EnrollmentMonth,
		member.UpdatedAt,
		member.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Member, error) {
	var m domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT `+memberColumns+` FROM members WHERE id = ?`,
		id,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) Search(ctx context.Context, db *gorm.DB, query string) ([]domain.Member, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return r.ListAll(ctx, db)
	}

	pattern := pkgdb.ContainsPattern(query)
	var items []domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT `+memberColumns+` FROM members
		 WHERE LOWER(name) LIKE ? `+pkgdb.LikeEscape+` OR LOWER(phone) LIKE ? `+pkgdb.LikeEscape+`
		 ORDER BY LOWER(name) ASC, id ASC`,
		pattern,
		pattern,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]domain.Member, error) {
	var items []domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT ` + memberColumns + ` FROM members ORDER BY LOWER(name) ASC, id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteCascade(ctx context.Context, db *gorm.DB, id int64) (domain.DeleteResult, error) {
	var result domain.DeleteResult

	attendances := db.WithContext(ctx).Exec(`DELETE FROM attendances WHERE member_id = ?`, id)
	if attendances.Error != nil {
		return result, attendances.Error
	}
	result.Attendances = attendances.RowsAffected

	payments := db.WithContext(ctx).Exec(`DELETE FROM payments WHERE member_id = ?`, id)
	if payments.Error != nil {
		return result, payments.Error
	}
	result.Payments = payments.RowsAffected

	if err := db.WithContext(ctx).Exec(`DELETE FROM members WHERE id = ?`, id).Error; err != nil {
		return result, err
	}
	return result, nil
}
