package repository

import (
	"context"

	"github.com/smallbiznis/gymdesk/internal/membershiptype/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, item *domain.MembershipType) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO membership_types (id, tag, duration_days, price, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Tag,
		item.DurationDays,
		item.Price,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) FindByTag(ctx context.Context, db *gorm.DB, tag string) (*domain.MembershipType, error) {
	var item domain.MembershipType
	err := db.WithContext(ctx).Raw(
		`SELECT id, tag, duration_days, price, created_at, updated_at
		 FROM membership_types WHERE tag = ?`,
		tag,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.MembershipType, error) {
	var item domain.MembershipType
	err := db.WithContext(ctx).Raw(
		`SELECT id, tag, duration_days, price, created_at, updated_at
		 FROM membership_types WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.MembershipType, error) {
	var items []domain.MembershipType
	err := db.WithContext(ctx).Raw(
		`SELECT id, tag, duration_days, price, created_at, updated_at
		 FROM membership_types ORDER BY duration_days ASC, tag ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
