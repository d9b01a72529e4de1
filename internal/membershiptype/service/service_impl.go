package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymdesk/internal/clock"
	"github.com/smallbiznis/gymdesk/internal/membershiptype/domain"
	pkgdb "github.com/smallbiznis/gymdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("membershiptype.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Lookup(ctx context.Context, tag string) (*domain.MembershipType, error) {
	return s.LookupTx(ctx, s.db, tag)
}

func (s *Service) LookupTx(ctx context.Context, tx *gorm.DB, tag string) (*domain.MembershipType, error) {
	tag = domain.NormalizeTag(tag)
	if tag == "" {
		return nil, domain.ErrInvalidMembershipType
	}
	item, err := s.repo.FindByTag(ctx, tx, tag)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if item == nil {
		return nil, domain.ErrInvalidMembershipType
	}
	return item, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.MembershipType, error) {
	typeID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, typeID.Int64())
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context) ([]domain.MembershipType, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if items == nil {
		items = []domain.MembershipType{}
	}
	return items, nil
}

func (s *Service) EnsureDefaults(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range domain.DefaultCatalog() {
			existing, err := s.repo.FindByTag(ctx, tx, def.Tag)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			now := s.clock.Now().UTC()
			item := def
			item.ID = s.genID.Generate().Int64()
			item.CreatedAt = now
			item.UpdatedAt = now
			if err := s.repo.Insert(ctx, tx, &item); err != nil {
				return err
			}
			s.log.Info("seeded membership type", zap.String("tag", item.Tag), zap.Int("duration_days", item.DurationDays))
		}
		return nil
	})
}
