package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymdesk/internal/clock"
	"github.com/smallbiznis/gymdesk/internal/config"
	memberdomain "github.com/smallbiznis/gymdesk/internal/member/domain"
	"github.com/smallbiznis/gymdesk/internal/membershipstatus/domain"
	pkgdb "github.com/smallbiznis/gymdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Policy *config.PolicyHolder
	Repo   domain.Repository
}

// Service re-reads the ledger on every call. Nothing is cached.
type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	policy *config.PolicyHolder
	repo   domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("membershipstatus.service"),
		clock:  p.Clock,
		policy: p.Policy,
		repo:   p.Repo,
	}
}

func (s *Service) Resolve(ctx context.Context, memberID string) (*domain.Resolution, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(memberID))
	if err != nil || id == 0 {
		return nil, memberdomain.ErrInvalidID
	}
	res, err := s.ResolveTx(ctx, s.db, id.Int64())
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	return res, nil
}

func (s *Service) ResolveTx(ctx context.Context, tx *gorm.DB, memberID int64) (*domain.Resolution, error) {
	member, err := s.repo.FindMember(ctx, tx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, memberdomain.ErrMemberNotFound
	}

	ends, err := s.repo.PeriodEnds(ctx, tx, memberID)
	if err != nil {
		return nil, err
	}
	res := domain.Derive(memberID, latest(ends), s.today())
	return &res, nil
}

func (s *Service) ResolveAll(ctx context.Context) (domain.Summary, error) {
	members, err := s.repo.ListMembers(ctx, s.db)
	if err != nil {
		return domain.Summary{}, pkgdb.Classify(err)
	}
	ends, err := s.repo.LatestPeriodEnds(ctx, s.db)
	if err != nil {
		return domain.Summary{}, pkgdb.Classify(err)
	}

	today := s.today()
	var summary domain.Summary
	for _, member := range members {
		var expiresOn *time.Time
		if end, ok := ends[member.ID]; ok {
			expiresOn = &end
		}
		summary.Add(domain.Derive(member.ID, expiresOn, today), member.IsStudent())
	}

	s.log.Debug("resolved membership summary",
		zap.Int("total", summary.Total),
		zap.Int("active", summary.Active),
		zap.Int("expiring_soon", summary.ExpiringSoon),
	)
	return summary, nil
}

func (s *Service) Annotate(ctx context.Context, members []memberdomain.Member) ([]domain.MemberStatus, error) {
	rows := make([]domain.MemberStatus, 0, len(members))
	if len(members) == 0 {
		return rows, nil
	}
	ends, err := s.repo.LatestPeriodEnds(ctx, s.db)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}

	today := s.today()
	for _, member := range members {
		var expiresOn *time.Time
		if end, ok := ends[member.ID]; ok {
			expiresOn = &end
		}
		rows = append(rows, domain.MemberStatus{
			Member:     member,
			Resolution: domain.Derive(member.ID, expiresOn, today),
		})
	}
	return rows, nil
}

func (s *Service) today() time.Time {
	return clock.Today(s.clock, s.policy.Get().Location())
}

func latest(ends []time.Time) *time.Time {
	if len(ends) == 0 {
		return nil
	}
	out := ends[0]
	for _, end := range ends[1:] {
		if end.After(out) {
			out = end
		}
	}
	return &out
}
