package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymdesk/internal/actor"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	"github.com/smallbiznis/gymdesk/internal/clock"
	"github.com/smallbiznis/gymdesk/internal/config"
	"github.com/smallbiznis/gymdesk/internal/member/domain"
	pkgdb "github.com/smallbiznis/gymdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Policy   *config.PolicyHolder
	Repo     domain.Repository
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	policy   *config.PolicyHolder
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("member.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Member, error) {
	if _, err := actor.Require(req.Actor); err != nil {
		return nil, err
	}

	var created *domain.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.RegisterTx(ctx, tx, req)
		if err != nil {
			return err
		}
		created = member
		return nil
	})
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	return created, nil
}

func (s *Service) RegisterTx(ctx context.Context, tx *gorm.DB, req domain.RegisterRequest) (*domain.Member, error) {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return nil, err
	}
	fields, err := s.normalizeFields(req.Fields)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	member := &domain.Member{
		ID:           s.genID.Generate().Int64(),
		RegisteredBy: actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyFields(member, fields)

	if err := s.repo.Insert(ctx, tx, member); err != nil {
		return nil, err
	}
	if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
		Actor:       actorID,
		Action:      auditdomain.ActionMemberRegistered,
		TargetType:  "member",
		TargetID:    strconv.FormatInt(member.ID, 10),
		Description: "Member " + member.Name + " registered",
		Metadata: map[string]any{
			"phone": member.Phone,
			"shift": string(member.Shift),
		},
	}); err != nil {
		return nil, err
	}

	s.log.Info("member registered", zap.Int64("member_id", member.ID), zap.String("actor", actorID))
	return member, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Member, error) {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return nil, err
	}
	memberID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	fields, err := s.normalizeFields(req.Fields)
	if err != nil {
		return nil, err
	}

	var updated *domain.Member
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.repo.FindByID(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return domain.ErrMemberNotFound
		}

		applyFields(member, fields)
		member.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, tx, member); err != nil {
			return err
		}
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:       actorID,
			Action:      auditdomain.ActionMemberUpdated,
			TargetType:  "member",
			TargetID:    strconv.FormatInt(member.ID, 10),
			Description: "Member " + member.Name + " updated",
		}); err != nil {
			return err
		}
		updated = member
		return nil
	})
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteRequest) (domain.DeleteResult, error) {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	memberID, err := parseID(req.ID)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	var result domain.DeleteResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.repo.FindByID(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return domain.ErrMemberNotFound
		}

		result, err = s.repo.DeleteCascade(ctx, tx, memberID)
		if err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:       actorID,
			Action:      auditdomain.ActionMemberDeleted,
			TargetType:  "member",
			TargetID:    strconv.FormatInt(memberID, 10),
			Description: "Member " + member.Name + " deleted",
			Metadata: map[string]any{
				"payments_removed":    result.Payments,
				"attendances_removed": result.Attendances,
			},
		})
	})
	if err != nil {
		return domain.DeleteResult{}, pkgdb.Classify(err)
	}

	s.log.Info("member deleted",
		zap.Int64("member_id", memberID),
		zap.Int64("payments_removed", result.Payments),
		zap.Int64("attendances_removed", result.Attendances),
	)
	return result, nil
}

func (s *Service) Search(ctx context.Context, query string) ([]domain.Member, error) {
	items, err := s.repo.Search(ctx, s.db, query)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if items == nil {
		items = []domain.Member{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Member, error) {
	memberID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	member, err := s.repo.FindByID(ctx, s.db, memberID)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}
	return member, nil
}

func (s *Service) normalizeFields(in domain.Fields) (domain.Fields, error) {
	out := domain.Fields{
		Name:            strings.TrimSpace(in.Name),
		Phone:           strings.TrimSpace(in.Phone),
		Shift:           domain.Shift(strings.ToLower(strings.TrimSpace(string(in.Shift)))),
		EnrollmentMonth: strings.TrimSpace(in.EnrollmentMonth),
	}
	if out.Name == "" {
		return domain.Fields{}, domain.ErrInvalidName
	}

	switch out.Shift {
	case "":
		out.Shift = domain.ShiftMorning
	case domain.ShiftMorning, domain.ShiftOther:
	default:
		return domain.Fields{}, domain.ErrInvalidShift
	}

	if in.Institute != nil {
		if institute := strings.TrimSpace(*in.Institute); institute != "" {
			out.Institute = &institute
		}
	}

	loc := s.policy.Get().Location()
	enrolledOn := clock.Today(s.clock, loc)
	if in.EnrolledOn != nil && !in.EnrolledOn.IsZero() {
		enrolledOn = clock.DateOf(*in.EnrolledOn, time.UTC)
	}
	out.EnrolledOn = &enrolledOn
	if out.EnrollmentMonth == "" {
		out.EnrollmentMonth = enrolledOn.Format("2006-01")
	}
	return out, nil
}

func applyFields(member *domain.Member, fields domain.Fields) {
	member.Name = fields.Name
	member.Phone = fields.Phone
	member.Shift = fields.Shift
	member.Institute = fields.Institute
	member.EnrolledOn = *fields.EnrolledOn
	member.EnrollmentMonth = fields.EnrollmentMonth
}

func parseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}
