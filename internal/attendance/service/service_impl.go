package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymdesk/internal/actor"
	"github.com/smallbiznis/gymdesk/internal/attendance/domain"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	"github.com/smallbiznis/gymdesk/internal/clock"
	memberdomain "github.com/smallbiznis/gymdesk/internal/member/domain"
	statusdomain "github.com/smallbiznis/gymdesk/internal/membershipstatus/domain"
	obsmetrics "github.com/smallbiznis/gymdesk/internal/observability/metrics"
	pkgdb "github.com/smallbiznis/gymdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const listLimit = 100

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	StatusSvc  statusdomain.Service
	AuditSvc   auditdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	statusSvc statusdomain.Service
	auditSvc  auditdomain.Service
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("attendance.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		statusSvc: p.StatusSvc,
		auditSvc:  p.AuditSvc,
		metrics:   p.ObsMetrics,
	}
}

func (s *Service) CheckIn(ctx context.Context, req domain.CheckInRequest) (*domain.CheckInResult, error) {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return nil, err
	}
	memberID, err := parseMemberID(req.MemberID)
	if err != nil {
		return nil, err
	}

	var result domain.CheckInResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		status, err := s.statusSvc.ResolveTx(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if status.Status != statusdomain.StatusActive {
			return &domain.MembershipExpiredError{Status: *status}
		}

		attendance := domain.Attendance{
			ID:          s.genID.Generate().Int64(),
			MemberID:    memberID,
			CheckedInAt: s.clock.Now().UTC(),
			RecordedBy:  actorID,
		}
		if err := s.repo.Insert(ctx, tx, &attendance); err != nil {
			return err
		}
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:       actorID,
			Action:      auditdomain.ActionCheckIn,
			TargetType:  "member",
			TargetID:    strconv.FormatInt(memberID, 10),
			Description: "Member checked in",
		}); err != nil {
			return err
		}
		result = domain.CheckInResult{Attendance: attendance, Status: *status}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrMembershipExpired) {
			s.metrics.RecordCheckIn(ctx, "rejected_expired")
		}
		return nil, pkgdb.Classify(err)
	}

	s.metrics.RecordCheckIn(ctx, "admitted")
	s.log.Info("member checked in", zap.Int64("member_id", memberID), zap.String("actor", actorID))
	return &result, nil
}

func (s *Service) ListByMember(ctx context.Context, memberID string) ([]domain.Attendance, error) {
	id, err := parseMemberID(memberID)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.MemberExists(ctx, s.db, id)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if !exists {
		return nil, memberdomain.ErrMemberNotFound
	}
	items, err := s.repo.ListByMember(ctx, s.db, id, listLimit)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if items == nil {
		items = []domain.Attendance{}
	}
	return items, nil
}

func parseMemberID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, memberdomain.ErrInvalidID
	}
	return id.Int64(), nil
}
