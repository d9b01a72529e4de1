package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gymdesk/internal/actor"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	"github.com/smallbiznis/gymdesk/internal/clock"
	"github.com/smallbiznis/gymdesk/internal/config"
	memberdomain "github.com/smallbiznis/gymdesk/internal/member/domain"
	membershiptypedomain "github.com/smallbiznis/gymdesk/internal/membershiptype/domain"
	obsmetrics "github.com/smallbiznis/gymdesk/internal/observability/metrics"
	"github.com/smallbiznis/gymdesk/internal/payment/domain"
	pkgdb "github.com/smallbiznis/gymdesk/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("gymdesk/payment")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     *config.PolicyHolder
	Repo       domain.Repository
	CatalogSvc membershiptypedomain.Service
	MemberSvc  memberdomain.Service
	AuditSvc   auditdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PolicyHolder
	repo       domain.Repository
	catalogSvc membershiptypedomain.Service
	memberSvc  memberdomain.Service
	auditSvc   auditdomain.Service
	metrics    *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		repo:       p.Repo,
		catalogSvc: p.CatalogSvc,
		memberSvc:  p.MemberSvc,
		auditSvc:   p.AuditSvc,
		metrics:    p.ObsMetrics,
	}
}

// Enroll registers a member and its first payment in one transaction. An
// unknown membership type leaves neither row behind.
func (s *Service) Enroll(ctx context.Context, req domain.EnrollRequest) (*domain.EnrollResult, error) {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return nil, err
	}
	amount, err := normalizeAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "payment.Enroll", trace.WithAttributes(
		attribute.String("membership_type", membershiptypedomain.NormalizeTag(req.MembershipType)),
	))
	defer span.End()

	var result domain.EnrollResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		membershipType, err := s.catalogSvc.LookupTx(ctx, tx, req.MembershipType)
		if err != nil {
			return err
		}
		member, err := s.memberSvc.RegisterTx(ctx, tx, memberdomain.RegisterRequest{
			Fields: req.Member,
			Actor:  actorID,
		})
		if err != nil {
			return err
		}
		payment, err := s.appendPayment(ctx, tx, member.ID, membershipType, domain.KindInitial, amount, req.StartDate, actorID)
		if err != nil {
			return err
		}
		result = domain.EnrollResult{
			Member:  *member,
			Payment: *payment,
			EndDate: payment.PeriodEnd,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.metrics.RecordMembershipPayment(ctx, string(domain.KindInitial), result.Payment.MembershipTag)
	s.log.Info("member enrolled",
		zap.Int64("member_id", result.Member.ID),
		zap.Int64("payment_id", result.Payment.ID),
		zap.String("membership_type", result.Payment.MembershipTag),
		zap.Time("period_end", result.EndDate),
	)
	return &result, nil
}

func (s *Service) RegisterInitialPayment(ctx context.Context, req domain.PaymentRequest) (*domain.Receipt, error) {
	return s.record(ctx, req, domain.KindInitial)
}

// Renew appends a payment. Earlier rows are never touched, so the new period
// is independent of the current expiration.
func (s *Service) Renew(ctx context.Context, req domain.PaymentRequest) (*domain.Receipt, error) {
	return s.record(ctx, req, domain.KindRenewal)
}

func (s *Service) History(ctx context.Context, memberID string) ([]domain.Payment, error) {
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
	items, err := s.repo.ListByMember(ctx, s.db, id)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if items == nil {
		items = []domain.Payment{}
	}
	return items, nil
}

func (s *Service) record(ctx context.Context, req domain.PaymentRequest, kind domain.Kind) (*domain.Receipt, error) {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return nil, err
	}
	memberID, err := parseMemberID(req.MemberID)
	if err != nil {
		return nil, err
	}
	amount, err := normalizeAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "payment.Record", trace.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.Int64("member_id", memberID),
	))
	defer span.End()

	var payment *domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.MemberExists(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if !exists {
			return memberdomain.ErrMemberNotFound
		}
		membershipType, err := s.catalogSvc.LookupTx(ctx, tx, req.MembershipType)
		if err != nil {
			return err
		}
		payment, err = s.appendPayment(ctx, tx, memberID, membershipType, kind, amount, req.StartDate, actorID)
		return err
	})
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.metrics.RecordMembershipPayment(ctx, string(kind), payment.MembershipTag)
	s.log.Info("membership payment recorded",
		zap.Int64("member_id", memberID),
		zap.Int64("payment_id", payment.ID),
		zap.String("kind", string(kind)),
		zap.String("membership_type", payment.MembershipTag),
		zap.Time("period_end", payment.PeriodEnd),
	)
	return &domain.Receipt{Payment: *payment, EndDate: payment.PeriodEnd}, nil
}

func (s *Service) appendPayment(
	ctx context.Context,
	tx *gorm.DB,
	memberID int64,
	membershipType *membershiptypedomain.MembershipType,
	kind domain.Kind,
	amount decimal.Decimal,
	startDate *time.Time,
	actorID string,
) (*domain.Payment, error) {
	now := s.clock.Now().UTC()
	start := clock.Today(s.clock, s.policy.Get().Location())
	if startDate != nil && !startDate.IsZero() {
		start = clock.DateOf(*startDate, time.UTC)
	}

	payment := &domain.Payment{
		ID:               s.genID.Generate().Int64(),
		MemberID:         memberID,
		MembershipTypeID: membershipType.ID,
		MembershipTag:    membershipType.Tag,
		DurationDays:     membershipType.DurationDays,
		Kind:             kind,
		Amount:           amount,
		PaidAt:           now,
		PeriodStart:      start,
		PeriodEnd:        domain.PeriodEnd(start, membershipType.DurationDays),
		RecordedBy:       actorID,
	}
	if err := s.repo.Insert(ctx, tx, payment); err != nil {
		return nil, err
	}

	action := auditdomain.ActionPaymentRecorded
	description := "Payment recorded for " + membershipType.Tag + " membership"
	if kind == domain.KindRenewal {
		action = auditdomain.ActionMembershipRenewed
		description = "Membership renewed as " + membershipType.Tag
	}
	if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
		Actor:       actorID,
		Action:      action,
		TargetType:  "member",
		TargetID:    strconv.FormatInt(memberID, 10),
		Description: description,
		Metadata: map[string]any{
			"payment_id":   strconv.FormatInt(payment.ID, 10),
			"amount":       amount.StringFixed(2),
			"period_start": payment.PeriodStart.Format(time.DateOnly),
			"period_end":   payment.PeriodEnd.Format(time.DateOnly),
		},
	}); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) fail(span trace.Span, err error) error {
	err = pkgdb.Classify(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, pkgdb.ErrStorageUnavailable) {
		s.log.Error("payment transaction failed", zap.Error(err))
	}
	return err
}

func normalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return amount.Round(2), nil
}

func parseMemberID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, memberdomain.ErrInvalidID
	}
	return id.Int64(), nil
}
