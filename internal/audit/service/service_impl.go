package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymdesk/internal/actor"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	"github.com/smallbiznis/gymdesk/internal/audit/masking"
	"github.com/smallbiznis/gymdesk/internal/clock"
	pkgdb "github.com/smallbiznis/gymdesk/pkg/db"
	"github.com/smallbiznis/gymdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	action := auditdomain.Action(strings.TrimSpace(string(entry.Action)))
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	actorID, err := actor.Require(entry.Actor)
	if err != nil {
		return err
	}
	if tx == nil {
		tx = s.db
	}

	row := auditdomain.ActivityEntry{
		ID:          s.genID.Generate(),
		Actor:       actorID,
		Action:      action,
		TargetType:  strings.TrimSpace(entry.TargetType),
		Description: strings.TrimSpace(entry.Description),
		OccurredAt:  s.clock.Now().UTC(),
	}
	if targetID := strings.TrimSpace(entry.TargetID); targetID != "" {
		row.TargetID = &targetID
	}
	if metadata := masking.MaskFields(entry.Metadata, masking.SensitiveKeys...); metadata != nil {
		row.Metadata = datatypes.JSONMap(metadata)
	}

	if err := s.repo.Insert(ctx, tx, &row); err != nil {
		s.log.Warn("failed to write activity entry", zap.String("action", string(action)), zap.Error(err))
		return pkgdb.Classify(err)
	}
	return nil
}

func (s *Service) RecordSession(ctx context.Context, req auditdomain.SessionRequest) error {
	var description string
	switch req.Action {
	case auditdomain.ActionLogin:
		description = "Session started"
	case auditdomain.ActionLogout:
		description = "Session ended"
	default:
		return auditdomain.ErrInvalidAction
	}
	return s.Record(ctx, nil, auditdomain.Entry{
		Actor:       req.Actor,
		Action:      req.Action,
		TargetType:  "session",
		Description: description,
	})
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidTimeRange
	}

	var cursor *auditdomain.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 || decoded.CreatedAt.IsZero() {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.Cursor{ID: id, OccurredAt: decoded.CreatedAt}
	}

	pageSize := req.Size()
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:  req.Action,
		Actor:   req.Actor,
		StartAt: req.StartAt,
		EndAt:   req.EndAt,
		Cursor:  cursor,
		Limit:   pageSize,
	})
	if err != nil {
		return auditdomain.ListResponse{}, pkgdb.Classify(err)
	}

	entries, pageInfo, err := pagination.Trim(items, pageSize, func(item auditdomain.ActivityEntry) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.String(), CreatedAt: item.OccurredAt}
	})
	if err != nil {
		return auditdomain.ListResponse{}, err
	}
	if entries == nil {
		entries = []auditdomain.ActivityEntry{}
	}

	return auditdomain.ListResponse{PageInfo: pageInfo, Entries: entries}, nil
}

func (s *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	removed, err := s.repo.DeleteBefore(ctx, s.db, before)
	if err != nil {
		return 0, pkgdb.Classify(err)
	}
	if removed > 0 {
		s.log.Info("activity log purged", zap.Int64("removed", removed), zap.Time("before", before))
	}
	return removed, nil
}
