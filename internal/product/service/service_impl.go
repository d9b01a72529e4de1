package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gymdesk/internal/actor"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	"github.com/smallbiznis/gymdesk/internal/clock"
	"github.com/smallbiznis/gymdesk/internal/config"
	obsmetrics "github.com/smallbiznis/gymdesk/internal/observability/metrics"
	"github.com/smallbiznis/gymdesk/internal/product/domain"
	pkgdb "github.com/smallbiznis/gymdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     *config.PolicyHolder
	Repo       domain.Repository
	AuditSvc   auditdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	policy   *config.PolicyHolder
	repo     domain.Repository
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("product.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
		metrics:  p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Product, error) {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return nil, err
	}
	name, price, err := validateFields(req.Name, req.Price, req.Stock)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	product := &domain.Product{
		ID:        s.genID.Generate().Int64(),
		Name:      name,
		Price:     price,
		Stock:     req.Stock,
		UpdatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateName
		}
		if err := s.repo.Insert(ctx, tx, product); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateName
			}
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:       actorID,
			Action:      auditdomain.ActionProductCreated,
			TargetType:  "product",
			TargetID:    strconv.FormatInt(product.ID, 10),
			Description: "Product " + name + " created",
			Metadata: map[string]any{
				"price": price.StringFixed(2),
				"stock": product.Stock,
			},
		})
	})
	if err != nil {
		return nil, pkgdb.Classify(err)
	}

	s.log.Info("product created", zap.Int64("product_id", product.ID), zap.String("name", name))
	return product, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Product, error) {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return nil, err
	}
	productID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	name, price, err := validateFields(req.Name, req.Price, req.Stock)
	if err != nil {
		return nil, err
	}

	var updated *domain.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.repo.FindByID(ctx, tx, productID, true)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		other, err := s.repo.FindByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if other != nil && other.ID != product.ID {
			return domain.ErrDuplicateName
		}

		delta := req.Stock - product.Stock
		product.Name = name
		product.Price = price
		product.Stock = req.Stock
		product.UpdatedBy = actorID
		product.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, tx, product); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateName
			}
			return err
		}
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:       actorID,
			Action:      auditdomain.ActionProductUpdated,
			TargetType:  "product",
			TargetID:    strconv.FormatInt(product.ID, 10),
			Description: "Product " + name + " updated",
			Metadata: map[string]any{
				"price":       price.StringFixed(2),
				"stock":       product.Stock,
				"stock_delta": delta,
			},
		}); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	return updated, nil
}

func (s *Service) AdjustStock(ctx context.Context, req domain.AdjustStockRequest) (*domain.Product, error) {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return nil, err
	}
	productID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	if req.Stock < 0 {
		return nil, domain.ErrInvalidStock
	}

	var (
		adjusted *domain.Product
		delta    int
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.repo.FindByID(ctx, tx, productID, true)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}

		delta = req.Stock - product.Stock
		product.Stock = req.Stock
		product.UpdatedBy = actorID
		product.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, tx, product); err != nil {
			return err
		}
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:       actorID,
			Action:      auditdomain.ActionStockAdjusted,
			TargetType:  "product",
			TargetID:    strconv.FormatInt(product.ID, 10),
			Description: "Stock of " + product.Name + " adjusted by " + signed(delta),
			Metadata: map[string]any{
				"delta": delta,
				"stock": product.Stock,
			},
		}); err != nil {
			return err
		}
		adjusted = product
		return nil
	})
	if err != nil {
		return nil, pkgdb.Classify(err)
	}

	s.metrics.RecordStockAdjustment(ctx, "manual")
	s.log.Info("stock adjusted",
		zap.Int64("product_id", productID),
		zap.Int("delta", delta),
		zap.Int("stock", adjusted.Stock),
	)
	return adjusted, nil
}

// Delete refuses products referenced by any sale line.
func (s *Service) Delete(ctx context.Context, req domain.DeleteRequest) error {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return err
	}
	productID, err := parseID(req.ID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.repo.FindByID(ctx, tx, productID, true)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		lines, err := s.repo.CountSaleLines(ctx, tx, productID)
		if err != nil {
			return err
		}
		if lines > 0 {
			return domain.ErrHasSalesHistory
		}
		if err := s.repo.Delete(ctx, tx, productID); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:       actorID,
			Action:      auditdomain.ActionProductDeleted,
			TargetType:  "product",
			TargetID:    strconv.FormatInt(productID, 10),
			Description: "Product " + product.Name + " deleted",
		})
	})
	if err != nil {
		return pkgdb.Classify(err)
	}
	return nil
}

func (s *Service) Search(ctx context.Context, query string) ([]domain.Product, error) {
	items, err := s.repo.Search(ctx, s.db, query)
	return orEmpty(items, err)
}

func (s *Service) LowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	if threshold <= 0 {
		threshold = s.policy.Get().LowStockThreshold
	}
	items, err := s.repo.LowStock(ctx, s.db, threshold)
	return orEmpty(items, err)
}

func (s *Service) OutOfStock(ctx context.Context) ([]domain.Product, error) {
	items, err := s.repo.OutOfStock(ctx, s.db)
	return orEmpty(items, err)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	productID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	product, err := s.repo.FindByID(ctx, s.db, productID, false)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	items, err := s.repo.ListAll(ctx, s.db)
	if err != nil {
		return domain.Summary{}, pkgdb.Classify(err)
	}

	threshold := s.policy.Get().LowStockThreshold
	summary := domain.Summary{
		InventoryValue: decimal.Zero,
		Threshold:      threshold,
	}
	for _, item := range items {
		summary.TotalProducts++
		summary.TotalUnits += int64(item.Stock)
		summary.InventoryValue = summary.InventoryValue.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Stock))))
		switch {
		case item.Stock == 0:
			summary.OutOfStock++
		case item.IsLowStock(threshold):
			summary.LowStock++
		}
	}
	summary.InventoryValue = summary.InventoryValue.Round(2)
	return summary, nil
}

func validateFields(name string, price decimal.Decimal, stock int) (string, decimal.Decimal, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", decimal.Zero, domain.ErrInvalidName
	}
	if !price.IsPositive() {
		return "", decimal.Zero, domain.ErrInvalidPrice
	}
	if stock < 0 {
		return "", decimal.Zero, domain.ErrInvalidStock
	}
	return name, price.Round(2), nil
}

func orEmpty(items []domain.Product, err error) ([]domain.Product, error) {
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if items == nil {
		items = []domain.Product{}
	}
	return items, nil
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func parseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}
