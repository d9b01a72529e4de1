package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gymdesk/internal/actor"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	"github.com/smallbiznis/gymdesk/internal/clock"
	"github.com/smallbiznis/gymdesk/internal/config"
	obsmetrics "github.com/smallbiznis/gymdesk/internal/observability/metrics"
	productdomain "github.com/smallbiznis/gymdesk/internal/product/domain"
	"github.com/smallbiznis/gymdesk/internal/sale/domain"
	pkgdb "github.com/smallbiznis/gymdesk/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("gymdesk/sale")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Policy      *config.PolicyHolder
	Repo        domain.Repository
	ProductRepo productdomain.Repository
	AuditSvc    auditdomain.Service
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	policy      *config.PolicyHolder
	repo        domain.Repository
	productRepo productdomain.Repository
	auditSvc    auditdomain.Service
	metrics     *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("sale.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		policy:      p.Policy,
		repo:        p.Repo,
		productRepo: p.ProductRepo,
		auditSvc:    p.AuditSvc,
		metrics:     p.ObsMetrics,
	}
}

type cartLine struct {
	productID int64
	quantity  int
	unitPrice decimal.Decimal
}

func (s *Service) ProcessSale(ctx context.Context, req domain.ProcessSaleRequest) (*domain.Detail, error) {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return nil, err
	}
	lines, err := parseLines(req.Lines)
	if err != nil {
		s.metrics.RecordSaleRejected(ctx, rejectReason(err))
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "sale.ProcessSale", trace.WithAttributes(
		attribute.Int("lines", len(lines)),
	))
	defer span.End()

	var detail domain.Detail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products, err := s.checkStock(ctx, tx, requestedByProduct(lines))
		if err != nil {
			return err
		}

		sale := domain.Sale{
			ID:       s.genID.Generate().Int64(),
			Operator: actorID,
			Total:    cartTotal(lines),
			SoldAt:   s.clock.Now().UTC(),
		}
		if err := s.repo.InsertSale(ctx, tx, &sale); err != nil {
			return err
		}

		details := make([]domain.LineDetail, 0, len(lines))
		for _, line := range lines {
			row := domain.SaleLine{
				ID:        s.genID.Generate().Int64(),
				SaleID:    sale.ID,
				ProductID: line.productID,
				Quantity:  line.quantity,
				UnitPrice: line.unitPrice,
			}
			if err := s.repo.InsertLine(ctx, tx, &row); err != nil {
				return err
			}
			details = append(details, domain.LineDetail{
				SaleLine:    row,
				ProductName: products[line.productID].Name,
				Subtotal:    subtotal(row),
			})
		}

		for _, line := range lines {
			ok, err := s.repo.DecrementStock(ctx, tx, line.productID, line.quantity)
			if err != nil {
				return err
			}
			if !ok {
				return s.stockShortfall(ctx, tx, line.productID, line.quantity)
			}
		}

		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:       actorID,
			Action:      auditdomain.ActionSaleCreated,
			TargetType:  "sale",
			TargetID:    strconv.FormatInt(sale.ID, 10),
			Description: "Sale #" + strconv.FormatInt(sale.ID, 10) + " registered",
			Metadata: map[string]any{
				"total": sale.Total.StringFixed(2),
				"lines": len(details),
			},
		}); err != nil {
			return err
		}

		detail = domain.Detail{Sale: sale, Lines: details}
		return nil
	})
	if err != nil {
		err = pkgdb.Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordSaleRejected(ctx, rejectReason(err))
		if errors.Is(err, pkgdb.ErrStorageUnavailable) {
			s.log.Error("sale transaction failed", zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordSale(ctx, "committed")
	s.log.Info("sale committed",
		zap.Int64("sale_id", detail.Sale.ID),
		zap.String("total", detail.Sale.Total.StringFixed(2)),
		zap.Int("lines", len(detail.Lines)),
	)
	return &detail, nil
}

// checkStock locks each product in id order and compares the combined
// requested quantity against the current stock.
func (s *Service) checkStock(ctx context.Context, tx *gorm.DB, requested map[int64]int) (map[int64]*productdomain.Product, error) {
	ids := make([]int64, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products := make(map[int64]*productdomain.Product, len(ids))
	for _, id := range ids {
		product, err := s.productRepo.FindByID(ctx, tx, id, true)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, fmt.Errorf("%w: %d", productdomain.ErrNotFound, id)
		}
		if requested[id] > product.Stock {
			return nil, &domain.InsufficientStockError{
				ProductID: id,
				Available: product.Stock,
				Requested: requested[id],
			}
		}
		products[id] = product
	}
	return products, nil
}

func (s *Service) stockShortfall(ctx context.Context, tx *gorm.DB, productID int64, requested int) error {
	product, err := s.productRepo.FindByID(ctx, tx, productID, false)
	if err != nil {
		return err
	}
	available := 0
	if product != nil {
		available = product.Stock
	}
	return &domain.InsufficientStockError{ProductID: productID, Available: available, Requested: requested}
}

func (s *Service) CancelSale(ctx context.Context, req domain.CancelSaleRequest) error {
	actorID, err := actor.Require(req.Actor)
	if err != nil {
		return err
	}
	saleID, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "sale.CancelSale", trace.WithAttributes(attribute.Int64("sale_id", saleID)))
	defer span.End()

	var restored int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.repo.FindByID(ctx, tx, saleID, true)
		if err != nil {
			return err
		}
		if sale == nil {
			return domain.ErrNotFound
		}
		lines, err := s.repo.ListLines(ctx, tx, saleID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if err := s.repo.IncrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
			restored += line.Quantity
		}
		if err := s.repo.DeleteLines(ctx, tx, saleID); err != nil {
			return err
		}
		if err := s.repo.DeleteSale(ctx, tx, saleID); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:       actorID,
			Action:      auditdomain.ActionSaleCancelled,
			TargetType:  "sale",
			TargetID:    strconv.FormatInt(saleID, 10),
			Description: "Sale #" + strconv.FormatInt(saleID, 10) + " cancelled and stock restored",
			Metadata: map[string]any{
				"total":           sale.Total.StringFixed(2),
				"units_restored":  restored,
				"lines_cancelled": len(lines),
			},
		})
	})
	if err != nil {
		err = pkgdb.Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.metrics.RecordSale(ctx, "cancelled")
	s.metrics.RecordStockAdjustment(ctx, "sale_cancel")
	s.log.Info("sale cancelled", zap.Int64("sale_id", saleID), zap.Int("units_restored", restored))
	return nil
}

func (s *Service) History(ctx context.Context, req domain.HistoryRequest) ([]domain.Sale, error) {
	loc := s.policy.Get().Location()

	var from, to *time.Time
	if req.From != nil {
		start := civilStart(*req.From, loc)
		from = &start
	}
	if req.To != nil {
		end := civilStart(req.To.AddDate(0, 0, 1), loc)
		to = &end
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, domain.ErrInvalidDateRange
	}

	items, err := s.repo.List(ctx, s.db, from, to, domain.HistoryLimit)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if items == nil {
		items = []domain.Sale{}
	}
	return items, nil
}

func (s *Service) Detail(ctx context.Context, id string) (*domain.Detail, error) {
	saleID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	sale, err := s.repo.FindByID(ctx, s.db, saleID, false)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	lines, err := s.repo.ListLines(ctx, s.db, saleID)
	if err != nil {
		return nil, pkgdb.Classify(err)
	}
	if lines == nil {
		lines = []domain.LineDetail{}
	}
	for i := range lines {
		lines[i].Subtotal = subtotal(lines[i].SaleLine)
	}
	return &domain.Detail{Sale: *sale, Lines: lines}, nil
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	loc := s.policy.Get().Location()
	now := s.clock.Now()
	dayStart := startOfDay(now, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	local := now.In(loc)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).UTC()
	monthEnd := time.Date(local.Year(), local.Month()+1, 1, 0, 0, 0, 0, loc).UTC()

	today, err := s.repo.Totals(ctx, s.db, dayStart, dayEnd)
	if err != nil {
		return domain.Stats{}, pkgdb.Classify(err)
	}
	month, err := s.repo.Totals(ctx, s.db, monthStart, monthEnd)
	if err != nil {
		return domain.Stats{}, pkgdb.Classify(err)
	}
	sold, err := s.repo.SoldLines(ctx, s.db, monthStart, monthEnd)
	if err != nil {
		return domain.Stats{}, pkgdb.Classify(err)
	}

	return domain.Stats{
		TodayTotal:  sum(today),
		MonthTotal:  sum(month),
		TopProducts: topProducts(sold, domain.TopProducts),
	}, nil
}

func parseLines(in []domain.Line) ([]cartLine, error) {
	if len(in) == 0 {
		return nil, domain.ErrEmptyCart
	}
	lines := make([]cartLine, 0, len(in))
	for _, line := range in {
		productID, err := parseID(line.ProductID, domain.ErrInvalidLine)
		if err != nil {
			return nil, err
		}
		if line.Quantity <= 0 || line.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidLine
		}
		lines = append(lines, cartLine{
			productID: productID,
			quantity:  line.Quantity,
			unitPrice: line.UnitPrice.Round(2),
		})
	}
	return lines, nil
}

func requestedByProduct(lines []cartLine) map[int64]int {
	requested := make(map[int64]int, len(lines))
	for _, line := range lines {
		requested[line.productID] += line.quantity
	}
	return requested
}

func cartTotal(lines []cartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.unitPrice.Mul(decimal.NewFromInt(int64(line.quantity))))
	}
	return total.Round(2)
}

func subtotal(line domain.SaleLine) decimal.Decimal {
	return line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
}

func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total.Round(2)
}

// topProducts ranks by quantity, then revenue, then name.
func topProducts(sold []domain.SoldLine, limit int) []domain.TopProduct {
	byProduct := make(map[int64]*domain.TopProduct)
	for _, line := range sold {
		top, ok := byProduct[line.ProductID]
		if !ok {
			top = &domain.TopProduct{ProductID: line.ProductID, Name: line.ProductName, Revenue: decimal.Zero}
			byProduct[line.ProductID] = top
		}
		top.Quantity += line.Quantity
		top.Revenue = top.Revenue.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	out := make([]domain.TopProduct, 0, len(byProduct))
	for _, top := range byProduct {
		top.Revenue = top.Revenue.Round(2)
		out = append(out, *top)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrInvalidLine):
		return "invalid_line"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, productdomain.ErrNotFound):
		return "product_not_found"
	case errors.Is(err, pkgdb.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "other"
	}
}

// startOfDay returns the instant the civil day of t begins in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC()
}

// civilStart reads d as a civil date encoded at UTC midnight and returns the
// instant that date begins in loc.
func civilStart(d time.Time, loc *time.Location) time.Time {
	d = d.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).UTC()
}

func parseID(raw string, invalid error) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id.Int64(), nil
}
