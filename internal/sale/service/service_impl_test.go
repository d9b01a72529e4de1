package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gymdesk/internal/actor"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	auditrepository "github.com/smallbiznis/gymdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/gymdesk/internal/audit/service"
	"github.com/smallbiznis/gymdesk/internal/clock"
	"github.com/smallbiznis/gymdesk/internal/config"
	obsmetrics "github.com/smallbiznis/gymdesk/internal/observability/metrics"
	productdomain "github.com/smallbiznis/gymdesk/internal/product/domain"
	productrepository "github.com/smallbiznis/gymdesk/internal/product/repository"
	productservice "github.com/smallbiznis/gymdesk/internal/product/service"
	"github.com/smallbiznis/gymdesk/internal/sale/domain"
	"github.com/smallbiznis/gymdesk/internal/sale/repository"
	"github.com/smallbiznis/gymdesk/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"pgregory.net/rapid"
)

type testEnv struct {
	db       *gorm.DB
	svc      domain.Service
	products productdomain.Service
	clock    *clock.FakeClock
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db := storetest.Open(t)
	node := storetest.Node(t)
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC))
	policy := config.StaticPolicy(config.DefaultPolicy())
	metrics := obsmetrics.NewNop()

	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Repo: auditrepository.Provide(),
	})
	productRepo := productrepository.Provide()
	products := productservice.New(productservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Policy: policy,
		Repo: productRepo, AuditSvc: audit, ObsMetrics: metrics,
	})
	svc := New(Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		Policy:      policy,
		Repo:        repository.Provide(),
		ProductRepo: productRepo,
		AuditSvc:    audit,
		ObsMetrics:  metrics,
	})
	return testEnv{db: db, svc: svc, products: products, clock: fake}
}

func (e testEnv) product(t *testing.T, name string, price int64, stock int) string {
	t.Helper()
	p, err := e.products.Create(context.Background(), productdomain.CreateRequest{
		Name: name, Price: decimal.NewFromInt(price), Stock: stock, Actor: "desk",
	})
	require.NoError(t, err)
	return strconv.FormatInt(p.ID, 10)
}

func (e testEnv) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := e.products.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func (e testEnv) count(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Table(table).Count(&n).Error)
	return n
}

func line(productID string, qty int, price int64) domain.Line {
	return domain.Line{ProductID: productID, Quantity: qty, UnitPrice: decimal.NewFromInt(price)}
}

func TestProcessSaleRejectsInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	creatina := env.product(t, "Creatina", 280, 15)

	_, err := env.svc.ProcessSale(context.Background(), domain.ProcessSaleRequest{
		Lines: []domain.Line{line(creatina, 20, 280)},
		Actor: "desk",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var shortfall *domain.InsufficientStockError
	require.True(t, errors.As(err, &shortfall))
	assert.Equal(t, 15, shortfall.Available)
	assert.Equal(t, 20, shortfall.Requested)

	assert.Equal(t, 15, env.stock(t, creatina))
	assert.Zero(t, env.count(t, "sales"))
	assert.Zero(t, env.count(t, "sale_lines"))
}

func TestProcessAndCancelSaleRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creatina := env.product(t, "Creatina", 300, 15)

	detail, err := env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{
		Lines: []domain.Line{line(creatina, 5, 280)},
		Actor: "desk",
	})
	require.NoError(t, err)
	assert.Equal(t, "1400.00", detail.Sale.Total.StringFixed(2))
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, "Creatina", detail.Lines[0].ProductName)
	assert.Equal(t, 10, env.stock(t, creatina))

	saleID := strconv.FormatInt(detail.Sale.ID, 10)
	got, err := env.svc.Detail(ctx, saleID)
	require.NoError(t, err)
	assert.Equal(t, "280.00", got.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "1400.00", got.Lines[0].Subtotal.StringFixed(2))

	require.NoError(t, env.svc.CancelSale(ctx, domain.CancelSaleRequest{ID: saleID, Actor: "desk"}))
	assert.Equal(t, 15, env.stock(t, creatina))

	_, err = env.svc.Detail(ctx, saleID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, env.count(t, "sale_lines"))

	var entry auditdomain.ActivityEntry
	require.NoError(t, env.db.Where("action = ?", auditdomain.ActionSaleCancelled).First(&entry).Error)
	assert.Equal(t, "Sale #"+saleID+" cancelled and stock restored", entry.Description)

	err = env.svc.CancelSale(ctx, domain.CancelSaleRequest{ID: saleID, Actor: "desk"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessSaleCombinesLinesForSameProduct(t *testing.T) {
	env := newTestEnv(t)
	barra := env.product(t, "Barra", 25, 6)

	_, err := env.svc.ProcessSale(context.Background(), domain.ProcessSaleRequest{
		Lines: []domain.Line{line(barra, 4, 25), line(barra, 3, 25)},
		Actor: "desk",
	})
	var shortfall *domain.InsufficientStockError
	require.True(t, errors.As(err, &shortfall))
	assert.Equal(t, 6, shortfall.Available)
	assert.Equal(t, 7, shortfall.Requested)
	assert.Equal(t, 6, env.stock(t, barra))
}

func TestProcessSaleValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agua := env.product(t, "Agua", 15, 10)

	_, err := env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{Actor: "desk"})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{Lines: []domain.Line{line(agua, 0, 15)}, Actor: "desk"})
	assert.ErrorIs(t, err, domain.ErrInvalidLine)

	_, err = env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{Lines: []domain.Line{line(agua, 1, -1)}, Actor: "desk"})
	assert.ErrorIs(t, err, domain.ErrInvalidLine)

	_, err = env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{Lines: []domain.Line{line(agua, 1, 15)}})
	assert.ErrorIs(t, err, actor.ErrUnauthenticated)

	_, err = env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{
		Lines: []domain.Line{line(agua, 1, 15), line("424242", 1, 10)},
		Actor: "desk",
	})
	assert.ErrorIs(t, err, productdomain.ErrNotFound)
	assert.Equal(t, 10, env.stock(t, agua))
}

func TestSaleLineKeepsCapturedPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	toalla := env.product(t, "Toalla", 90, 5)

	detail, err := env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{Lines: []domain.Line{line(toalla, 1, 90)}, Actor: "desk"})
	require.NoError(t, err)

	_, err = env.products.Update(ctx, productdomain.UpdateRequest{
		ID: toalla, Name: "Toalla", Price: decimal.NewFromInt(120), Stock: 4, Actor: "desk",
	})
	require.NoError(t, err)

	got, err := env.svc.Detail(ctx, strconv.FormatInt(detail.Sale.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, "90.00", got.Lines[0].UnitPrice.StringFixed(2))
}

func TestHistoryFiltersByCivilDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agua := env.product(t, "Agua", 15, 100)

	for _, at := range []time.Time{
		time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 2, 23, 59, 0, 0, time.UTC),
		time.Date(2024, 6, 3, 0, 1, 0, 0, time.UTC),
	} {
		env.clock.Set(at)
		_, err := env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{Lines: []domain.Line{line(agua, 1, 15)}, Actor: "desk"})
		require.NoError(t, err)
	}

	all, err := env.svc.History(ctx, domain.HistoryRequest{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].SoldAt.After(all[1].SoldAt))

	from := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	day, err := env.svc.History(ctx, domain.HistoryRequest{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, day, 1)

	inverted := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err = env.svc.History(ctx, domain.HistoryRequest{From: &from, To: &inverted})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestHistoryCapsAtLimitNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agua := env.product(t, "Agua", 15, 500)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	total := domain.HistoryLimit + 5
	for i := 0; i < total; i++ {
		env.clock.Set(start.Add(time.Duration(i) * time.Hour))
		_, err := env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{Lines: []domain.Line{line(agua, 1, 15)}, Actor: "desk"})
		require.NoError(t, err)
	}
	assert.Equal(t, 500-total, env.stock(t, agua))

	capped, err := env.svc.History(ctx, domain.HistoryRequest{})
	require.NoError(t, err)
	require.Len(t, capped, domain.HistoryLimit)
	assert.True(t, capped[0].SoldAt.Equal(start.Add(time.Duration(total-1)*time.Hour)))
	assert.True(t, capped[len(capped)-1].SoldAt.Equal(start.Add(5*time.Hour)))

	// the first day holds sales the unfiltered page dropped
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	firstDay, err := env.svc.History(ctx, domain.HistoryRequest{From: &day, To: &day})
	require.NoError(t, err)
	require.Len(t, firstDay, 24)
	assert.True(t, firstDay[len(firstDay)-1].SoldAt.Equal(start))
	for _, sale := range firstDay {
		assert.Equal(t, 1, sale.SoldAt.UTC().Day())
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agua := env.product(t, "Agua", 15, 100)
	barra := env.product(t, "Barra", 25, 100)

	env.clock.Set(time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC))
	_, err := env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{Lines: []domain.Line{line(barra, 50, 25)}, Actor: "desk"})
	require.NoError(t, err)

	env.clock.Set(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))
	_, err = env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{Lines: []domain.Line{line(agua, 3, 15), line(barra, 1, 25)}, Actor: "desk"})
	require.NoError(t, err)

	env.clock.Set(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	_, err = env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{Lines: []domain.Line{line(agua, 2, 15)}, Actor: "desk"})
	require.NoError(t, err)

	stats, err := env.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "30.00", stats.TodayTotal.StringFixed(2))
	assert.Equal(t, "100.00", stats.MonthTotal.StringFixed(2))
	require.Len(t, stats.TopProducts, 2)
	assert.Equal(t, "Agua", stats.TopProducts[0].Name)
	assert.Equal(t, 5, stats.TopProducts[0].Quantity)
	assert.Equal(t, "75.00", stats.TopProducts[0].Revenue.StringFixed(2))
	assert.Equal(t, "Barra", stats.TopProducts[1].Name)
	assert.Equal(t, 1, stats.TopProducts[1].Quantity)
}

type snapshot struct {
	stock     map[string]int
	sales     int64
	saleLines int64
}

func (e testEnv) snapshot(t *testing.T, ids []string) snapshot {
	s := snapshot{stock: make(map[string]int, len(ids))}
	for _, id := range ids {
		s.stock[id] = e.stock(t, id)
	}
	s.sales = e.count(t, "sales")
	s.saleLines = e.count(t, "sale_lines")
	return s
}

// Random sequences of stock edits, sales and cancellations keep stock
// non-negative, commit sales whole or not at all, and cancellation undoes a
// sale exactly.
func TestSaleProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		env := newTestEnv(t)
		ctx := context.Background()

		ids := make([]string, 0, 3)
		for i, name := range []string{"Agua", "Barra", "Creatina"} {
			ids = append(ids, env.product(t, name, int64(10*(i+1)), rapid.IntRange(0, 10).Draw(rt, "initial")))
		}
		var committed []int64

		steps := rapid.IntRange(1, 15).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			before := env.snapshot(t, ids)

			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				id := rapid.SampledFrom(ids).Draw(rt, "adjust")
				target := rapid.IntRange(-3, 12).Draw(rt, "stock")
				_, err := env.products.AdjustStock(ctx, productdomain.AdjustStockRequest{ID: id, Stock: target, Actor: "desk"})
				if target < 0 {
					if !errors.Is(err, productdomain.ErrInvalidStock) {
						rt.Fatalf("negative adjust: %v", err)
					}
					if after := env.snapshot(t, ids); after.stock[id] != before.stock[id] {
						rt.Fatalf("rejected adjust changed stock")
					}
				} else if err != nil {
					rt.Fatalf("adjust: %v", err)
				}

			case 1:
				n := rapid.IntRange(1, 4).Draw(rt, "lines")
				lines := make([]domain.Line, 0, n)
				requested := map[string]int{}
				for j := 0; j < n; j++ {
					id := rapid.SampledFrom(ids).Draw(rt, "product")
					qty := rapid.IntRange(1, 8).Draw(rt, "qty")
					requested[id] += qty
					lines = append(lines, line(id, qty, 10))
				}
				detail, err := env.svc.ProcessSale(ctx, domain.ProcessSaleRequest{Lines: lines, Actor: "desk"})
				after := env.snapshot(t, ids)

				fits := true
				for id, qty := range requested {
					if qty > before.stock[id] {
						fits = false
					}
				}
				if fits {
					if err != nil {
						rt.Fatalf("sale should commit: %v", err)
					}
					for _, id := range ids {
						if after.stock[id] != before.stock[id]-requested[id] {
							rt.Fatalf("stock of %s: %d, want %d", id, after.stock[id], before.stock[id]-requested[id])
						}
					}
					if after.sales != before.sales+1 || after.saleLines != before.saleLines+int64(n) {
						rt.Fatalf("sale rows missing")
					}
					committed = append(committed, detail.Sale.ID)
				} else {
					if !errors.Is(err, domain.ErrInsufficientStock) {
						rt.Fatalf("expected insufficient stock, got %v", err)
					}
					if after.sales != before.sales || after.saleLines != before.saleLines {
						rt.Fatalf("rejected sale left rows")
					}
					for _, id := range ids {
						if after.stock[id] != before.stock[id] {
							rt.Fatalf("rejected sale changed stock of %s", id)
						}
					}
				}

			case 2:
				if len(committed) == 0 {
					continue
				}
				k := rapid.IntRange(0, len(committed)-1).Draw(rt, "cancel")
				saleID := strconv.FormatInt(committed[k], 10)
				detail, err := env.svc.Detail(ctx, saleID)
				if err != nil {
					rt.Fatalf("detail: %v", err)
				}
				if err := env.svc.CancelSale(ctx, domain.CancelSaleRequest{ID: saleID, Actor: "desk"}); err != nil {
					rt.Fatalf("cancel: %v", err)
				}
				restored := map[string]int{}
				for _, l := range detail.Lines {
					restored[strconv.FormatInt(l.ProductID, 10)] += l.Quantity
				}
				after := env.snapshot(t, ids)
				for _, id := range ids {
					if after.stock[id] != before.stock[id]+restored[id] {
						rt.Fatalf("cancel restored %d to %s, want %d", after.stock[id]-before.stock[id], id, restored[id])
					}
				}
				if after.sales != before.sales-1 {
					rt.Fatalf("cancelled sale still listed")
				}
				committed = append(committed[:k], committed[k+1:]...)
			}

			for id, s := range env.snapshot(t, ids).stock {
				if s < 0 {
					rt.Fatalf("stock of %s went negative: %d", id, s)
				}
			}
		}
	})
}
