package service

import (
	"context"
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
	"github.com/smallbiznis/gymdesk/internal/product/domain"
	"github.com/smallbiznis/gymdesk/internal/product/repository"
	saledomain "github.com/smallbiznis/gymdesk/internal/sale/domain"
	"github.com/smallbiznis/gymdesk/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db := storetest.Open(t)
	node := storetest.Node(t)
	fake := clock.NewFakeClock(time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC))
	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fake, Repo: auditrepository.Provide(),
	})
	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fake,
		Policy:     config.StaticPolicy(config.DefaultPolicy()),
		Repo:       repository.Provide(),
		AuditSvc:   audit,
		ObsMetrics: obsmetrics.NewNop(),
	})
	return svc, db
}

func create(t *testing.T, svc domain.Service, name string, price int64, stock int) *domain.Product {
	t.Helper()
	p, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:  name,
		Price: decimal.NewFromInt(price),
		Stock: stock,
		Actor: "desk",
	})
	require.NoError(t, err)
	return p
}

func id(p *domain.Product) string { return strconv.FormatInt(p.ID, 10) }

func TestCreateValidatesAndRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := create(t, svc, "Creatina", 280, 15)
	assert.Equal(t, "desk", created.UpdatedBy)

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "Creatina", Price: decimal.NewFromInt(1), Stock: 1, Actor: "desk"})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	// Names are matched exactly.
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "creatina", Price: decimal.NewFromInt(1), Stock: 1, Actor: "desk"})
	assert.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Agua", Price: decimal.Zero, Stock: 1, Actor: "desk"})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Agua", Price: decimal.NewFromInt(10), Stock: -1, Actor: "desk"})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Agua", Price: decimal.NewFromInt(10), Stock: 1})
	assert.ErrorIs(t, err, actor.ErrUnauthenticated)
}

func TestUpdateChecksOtherProductsForDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	proteina := create(t, svc, "Proteina", 500, 4)
	create(t, svc, "Barra", 25, 40)

	updated, err := svc.Update(ctx, domain.UpdateRequest{
		ID: id(proteina), Name: "Proteina", Price: decimal.NewFromInt(550), Stock: 6, Actor: "desk",
	})
	require.NoError(t, err)
	assert.Equal(t, "550.00", updated.Price.StringFixed(2))
	assert.Equal(t, 6, updated.Stock)

	_, err = svc.Update(ctx, domain.UpdateRequest{
		ID: id(proteina), Name: "Barra", Price: decimal.NewFromInt(550), Stock: 6, Actor: "desk",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	_, err = svc.Update(ctx, domain.UpdateRequest{
		ID: "999", Name: "X", Price: decimal.NewFromInt(1), Stock: 0, Actor: "desk",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdjustStockLogsSignedDelta(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	p := create(t, svc, "Guantes", 200, 10)

	adjusted, err := svc.AdjustStock(ctx, domain.AdjustStockRequest{ID: id(p), Stock: 7, Actor: "ana"})
	require.NoError(t, err)
	assert.Equal(t, 7, adjusted.Stock)

	_, err = svc.AdjustStock(ctx, domain.AdjustStockRequest{ID: id(p), Stock: -1, Actor: "ana"})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)

	var entry auditdomain.ActivityEntry
	require.NoError(t, db.Where("action = ?", auditdomain.ActionStockAdjusted).First(&entry).Error)
	assert.Equal(t, "ana", entry.Actor)
	assert.EqualValues(t, -3, entry.Metadata["delta"])
	assert.Contains(t, entry.Description, "-3")

	got, err := svc.Get(ctx, id(p))
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
}

func TestDeleteBlockedBySalesHistory(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	sold := create(t, svc, "Creatina", 280, 15)
	unsold := create(t, svc, "Toalla", 90, 3)

	require.NoError(t, db.Create(&saledomain.Sale{ID: 1, Operator: "desk", Total: decimal.NewFromInt(280), SoldAt: time.Now().UTC()}).Error)
	require.NoError(t, db.Create(&saledomain.SaleLine{ID: 2, SaleID: 1, ProductID: sold.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(280)}).Error)

	err := svc.Delete(ctx, domain.DeleteRequest{ID: id(sold), Actor: "desk"})
	assert.ErrorIs(t, err, domain.ErrHasSalesHistory)
	got, err := svc.Get(ctx, id(sold))
	require.NoError(t, err)
	assert.Equal(t, 15, got.Stock)

	require.NoError(t, svc.Delete(ctx, domain.DeleteRequest{ID: id(unsold), Actor: "desk"}))
	_, err = svc.Get(ctx, id(unsold))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.Delete(ctx, domain.DeleteRequest{ID: id(unsold), Actor: "desk"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStockQueriesAndSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	create(t, svc, "Agua", 15, 0)
	create(t, svc, "Barra", 25, 5)
	create(t, svc, "Creatina", 280, 15)
	create(t, svc, "Electrolitos", 30, 2)

	low, err := svc.LowStock(ctx, 0)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Electrolitos", low[0].Name)
	assert.Equal(t, "Barra", low[1].Name)

	low, err = svc.LowStock(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, low, 3)

	out, err := svc.OutOfStock(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Agua", out[0].Name)

	found, err := svc.Search(ctx, "CREA")
	require.NoError(t, err)
	require.Len(t, found, 1)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalProducts)
	assert.Equal(t, int64(22), summary.TotalUnits)
	assert.Equal(t, "4385.00", summary.InventoryValue.StringFixed(2))
	assert.Equal(t, 2, summary.LowStock)
	assert.Equal(t, 1, summary.OutOfStock)
	assert.Equal(t, 5, summary.Threshold)
}
