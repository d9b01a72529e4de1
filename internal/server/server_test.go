package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	attendancerepository "github.com/smallbiznis/gymdesk/internal/attendance/repository"
	attendanceservice "github.com/smallbiznis/gymdesk/internal/attendance/service"
	auditrepository "github.com/smallbiznis/gymdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/gymdesk/internal/audit/service"
	"github.com/smallbiznis/gymdesk/internal/clock"
	"github.com/smallbiznis/gymdesk/internal/config"
	memberrepository "github.com/smallbiznis/gymdesk/internal/member/repository"
	memberservice "github.com/smallbiznis/gymdesk/internal/member/service"
	statusrepository "github.com/smallbiznis/gymdesk/internal/membershipstatus/repository"
	statusservice "github.com/smallbiznis/gymdesk/internal/membershipstatus/service"
	membershiptyperepository "github.com/smallbiznis/gymdesk/internal/membershiptype/repository"
	membershiptypeservice "github.com/smallbiznis/gymdesk/internal/membershiptype/service"
	"github.com/smallbiznis/gymdesk/internal/observability"
	obsmetrics "github.com/smallbiznis/gymdesk/internal/observability/metrics"
	paymentrepository "github.com/smallbiznis/gymdesk/internal/payment/repository"
	paymentservice "github.com/smallbiznis/gymdesk/internal/payment/service"
	productrepository "github.com/smallbiznis/gymdesk/internal/product/repository"
	productservice "github.com/smallbiznis/gymdesk/internal/product/service"
	salerepository "github.com/smallbiznis/gymdesk/internal/sale/repository"
	saleservice "github.com/smallbiznis/gymdesk/internal/sale/service"
	"github.com/smallbiznis/gymdesk/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testActor = "recepcion"

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := storetest.Open(t)
	node := storetest.Node(t)
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	policy := config.StaticPolicy(config.DefaultPolicy())
	metrics := obsmetrics.NewNop()

	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Repo: auditrepository.Provide(),
	})
	catalog := membershiptypeservice.New(membershiptypeservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Repo: membershiptyperepository.Provide(),
	})
	require.NoError(t, catalog.EnsureDefaults(context.Background()))
	members := memberservice.New(memberservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Policy: policy,
		Repo: memberrepository.Provide(), AuditSvc: audit,
	})
	payments := paymentservice.NewService(paymentservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Policy: policy,
		Repo: paymentrepository.Provide(), CatalogSvc: catalog, MemberSvc: members,
		AuditSvc: audit, ObsMetrics: metrics,
	})
	status := statusservice.New(statusservice.Params{
		DB: db, Log: log, Clock: fake, Policy: policy, Repo: statusrepository.Provide(),
	})
	attendance := attendanceservice.New(attendanceservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Repo: attendancerepository.Provide(),
		StatusSvc: status, AuditSvc: audit, ObsMetrics: metrics,
	})
	productRepo := productrepository.Provide()
	products := productservice.New(productservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Policy: policy,
		Repo: productRepo, AuditSvc: audit, ObsMetrics: metrics,
	})
	sales := saleservice.New(saleservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Policy: policy,
		Repo: salerepository.Provide(), ProductRepo: productRepo,
		AuditSvc: audit, ObsMetrics: metrics,
	})

	engine := NewEngine(observability.Config{Environment: "test"}, nil)
	NewServer(ServerParams{
		Gin:           engine,
		CatalogSvc:    catalog,
		MemberSvc:     members,
		PaymentSvc:    payments,
		StatusSvc:     status,
		AttendanceSvc: attendance,
		ProductSvc:    products,
		SaleSvc:       sales,
		AuditSvc:      audit,
	})
	return engine
}

func do(t *testing.T, r http.Handler, method, path string, body any, actor string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func errorOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	payload, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error payload, got %v", body)
	return payload
}

func dataOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "expected data object, got %v", body)
	return data
}

func enroll(t *testing.T, r http.Handler, name, tag, start string) string {
	t.Helper()
	rec, body := do(t, r, http.MethodPost, "/api/v1/members/enroll", map[string]any{
		"member":          map[string]any{"name": name, "shift": "morning"},
		"membership_type": tag,
		"start_date":      start,
	}, testActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	member := dataOf(t, body)["member"].(map[string]any)
	return member["id"].(string)
}

func TestEnrollThenResolveStatus(t *testing.T) {
	r := newTestServer(t)

	rec, body := do(t, r, http.MethodPost, "/api/v1/members/enroll", map[string]any{
		"member":          map[string]any{"name": "Ana Lopez", "shift": "morning"},
		"membership_type": "mensual",
		"start_date":      "2024-01-01",
	}, testActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := dataOf(t, body)
	assert.Equal(t, "2024-01-31T00:00:00Z", data["end_date"])
	payment := data["payment"].(map[string]any)
	assert.Equal(t, "300", payment["amount"])
	memberID := data["member"].(map[string]any)["id"].(string)

	rec, body = do(t, r, http.MethodGet, "/api/v1/members/"+memberID+"/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := dataOf(t, body)
	assert.Equal(t, "active", status["status"])
	assert.Equal(t, float64(16), status["days_remaining"])
}

func TestRenewWithDiscountUsesCatalogPrice(t *testing.T) {
	r := newTestServer(t)
	memberID := enroll(t, r, "Luis", "semanal", "2024-01-10")

	rec, body := do(t, r, http.MethodPost, "/api/v1/members/"+memberID+"/renewals", map[string]any{
		"membership_type":  "mensual",
		"discount_percent": 10,
	}, testActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payment := dataOf(t, body)["payment"].(map[string]any)
	assert.Equal(t, "270", payment["amount"])

	rec, body = do(t, r, http.MethodGet, "/api/v1/members/"+memberID+"/payments", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := body["data"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "renewal", history[0].(map[string]any)["kind"])
}

func TestMutationWithoutActorIsUnauthenticated(t *testing.T) {
	r := newTestServer(t)

	rec, body := do(t, r, http.MethodPost, "/api/v1/members", map[string]any{"name": "Ana"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", errorOf(t, body)["type"])
}

func TestPaymentWithoutActorIsUnauthenticatedBeforePricing(t *testing.T) {
	r := newTestServer(t)

	rec, body := do(t, r, http.MethodPost, "/api/v1/members/enroll", map[string]any{
		"member":          map[string]any{"name": "Ana", "shift": "morning"},
		"membership_type": "anual",
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", errorOf(t, body)["type"])

	memberID := enroll(t, r, "Ana", "mensual", "2024-01-01")
	rec, body = do(t, r, http.MethodPost, "/api/v1/members/"+memberID+"/renewals", map[string]any{
		"membership_type": "anual",
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", errorOf(t, body)["type"])
}

func TestMemberListingCarriesStatusPerRow(t *testing.T) {
	r := newTestServer(t)
	enroll(t, r, "Ana Lopez", "mensual", "2024-01-01")
	enroll(t, r, "Carla Ruiz", "semanal", "2024-01-10")
	rec, _ := do(t, r, http.MethodPost, "/api/v1/members", map[string]any{
		"name": "Beto Diaz", "shift": "other",
	}, testActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body := do(t, r, http.MethodGet, "/api/v1/members", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := body["data"].([]any)
	require.Len(t, rows, 3)

	ana := rows[0].(map[string]any)
	assert.Equal(t, "Ana Lopez", ana["name"])
	assert.Equal(t, "active", ana["status"])
	assert.Equal(t, float64(16), ana["days_remaining"])
	assert.Equal(t, "2024-01-31T00:00:00Z", ana["expires_on"])
	assert.Equal(t, false, ana["expiring_soon"])

	beto := rows[1].(map[string]any)
	assert.Equal(t, "Beto Diaz", beto["name"])
	assert.Equal(t, "expired", beto["status"])
	assert.Nil(t, beto["days_remaining"])
	assert.Nil(t, beto["expires_on"])

	carla := rows[2].(map[string]any)
	assert.Equal(t, "active", carla["status"])
	assert.Equal(t, float64(2), carla["days_remaining"])
	assert.Equal(t, true, carla["expiring_soon"])

	rec, body = do(t, r, http.MethodGet, "/api/v1/members?q=carla", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows = body["data"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(2), rows[0].(map[string]any)["days_remaining"])
}

func TestUnknownMemberIsNotFound(t *testing.T) {
	r := newTestServer(t)

	rec, body := do(t, r, http.MethodGet, "/api/v1/members/999", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	payload := errorOf(t, body)
	assert.Equal(t, "not_found", payload["type"])
	assert.Equal(t, "member not found", payload["message"])
}

func TestEnrollWithUnknownMembershipType(t *testing.T) {
	r := newTestServer(t)

	rec, body := do(t, r, http.MethodPost, "/api/v1/members/enroll", map[string]any{
		"member":          map[string]any{"name": "Ana"},
		"membership_type": "anual",
		"amount":          100,
	}, testActor)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := errorOf(t, body)["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "invalid_membership_type", errs[0].(map[string]any)["code"])

	rec, body = do(t, r, http.MethodGet, "/api/v1/members", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["data"])
}

func TestCheckInRejectsMemberWithoutPayments(t *testing.T) {
	r := newTestServer(t)

	rec, body := do(t, r, http.MethodPost, "/api/v1/members", map[string]any{"name": "Sin Pago"}, testActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	memberID := dataOf(t, body)["id"].(string)

	rec, body = do(t, r, http.MethodPost, "/api/v1/members/"+memberID+"/check-ins", nil, testActor)
	require.Equal(t, http.StatusConflict, rec.Code)
	payload := errorOf(t, body)
	assert.Equal(t, "membership_expired", payload["type"])
	assert.Equal(t, "expired", payload["status"].(map[string]any)["status"])
}

func TestSaleWithInsufficientStockReportsDetails(t *testing.T) {
	r := newTestServer(t)

	rec, body := do(t, r, http.MethodPost, "/api/v1/products", map[string]any{
		"name": "Creatina", "price": 250, "stock": 2,
	}, testActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	productID := dataOf(t, body)["id"].(string)

	rec, body = do(t, r, http.MethodPost, "/api/v1/sales", map[string]any{
		"lines": []map[string]any{{"product_id": productID, "quantity": 5, "unit_price": 250}},
	}, testActor)
	require.Equal(t, http.StatusConflict, rec.Code)
	payload := errorOf(t, body)
	assert.Equal(t, "insufficient_stock", payload["type"])
	assert.Equal(t, productID, payload["product_id"])
	assert.Equal(t, float64(2), payload["available"])
	assert.Equal(t, float64(5), payload["requested"])

	rec, body = do(t, r, http.MethodPost, "/api/v1/sales", map[string]any{
		"lines": []map[string]any{{"product_id": productID, "quantity": 2, "unit_price": 250}},
	}, testActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body = do(t, r, http.MethodGet, "/api/v1/products/out-of-stock", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["data"], 1)
}

func TestDuplicateProductNameConflicts(t *testing.T) {
	r := newTestServer(t)
	product := map[string]any{"name": "Guantes", "price": 120, "stock": 3}

	rec, _ := do(t, r, http.MethodPost, "/api/v1/products", product, testActor)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, body := do(t, r, http.MethodPost, "/api/v1/products", product, testActor)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_name", errorOf(t, body)["type"])

	rec, body = do(t, r, http.MethodGet, "/api/v1/products/low-stock?threshold=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["data"], 1)
}

func TestQuoteDiscount(t *testing.T) {
	r := newTestServer(t)

	rec, body := do(t, r, http.MethodPost, "/api/v1/discounts/quote", map[string]any{"base": 300, "percent": 15}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "255.00", dataOf(t, body)["amount"])

	rec, body = do(t, r, http.MethodPost, "/api/v1/discounts/quote", map[string]any{"base": 300, "percent": 120}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := errorOf(t, body)["errors"].([]any)
	assert.Equal(t, "invalid_discount", errs[0].(map[string]any)["code"])
}

func TestSessionsAppearInActivity(t *testing.T) {
	r := newTestServer(t)

	rec, _ := do(t, r, http.MethodPost, "/api/v1/sessions/login", nil, testActor)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, body := do(t, r, http.MethodGet, "/api/v1/activity?action=login", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries := dataOf(t, body)["entries"].([]any)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, "LOGIN", entry["action"])
	assert.Equal(t, testActor, entry["actor"])
}

func TestHealth(t *testing.T) {
	r := newTestServer(t)

	rec, body := do(t, r, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}
