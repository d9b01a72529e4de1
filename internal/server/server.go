package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/gymdesk/internal/attendance"
	attendancedomain "github.com/smallbiznis/gymdesk/internal/attendance/domain"
	"github.com/smallbiznis/gymdesk/internal/audit"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	"github.com/smallbiznis/gymdesk/internal/config"
	"github.com/smallbiznis/gymdesk/internal/member"
	memberdomain "github.com/smallbiznis/gymdesk/internal/member/domain"
	"github.com/smallbiznis/gymdesk/internal/membershipstatus"
	statusdomain "github.com/smallbiznis/gymdesk/internal/membershipstatus/domain"
	"github.com/smallbiznis/gymdesk/internal/membershiptype"
	membershiptypedomain "github.com/smallbiznis/gymdesk/internal/membershiptype/domain"
	"github.com/smallbiznis/gymdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/gymdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/gymdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/gymdesk/internal/observability/tracing"
	"github.com/smallbiznis/gymdesk/internal/payment"
	paymentdomain "github.com/smallbiznis/gymdesk/internal/payment/domain"
	"github.com/smallbiznis/gymdesk/internal/product"
	productdomain "github.com/smallbiznis/gymdesk/internal/product/domain"
	"github.com/smallbiznis/gymdesk/internal/sale"
	saledomain "github.com/smallbiznis/gymdesk/internal/sale/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	audit.Module,
	membershiptype.Module,
	member.Module,
	payment.Module,
	membershipstatus.Module,
	attendance.Module,
	product.Module,
	sale.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	catalogSvc    membershiptypedomain.Service
	memberSvc     memberdomain.Service
	paymentSvc    paymentdomain.Service
	statusSvc     statusdomain.Service
	attendanceSvc attendancedomain.Service
	productSvc    productdomain.Service
	saleSvc       saledomain.Service
	auditSvc      auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	CatalogSvc    membershiptypedomain.Service
	MemberSvc     memberdomain.Service
	PaymentSvc    paymentdomain.Service
	StatusSvc     statusdomain.Service
	AttendanceSvc attendancedomain.Service
	ProductSvc    productdomain.Service
	SaleSvc       saledomain.Service
	AuditSvc      auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		catalogSvc:    p.CatalogSvc,
		memberSvc:     p.MemberSvc,
		paymentSvc:    p.PaymentSvc,
		statusSvc:     p.StatusSvc,
		attendanceSvc: p.AttendanceSvc,
		productSvc:    p.ProductSvc,
		saleSvc:       p.SaleSvc,
		auditSvc:      p.AuditSvc,
	}

	svc.registerAPIRoutes()
	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Membership catalog --------
	api.GET("/membership-types", s.ListMembershipTypes)
	api.GET("/membership-types/:tag", s.LookupMembershipType)

	// -------- Members --------
	api.POST("/members", s.RegisterMember)
	api.POST("/members/enroll", s.EnrollMember)
	api.GET("/members", s.SearchMembers)
	api.GET("/members/:id", s.GetMember)
	api.PUT("/members/:id", s.UpdateMember)
	api.DELETE("/members/:id", s.DeleteMember)

	// -------- Ledger and status --------
	api.GET("/members/:id/status", s.ResolveMemberStatus)
	api.GET("/members/:id/payments", s.ListMemberPayments)
	api.POST("/members/:id/payments", s.RegisterInitialPayment)
	api.POST("/members/:id/renewals", s.RenewMembership)
	api.GET("/membership-status/summary", s.MembershipStatusSummary)
	api.POST("/discounts/quote", s.QuoteDiscount)

	// -------- Attendance --------
	api.POST("/members/:id/check-ins", s.CheckIn)
	api.GET("/members/:id/check-ins", s.ListCheckIns)

	// -------- Inventory --------
	api.GET("/products", s.SearchProducts)
	api.POST("/products", s.CreateProduct)
	api.GET("/products/low-stock", s.ListLowStock)
	api.GET("/products/out-of-stock", s.ListOutOfStock)
	api.GET("/products/summary", s.InventorySummary)
	api.GET("/products/:id", s.GetProduct)
	api.PUT("/products/:id", s.UpdateProduct)
	api.PATCH("/products/:id/stock", s.AdjustStock)
	api.DELETE("/products/:id", s.DeleteProduct)

	// -------- Sales --------
	api.POST("/sales", s.ProcessSale)
	api.GET("/sales", s.ListSales)
	api.GET("/sales/stats", s.SaleStats)
	api.GET("/sales/:id", s.GetSale)
	api.DELETE("/sales/:id", s.CancelSale)

	// -------- Activity --------
	api.GET("/activity", s.ListActivity)
	api.POST("/sessions/login", s.Login)
	api.POST("/sessions/logout", s.Logout)
}
