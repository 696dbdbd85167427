package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/shelfwise/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/shelfwise/internal/catalog/domain"
	circulationdomain "github.com/smallbiznis/shelfwise/internal/circulation/domain"
	"github.com/smallbiznis/shelfwise/internal/config"
	"github.com/smallbiznis/shelfwise/internal/events"
	feedomain "github.com/smallbiznis/shelfwise/internal/fee/domain"
	"github.com/smallbiznis/shelfwise/internal/importer"
	invoicedomain "github.com/smallbiznis/shelfwise/internal/invoice/domain"
	"github.com/smallbiznis/shelfwise/internal/locale"
	membershipdomain "github.com/smallbiznis/shelfwise/internal/membership/domain"
	obslogger "github.com/smallbiznis/shelfwise/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/shelfwise/internal/observability/metrics"
	obstracing "github.com/smallbiznis/shelfwise/internal/observability/tracing"
	stockdomain "github.com/smallbiznis/shelfwise/internal/stock/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain.
// httpMetrics may be nil.
func NewEngine(httpMetrics *obsmetrics.HTTPMetrics, negotiator *locale.Negotiator, cookies *locale.CookieManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(locale.Middleware(negotiator, cookies))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(httpMetrics *obsmetrics.HTTPMetrics, negotiator *locale.Negotiator, cookies *locale.CookieManager) *gin.Engine {
	return NewEngine(httpMetrics, negotiator, cookies)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine         *gin.Engine
	log            *zap.Logger
	catalogSvc     catalogdomain.Service
	stockSvc       stockdomain.Service
	membershipSvc  membershipdomain.Service
	circulationSvc circulationdomain.Service
	invoiceSvc     invoicedomain.Service
	auditSvc       auditdomain.Service
	importer       *importer.Importer
	settings       feedomain.SettingsProvider
	dispatcher     *events.Dispatcher
	locales        *locale.Negotiator
	cookies        *locale.CookieManager
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Log            *zap.Logger
	CatalogSvc     catalogdomain.Service
	StockSvc       stockdomain.Service
	MembershipSvc  membershipdomain.Service
	CirculationSvc circulationdomain.Service
	InvoiceSvc     invoicedomain.Service
	AuditSvc       auditdomain.Service
	Importer       *importer.Importer
	Settings       feedomain.SettingsProvider
	Dispatcher     *events.Dispatcher
	Locales        *locale.Negotiator
	Cookies        *locale.CookieManager
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		log:            p.Log.Named("http.server"),
		catalogSvc:     p.CatalogSvc,
		stockSvc:       p.StockSvc,
		membershipSvc:  p.MembershipSvc,
		circulationSvc: p.CirculationSvc,
		invoiceSvc:     p.InvoiceSvc,
		auditSvc:       p.AuditSvc,
		importer:       p.Importer,
		settings:       p.Settings,
		dispatcher:     p.Dispatcher,
		locales:        p.Locales,
		cookies:        p.Cookies,
	}

	svc.registerAPIRoutes()
	svc.registerLocaleRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/books", s.ListBooks)
	api.POST("/books", s.CreateBook)
	api.GET("/books/:id", s.GetBook)

	api.POST("/stock-adjustments", s.CreateStockAdjustment)
	api.GET("/stock-adjustments", s.ListStockAdjustments)

	api.GET("/membership-types", s.ListMembershipTypes)
	api.POST("/membership-types", s.CreateMembershipType)

	api.POST("/members", s.CreateMember)
	api.GET("/members/:id", s.GetMember)
	api.POST("/members/:id/membership", s.AssignMembership)

	api.POST("/transactions", s.BorrowBooks)
	api.GET("/transactions/:id", s.GetTransaction)
	api.PATCH("/transactions/:id", s.UpdateTransactionNotes)
	api.DELETE("/transactions/:id", s.DeleteTransaction)
	api.POST("/transactions/:id/return", s.ReturnBooks)
	api.POST("/transactions/:id/cancel", s.CancelTransaction)
	api.POST("/transactions/:id/archive", s.ArchiveTransaction)

	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoice)
	api.GET("/invoices/:id/pdf", s.RenderInvoicePDF)
	api.GET("/invoices/:id/receipt", s.RenderInvoiceReceipt)
	api.POST("/invoices/:id/payments", s.RecordPayment)
	api.POST("/invoices/:id/waive", s.WaiveInvoice)

	api.POST("/imports", s.ImportBooks)

	api.GET("/fees/settings", s.GetFeeSettings)

	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerLocaleRoutes() {
	s.engine.GET("/locale", s.GetLocale)
	s.engine.GET("/locale/:code", s.SetLocale)
	s.engine.POST("/locale", s.SetLocale)
}
