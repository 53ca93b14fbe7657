package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/service"
	"github.com/SwiftFiat/NexaWallet-Backend/middleware"
	"github.com/SwiftFiat/NexaWallet-Backend/models"
	"github.com/SwiftFiat/NexaWallet-Backend/providers"
	activitylogs "github.com/SwiftFiat/NexaWallet-Backend/services/activity_logs"
	"github.com/SwiftFiat/NexaWallet-Backend/services/monitoring/logging"
	"github.com/SwiftFiat/NexaWallet-Backend/services/monitoring/metrics"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
	"github.com/gin-gonic/gin"
)

type Server struct {
	router     *gin.Engine
	config     *utils.Config
	logger     *logging.Logger
	tokens     *utils.JWTToken
	engine     *service.Engine
	reconciler *service.Reconciler
	metrics    *metrics.Metrics
	provider   *providers.ProviderService
	activity   activitylogs.Recorder
	activityMW *middleware.ActivityLogMiddleware
	health     func(context.Context) error
	httpServer *http.Server
}

type ServerParams struct {
	Config     *utils.Config
	Logger     *logging.Logger
	Engine     *service.Engine
	Reconciler *service.Reconciler
	Metrics    *metrics.Metrics
	Provider   *providers.ProviderService
	Activity   activitylogs.Recorder
	Clock      utils.Clock
	// Health reports whether backing stores are reachable. Optional.
	Health func(context.Context) error
}

func NewServer(p ServerParams) *Server {
	if p.Logger == nil {
		p.Logger = logging.NewNopLogger()
	}
	if p.Provider == nil {
		p.Provider = providers.NewProviderService()
	}
	if p.Activity == nil {
		p.Activity = activitylogs.NewMemoryActivityLog()
	}
	if p.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	registerValidators()

	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(CORSMiddleware())
	g.Use(p.Logger.LoggingMiddleWare())

	s := &Server{
		router:     g,
		config:     p.Config,
		logger:     p.Logger,
		tokens:     utils.NewJWTToken(p.Config),
		engine:     p.Engine,
		reconciler: p.Reconciler,
		metrics:    p.Metrics,
		provider:   p.Provider,
		activity:   p.Activity,
		activityMW: middleware.NewActivityLogMiddleware(p.Activity, p.Logger, p.Clock),
		health:     p.Health,
	}
	g.Use(s.activityMW.ActivityLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	dr := models.SuccessResponse{
		Status:  "success",
		Message: "Welcome to NexaWallet!",
		Version: utils.REVISION,
	}

	s.router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dr)
	})
	s.router.GET("/healthz", s.healthz)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	/// Register Object Routers Below
	Wallet{}.router(s)
	Transactions{}.router(s)
	VAS{}.router(s)
	Webhooks{}.router(s)
	Admin{}.router(s)
	ActivityLog{}.router(s)
}

func (s *Server) healthz(ctx *gin.Context) {
	status := gin.H{"providers": s.provider.Names()}
	if s.health != nil {
		c, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(c); err != nil {
			s.logger.WithError(err).Warn("health check failed")
			ctx.JSON(http.StatusServiceUnavailable, models.NewError("store unreachable"))
			return
		}
	}
	ctx.JSON(http.StatusOK, models.NewSuccess("ok", status))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%v", s.config.ServerPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.WithField("port", s.config.ServerPort).Info("server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and pending activity log writes.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.activityMW.Wait()
	return err
}
