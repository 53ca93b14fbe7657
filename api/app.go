package api

import (
	"context"
	"fmt"
	"time"

	apimodels "github.com/SwiftFiat/NexaWallet-Backend/api/models"
	"github.com/SwiftFiat/NexaWallet-Backend/db"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/idempotency"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/repository"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/service"
	"github.com/SwiftFiat/NexaWallet-Backend/providers"
	"github.com/SwiftFiat/NexaWallet-Backend/providers/payscribe"
	activitylogs "github.com/SwiftFiat/NexaWallet-Backend/services/activity_logs"
	"github.com/SwiftFiat/NexaWallet-Backend/services/events"
	"github.com/SwiftFiat/NexaWallet-Backend/services/lock"
	"github.com/SwiftFiat/NexaWallet-Backend/services/monitoring/logging"
	"github.com/SwiftFiat/NexaWallet-Backend/services/monitoring/metrics"
	"github.com/SwiftFiat/NexaWallet-Backend/services/redis"
	"github.com/SwiftFiat/NexaWallet-Backend/services/security"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
)

const (
	planCacheTTL    = time.Hour
	outcomeCacheTTL = 10 * time.Minute
	redisLockTTL    = 30 * time.Second
)

// App is the fully wired service: the HTTP server plus the background jobs
// main schedules.
type App struct {
	Server          *Server
	Sweeper         *service.Sweeper
	ActivityCleanup *activitylogs.CleanupService
	Logger          *logging.Logger

	closers []func() error
}

// NewApp connects every backing service named in c.
func NewApp(ctx context.Context, c *utils.Config) (*App, error) {
	l := logging.NewLogger(c)
	clock := utils.RealClock{}
	app := &App{Logger: l}

	if err := apimodels.ConfigureIDs(c.SigningKey); err != nil {
		return nil, fmt.Errorf("configure ids: %w", err)
	}

	var (
		store    repository.Store
		activity activitylogs.Recorder
		health   func(context.Context) error
	)
	switch c.StoreDriver {
	case utils.StoreMemory:
		l.Warn("using the in-memory store, balances will not survive a restart")
		store = repository.NewMemoryStore(clock)
		activity = activitylogs.NewMemoryActivityLog()
	case utils.StorePostgres:
		dsn := utils.GetDBSource(c, c.DBName)
		if err := db.Migrate(c.MigrationsPath, dsn); err != nil {
			return nil, err
		}
		conn, err := db.Open(ctx, c.DBDriver, dsn)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, conn.Close)
		store = repository.NewPostgresStore(conn, clock)
		activity = activitylogs.NewActivityLog(conn)
		health = conn.DB.PingContext
	}

	var rs *redis.RedisService
	if c.RedisHost != "" {
		var err error
		rs, err = redis.NewRedisService(&redis.RedisConfig{
			Host:     c.RedisHost,
			Port:     c.RedisPort,
			Password: c.RedisPassword,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, rs.Close)
	}

	var locker lock.Locker = lock.NewMemoryLocker()
	if c.LockBackend == utils.LockRedis {
		locker = lock.NewRedisLocker(rs, redisLockTTL)
	}

	guard := idempotency.NewGuard(store, locker,
		idempotency.WithCache(security.NewCache(outcomeCacheTTL, 2*outcomeCacheTTL)),
		idempotency.WithClock(clock),
	)

	pc, err := payscribe.LoadConfig()
	if err != nil {
		app.Close()
		return nil, err
	}
	ps := payscribe.NewPayscribeProvider(pc, l)
	p := providers.NewProviderService()
	p.AddProvider(ps)

	var planCache service.PlanCache = service.NewMemoryPlanCache(security.NewCache(planCacheTTL, 2*planCacheTTL))
	if rs != nil {
		planCache = service.NewRedisPlanCache(rs, planCacheTTL)
	}

	var publisher events.Publisher
	if len(c.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(c.KafkaBrokers, c.KafkaTopic, l)
		app.closers = append(app.closers, kp.Close)
		publisher = kp
	}

	m := metrics.NewMetrics()
	engine := service.NewEngine(service.EngineParams{
		Store:    store,
		Guard:    guard,
		Provider: ps,
		Plans:    service.NewCachedPlanCatalog(ps, planCache),
		Events:   publisher,
		Metrics:  m,
		Logger:   l,
		Clock:    clock,
	})

	app.Sweeper = service.NewSweeper(service.SweeperParams{
		Engine:         engine,
		PendingTimeout: c.PendingTimeout,
		RecordTTL:      c.IdempotencyTTL,
	})
	app.ActivityCleanup = activitylogs.NewCleanupService(activity, activitylogs.DefaultRetention, clock, l)
	app.Server = NewServer(ServerParams{
		Config:     c,
		Logger:     l,
		Engine:     engine,
		Reconciler: service.NewReconciler(engine),
		Metrics:    m,
		Provider:   p,
		Activity:   activity,
		Clock:      clock,
		Health:     health,
	})

	l.WithField("config", c.Redact()).Info("application wired")
	return app, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}
