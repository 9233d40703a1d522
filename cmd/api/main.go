package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/api/dto"
	httptransport "github.com/spec-kit/campus-helpdesk/internal/api/http"
	"github.com/spec-kit/campus-helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/campus-helpdesk/internal/auth"
	"github.com/spec-kit/campus-helpdesk/internal/config"
	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/events"
	"github.com/spec-kit/campus-helpdesk/internal/observability"
	"github.com/spec-kit/campus-helpdesk/internal/persistence"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
	"github.com/spec-kit/campus-helpdesk/internal/repository/memory"
	"github.com/spec-kit/campus-helpdesk/internal/repository/remote"
	"github.com/spec-kit/campus-helpdesk/internal/service"
	"github.com/spec-kit/campus-helpdesk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// repositories is the set of stores the services run on.
type repositories struct {
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	departments repository.DepartmentRepository
	users       repository.UserRepository
	history     repository.TicketHistoryRepository
	checks      map[string]handlers.Pinger
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := observability.InitTelemetry(ctx, cfg.App, cfg.Telemetry)
	if err != nil {
		logger.Fatal("failed to init telemetry", zap.Error(err))
	}
	metrics := observability.NewMetrics()

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer repos.close()

	sessions := auth.NewMemorySessionStore()
	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	if redis != nil {
		defer redis.Close()
		sessions = auth.NewRedisSessionStore(redis.Client)
		repos.checks["redis"] = redis
	}

	nc, err := persistence.NewNats(cfg.Nats, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect nats", zap.Error(err))
	}
	dispatcher := events.NewInMemoryDispatcher()
	var auditSub *nats.Subscription
	if nc != nil {
		dispatcher = events.NewNatsBridge(dispatcher, nc, cfg.Nats.SubjectPrefix, logger)
		repos.checks["nats"] = persistence.NatsProbe{Conn: nc}
		auditSub, err = worker.StartEventAuditWorker(nc, cfg.Nats.SubjectPrefix, metrics, logger)
		if err != nil {
			logger.Fatal("failed to start event audit worker", zap.Error(err))
		}
	}

	departmentService := service.NewDepartmentService(repos.departments, logger, nil)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:            repos.tickets,
		MessageRepo:           repos.messages,
		HistoryRepo:           repos.history,
		Departments:           departmentService,
		Dispatcher:            dispatcher,
		Logger:                logger,
		Metrics:               metrics,
		AutoCreateDepartments: cfg.Departments.AutoCreate,
	})
	queryService := service.NewQueryService(service.QueryDependencies{
		TicketRepo: repos.tickets,
		Locale:     cfg.App.Locale,
		Logger:     logger,
		Metrics:    metrics,
	})
	analyticsService := service.NewAnalyticsService(repos.tickets, logger, metrics)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: repos.users,
		Sessions: sessions,
		Logger:   logger,
	})
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	if err := departmentService.Seed(ctx, cfg.Departments.Seed); err != nil {
		logger.Warn("department seeding failed", zap.Error(err))
	}
	if cfg.Store.SeedDemo {
		seedDemoAccounts(ctx, authService, cfg.Departments.Seed, logger)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	validator := dto.NewValidator()
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Store.Backend, repos.checks),
		Auth:           handlers.NewAuthHandler(authService, validator),
		Threads:        handlers.NewTicketsHandler(ticketService, queryService, analyticsService, validator),
		Departments:    handlers.NewDepartmentsHandler(departmentService, validator),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		Metrics:        metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if auditSub != nil {
		_ = auditSub.Unsubscribe()
	}
	persistence.DrainNats(nc, logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown", zap.Error(err))
	}
}

// openRepositories selects the ticket store. Accounts and history live
// alongside tickets for postgres and in memory otherwise.
func openRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repositories, error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &repositories{
			tickets:     repository.NewTicketRepository(pg.Pool),
			messages:    repository.NewTicketMessageRepository(pg.Pool),
			departments: repository.NewDepartmentRepository(pg.Pool),
			users:       repository.NewUserRepository(pg.Pool),
			history:     repository.NewTicketHistoryRepository(pg.Pool),
			checks:      map[string]handlers.Pinger{"postgres": pg},
			close:       pg.Close,
		}, nil
	case config.StoreRemote:
		client := remote.NewClient(cfg.Remote, logger)
		local := memory.New()
		logger.Info("using remote ticket store", zap.String("base_url", cfg.Remote.BaseURL))
		return &repositories{
			tickets:     client.Tickets(),
			messages:    client.Messages(),
			departments: client.Departments(),
			users:       local.Users(),
			history:     local.History(),
			checks:      map[string]handlers.Pinger{},
			close:       func() {},
		}, nil
	default:
		store := memory.New()
		return &repositories{
			tickets:     store.Tickets(),
			messages:    store.Messages(),
			departments: store.Departments(),
			users:       store.Users(),
			history:     store.History(),
			checks:      map[string]handlers.Pinger{},
			close:       func() {},
		}, nil
	}
}

// seedDemoAccounts provisions one account per role. All share the same
// password.
func seedDemoAccounts(ctx context.Context, authService *service.AuthService, departments []string, logger *zap.Logger) {
	const demoPassword = "password123"
	accounts := []service.AccountInput{
		{Username: "admin", FullName: "Helpdesk Manager", Role: domain.RoleManager},
		{Username: "student1", FullName: "Demo Student", Role: domain.RoleStudent},
		{Username: "leadership", FullName: "University Leadership", Role: domain.RoleLeadership},
	}
	if len(departments) > 0 {
		accounts = append(accounts, service.AccountInput{
			Username: "department", FullName: departments[0] + " Staff", Role: domain.RoleDepartment, Department: departments[0],
		})
	}
	for _, account := range accounts {
		account.Password = demoPassword
		if _, err := authService.EnsureAccount(ctx, account); err != nil {
			logger.Warn("demo account not seeded", zap.String("username", account.Username), zap.Error(err))
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
