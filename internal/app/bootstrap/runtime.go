package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/Axees-0/axeesBE-sub017/internal/adapters/cache"
	eventadapter "github.com/Axees-0/axeesBE-sub017/internal/adapters/events"
	grpcadapter "github.com/Axees-0/axeesBE-sub017/internal/adapters/grpc"
	httpadapter "github.com/Axees-0/axeesBE-sub017/internal/adapters/http"
	"github.com/Axees-0/axeesBE-sub017/internal/adapters/postgres"
	scheduleradapter "github.com/Axees-0/axeesBE-sub017/internal/adapters/scheduler"
	"github.com/Axees-0/axeesBE-sub017/internal/application"
	"github.com/Axees-0/axeesBE-sub017/internal/domain"
	"github.com/Axees-0/axeesBE-sub017/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	dispatcher *eventadapter.Dispatcher
	scheduler  *scheduleradapter.Scheduler
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("bootstrapping escrow release engine", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	repos := postgres.NewRepositories(db)
	runHistory := cacheadapter.NewRedisRunHistoryStore(redisClient, cfg.RunHistoryLen)
	approvalNotices := cacheadapter.NewRedisApprovalNoticeStore(redisClient)

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:         cfg.ServiceID,
			Policies:            cfg.Policies,
			WorkerConcurrency:   cfg.WorkerConcurrency,
			ScanBatchSize:       cfg.ScanBatchSize,
			StoreTimeout:        cfg.StoreTimeout,
			ErrorAlertThreshold: cfg.ErrorAlertThreshold,
			ApprovalNoticeTTL:   cfg.ApprovalNoticeTTL,
		},
		Logger:          logger,
		Candidates:      repos.Candidates,
		Earnings:        repos.Earnings,
		Deals:           repos.Deals,
		Milestones:      repos.Milestones,
		Outbox:          repos.Outbox,
		RunHistory:      runHistory,
		ApprovalNotices: approvalNotices,
	})

	ready := func() error {
		if err := sqlDB.Ping(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}

	handler := httpadapter.NewHandler(svc, logger, ready)
	router := httpadapter.NewRouter(handler, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewReleaseInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	publisher, dlq, closePublisher, err := buildPublishers(cfg, logger)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		_ = lis.Close()
		return nil, err
	}

	dispatcher := eventadapter.NewDispatcher(
		logger,
		repos.Outbox,
		publisher,
		dlq,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)

	sched := scheduleradapter.New(logger, svc, cfg.MilestoneInterval, cfg.ComprehensiveInterval, cfg.RunOnStart)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		dispatcher: dispatcher,
		scheduler:  sched,
		cleanupFn: func(ctx context.Context) {
			closePublisher()
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func buildPublishers(cfg Config, logger *slog.Logger) (ports.EventPublisher, ports.DLQPublisher, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("no kafka brokers configured, events go to the log stream only")
		return eventadapter.NewLoggingPublisher(logger), eventadapter.NewLoggingDLQPublisher(logger), func() {}, nil
	}
	topicByEvent := map[string]string{
		domain.EventEarningReleased:         cfg.KafkaDomainTopic,
		domain.EventDealCompleted:           cfg.KafkaDomainTopic,
		domain.EventReleaseApprovalRequired: cfg.KafkaOpsTopic,
		domain.EventReleaseRunAlert:         cfg.KafkaOpsTopic,
		domain.EventReleaseRunCompleted:     cfg.KafkaStatsTopic,
	}
	kafkaPub, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, topicByEvent, cfg.KafkaDomainTopic, cfg.KafkaDLQTopic)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init kafka publisher: %w", err)
	}
	return kafkaPub, kafkaPub, func() { _ = kafkaPub.Close() }, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker drives the scheduler and the outbox dispatcher in one process.
// Either loop failing takes the whole worker down so the orchestrator restarts it.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("release scheduler started")
		return r.scheduler.Run(gctx)
	})
	g.Go(func() error {
		r.logger.Info("outbox dispatcher started")
		return r.dispatcher.Run(gctx)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
