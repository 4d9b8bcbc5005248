// Package main runs the chapter events HTTP server with the live attendance feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/acm-chapter/events-backend/config"
	"github.com/acm-chapter/events-backend/internal/auth"
	"github.com/acm-chapter/events-backend/internal/events"
	"github.com/acm-chapter/events-backend/internal/middleware"
	"github.com/acm-chapter/events-backend/internal/models"
	"github.com/acm-chapter/events-backend/internal/ratelimit"
	"github.com/acm-chapter/events-backend/internal/realtime"
	"github.com/acm-chapter/events-backend/internal/registrations"
	"github.com/acm-chapter/events-backend/internal/scanlog"
	"github.com/acm-chapter/events-backend/internal/tickets"
	"github.com/acm-chapter/events-backend/internal/worker"
	"github.com/acm-chapter/events-backend/pkg/database"
	"github.com/acm-chapter/events-backend/pkg/queue"
	"github.com/acm-chapter/events-backend/pkg/redis"
	"github.com/acm-chapter/events-backend/pkg/response"
	"github.com/acm-chapter/events-backend/pkg/storage"
)

// app is everything the router needs.
type app struct {
	cfg           *config.Config
	logger        *zap.Logger
	jwt           *auth.JWTService
	users         auth.Store
	events        events.Store
	registrations registrations.Store
	scans         scanlog.Store
	limiter       ratelimit.Limiter
	hub           *realtime.Hub
	renderer      *tickets.Renderer
	ticketQueue   registrations.TicketQueue
	ticketLinks   registrations.TicketLinker
	health        func(ctx context.Context) error
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	a := &app{
		cfg:      cfg,
		logger:   logger,
		jwt:      auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours),
		renderer: tickets.NewRenderer(cfg.Tickets.Organization),
	}

	var pool *pgxpool.Pool
	if cfg.Storage.Driver == config.StoragePostgres {
		pool, err = database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		a.users = auth.NewRepository(pool)
		a.events = events.NewRepository(pool)
		a.registrations = registrations.NewRepository(pool)
		a.scans = scanlog.NewRepository(pool)
	} else {
		logger.Warn("using in-memory storage; data is lost on restart")
		a.users = auth.NewMemoryStore()
		a.events = events.NewMemoryStore()
		a.registrations = registrations.NewMemoryStore()
		a.scans = scanlog.NewMemoryStore()
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		a.hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		a.hub = realtime.NewHub(logger, nil, nil)
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if cfg.RateLimit.Backend == config.RateLimitRedis {
		a.limiter = ratelimit.NewRedis(rdb.Client, cfg.RateLimit.Window, cfg.RateLimit.Max)
	} else {
		mem := ratelimit.NewMemory(cfg.RateLimit.Window, cfg.RateLimit.Max)
		go mem.RunSweeper(bgCtx)
		a.limiter = mem
	}

	a.health = func(ctx context.Context) error {
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
		}
		if rdb != nil {
			return rdb.Healthy(ctx)
		}
		return nil
	}

	if err := auth.EnsureAdmin(ctx, a.users, cfg.Admin.Email, cfg.Admin.Password, logger); err != nil {
		logger.Fatal("bootstrap admin", zap.Error(err))
	}

	// Ticket archive: enqueue on registration, run the archiver in-process.
	if cfg.Tickets.Archive {
		s3Client, err := storage.NewS3(ctx, s3Config(cfg), logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		jobQueue := queue.NewQueue(rdb.Client, logger)
		a.ticketQueue = jobQueue
		a.ticketLinks = s3Client
		archiver := worker.NewTicketArchiver(a.registrations, a.renderer, s3Client, jobQueue, logger)
		go archiver.Run(bgCtx)
		logger.Info("ticket archive worker started", zap.String("bucket", cfg.AWS.TicketsBucket))
	}

	router := newRouter(a)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	bgCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newRouter(a *app) *gin.Engine {
	authHandler := auth.NewHandler(a.users, a.jwt, a.logger)
	eventHandler := events.NewHandler(a.events, a.logger)
	ticketHandler := tickets.NewHandler(a.renderer, a.logger)
	scanHandler := scanlog.NewHandler(a.scans, a.logger)

	regHandler := registrations.NewHandler(a.registrations, a.limiter, a.logger)
	regHandler.SetScanRecorder(a.scans)
	regHandler.SetPublisher(a.hub)
	if a.ticketQueue != nil {
		regHandler.SetTicketQueue(a.ticketQueue)
	}
	if a.ticketLinks != nil {
		regHandler.SetTicketLinker(a.ticketLinks)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(a.cfg.Server.TrustedProxies); err != nil {
		a.logger.Warn("invalid trusted proxies", zap.Error(err))
	}
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(a.logger))

	router.GET("/health", func(c *gin.Context) {
		if a.health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := a.health(ctx); err != nil {
				response.ServiceUnavailable(c, "dependency unavailable")
				return
			}
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Public: events, registration, attendance and documents
	router.GET("/events", eventHandler.List)
	router.GET("/events/:id", eventHandler.Get)
	router.POST("/register", regHandler.Register)
	router.POST("/verify-attendance", regHandler.VerifyAttendance)
	router.GET("/verify-attendance", regHandler.AttendanceStatus)
	router.POST("/generate-pdf", ticketHandler.RegistrationPDF)
	router.POST("/generate-ticket-pdf", ticketHandler.TicketPDF)
	router.POST("/generate-ticket-image", ticketHandler.TicketImage)

	router.POST("/auth/login", authHandler.Login)

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws/attendance", realtime.ServeWs(a.hub, realtime.NewUpgrader(a.cfg.Server.CORSAllowedOrigins), a.jwt))

	// Staff API (JWT required)
	staff := router.Group("")
	staff.Use(middleware.JWT(a.jwt))
	{
		admin := middleware.RequireRole(models.RoleAdmin)
		anyStaff := middleware.RequireRole(models.RoleAdmin, models.RoleVolunteer)

		staff.POST("/auth/users", admin, authHandler.CreateUser)
		staff.GET("/auth/users", admin, authHandler.List)

		staff.POST("/events", admin, eventHandler.Create)
		staff.PATCH("/events/:id", admin, eventHandler.Update)
		staff.DELETE("/events/:id", admin, eventHandler.Delete)

		staff.GET("/admin/registrations", anyStaff, regHandler.ListByEvent)
		staff.GET("/admin/registrations/stats", anyStaff, regHandler.Stats)
		staff.GET("/admin/registrations/:id", anyStaff, regHandler.Get)
		staff.GET("/admin/registrations/:id/ticket", admin, regHandler.TicketLink)
		staff.GET("/admin/scans", anyStaff, scanHandler.List)
	}

	return router
}

func s3Config(cfg *config.Config) storage.S3Config {
	return storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		TicketsBucket:        cfg.AWS.TicketsBucket,
		Endpoint:             cfg.AWS.Endpoint,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
