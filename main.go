package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"quicklearner/config"
	"quicklearner/handlers"
	"quicklearner/logger"
	"quicklearner/middleware"
	"quicklearner/models"
	"quicklearner/observability"
	"quicklearner/routes"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited with error", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitOTel(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}

	// Initialize Redis; without it used email tokens are tracked in memory.
	redisClient := config.InitRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		log.Warn("Redis disabled, email tokens are tracked in process memory")
	}

	mailer, err := services.NewMailer(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Initialize services
	hub := services.NewHub(log)
	tokens := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.EmailTokenTTL, services.NewTokenStore(redisClient), log)
	guard := services.NewOwnershipGuard(db, log)
	cascade := services.NewCascader(log)

	authService := services.NewAuthService(db, tokens, cfg.Auth.GoogleClientID, nil, log)
	emailService := services.NewEmailService(db, tokens, mailer, cfg.FrontendURL(), log)
	userService := services.NewUserService(db, tokens, cascade, hub, log)
	quizTypeService := services.NewQuizTypeService(db, cascade, log)
	questionService := services.NewQuestionService(db, guard, cascade, log)
	quizService := services.NewQuizService(db, guard, cascade, hub, log)
	takeQuizService := services.NewTakeQuizService(db, guard, hub, log)
	answerService := services.NewAnswerService(db, guard, log)

	// Initialize handlers
	h := &routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService, log),
		Email:        handlers.NewEmailHandler(emailService, log),
		User:         handlers.NewUserHandler(userService, log),
		QuizType:     handlers.NewQuizTypeHandler(quizTypeService, log),
		Question:     handlers.NewQuestionHandler(questionService, log),
		Quiz:         handlers.NewQuizHandler(quizService, log),
		TakeQuiz:     handlers.NewTakeQuizHandler(takeQuizService, log),
		Answer:       handlers.NewAnswerHandler(answerService, log),
		Notification: handlers.NewNotificationHandler(hub, tokens, cfg.CORSOrigins, log),
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	routes.SetupRoutes(router, h, middleware.NewAuthMiddleware(log, tokens), cfg.APIPrefix)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		log.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	if sqlDB, dbErr := db.DB(); dbErr == nil {
		_ = sqlDB.Close()
	}
	return err
}
