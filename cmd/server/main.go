package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leadwithheart/coach/internal"
	"github.com/leadwithheart/coach/internal/ai"
	"github.com/leadwithheart/coach/internal/ai/mock"
	"github.com/leadwithheart/coach/internal/ai/openai"
	"github.com/leadwithheart/coach/internal/auth"
	"github.com/leadwithheart/coach/internal/billing"
	"github.com/leadwithheart/coach/internal/email"
	"github.com/leadwithheart/coach/internal/handler"
	"github.com/leadwithheart/coach/internal/jobs"
	"github.com/leadwithheart/coach/internal/metrics"
	"github.com/leadwithheart/coach/internal/middleware"
	"github.com/leadwithheart/coach/internal/repository"
	"github.com/leadwithheart/coach/internal/service"
	"github.com/leadwithheart/coach/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	queries := repository.New(db)

	// JWT token issuer
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry)

	// Email delivery (noop when SMTP is not configured)
	var mailer email.EmailService = email.NoopEmailService{}
	if cfg.SMTPHost != "" {
		smtpMailer, err := email.NewSMTPEmailService(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, cfg.BaseURL, logger)
		if err != nil {
			return fmt.Errorf("email initialization failed: %w", err)
		}
		mailer = smtpMailer
		logger.Info("SMTP email enabled", "host", cfg.SMTPHost)
	} else {
		logger.Warn("SMTP not configured, email delivery disabled")
	}

	// AI provider
	var provider ai.Provider
	switch cfg.AIProvider {
	case "openai":
		provider, err = openai.New(openai.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			ProviderConfig: ai.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
		if err != nil {
			return fmt.Errorf("AI provider initialization failed: %w", err)
		}
		logger.Info("AI provider ready", "provider", "openai", "model", cfg.OpenAIModel)
	default:
		provider = mock.New(logger)
		logger.Warn("Using mock AI provider")
	}

	// Stripe billing (nil when unconfigured; billing handlers degrade to stubs)
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			ProMonthlyPriceID: cfg.StripeProMonthlyPriceID,
			ProYearlyPriceID:  cfg.StripeProYearlyPriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe not configured, billing disabled")
	}

	// Initialize services
	userService := service.NewUserService(db, queries, tokens, mailer, logger)
	usageService := service.NewUsageService(queries, logger)
	subscriptionService := service.NewSubscriptionService(queries, logger)
	coachService := service.NewCoachService(provider, usageService, queries, service.Prompts{
		Coaching: openai.CoachingSystemPrompt,
		Email:    openai.EmailSystemPrompt,
		Analysis: openai.AnalysisSystemPrompt,
	}, logger)

	// Background worker for queued jobs (welcome emails)
	jobWorker, err := worker.New(db, queries, worker.DefaultConfig(), logger)
	if err != nil {
		return fmt.Errorf("worker initialization failed: %w", err)
	}
	jobWorker.Register(jobs.NewSendWelcomeEmailHandler(queries, mailer, logger))
	jobWorker.Start(ctx)
	defer jobWorker.Stop()

	// Initialize middleware
	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(tokens, queries, logger)
	corsMw := middleware.NewCORSMiddleware(cfg.CORSOrigin)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	authLimits := middleware.NewAuthRateLimiter(logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)
	requireAdmin := middleware.Stack(authMw.WithUser, authMw.RequireUser, authMw.RequireAdmin)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, logger)
	usageHandler := handler.NewUsageHandler(usageService, subscriptionService, logger)
	billingHandler := handler.NewBillingHandler(billingService, subscriptionService, cfg.BaseURL, logger)
	webhookHandler := handler.NewWebhookHandler(billingService, subscriptionService, logger)
	aiHandler := handler.NewAIHandler(coachService, logger)
	coachingHandler := handler.NewCoachingHandler(queries, logger)
	emailHandler := handler.NewEmailHandler(queries, logger)
	practiceHandler := handler.NewPracticeHandler(queries, logger)
	tipsHandler := handler.NewTipsHandler(queries, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus metrics (basic auth)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	authHandler.RegisterRoutes(mux, authLimits.LimitRegister, authLimits.LimitLogin, authLimits.LimitPasswordReset, requireUser)
	usageHandler.RegisterRoutes(mux, requireUser, requireAdmin)
	billingHandler.RegisterRoutes(mux, requireUser)
	webhookHandler.RegisterRoutes(mux)
	aiHandler.RegisterRoutes(mux, requireUser)
	coachingHandler.RegisterRoutes(mux, requireUser)
	emailHandler.RegisterRoutes(mux, requireUser)
	practiceHandler.RegisterRoutes(mux, requireUser)
	tipsHandler.RegisterRoutes(mux)

	// Outer middleware chain: CORS first so preflights short-circuit,
	// then security headers, request logging, and metrics.
	root := middleware.Stack(
		corsMw.Handler,
		securityMw.Handler,
		loggingMw.Handler,
		metrics.Middleware,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
