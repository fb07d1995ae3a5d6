package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ce_platform/internal/auth"
	"ce_platform/internal/certificates"
	"ce_platform/internal/config"
	"ce_platform/internal/http_server/handlers/bulk_send_certificates"
	"ce_platform/internal/http_server/handlers/create_client"
	"ce_platform/internal/http_server/handlers/create_course"
	"ce_platform/internal/http_server/handlers/create_lead"
	"ce_platform/internal/http_server/handlers/download_certificate"
	"ce_platform/internal/http_server/handlers/email_test_delivery"
	"ce_platform/internal/http_server/handlers/enroll"
	"ce_platform/internal/http_server/handlers/external_enroll"
	"ce_platform/internal/http_server/handlers/forgot_password"
	"ce_platform/internal/http_server/handlers/issue_certificate"
	"ce_platform/internal/http_server/handlers/list_certificates"
	"ce_platform/internal/http_server/handlers/list_clients"
	"ce_platform/internal/http_server/handlers/list_communications"
	"ce_platform/internal/http_server/handlers/list_courses"
	"ce_platform/internal/http_server/handlers/list_enrollments"
	"ce_platform/internal/http_server/handlers/login"
	"ce_platform/internal/http_server/handlers/logout"
	"ce_platform/internal/http_server/handlers/magic_link"
	"ce_platform/internal/http_server/handlers/magic_login"
	"ce_platform/internal/http_server/handlers/refresh"
	"ce_platform/internal/http_server/handlers/register"
	"ce_platform/internal/http_server/handlers/reissue_certificate"
	"ce_platform/internal/http_server/handlers/reset_password"
	"ce_platform/internal/http_server/handlers/send_certificate"
	"ce_platform/internal/http_server/handlers/update_course"
	"ce_platform/internal/middleware/authn"
	rateLimit "ce_platform/internal/middleware/ratelimit"
	"ce_platform/internal/notify"
	"ce_platform/internal/notify/mailgun"
	"ce_platform/internal/notify/smtp"
	"ce_platform/internal/rabbitmq"
	"ce_platform/internal/storage/postgres"
	redisStorage "ce_platform/internal/storage/redis"
	"ce_platform/internal/tokens"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting ce platform", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	// The redeem guard is optional; the service degrades to plain
	// database consumption when redis is down.
	var guard tokens.RedeemGuard
	redisRepo, err := redisStorage.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn("redis unavailable, redeem guard disabled", slog.String("err", err.Error()))
	} else {
		defer redisRepo.Close()
		guard = redisRepo
	}

	transport := mailgun.New(
		cfg.Mail.Mailgun.APIKey,
		cfg.Mail.Mailgun.Domain,
		cfg.Mail.Mailgun.BaseURL,
		cfg.Mail.Mailgun.Timeout,
	)

	var fallback notify.Transport
	if cfg.Mail.SMTP.Host != "" {
		fallback = &smtp.Mailer{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
		}
	}

	dispatcher := notify.New(log, transport, fallback, storage, msgBroker, cfg.Mail.FromAddress)

	authService := auth.New(
		log, storage, storage,
		cfg.Tokens.JWTSecret,
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.RefreshTokenTTL,
	)

	tokenService := tokens.New(
		log, storage, storage, dispatcher, authService, guard,
		cfg.PublicURL,
		cfg.Tokens.AuthTokenTTL,
		cfg.Branding,
	)

	certService := certificates.New(log, storage, dispatcher, cfg.Branding)

	router := setupRouter(log, storage, authService, tokenService, certService, dispatcher, cfg.Tokens.JWTSecret)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	storage *postgres.PostgresRepo,
	authService *auth.Auth,
	tokenService *tokens.Service,
	certService *certificates.Service,
	dispatcher *notify.Dispatcher,
	jwtSecret string,
) *chi.Mux {
	validate := validator.New()

	requireUser := authn.Require(jwtSecret)
	requireAdmin := authn.RequireAdmin(jwtSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.With(rateLimit.Register()).Post("/register", register.New(log, validate, authService))
		r.With(rateLimit.Login()).Post("/login", login.New(log, validate, authService))
		r.With(rateLimit.Refresh()).Post("/refresh", refresh.New(log, validate, authService))
		r.With(rateLimit.Logout()).Post("/logout", logout.New(log, validate, authService))

		r.With(rateLimit.IssueToken()).Post("/forgot-password", forgotPassword.New(log, validate, tokenService))
		r.With(rateLimit.IssueToken()).Post("/magic-link", magicLink.New(log, validate, tokenService))
		r.With(rateLimit.RedeemToken()).Post("/reset-password", resetPassword.New(log, validate, tokenService))
		r.With(rateLimit.RedeemToken()).Post("/magic-login", magicLogin.New(log, validate, tokenService))
	})

	r.Route("/courses", func(r chi.Router) {
		r.Get("/", listCourses.New(log, storage))
		r.With(requireAdmin).Post("/", createCourse.New(log, validate, storage))
		r.With(requireAdmin).Put("/{id}", updateCourse.New(log, validate, storage))
		r.With(requireUser).Post("/{id}/enroll", enroll.New(log, validate, storage))
		r.With(requireAdmin).Get("/{id}/enrollments", listEnrollments.New(log, storage))
		r.With(requireAdmin).Post("/{id}/external-enrollments", externalEnroll.New(log, validate, storage))
	})

	r.Route("/certificates", func(r chi.Router) {
		r.Use(requireAdmin)

		r.Get("/", listCertificates.New(log, certService))
		r.Post("/", issueCertificate.New(log, validate, certService))
		r.Post("/bulk-send", bulkSendCertificates.New(log, validate, certService))
		r.Post("/{id}/send", sendCertificate.New(log, certService))
		r.Post("/{id}/reissue", reissueCertificate.New(log, certService))
		r.Get("/{id}/pdf", downloadCertificate.New(log, certService))
	})

	r.Route("/clients", func(r chi.Router) {
		r.Use(requireAdmin)

		r.Get("/", listClients.New(log, storage))
		r.Post("/", createClient.New(log, validate, storage))
	})

	r.Post("/leads", createLead.New(log, validate, storage))
	r.With(requireAdmin).Get("/communications", listCommunications.New(log, storage))

	r.With(requireAdmin, rateLimit.EmailTest()).Post("/admin/email-test", emailTestDelivery.New(log, validate, dispatcher))

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
