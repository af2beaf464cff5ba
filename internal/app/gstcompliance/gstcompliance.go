// Package gstcompliance собирает приложение: хранилище, кэш, брокер
// сообщений, клиент внешнего органа, бизнес-сервисы и HTTP-сервер.
package gstcompliance

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/gst-compliance/internal/cache"
	"github.com/magabrotheeeer/gst-compliance/internal/config"
	"github.com/magabrotheeeer/gst-compliance/internal/gstn"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/jwt"
	"github.com/magabrotheeeer/gst-compliance/internal/migrations"
	"github.com/magabrotheeeer/gst-compliance/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/gst-compliance/internal/services/auth"
	complianceservice "github.com/magabrotheeeer/gst-compliance/internal/services/compliance"
	"github.com/magabrotheeeer/gst-compliance/internal/storage/repository"
)

// App инкапсулирует запущенные зависимости приложения.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	broker *amqp.Connection
}

// New инициализирует все зависимости и настраивает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn)
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authorityClient := gstn.NewClient(cfg.GSTN.APIURL, cfg.GSTN.APIKey, cfg.GSTN.AuthorityTimeout)

	authService := authservice.NewAuthService(db, cacheRedis, jwtMaker, jwtMaker.TokenTTL(), logger)
	complianceService := complianceservice.NewComplianceService(
		db, authorityClient, publisher, cacheRedis, cfg.GSTN.AuthorityTimeout, logger)

	if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, jwtMaker, authService, complianceService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		broker: conn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.cache.Close()
		_ = a.broker.Close()
		_ = a.db.Close()
		return err
	}
}
