package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/announa/blogpost/configs"
	"github.com/announa/blogpost/internal/adapters"
	"github.com/announa/blogpost/internal/ports"
	authservice "github.com/announa/blogpost/internal/service/auth-service"
	postservice "github.com/announa/blogpost/internal/service/post-service"
	productservice "github.com/announa/blogpost/internal/service/product-service"
	userservice "github.com/announa/blogpost/internal/service/user-service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readHeaderTimeout = 5 * time.Second

func Run() error {
	cfg, err := configs.GetConfig(os.Args[1:])
	if err != nil {
		return fmt.Errorf("can't read the config: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	configs.LogConfig(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorages(ctx, cfg, logger)
	if err != nil {
		logger.Error("can't open storage", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		return err
	}
	defer func() {
		if err := store.close(context.Background()); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()

	deny, err := newDenylist(ctx, cfg, logger)
	if err != nil {
		logger.Error("can't connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		return err
	}
	defer func() {
		if err := deny.close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}()

	jwt := adapters.NewProviderJWT(cfg, logger)
	authService, err := authservice.NewAuthService(
		store.users, store.tokens, jwt, deny.denylist, newMailer(cfg, logger), logger,
		authservice.Options{
			RefreshTokenExp: cfg.Auth.RefreshTokenExp,
			ResetTokenExp:   cfg.Auth.ResetTokenExp,
			FrontendURL:     cfg.Server.FrontendURL,
		},
	)
	if err != nil {
		logger.Error("can't create AuthService", zap.Error(err))
		return err
	}
	userService := userservice.NewUserService(store.users, store.tokens, store.posts, logger)
	services := adapters.Services{
		Auth:     authService,
		Users:    userService,
		Posts:    postservice.NewPostService(store.posts, logger),
		Products: productservice.NewProductService(store.products, logger),
	}

	if cfg.Auth.AdminEmail != "" {
		if err := userService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Error("can't ensure admin account", zap.Error(err))
			return err
		}
	}

	gin.SetMode(cfg.Server.Mode)
	limiter := adapters.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)
	restAPI := adapters.NewRestAPI(cfg, logger, jwt, deny.denylist, store.pinger, limiter, services, gin.New())
	if err := restAPI.Serve(); err != nil {
		logger.Error("can't set up routes", zap.Error(err))
		return err
	}

	if cfg.Auth.CleanupInterval > 0 {
		j := &janitor{
			interval: cfg.Auth.CleanupInterval,
			auth:     authService,
			denylist: deny.memory,
			limiter:  limiter,
			logger:   logger,
		}
		go j.run(ctx)
	}

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           restAPI,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return serve(ctx, server, cfg.Server.ShutdownTimeout, logger)
}

func serve(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg *configs.Config) (*zap.Logger, error) {
	if cfg.Log.Development {
		return zap.NewDevelopment()
	}
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	return zapCfg.Build()
}

type denylists struct {
	denylist ports.Denylist
	// memory is swept by the janitor; nil when redis is used
	memory *adapters.MemoryDenylist
	close  func() error
}

func newDenylist(ctx context.Context, cfg *configs.Config, logger *zap.Logger) (*denylists, error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("redis is not configured, using in-memory access token deny-list")
		memory := adapters.NewMemoryDenylist()
		return &denylists{denylist: memory, memory: memory, close: func() error { return nil }}, nil
	}
	client := adapters.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &denylists{denylist: adapters.NewRedisDenylist(client, logger), close: client.Close}, nil
}

func newMailer(cfg *configs.Config, logger *zap.Logger) ports.Mailer {
	if cfg.Mail.SendgridAPIKey == "" {
		logger.Warn("sendgrid is not configured, password reset links will be logged")
		return adapters.NewLogMailer(logger)
	}
	return adapters.NewSendgridMailer(
		cfg.Mail.SendgridAPIKey, cfg.Mail.SendgridHost,
		cfg.Mail.FromEmail, cfg.Mail.FromName,
		cfg.Mail.MaxRetries, cfg.Mail.RetryDelay, logger,
	)
}
