package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bounty_hunter/internal/api"
	"bounty_hunter/internal/repository"
	"bounty_hunter/internal/service"
	"bounty_hunter/pkg/auth"
	"bounty_hunter/pkg/logger"
	"bounty_hunter/pkg/oauth"
	"bounty_hunter/pkg/secret"
	"bounty_hunter/pkg/telegram"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var (
	cfgFile        string
	migrateOnStart bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bounty-hunter",
		Short: "Bounty Hunter referral and social linking backend",
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Telegram link listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Apply pending migrations before serving")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*Config, *repository.Repository, error) {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var box *secret.Box
	if cfg.EncryptionKey != "" {
		if box, err = secret.NewBox(cfg.EncryptionKey); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize token encryption: %w", err)
		}
	} else {
		logger.Logger().Warn("encryptionKey is empty, oauth tokens are stored unencrypted")
	}

	repo, err := repository.New(cfg.Database, box)
	if err != nil {
		return nil, nil, err
	}
	return cfg, repo, nil
}

func runMigrate(ctx context.Context) error {
	_, repo, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer repo.Close()

	applied, err := repo.Migrate(ctx)
	if err != nil {
		return err
	}
	logger.Logger().Info("migrations applied", zap.Int("count", applied))
	return nil
}

func runServer(ctx context.Context) error {
	cfg, repo, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer repo.Close()
	zapLogger := logger.Logger()

	if err := cfg.validate(); err != nil {
		return err
	}

	if migrateOnStart {
		applied, err := repo.Migrate(ctx)
		if err != nil {
			return err
		}
		zapLogger.Info("migrations applied", zap.Int("count", applied))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := service.NewHub(zapLogger)
	defer hub.Close()

	bridge := telegram.NewBridge(cfg.Telegram.LinkTimeout)
	telegramAuth := auth.NewTelegramAuth(cfg.Telegram.BotToken, cfg.Telegram.Debug)

	var botUsername string
	if cfg.Telegram.BotToken != "" {
		bot, err := service.NewTelegramBotService(service.BotConfig{
			BotToken: cfg.Telegram.BotToken,
			Debug:    cfg.Telegram.Debug,
		}, bridge, zapLogger)
		if err != nil {
			return err
		}
		botUsername = bot.Username()
		go bot.StartLinkListener(ctx)
	} else {
		zapLogger.Warn("telegram.botToken is empty, telegram linking is disabled")
	}

	sessions, err := auth.NewSessionIssuer(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL)
	if err != nil {
		return err
	}

	flow := oauth.NewFlow(oauth.XConfig(cfg.XOAuth), oauth.NewMemorySessionStore(oauth.DefaultSessionTTL))

	identityService := service.NewIdentityService(repo, repo, cfg.Referral.PublicURL, zapLogger)
	socialService := service.NewSocialService(repo, telegramAuth, bridge, botUsername, hub, zapLogger)
	xConnectService := service.NewXConnectService(flow, socialService, repo, hub, zapLogger)
	taskService := service.NewTaskService(repo, repo, socialService, hub, zapLogger)
	leaderboardService := service.NewLeaderboardService(repo, zapLogger)

	router := api.NewRouter(api.RouterConfig{
		PublicURL:      cfg.Referral.PublicURL,
		FrontendURL:    cfg.Referral.FrontendURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SecureCookies:  cfg.Server.SecureCookies,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
	}, api.Dependencies{
		Service:  service.NewService(identityService, socialService, xConnectService, taskService, leaderboardService),
		Hub:      hub,
		Wallets:  auth.NewWalletVerifier(),
		Sessions: sessions,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(ctx, httpServer, zapLogger)
}

// serve runs srv until ctx is done or the listener fails.
func serve(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", srv.Addr))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped", zap.Error(err))
		}
		return err
	}
}
