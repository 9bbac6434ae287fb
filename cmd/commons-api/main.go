package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openfellowship/commons/backend/internal/auth"
	"github.com/openfellowship/commons/backend/internal/config"
	"github.com/openfellowship/commons/backend/internal/database"
	"github.com/openfellowship/commons/backend/internal/forum"
	"github.com/openfellowship/commons/backend/internal/geo"
	"github.com/openfellowship/commons/backend/internal/groups"
	"github.com/openfellowship/commons/backend/internal/ident"
	"github.com/openfellowship/commons/backend/internal/logging"
	"github.com/openfellowship/commons/backend/internal/messaging"
	"github.com/openfellowship/commons/backend/internal/resources"
	"github.com/openfellowship/commons/backend/internal/review"
	"github.com/openfellowship/commons/backend/internal/server"
	"github.com/openfellowship/commons/backend/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "commons-api",
		Short: "Community platform backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Duration("token-ttl", defaults.GetDuration("token.ttl"), "Backend token TTL")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Backend signing secret (overrides env)")
	cmd.PersistentFlags().String("telegram-bot-token", "", "Telegram bot token for login widget verification")
	cmd.PersistentFlags().String("redis-url", defaults.GetString("redis.url"), "Redis URL for the map cache (optional)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "token.ttl", "token-ttl")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "telegram.bot_token", "telegram-bot-token")
	bindFlag(cmd, "redis.url", "redis-url")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger("commons-api", appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	idProvider := ident.NewUUIDProvider()

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        appConfig.TokenIssuer,
		Audience:      "commons-api",
		TokenTTL:      appConfig.TokenTTL,
	})

	telegramVerifier := auth.NewTelegramVerifier(auth.TelegramVerifierConfig{
		BotToken:   appConfig.TelegramBotToken,
		MaxAuthAge: appConfig.TelegramAuthAge,
	})

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
	})
	if err != nil {
		return err
	}

	reviewService, err := review.NewService(review.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Names:      usersService,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	forumService, err := forum.NewService(forum.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
	})
	if err != nil {
		return err
	}

	groupsService, err := groups.NewService(groups.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
	})
	if err != nil {
		return err
	}

	resourcesService, err := resources.NewService(resources.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
	})
	if err != nil {
		return err
	}

	messagingService, err := messaging.NewService(messaging.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Recipients: usersService,
	})
	if err != nil {
		return err
	}

	var mapCache *geo.Cache
	if appConfig.RedisURL != "" {
		mapCache, err = geo.NewCache(appConfig.RedisURL, appConfig.MapCacheTTL)
		if err != nil {
			logger.Warn("map cache unavailable, continuing without it", zap.Error(err))
			mapCache = nil
		}
	}

	geoService, err := geo.NewService(geo.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Cache:      mapCache,
		Users:      usersService,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TelegramVerifier: telegramVerifier,
		TokenManager:     tokenManager,
		UsersService:     usersService,
		ReviewService:    reviewService,
		ForumService:     forumService,
		GroupsService:    groupsService,
		ResourcesService: resourcesService,
		MessagingService: messagingService,
		GeoService:       geoService,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
