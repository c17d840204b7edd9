package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ngocnhiem/online-ide/internal/api"
	"github.com/ngocnhiem/online-ide/internal/auth"
	"github.com/ngocnhiem/online-ide/internal/config"
	"github.com/ngocnhiem/online-ide/internal/filestore"
	"github.com/ngocnhiem/online-ide/internal/logging"
	"github.com/ngocnhiem/online-ide/internal/redis"
	"github.com/ngocnhiem/online-ide/internal/service/ai"
	"github.com/ngocnhiem/online-ide/internal/service/codegen"
	"github.com/ngocnhiem/online-ide/internal/service/prompt"
	"github.com/ngocnhiem/online-ide/internal/storage"
	"github.com/ngocnhiem/online-ide/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	listenAddr string

	tokenSubject string
	tokenTTL     time.Duration
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "online-ide",
	Short:        "Gateway between the online IDE and the code generation model",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	RunE:  runServe,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token signed with the configured secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Auth.JWTSecret == "" {
			return errors.New("jwt_secret (JWT_SECRET) must be configured")
		}
		token, err := auth.NewService(cfg.Auth.JWTSecret).IssueToken(tokenSubject, tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("ONLINE_IDE_CONFIG"), "path to config.json")
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&listenAddr, "addr", "", "listen address, overrides server_address")
	}
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "local-dev", "subject claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(serveCmd, tokenCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Init(logging.Config{Level: cfg.BasicConfig.LogLevel, Format: cfg.BasicConfig.LogFormat})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.NewRedisClient(cfg)
	if err != nil {
		return fmt.Errorf("create redis client: %w", err)
	}
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		logger.Warn("redis not reachable at startup", "error", err)
	}

	limiter := worker.NewLimiter(cfg.BasicConfig.MaxGenerations, cfg.GenerationWait())
	provider, provCfg := cfg.Provider()
	aiService, err := ai.NewService(ctx, provider, provCfg, cfg.GenerationTimeout(), limiter)
	if err != nil {
		return fmt.Errorf("init ai service: %w", err)
	}
	codeService := codegen.NewService(aiService, prompt.NewCatalog(prompt.DefaultLanguages()))
	files := filestore.New(rdb, cfg.BasicConfig.PublicBaseURL)

	var activity api.ActivityRecorder
	if dbType := cfg.BasicConfig.ActivityDB; dbType != "" {
		db, err := storage.Open(dbType, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := storage.Migrate(db, dbType); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		activityLog := storage.NewActivityLog(db)
		activityLog.StartPruner(ctx, storage.DefaultPruneInterval, cfg.ActivityRetention())
		activity = activityLog
	}

	authService := auth.NewService(cfg.Auth.JWTSecret)
	verifier := auth.NewVerifier(cfg.Auth.RecaptchaSecret, cfg.Auth.RecaptchaVerifyURL, cfg.Auth.RecaptchaMinScore, logger)
	handlers := api.NewHandler(codeService, files, authService, verifier, activity, rdb)

	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger), api.CORS(cfg.BasicConfig.AllowedOrigins))
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if listenAddr != "" {
		addr = listenAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "provider", provider, "model", provCfg.Model, "web_model", provCfg.WebModel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
