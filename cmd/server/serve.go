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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/database"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/handlers"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/middleware"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/router"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/services/reformat"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/services/render"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/services/worker"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/session"
)

// janitorInterval is how often expired sessions are swept.
const janitorInterval = 5 * time.Minute

// extractionBudget is added to the AI timeout to bound a whole conversion.
const extractionBudget = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		log.Info("🚀 PDF Reformatter API starting", zap.String("version", Version))
		log.Info("📋 Config loaded",
			zap.String("port", cfg.Port),
			zap.Int("workers", cfg.WorkerCount),
			zap.String("gin_mode", cfg.GinMode),
			zap.String("provider", cfg.AIProvider))

		gin.SetMode(cfg.GinMode)

		// Step 1: Conversion history (optional)
		var db *database.DB
		if cfg.HistoryEnabled() {
			db, err = database.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			log.Info("✅ Database connected")

			if err := db.RunMigrations(log); err != nil {
				return err
			}
		} else {
			log.Warn("⚠️  No DATABASE_URL set, conversion history disabled")
		}

		// Step 2: Create Services
		model := cfg.AIModel
		if model == "" {
			model = reformat.DefaultModel(cfg.AIProvider)
		}
		provider, err := reformat.NewProvider(cfg.AIProvider, reformat.ProviderConfig{
			GeminiAPIKey:     cfg.GeminiAPIKey,
			AnthropicAPIKey:  cfg.AnthropicAPIKey,
			OpenRouterAPIKey: cfg.OpenRouterAPIKey,
			OllamaHost:       cfg.OllamaHost,
			HTTPTimeout:      cfg.AITimeout,
		})
		if err != nil {
			return err
		}
		if err := provider.Configured(); err != nil {
			log.Warn("⚠️  AI provider not usable yet, conversions will fail", zap.String("provider", provider.Name()), zap.Error(err))
		} else {
			log.Info("🤖 AI provider configured", zap.String("provider", provider.Name()), zap.String("model", model))
		}

		reformatter := reformat.New(provider, reformat.Options{
			Model:         model,
			Temperature:   cfg.AITemperature,
			MaxInputChars: cfg.MaxInputChars,
			Timeout:       cfg.AITimeout,
		}, log)

		if cfg.PDFFontPath == "" {
			log.Warn("⚠️  No PDF_FONT_PATH set, PDF output is limited to Latin text")
		}

		deps := pipeline.Deps{
			Extractor:   pdf.NewExtractor(log),
			Reformatter: reformatter,
			Renderer:    render.NewRenderer(log, cfg.PDFFontPath),
			Logger:      log,
		}
		if db != nil {
			deps.Recorder = database.NewHistory(db, provider.Name(), model, log)
		}

		// Step 3: Sessions
		sessions := session.NewRegistry(deps, session.Options{
			TTL:           cfg.SessionTTL,
			Secret:        cfg.JWTSecret,
			DefaultLocale: cfg.DefaultLocale,
		}, log)
		sessions.StartJanitor(janitorInterval)
		defer sessions.Stop()

		// Step 4: Create and Start Worker Pool
		wp := worker.NewPool(cfg.WorkerCount, cfg.JobQueueSize, cfg.AITimeout+extractionBudget, log)
		wp.Start()
		defer wp.Stop()

		if cfg.AdminKeyHash != "" {
			log.Info("✅ Admin key configured (conversion history endpoint enabled)")
		} else {
			log.Warn("⚠️  No ADMIN_KEY_HASH set, admin endpoints are closed (generate one with `admin-key`)")
		}

		// Step 5: Setup HTTP Router
		h := &handlers.Handler{
			Sessions:       sessions,
			Worker:         wp,
			Logger:         log,
			Version:        Version,
			Provider:       provider.Name(),
			Model:          model,
			MaxUploadBytes: cfg.MaxUploadBytes(),
		}
		if db != nil {
			h.History = db
		}

		limiter := middleware.NewRateLimiter(cfg.RateLimit)
		defer limiter.Stop()

		r := router.Setup(h, router.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			DefaultLocale:  cfg.DefaultLocale,
			AdminKeyHash:   cfg.AdminKeyHash,
			RateLimiter:    limiter,
			Logger:         log,
		})

		// Step 6: Start the HTTP Server
		srv := &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Port),
			Handler:      r,
			ReadTimeout:  60 * time.Second, // uploads up to MAX_UPLOAD_MB
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErr := make(chan error, 1)
		go func() {
			log.Info("🌐 Server listening", zap.String("addr", "http://localhost:"+cfg.Port))
			log.Info("📖 Health check", zap.String("url", "http://localhost:"+cfg.Port+"/api/v1/health"))

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()

		// Step 7: Graceful Shutdown
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			log.Info("🛑 Shutting down gracefully", zap.String("signal", sig.String()))
		case err := <-serverErr:
			return fmt.Errorf("server failed: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("⚠️  Server forced to shutdown", zap.Error(err))
		}

		log.Info("👋 Server stopped. Goodbye!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
