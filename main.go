package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farmerhub/marketplace-api/internal/advisor"
	"github.com/farmerhub/marketplace-api/internal/api"
	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/cache"
	"github.com/farmerhub/marketplace-api/internal/db"
	"github.com/farmerhub/marketplace-api/internal/mailer"
	"github.com/farmerhub/marketplace-api/internal/media"
	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/services"
	"github.com/farmerhub/marketplace-api/internal/store"
	"github.com/farmerhub/marketplace-api/internal/store/memory"
	"github.com/farmerhub/marketplace-api/internal/store/mysql"
	"github.com/farmerhub/marketplace-api/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// initMetrics exports over OTLP when enabled and discards otherwise. The
// returned shutdown func is always safe to call.
func initMetrics(ctx context.Context, cfg *config.Config) (*metrics.AppMetrics, func()) {
	if !cfg.OTELMetricsEnabled {
		return metrics.NewDiscardMetrics(cfg.OTELServiceName), func() {}
	}

	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	return appMetrics, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down meter provider: %v", err)
		}
	}
}

// openDatabase connects to MySQL and applies the schema file when present
func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	database, err := db.NewDB(cfg.GetDSN(), cfg.OTELServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := applySchema(ctx, database, cfg.SchemaPath); err != nil {
		log.Printf("Warning: %v", err)
		log.Println("Assuming database schema already exists")
	}
	return database, nil
}

func applySchema(ctx context.Context, database *db.DB, path string) error {
	schemaSQL, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	if err := database.InitSchema(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("could not initialize schema: %w", err)
	}
	return nil
}

// openStores picks the storage driver. The returned close func releases
// the database connection.
func openStores(ctx context.Context, cfg *config.Config, m *metrics.AppMetrics) (store.Stores, func(), error) {
	switch cfg.DBDriver {
	case "memory":
		log.Println("[DB] Using in-memory store; data is lost on restart")
		return memory.New().Stores(), func() {}, nil
	case "mysql":
		database, err := openDatabase(ctx, cfg)
		if err != nil {
			return store.Stores{}, nil, err
		}
		return mysql.New(database, m), func() { database.Close() }, nil
	}
	return store.Stores{}, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}

// withProductCache puts the Redis cache in front of the product store when
// REDIS_ADDR is set. A missing Redis is logged and the cache skipped.
func withProductCache(cfg *config.Config, stores store.Stores, m *metrics.AppMetrics) (store.Stores, store.ProductInvalidator, func()) {
	if cfg.RedisAddr == "" {
		return stores, nil, func() {}
	}
	client, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("Warning: product cache disabled: %v", err)
		return stores, nil, func() {}
	}
	cached := cache.NewCachedProductStore(stores.Products, client, cfg.CacheTTL, m)
	stores.Products = cached
	log.Printf("[CACHE] Product cache enabled at %s (ttl %s)", cfg.RedisAddr, cfg.CacheTTL)
	return stores, cached, func() { client.Close() }
}

func newObjectStore(ctx context.Context, cfg *config.Config) (media.ObjectStore, error) {
	if cfg.S3Bucket == "" {
		log.Printf("[UPLOAD] Storing uploads under %s", cfg.UploadDir)
		return media.NewLocalStore(cfg.UploadDir, "/uploads"), nil
	}
	return media.NewS3Store(ctx, media.S3Options{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		PublicBaseURL: cfg.S3PublicBaseURL,
		AccessKeyID:   cfg.S3AccessKeyID,
		SecretKey:     cfg.S3SecretAccessKey,
	})
}

func newMailSender(cfg *config.Config) mailer.Sender {
	if !cfg.MailEnabled() {
		log.Println("[MAIL] SMTP_HOST not set; mail is logged instead of delivered")
		return mailer.LogSender{}
	}
	return mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
}

func runServer(cfg *config.Config) error {
	ctx := context.Background()

	appMetrics, shutdownMetrics := initMetrics(ctx, cfg)
	defer shutdownMetrics()

	stores, closeStores, err := openStores(ctx, cfg, appMetrics)
	if err != nil {
		return err
	}
	defer closeStores()

	stores, invalidator, closeCache := withProductCache(cfg, stores, appMetrics)
	defer closeCache()

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up media storage: %w", err)
	}

	if cfg.JWTSecret == "change-me" {
		log.Println("Warning: JWT_SECRET is the default value; set it in production")
	}
	if cfg.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set; /api/ai/ask will fail")
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	mail := mailer.New(newMailSender(cfg), appMetrics)
	gemini := advisor.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL)

	// Initialize services
	orderService := services.NewOrderService(stores, invalidator, appMetrics)
	supportService := services.NewSupportService(stores.Support, mail, appMetrics)
	svc := api.Services{
		Accounts: services.NewAccountService(stores.Accounts, tokens, mail, cfg.ClientURL, appMetrics),
		Products: services.NewProductService(stores.Products, appMetrics),
		Carts:    services.NewCartService(stores.Carts, stores.Products, appMetrics),
		Orders:   orderService,
		Wishlist: services.NewWishlistService(stores.Accounts, stores.Products),
		Support:  supportService,
		Admin:    services.NewAdminService(stores, orderService, supportService),
		AI:       services.NewAIService(advisor.New(gemini, cfg.GeminiModels, cfg.AIRetryDelay, appMetrics)),
		Uploads:  services.NewUploadService(media.NewUploader(objects, appMetrics)),
	}

	app := api.NewApp(cfg, appMetrics, tokens, svc)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", cfg.AppPort)
		if cfg.OTELMetricsEnabled {
			log.Printf("OTLP endpoint: %s", cfg.OTELExporterOTLPEndpoint)
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited")
	return nil
}
