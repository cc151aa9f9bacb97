package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/api/handlers"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/backup"
	redisCache "github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/cache/redis"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/extract"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/ingest"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/llm"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/metrics"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/news"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/rag"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/sqlite"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/vector"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/vector/localstore"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/vector/pgstore"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/config"
	appLogger "github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("starting panzee news service")

	metrics.Register()

	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("failed to open sqlite", zap.Error(err))
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		appLogger.Fatal("failed to initialize schema", zap.Error(err))
	}

	vectors := newVectorStore(cfg)

	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.EmbeddingModel, cfg.LLM.MaxTokens)

	extractor := extract.New(cfg.Extract.FetchTimeout, cfg.Extract.BrowserTimeout, cfg.Extract.UserAgent)

	symbols := news.NewSymbolCache(db, cfg.Sources.SymbolCacheTTL)

	sources := []news.Source{
		news.NewCryptoSource(cfg.Sources.CryptoFeedURL, symbols),
		news.NewKRXSource(cfg.Sources.KRXFeedURL),
		news.NewUSStockSource(cfg.Sources.FinnhubBaseURL, cfg.Sources.FinnhubAPIKey, symbols, cfg.Sources.SymbolChunkSize),
	}

	var embedCache ingest.EmbeddingCache
	if cfg.Redis.Enabled {
		cache, err := redisCache.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("redis unavailable, embedding cache disabled", zap.Error(err))
		} else {
			defer cache.Close()
			embedCache = cache
		}
	}

	pipeline := ingest.NewPipeline(sources, db, llmClient, llmClient, extractor, vectors, symbols, embedCache)
	backups := backup.New(vectors, cfg.Backup.Dir)
	ragService := rag.NewService(llmClient, llmClient, vectors, cfg.Vector.TopK, cfg.Vector.MinScore)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := ingest.NewScheduler(pipeline, backups)
	if cfg.Scheduler.Enabled {
		if err := scheduler.Start(ctx, cfg.Scheduler.AllSpec, cfg.Scheduler.CryptoSpec); err != nil {
			appLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	chatHandler := handlers.NewChatHandler(ragService)
	ingestHandler := handlers.NewIngestHandler(pipeline)
	newsHandler := handlers.NewNewsHandler(db)
	assetHandler := handlers.NewAssetHandler(db)

	api := app.Group("/api/v1")
	api.Post("/chat", chatHandler.HandleChat)
	api.Post("/ingest", ingestHandler.RunAll)
	api.Post("/ingest/:source", ingestHandler.RunSource)
	api.Get("/news", newsHandler.ListRecent)
	api.Post("/news/:id/translated-title", newsHandler.BackfillTranslatedTitle)
	api.Get("/assets", assetHandler.List)
	api.Post("/assets", assetHandler.Add)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "time": time.Now().Unix()})
	})

	app.Get("/metrics", metrics.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("server failed to start", zap.Error(err))
		}
	}()
	appLogger.Info("server started", zap.String("address", addr))

	<-ctx.Done()

	appLogger.Info("shutting down")
	_ = app.Shutdown()
}

func newVectorStore(cfg *config.Config) vector.Store {
	switch cfg.Vector.Backend {
	case "pgvector":
		store, err := pgstore.New(cfg.Postgres.DSN, cfg.Vector.Dimension)
		if err != nil {
			appLogger.Fatal("failed to open pgvector store", zap.Error(err))
		}
		if err := store.InitSchema(context.Background()); err != nil {
			appLogger.Fatal("failed to initialize pgvector schema", zap.Error(err))
		}
		return store
	case "local":
		store, err := localstore.New(cfg.Vector.LocalPath, cfg.Vector.Dimension)
		if err != nil {
			appLogger.Fatal("failed to open local vector store", zap.Error(err))
		}
		return store
	default:
		appLogger.Fatal("unknown vector backend", zap.String("backend", cfg.Vector.Backend))
		return nil
	}
}
