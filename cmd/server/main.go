package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/catalog-insights/internal/cleaning"
	"github.com/iliyamo/catalog-insights/internal/config"
	"github.com/iliyamo/catalog-insights/internal/database"
	"github.com/iliyamo/catalog-insights/internal/handler"
	"github.com/iliyamo/catalog-insights/internal/importer"
	"github.com/iliyamo/catalog-insights/internal/middleware"
	"github.com/iliyamo/catalog-insights/internal/queue"
	"github.com/iliyamo/catalog-insights/internal/repository"
	"github.com/iliyamo/catalog-insights/internal/router"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()
	auth := config.LoadAuth()
	pcfg, err := config.LoadPipelineConfig()
	if err != nil {
		log.Fatalf("pipeline config: %v", err)
	}

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("open %s database: %v", cfg.DBDriver, err)
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db, cfg.DBDriver); err != nil {
		log.Fatal(err)
	}
	repo := repository.NewCatalogRepo(db)

	// Redis is optional: cache and rate limit pass through without it
	rdb := config.NewRedisClient()
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	pipeline := cleaning.NewPipeline(pcfg.RawPath, pcfg.CachePath, pcfg.Options(),
		log.New(os.Stderr, "", log.LstdFlags))
	im := importer.New(repo, log.New(os.Stderr, "", log.LstdFlags))
	im.Cache = cache
	im.Source = pcfg.RawPath
	if cfg.AMQPURL != "" {
		im.Publisher = queue.NewPublisher(cfg.AMQPURL)
	}

	renderer, err := handler.NewRenderer()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterRoutes(e)
	router.RegisterAnalysis(e,
		handler.NewAnalysisHandler(repo),
		handler.NewBrowseHandler(repo),
		limiter, cache.Middleware(),
	)
	router.RegisterAdmin(e,
		handler.NewAdminHandler(auth, pipeline, im, log.New(os.Stderr, "", log.LstdFlags)),
		auth.JWTSecret,
		limiter,
	)

	if n, err := repo.Count(context.Background()); err == nil {
		log.Printf("catalog has %d entries (driver=%s)", n, cfg.DBDriver)
	}

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
