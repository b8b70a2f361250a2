package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-comps/backend/internal/api"
	"github.com/codyseavey/card-comps/backend/internal/config"
	"github.com/codyseavey/card-comps/backend/internal/database"
	"github.com/codyseavey/card-comps/backend/internal/ratelimit"
	"github.com/codyseavey/card-comps/backend/internal/services"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	// Initialize database
	if err := database.Initialize(cfg.DB.Path, cfg.DB.LogSQL); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Outbound pacing is per marketplace host, shared by both sources
	scrapeLimiter := ratelimit.New(cfg.Scraper.RequestsPerSecond, 1)
	defer scrapeLimiter.Stop()

	var source services.ListingSource = services.NewEbayBrowserSource(services.BrowserConfig{
		ChromeBin:         cfg.Scraper.ChromeBin,
		Headless:          cfg.Scraper.Headless,
		UserAgent:         cfg.Scraper.UserAgent,
		NavigationTimeout: cfg.Scraper.NavigationTimeout,
	}, scrapeLimiter)

	if cfg.Scraper.HTMLFallback {
		htmlSource := services.NewEbayHTMLSource(services.HTMLSourceConfig{
			UserAgent:  cfg.Scraper.UserAgent,
			Timeout:    cfg.Scraper.NavigationTimeout,
			MaxRetries: cfg.Scraper.MaxRetries,
		}, scrapeLimiter)
		source = services.NewFallbackSource(source, htmlSource)
	}

	// Search cache: memory in front of the persisted store
	var cache services.SearchCache = services.NewMemorySearchCache(cfg.Cache.Size, cfg.Cache.TTL)
	var store *services.StoreSearchCache
	if cfg.Cache.Persist {
		store = services.NewStoreSearchCache(database.GetDB(), cfg.Cache.TTL)
		cache = services.NewTieredSearchCache(cache, store)
	}

	classifier := services.NewClassifier()
	uploads := services.NewUploadStorageService(cfg.Server.UploadDir)

	marketService := services.NewMarketService(
		source,
		services.NewNormalizer(classifier),
		services.NewGrouper(services.GroupingConfig(cfg.Grouping), classifier),
		cache,
		uploads,
		services.MarketServiceConfig{
			DefaultLimit:  cfg.Scraper.DefaultLimit,
			ImageLimit:    cfg.Scraper.ImageLimit,
			MaxLimit:      cfg.Scraper.MaxLimit,
			SearchTimeout: cfg.Scraper.SearchTimeout,
			CacheTTL:      cfg.Cache.TTL,
			TrendWindow:   cfg.Market.TrendWindow,
			GradingCost:   cfg.Market.GradingCost,
		},
	)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cache janitor in background with panic recovery
	if store != nil {
		janitor := services.NewCacheJanitor(store, cfg.Cache.JanitorInterval)
		go func() {
			for {
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in cache janitor: %v - restarting in 30 seconds", r)
						}
					}()
					janitor.Start(ctx)
				}()

				select {
				case <-ctx.Done():
					return // Graceful shutdown
				case <-time.After(30 * time.Second):
					log.Println("Cache janitor restarting after panic recovery...")
				}
			}
		}()
	}

	// Inbound per-client limit
	clientLimiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer clientLimiter.Stop()

	// Setup router
	router := api.SetupRouter(cfg.Server, marketService, clientLimiter)

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s (source: %s)", cfg.Server.Port, source.Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the cache janitor
	cancel()

	// Searches can hold a browser for the full search timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Scraper.SearchTimeout+5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
