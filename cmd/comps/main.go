// comps runs one sold-listing search from the command line and prints the
// variation groups, optionally analyzing one of them.
//
// Usage: comps -query="<text>" | -image=<file> [-limit=N] [-grade=G] [-group=ID] [-window=D] [-paid=P] [-json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/codyseavey/card-comps/backend/internal/config"
	"github.com/codyseavey/card-comps/backend/internal/models"
	"github.com/codyseavey/card-comps/backend/internal/ratelimit"
	"github.com/codyseavey/card-comps/backend/internal/services"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to configuration file (optional)")
	query := flag.String("query", "", "Text search")
	imagePath := flag.String("image", "", "Image file for reverse image search")
	limit := flag.Int("limit", 0, "Maximum listings to fetch (0 = default)")
	grade := flag.String("grade", "any", "Grade filter: any, raw, graded, psa 10, ...")
	groupID := flag.String("group", "", "Analyze this group id from the search")
	windowDays := flag.Int("window", 0, "Only analyze sales from the last N days (0 = all)")
	pricePaid := flag.Float64("paid", 0, "Price paid, for ROI")
	asJSON := flag.Bool("json", false, "Print JSON instead of a summary")
	noBrowser := flag.Bool("no-browser", false, "Use the plain HTTP source only (text search)")
	flag.Parse()

	if (*query == "") == (*imagePath == "") {
		fmt.Println("Usage: comps -query=<text> | -image=<file> [options]")
		fmt.Println("")
		fmt.Println("Searches sold listings, groups them by variation and grade,")
		fmt.Println("and optionally analyzes one group.")
		fmt.Println("")
		flag.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Println("  comps -query=\"2020 Prizm Justin Jefferson #398\"")
		fmt.Println("  comps -query=\"2020 Prizm Justin Jefferson #398\" -group=raw:number:398 -paid=20")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	limiter := ratelimit.New(cfg.Scraper.RequestsPerSecond, 1)
	defer limiter.Stop()

	var source services.ListingSource
	if *noBrowser {
		source = services.NewEbayHTMLSource(services.HTMLSourceConfig{
			UserAgent:  cfg.Scraper.UserAgent,
			Timeout:    cfg.Scraper.NavigationTimeout,
			MaxRetries: cfg.Scraper.MaxRetries,
		}, limiter)
	} else {
		source = services.NewEbayBrowserSource(services.BrowserConfig{
			ChromeBin:         cfg.Scraper.ChromeBin,
			Headless:          cfg.Scraper.Headless,
			UserAgent:         cfg.Scraper.UserAgent,
			NavigationTimeout: cfg.Scraper.NavigationTimeout,
		}, limiter)
	}

	classifier := services.NewClassifier()
	marketService := services.NewMarketService(
		source,
		services.NewNormalizer(classifier),
		services.NewGrouper(services.GroupingConfig(cfg.Grouping), classifier),
		services.NewMemorySearchCache(8, cfg.Cache.TTL),
		services.NewUploadStorageService(cfg.Server.UploadDir),
		services.MarketServiceConfig{
			DefaultLimit:  cfg.Scraper.DefaultLimit,
			ImageLimit:    cfg.Scraper.ImageLimit,
			MaxLimit:      cfg.Scraper.MaxLimit,
			SearchTimeout: cfg.Scraper.SearchTimeout,
			TrendWindow:   cfg.Market.TrendWindow,
			GradingCost:   cfg.Market.GradingCost,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter := models.ParseGradeFilter(*grade)
	var result *models.SearchResult
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			log.Fatalf("Failed to read image: %v", err)
		}
		result, err = marketService.SearchByImage(ctx, data, *limit, filter)
		if err != nil {
			log.Fatalf("Image search failed: %v", err)
		}
	} else {
		result, err = marketService.Search(ctx, *query, *limit, filter)
		if err != nil {
			log.Fatalf("Search failed: %v", err)
		}
	}

	if *groupID == "" {
		if *asJSON {
			printJSON(result)
			return
		}
		printSearch(result)
		if result.Status != models.SearchStatusOK {
			os.Exit(2)
		}
		return
	}

	analysis, err := marketService.Analyze(ctx, services.AnalyzeRequest{
		SearchKey:  result.SearchKey,
		Grade:      filter,
		GroupID:    *groupID,
		WindowDays: *windowDays,
		PricePaid:  *pricePaid,
	})
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	if *asJSON {
		printJSON(analysis)
		return
	}
	printAnalysis(analysis)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
}

func printSearch(r *models.SearchResult) {
	fmt.Printf("Search %s: %s", r.SearchKey, r.Status)
	if r.Reason != "" {
		fmt.Printf(" (%s)", r.Reason)
	}
	fmt.Println()

	s := r.Stats
	fmt.Printf("  source=%s cached=%t scraped=%d kept=%d grouped=%d outliers=%d/%d in %dms\n",
		s.Source, s.FromCache, s.Scraped, r.Count, s.Grouped, s.GlobalOutliers, s.GroupOutliers, s.DurationMillis)
	fmt.Println()

	for _, g := range r.GroupedListings {
		fmt.Printf("%-28s %-8s %3d sales  avg $%8.2f  [$%.2f - $%.2f]\n",
			g.ID, g.Grade, g.Count, g.AveragePrice, g.MinPrice, g.MaxPrice)
		fmt.Printf("    %s\n", g.DisplayTitle)
	}
}

func printAnalysis(a *models.MarketAnalysis) {
	m := a.Metrics
	fmt.Printf("%s (%s)\n", a.Group.DisplayTitle, a.Group.ID)
	if a.WindowApplied {
		fmt.Printf("  last %d days\n", a.WindowDays)
	}
	fmt.Printf("  sales=%d avg=$%.2f min=$%.2f max=$%.2f\n", m.SalesCount, m.AveragePrice, m.MinPrice, m.MaxPrice)
	fmt.Printf("  volatility=%.2f%% trend=%+.3f demand=%s\n", m.Volatility, m.Trend, m.Demand)
	fmt.Printf("  predicted: 30d $%.2f  60d $%.2f  90d $%.2f\n", a.Prediction.Days30, a.Prediction.Days60, a.Prediction.Days90)
	fmt.Printf("  %s: %s\n", a.Recommendation.Action, a.Recommendation.Reason)
	fmt.Printf("  outlook: %s, %s\n", a.Outlook.Rating, a.Outlook.Explanation)
	fmt.Printf("  scores: stability %d trend %d demand %d overall %d\n",
		a.Scores.Stability, a.Scores.Trend, a.Scores.Demand, a.Scores.Overall)
	if a.ROIPercent != nil {
		fmt.Printf("  ROI: %+.2f%%\n", *a.ROIPercent)
	}
	if gp := a.GradingProfit; gp != nil {
		fmt.Printf("  grading: PSA 9 $%.2f (%+.2f after cost), PSA 10 $%.2f (%+.2f after cost), EV $%.2f\n",
			gp.PSA9Average, gp.PSA9ProfitAfterCost, gp.PSA10Average, gp.PSA10ProfitAfterCost, gp.ExpectedValue)
		fmt.Printf("  %s\n", gp.Recommendation)
	}
}
