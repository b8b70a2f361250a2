package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/codyseavey/card-comps/backend/internal/metrics"
	"github.com/codyseavey/card-comps/backend/internal/models"
)

// MaxQueryLength bounds text queries accepted by Search
const MaxQueryLength = 200

// MarketServiceConfig holds limits and timeouts for the search pipeline
type MarketServiceConfig struct {
	DefaultLimit  int
	ImageLimit    int
	MaxLimit      int
	SearchTimeout time.Duration
	CacheTTL      time.Duration
	TrendWindow   int
	GradingCost   float64
}

// DefaultMarketServiceConfig returns production limits
func DefaultMarketServiceConfig() MarketServiceConfig {
	return MarketServiceConfig{
		DefaultLimit:  DefaultTextLimit,
		ImageLimit:    DefaultImageLimit,
		MaxLimit:      MaxListingLimit,
		SearchTimeout: 90 * time.Second,
		CacheTTL:      DefaultCacheTTL,
		TrendWindow:   DefaultTrendWindow,
		GradingCost:   defaultGradingCost,
	}
}

// imageStager puts uploaded bytes somewhere a browser can read them
type imageStager interface {
	Stage(imageData []byte) (string, error)
	Remove(path string)
}

// AnalyzeRequest selects a group from a search. SearchKey is preferred;
// Query re-runs (or re-reads from cache) a text search.
type AnalyzeRequest struct {
	SearchKey  string
	Query      string
	Limit      int
	Grade      models.GradeFilter
	GroupID    string
	WindowDays int
	PricePaid  float64
}

// MarketService runs searches end to end and analyzes selected groups
type MarketService struct {
	source     ListingSource
	normalizer *Normalizer
	grouper    *Grouper
	cache      SearchCache
	uploads    imageStager
	cfg        MarketServiceConfig
	flight     singleflight.Group
	now        func() time.Time
}

// NewMarketService wires the pipeline. cache and uploads may be nil; without
// uploads image search is unavailable.
func NewMarketService(source ListingSource, normalizer *Normalizer, grouper *Grouper, cache SearchCache, uploads imageStager, cfg MarketServiceConfig) *MarketService {
	defaults := DefaultMarketServiceConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaults.DefaultLimit
	}
	if cfg.ImageLimit <= 0 {
		cfg.ImageLimit = defaults.ImageLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaults.MaxLimit
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = defaults.SearchTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.TrendWindow < 2 {
		cfg.TrendWindow = defaults.TrendWindow
	}
	if cfg.GradingCost <= 0 {
		cfg.GradingCost = defaults.GradingCost
	}

	return &MarketService{
		source:     source,
		normalizer: normalizer,
		grouper:    grouper,
		cache:      cache,
		uploads:    uploads,
		cfg:        cfg,
		now:        time.Now,
	}
}

// scrapeOutcome is what one acquisition produced, shared by singleflight callers
type scrapeOutcome struct {
	listings  []models.NormalizedListing
	norm      NormalizeStats
	scraped   int
	fromCache bool
	err       error
}

// Search runs a text search. Only an invalid query is an error; source
// failures and empty results are reported through the result status.
func (s *MarketService) Search(ctx context.Context, query string, limit int, grade models.GradeFilter) (*models.SearchResult, error) {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidQuery)
	}
	if len(query) > MaxQueryLength {
		return nil, fmt.Errorf("%w: query longer than %d characters", ErrInvalidQuery, MaxQueryLength)
	}

	start := s.now()
	limit = s.resolveLimit(limit, models.SearchModeText)
	key := TextCacheKey(query, limit)

	outcome := s.acquire(ctx, key, models.SearchModeText, func(ctx context.Context) ([]models.RawListing, error) {
		return s.source.Search(ctx, query, limit)
	})

	result := s.buildResult(key, models.SearchModeText, query, grade, outcome)
	result.Stats.DurationMillis = s.now().Sub(start).Milliseconds()
	return result, nil
}

// SearchByImage runs a reverse image search on uploaded bytes
func (s *MarketService) SearchByImage(ctx context.Context, image []byte, limit int, grade models.GradeFilter) (*models.SearchResult, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidQuery)
	}
	if _, err := ImageExtension(image); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	if s.uploads == nil {
		return nil, fmt.Errorf("image search: %w", ErrUnsupported)
	}

	start := s.now()
	limit = s.resolveLimit(limit, models.SearchModeImage)
	key := ImageCacheKey(image, limit)

	outcome := s.acquire(ctx, key, models.SearchModeImage, func(ctx context.Context) ([]models.RawListing, error) {
		path, err := s.uploads.Stage(image)
		if err != nil {
			return nil, newSourceError(s.source.Name(), "image search", FailureUpload, err)
		}
		defer s.uploads.Remove(path)
		return s.source.SearchByImage(ctx, path, limit)
	})

	result := s.buildResult(key, models.SearchModeImage, "", grade, outcome)
	result.Stats.DurationMillis = s.now().Sub(start).Milliseconds()
	return result, nil
}

// acquire reads key from the cache or scrapes it once for all concurrent callers
func (s *MarketService) acquire(ctx context.Context, key string, mode models.SearchMode, scrape func(context.Context) ([]models.RawListing, error)) scrapeOutcome {
	if listings, ok := s.cacheGet(ctx, key); ok {
		return scrapeOutcome{listings: listings, fromCache: true}
	}

	// Shared scrapes outlive the caller that started them. The search
	// timeout still bounds them.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		// Another caller may have populated the key while we waited
		if listings, ok := s.cacheGet(flightCtx, key); ok {
			return scrapeOutcome{listings: listings, fromCache: true}, nil
		}
		return s.scrape(flightCtx, key, mode, scrape), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			log.Printf("Market service: shared in-flight scrape for %s", key)
		}
		return res.Val.(scrapeOutcome)
	case <-ctx.Done():
		log.Printf("Market service: caller left before %s search %s finished: %v", mode, key, ctx.Err())
		return scrapeOutcome{err: newSourceError(s.source.Name(), string(mode)+" search", FailureTimeout, ctx.Err())}
	}
}

func (s *MarketService) scrape(ctx context.Context, key string, mode models.SearchMode, scrape func(context.Context) ([]models.RawListing, error)) scrapeOutcome {
	scrapeCtx, cancel := context.WithTimeout(ctx, s.cfg.SearchTimeout)
	defer cancel()

	start := time.Now()
	raws, err := scrape(scrapeCtx)
	metrics.ScrapeDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = string(failureKind(err))
	} else if len(raws) == 0 {
		outcome = string(FailureEmpty)
	}
	metrics.ScrapesTotal.WithLabelValues(s.source.Name(), string(mode), outcome).Inc()
	metrics.ListingsScrapedTotal.Add(float64(len(raws)))

	if err != nil {
		log.Printf("Market service: %s search failed for %s: %v", mode, key, err)
		return scrapeOutcome{err: err}
	}

	listings, norm := s.normalizer.NormalizeBatch(raws)
	metrics.ListingsDroppedTotal.WithLabelValues(string(DropPrice)).Add(float64(norm.DroppedPrice))
	metrics.ListingsDroppedTotal.WithLabelValues(string(DropImage)).Add(float64(norm.DroppedImage))
	metrics.ListingsDroppedTotal.WithLabelValues(string(DropDuplicate)).Add(float64(norm.DroppedDup))

	if len(listings) > 0 && s.cache != nil {
		s.cache.Set(ctx, key, listings, s.cfg.CacheTTL)
	}
	log.Printf("Market service: %s search %s scraped %d, kept %d", mode, key, len(raws), len(listings))

	return scrapeOutcome{listings: listings, norm: norm, scraped: len(raws)}
}

func (s *MarketService) cacheGet(ctx context.Context, key string) ([]models.NormalizedListing, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(ctx, key)
}

// buildResult applies the grade filter and groups. It never fails.
func (s *MarketService) buildResult(key string, mode models.SearchMode, query string, grade models.GradeFilter, outcome scrapeOutcome) *models.SearchResult {
	if grade == "" {
		grade = models.GradeFilterAny
	}

	result := &models.SearchResult{
		SearchKey:       key,
		Mode:            mode,
		Query:           query,
		Grade:           grade,
		Status:          models.SearchStatusOK,
		Listings:        []models.NormalizedListing{},
		GroupedListings: []models.VariationGroup{},
		Stats: models.SearchStats{
			Scraped:      outcome.scraped,
			DroppedPrice: outcome.norm.DroppedPrice,
			DroppedImage: outcome.norm.DroppedImage,
			DroppedDup:   outcome.norm.DroppedDup,
			Source:       s.source.Name(),
			FromCache:    outcome.fromCache,
		},
	}

	if outcome.err != nil {
		if errors.Is(outcome.err, ErrNoListings) {
			result.Status = models.SearchStatusNoListings
		} else {
			result.Status = models.SearchStatusSourceUnavailable
		}
		result.Reason = string(failureKind(outcome.err))
		metrics.SearchesTotal.WithLabelValues(string(mode), string(result.Status)).Inc()
		return result
	}

	filtered := make([]models.NormalizedListing, 0, len(outcome.listings))
	for _, l := range outcome.listings {
		if grade.Matches(l.Grade) {
			filtered = append(filtered, l)
		}
	}
	result.Stats.DroppedFilter = len(outcome.listings) - len(filtered)
	result.Stats.NormalizedCount = len(outcome.listings)
	if result.Stats.DroppedFilter > 0 {
		metrics.ListingsDroppedTotal.WithLabelValues("grade_filter").Add(float64(result.Stats.DroppedFilter))
	}

	grouping := s.grouper.Group(filtered)
	result.Listings = filtered
	result.Count = len(filtered)
	result.GroupedListings = grouping.Groups
	result.Stats.GlobalOutliers = len(grouping.GlobalOutliers)
	result.Stats.GroupOutliers = len(grouping.GroupOutliers)
	for _, g := range grouping.Groups {
		result.Stats.Grouped += g.Count
	}

	metrics.OutliersRemovedTotal.WithLabelValues("global").Add(float64(result.Stats.GlobalOutliers))
	metrics.OutliersRemovedTotal.WithLabelValues("group").Add(float64(result.Stats.GroupOutliers))
	metrics.GroupsPerSearch.Observe(float64(len(grouping.Groups)))

	if len(grouping.Groups) == 0 {
		result.Status = models.SearchStatusNoListings
		result.Reason = string(FailureEmpty)
	}
	metrics.SearchesTotal.WithLabelValues(string(mode), string(result.Status)).Inc()
	return result
}

// Analyze computes metrics, prediction and recommendation for one group
func (s *MarketService) Analyze(ctx context.Context, req AnalyzeRequest) (*models.MarketAnalysis, error) {
	if req.GroupID == "" {
		return nil, fmt.Errorf("%w: group_id is required", ErrInvalidQuery)
	}

	result, err := s.resolveSearch(ctx, req)
	if err != nil {
		return nil, err
	}
	if result.Status == models.SearchStatusSourceUnavailable {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, result.Reason)
	}

	group, ok := findGroup(result.GroupedListings, req.GroupID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, req.GroupID)
	}

	members := group.Members
	windowApplied := false
	if req.WindowDays > 0 {
		if inWindow := FilterWindow(members, req.WindowDays, models.NewCalendarDate(s.now())); len(inWindow) > 0 {
			members = inWindow
			windowApplied = true
		}
	}

	m := ComputeMetrics(members, s.cfg.TrendWindow)
	analysis := &models.MarketAnalysis{
		SearchKey:      result.SearchKey,
		Group:          group,
		WindowDays:     req.WindowDays,
		WindowApplied:  windowApplied,
		Metrics:        m,
		Prediction:     Predict(m),
		Recommendation: Recommend(m),
		Scores:         Scores(m),
		Outlook:        Outlook(members, m),
		History:        PriceHistory(members),
	}

	if roi, ok := ROIPercent(m.AveragePrice, req.PricePaid); ok {
		analysis.ROIPercent = &roi
	}

	if group.Tier == models.TierRaw {
		psa9 := gradedCounterpart(result.GroupedListings, models.TierPSA9, group.CardNumber)
		psa10 := gradedCounterpart(result.GroupedListings, models.TierPSA10, group.CardNumber)
		if psa9 != nil || psa10 != nil {
			var psa9Avg, psa10Avg float64
			if psa9 != nil {
				psa9Avg = psa9.AveragePrice
			}
			if psa10 != nil {
				psa10Avg = psa10.AveragePrice
			}
			profit := GradingProfitFor(m.AveragePrice, psa9Avg, psa10Avg, s.cfg.GradingCost)
			analysis.GradingProfit = &profit
		}
	}

	metrics.AnalysesTotal.WithLabelValues(string(analysis.Recommendation.Action)).Inc()
	return analysis, nil
}

// resolveSearch finds the listings an analysis refers to. Text searches are
// replayed through Search; image searches only exist while cached.
func (s *MarketService) resolveSearch(ctx context.Context, req AnalyzeRequest) (*models.SearchResult, error) {
	switch {
	case IsImageCacheKey(req.SearchKey):
		listings, ok := s.cacheGet(ctx, req.SearchKey)
		if !ok {
			return nil, fmt.Errorf("%w: run the image search again", ErrSearchExpired)
		}
		return s.buildResult(req.SearchKey, models.SearchModeImage, "", req.Grade, scrapeOutcome{listings: listings, fromCache: true}), nil
	case req.SearchKey != "":
		query, limit, ok := parseTextCacheKey(req.SearchKey)
		if !ok {
			return nil, fmt.Errorf("%w: malformed search_key", ErrInvalidQuery)
		}
		return s.Search(ctx, query, limit, req.Grade)
	case req.Query != "":
		return s.Search(ctx, req.Query, req.Limit, req.Grade)
	default:
		return nil, fmt.Errorf("%w: search_key or query is required", ErrInvalidQuery)
	}
}

// parseTextCacheKey reverses TextCacheKey
func parseTextCacheKey(key string) (string, int, bool) {
	rest, ok := strings.CutPrefix(key, "text:")
	if !ok {
		return "", 0, false
	}
	i := strings.LastIndex(rest, "|")
	if i <= 0 {
		return "", 0, false
	}
	limit, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:i], limit, true
}

func findGroup(groups []models.VariationGroup, id string) (models.VariationGroup, bool) {
	for _, g := range groups {
		if g.ID == id {
			return g, true
		}
	}
	return models.VariationGroup{}, false
}

// gradedCounterpart prefers a group in tier with the same card number, else
// the largest group in tier. Groups are already sorted by count.
func gradedCounterpart(groups []models.VariationGroup, tier models.GradeTier, cardNumber string) *models.VariationGroup {
	var largest *models.VariationGroup
	for i := range groups {
		g := &groups[i]
		if g.Tier != tier {
			continue
		}
		if cardNumber != "" && g.CardNumber == cardNumber {
			return g
		}
		if largest == nil {
			largest = g
		}
	}
	return largest
}

func (s *MarketService) resolveLimit(limit int, mode models.SearchMode) int {
	if limit <= 0 {
		if mode == models.SearchModeImage {
			return s.cfg.ImageLimit
		}
		return s.cfg.DefaultLimit
	}
	return min(limit, s.cfg.MaxLimit)
}
