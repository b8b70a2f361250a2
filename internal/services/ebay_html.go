package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/codyseavey/card-comps/backend/internal/models"
	"github.com/codyseavey/card-comps/backend/internal/ratelimit"
)

const (
	htmlSourceName = "ebay-html"

	htmlDefaultTimeout = 30 * time.Second
	retryBaseDelay     = 2 * time.Second
)

// HTMLSourceConfig configures the plain HTTP source
type HTMLSourceConfig struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// EbayHTMLSource fetches the sold results page over plain HTTP and parses
// it with goquery. It cannot upload images.
type EbayHTMLSource struct {
	client  *http.Client
	cfg     HTMLSourceConfig
	limiter *ratelimit.KeyedRateLimiter
}

// NewEbayHTMLSource creates an HTTP + DOM-parse listing source
func NewEbayHTMLSource(cfg HTMLSourceConfig, limiter *ratelimit.KeyedRateLimiter) *EbayHTMLSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ebayBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = htmlDefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = retryBaseDelay
	}

	return &EbayHTMLSource{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:     cfg,
		limiter: limiter,
	}
}

// Name identifies the source in logs, metrics and search stats
func (s *EbayHTMLSource) Name() string {
	return htmlSourceName
}

// Search fetches and parses the sold/completed results page for query
func (s *EbayHTMLSource) Search(ctx context.Context, query string, limit int) ([]models.RawListing, error) {
	limit = ResolveLimit(limit, models.SearchModeText)
	searchURL := SoldSearchURL(s.cfg.BaseURL, query)

	var doc *goquery.Document
	err := retry(ctx, s.cfg.MaxRetries, s.cfg.RetryDelay, "html search", func() error {
		var fetchErr error
		doc, fetchErr = s.fetch(ctx, searchURL)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	items := doc.Find(selResultItem)
	if items.Length() == 0 {
		return nil, newSourceError(htmlSourceName, "search", FailureSelector, errors.New("no result items on page"))
	}

	cards := make([]rawCard, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		cards = append(cards, parseResultItem(item))
	})

	listings := collectListings(cards, limit)
	log.Printf("HTML source: %d listings for %q", len(listings), query)
	if len(listings) == 0 {
		return nil, newSourceError(htmlSourceName, "search", FailureEmpty, nil)
	}
	return listings, nil
}

// SearchByImage is not possible without a browser
func (s *EbayHTMLSource) SearchByImage(ctx context.Context, imagePath string, limit int) ([]models.RawListing, error) {
	return nil, newSourceError(htmlSourceName, "image-search", FailureUnsupported, nil)
}

func (s *EbayHTMLSource) fetch(ctx context.Context, target string) (*goquery.Document, error) {
	if s.limiter != nil {
		host := "www.ebay.com"
		if u, err := url.Parse(target); err == nil && u.Host != "" {
			host = u.Host
		}
		if err := s.limiter.Wait(ctx, host); err != nil {
			return nil, permanent(newSourceError(htmlSourceName, "search", FailureTimeout, err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, permanent(newSourceError(htmlSourceName, "search", FailureNavigation, err))
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		kind := FailureNavigation
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = FailureTimeout
		}
		return nil, newSourceError(htmlSourceName, "search", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		srcErr := newSourceError(htmlSourceName, "search", FailureNavigation, fmt.Errorf("status %d", resp.StatusCode))
		// Client errors will not improve on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, permanent(srcErr)
		}
		return nil, srcErr
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, permanent(newSourceError(htmlSourceName, "search", FailureSelector, err))
	}
	return doc, nil
}

func parseResultItem(item *goquery.Selection) rawCard {
	img := item.Find(selImage).First()
	link, _ := item.Find(selLink).First().Attr("href")

	return rawCard{
		Title:        strings.TrimSpace(item.Find(selTitle).First().Text()),
		PriceText:    strings.TrimSpace(item.Find(selPrice).First().Text()),
		ShippingText: strings.TrimSpace(item.Find(selShipping).First().Text()),
		Images: ImageCandidates{
			Src:        img.AttrOr("src", ""),
			DataSrc:    img.AttrOr("data-src", ""),
			SrcSet:     img.AttrOr("srcset", ""),
			DataSrcSet: img.AttrOr("data-srcset", ""),
		},
		Link:     link,
		DateText: strings.TrimSpace(item.Find(selDate).First().Text()),
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

var _ ListingSource = (*EbayHTMLSource)(nil)
