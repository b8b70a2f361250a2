package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/codyseavey/card-comps/backend/internal/models"
	"github.com/codyseavey/card-comps/backend/internal/ratelimit"
)

const (
	browserSourceName = "ebay-browser"

	defaultNavigationTimeout = 45 * time.Second
	scrollSettleDelay        = 1500 * time.Millisecond
)

// extractScript reads every result card into a rawCard-shaped object
const extractScript = `
(function() {
	var text = function(root, sel) {
		var el = root.querySelector(sel);
		return el ? (el.innerText || el.textContent || '').trim() : '';
	};
	var cards = [];
	document.querySelectorAll('` + selResultItem + `').forEach(function(item) {
		var img = item.querySelector('` + selImage + `');
		var link = item.querySelector('` + selLink + `');
		cards.push({
			title: text(item, '` + selTitle + `'),
			price: text(item, '` + selPrice + `'),
			shipping: text(item, '` + selShipping + `'),
			images: {
				src: img ? (img.getAttribute('src') || '') : '',
				dataSrc: img ? (img.getAttribute('data-src') || '') : '',
				srcset: img ? (img.getAttribute('srcset') || '') : '',
				dataSrcset: img ? (img.getAttribute('data-srcset') || '') : ''
			},
			link: link ? link.href : '',
			date: text(item, '` + selDate + `')
		});
	});
	return cards;
})()
`

// hasFileInputScript reports whether the image upload input is on the page
const hasFileInputScript = `!!document.querySelector('input[type="file"]')`

// clickAddPhotoScript clicks the control that reveals the upload input
const clickAddPhotoScript = `
(function() {
	var btn = document.querySelector('[data-test-id="upload-image-button"]');
	if (!btn) {
		var buttons = document.querySelectorAll('button, [role="button"]');
		for (var i = 0; i < buttons.length; i++) {
			if ((buttons[i].innerText || '').toLowerCase().indexOf('add a photo') !== -1) {
				btn = buttons[i];
				break;
			}
		}
	}
	if (btn) { btn.click(); return true; }
	return false;
})()
`

// BrowserConfig configures the headless browser source
type BrowserConfig struct {
	ChromeBin         string
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
	BaseURL           string
}

// EbayBrowserSource drives headless Chrome against eBay sold listings.
// Each call gets its own browser process which is torn down on return.
type EbayBrowserSource struct {
	cfg     BrowserConfig
	limiter *ratelimit.KeyedRateLimiter
}

// NewEbayBrowserSource creates a browser-backed listing source
func NewEbayBrowserSource(cfg BrowserConfig, limiter *ratelimit.KeyedRateLimiter) *EbayBrowserSource {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = ebayBaseURL
	}
	if cfg.ChromeBin == "" {
		cfg.ChromeBin = findChromeBinary()
	}
	log.Printf("Browser source: %s", cfg)
	return &EbayBrowserSource{cfg: cfg, limiter: limiter}
}

// Name identifies the source in logs, metrics and search stats
func (s *EbayBrowserSource) Name() string {
	return browserSourceName
}

// Search loads the sold/completed results page for query
func (s *EbayBrowserSource) Search(ctx context.Context, query string, limit int) ([]models.RawListing, error) {
	limit = ResolveLimit(limit, models.SearchModeText)
	searchURL := SoldSearchURL(s.cfg.BaseURL, query)

	var listings []models.RawListing
	err := s.withBrowser(ctx, "search", func(browserCtx context.Context) error {
		if err := s.navigate(browserCtx, "search", searchURL); err != nil {
			return err
		}
		cards, err := s.extract(browserCtx, "search")
		if err != nil {
			return err
		}
		listings = collectListings(cards, limit)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Browser source: %d listings for %q", len(listings), query)
	if len(listings) == 0 {
		return nil, newSourceError(browserSourceName, "search", FailureEmpty, nil)
	}
	return listings, nil
}

// SearchByImage uploads imagePath to the image search page and extracts
// the results exactly like a text search
func (s *EbayBrowserSource) SearchByImage(ctx context.Context, imagePath string, limit int) ([]models.RawListing, error) {
	limit = ResolveLimit(limit, models.SearchModeImage)

	if _, err := os.Stat(imagePath); err != nil {
		return nil, newSourceError(browserSourceName, "image-search", FailureUpload, err)
	}

	var listings []models.RawListing
	err := s.withBrowser(ctx, "image-search", func(browserCtx context.Context) error {
		if err := s.navigate(browserCtx, "image-search", s.cfg.BaseURL+"/sl/img"); err != nil {
			return err
		}
		if err := s.upload(browserCtx, imagePath); err != nil {
			return err
		}
		cards, err := s.extract(browserCtx, "image-search")
		if err != nil {
			return err
		}
		listings = collectListings(cards, limit)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Browser source: %d listings for image search", len(listings))
	if len(listings) == 0 {
		return nil, newSourceError(browserSourceName, "image-search", FailureEmpty, nil)
	}
	return listings, nil
}

// withBrowser starts a browser, runs fn and always tears the browser down
func (s *EbayBrowserSource) withBrowser(ctx context.Context, op string, fn func(context.Context) error) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, "www.ebay.com"); err != nil {
			return newSourceError(browserSourceName, op, FailureTimeout, err)
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1366, 900),
	)
	if s.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.cfg.UserAgent))
	}
	if s.cfg.ChromeBin != "" {
		opts = append(opts, chromedp.ExecPath(s.cfg.ChromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	// Start the browser before any step timeout so a step deadline
	// does not kill the whole process
	if err := chromedp.Run(browserCtx, network.Enable(), network.SetExtraHTTPHeaders(network.Headers{
		"Accept-Language": "en-US,en;q=0.9",
	})); err != nil {
		return newSourceError(browserSourceName, op, classifyBrowserError(ctx, err, FailureNavigation), err)
	}

	return fn(browserCtx)
}

func (s *EbayBrowserSource) navigate(browserCtx context.Context, op, target string) error {
	stepCtx, cancel := context.WithTimeout(browserCtx, s.cfg.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(stepCtx, chromedp.Navigate(target)); err != nil {
		return newSourceError(browserSourceName, op, classifyBrowserError(stepCtx, err, FailureNavigation), err)
	}
	return nil
}

func (s *EbayBrowserSource) upload(browserCtx context.Context, imagePath string) error {
	stepCtx, cancel := context.WithTimeout(browserCtx, s.cfg.NavigationTimeout)
	defer cancel()

	var hasInput bool
	if err := chromedp.Run(stepCtx, chromedp.Evaluate(hasFileInputScript, &hasInput)); err != nil {
		return newSourceError(browserSourceName, "image-search", classifyBrowserError(stepCtx, err, FailureUpload), err)
	}

	if !hasInput {
		var clicked bool
		if err := chromedp.Run(stepCtx, chromedp.Evaluate(clickAddPhotoScript, &clicked)); err != nil {
			return newSourceError(browserSourceName, "image-search", classifyBrowserError(stepCtx, err, FailureUpload), err)
		}
		if !clicked {
			return newSourceError(browserSourceName, "image-search", FailureSelector, errors.New("upload control not found"))
		}
	}

	err := chromedp.Run(stepCtx,
		chromedp.WaitReady(`input[type="file"]`, chromedp.ByQuery),
		chromedp.SetUploadFiles(`input[type="file"]`, []string{imagePath}, chromedp.ByQuery),
	)
	if err != nil {
		return newSourceError(browserSourceName, "image-search", classifyBrowserError(stepCtx, err, FailureUpload), err)
	}
	return nil
}

func (s *EbayBrowserSource) extract(browserCtx context.Context, op string) ([]rawCard, error) {
	stepCtx, cancel := context.WithTimeout(browserCtx, s.cfg.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(stepCtx, chromedp.WaitReady(selResultItem, chromedp.ByQuery)); err != nil {
		return nil, newSourceError(browserSourceName, op, classifyBrowserError(stepCtx, err, FailureSelector), err)
	}

	var cards []rawCard
	err := chromedp.Run(stepCtx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(scrollSettleDelay),
		chromedp.Evaluate(extractScript, &cards),
	)
	if err != nil {
		return nil, newSourceError(browserSourceName, op, classifyBrowserError(stepCtx, err, FailureSelector), err)
	}
	return cards, nil
}

// classifyBrowserError maps deadline expiry to a timeout, anything else to fallback
func classifyBrowserError(ctx context.Context, err error, fallback SourceFailureKind) SourceFailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return FailureTimeout
	}
	if errors.Is(err, context.Canceled) {
		return FailureTimeout
	}
	return fallback
}

// findChromeBinary locates a Chrome/Chromium binary. Empty lets chromedp
// use its own lookup.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range []string{"/usr/bin/chromium", "/snap/bin/chromium", "/opt/google/chrome/google-chrome"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c BrowserConfig) String() string {
	return fmt.Sprintf("headless=%v timeout=%s chrome=%q", c.Headless, c.NavigationTimeout, c.ChromeBin)
}

var _ ListingSource = (*EbayBrowserSource)(nil)
