package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/card-comps/backend/internal/models"
)

// fakeSource is a canned ListingSource
type fakeSource struct {
	name     string
	listings []models.RawListing
	err      error
	delay    time.Duration

	mu         sync.Mutex
	calls      int
	imagePaths []string
}

func (f *fakeSource) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeSource) Search(ctx context.Context, query string, limit int) ([]models.RawListing, error) {
	return f.respond(ctx, limit)
}

func (f *fakeSource) SearchByImage(ctx context.Context, imagePath string, limit int) ([]models.RawListing, error) {
	f.mu.Lock()
	f.imagePaths = append(f.imagePaths, imagePath)
	f.mu.Unlock()
	return f.respond(ctx, limit)
}

func (f *fakeSource) respond(ctx context.Context, limit int) ([]models.RawListing, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, newSourceError(f.Name(), "search", FailureTimeout, ctx.Err())
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.listings) > limit {
		return f.listings[:limit], nil
	}
	return f.listings, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestBestImage(t *testing.T) {
	tests := []struct {
		name string
		in   ImageCandidates
		want string
	}{
		{
			name: "src wins",
			in:   ImageCandidates{Src: "https://i.ebayimg.com/a.jpg", DataSrc: "https://i.ebayimg.com/b.jpg"},
			want: "https://i.ebayimg.com/a.jpg",
		},
		{
			name: "lazy-load placeholder falls through to data-src",
			in:   ImageCandidates{Src: "https://ir.ebaystatic.com/s_1x2.gif", DataSrc: "https://i.ebayimg.com/b.jpg"},
			want: "https://i.ebayimg.com/b.jpg",
		},
		{
			name: "last srcset candidate",
			in:   ImageCandidates{SrcSet: "https://i.ebayimg.com/s-l140.jpg 1x, https://i.ebayimg.com/s-l500.jpg 2x"},
			want: "https://i.ebayimg.com/s-l500.jpg",
		},
		{
			name: "data-srcset after srcset",
			in:   ImageCandidates{Src: "/images/placeholder.png", DataSrcSet: "https://i.ebayimg.com/s-l225.webp 1x"},
			want: "https://i.ebayimg.com/s-l225.webp",
		},
		{
			name: "nothing usable",
			in:   ImageCandidates{Src: "https://x/no-image.jpg", DataSrc: "https://x/spacer.png"},
			want: "",
		},
		{
			name: "empty",
			in:   ImageCandidates{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BestImage(tt.in); got != tt.want {
				t.Errorf("BestImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsPlaceholderImage(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"https://i.ebayimg.com/images/g/abc/s-l500.jpg", false},
		{"https://ir.ebaystatic.com/pictures/aw/pics/s_1x2.gif", true},
		{"https://i.ebayimg.com/spinner.GIF?v=2", true},
		{"https://x/Placeholder.png", true},
		{"https://x/no-image-available.jpg", true},
		{"", true},
	}

	for _, tt := range tests {
		if got := IsPlaceholderImage(tt.src); got != tt.want {
			t.Errorf("IsPlaceholderImage(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestCleanTitleAndBoilerplate(t *testing.T) {
	assert.Equal(t, "2020 Prizm Justin Jefferson", CleanTitle("New Listing  2020 Prizm   Justin Jefferson"))
	assert.Equal(t, "2020 Prizm Justin Jefferson", CleanTitle("NEW LISTING 2020 Prizm Justin Jefferson"))

	assert.True(t, IsBoilerplate("Shop on eBay"))
	assert.True(t, IsBoilerplate("SHOP ON EBAY"))
	assert.True(t, IsBoilerplate("Results matching fewer words"))
	assert.True(t, IsBoilerplate("   "))
	assert.False(t, IsBoilerplate("2020 Prizm Justin Jefferson"))
}

func TestSoldSearchURL(t *testing.T) {
	got := SoldSearchURL("https://www.ebay.com/", "jefferson prizm #398")
	assert.True(t, strings.HasPrefix(got, "https://www.ebay.com/sch/i.html?"))
	assert.Contains(t, got, "_nkw=jefferson+prizm+%23398")
	assert.Contains(t, got, "LH_Sold=1")
	assert.Contains(t, got, "LH_Complete=1")
}

func TestResolveLimit(t *testing.T) {
	assert.Equal(t, DefaultTextLimit, ResolveLimit(0, models.SearchModeText))
	assert.Equal(t, DefaultImageLimit, ResolveLimit(-1, models.SearchModeImage))
	assert.Equal(t, 50, ResolveLimit(50, models.SearchModeText))
	assert.Equal(t, MaxListingLimit, ResolveLimit(10000, models.SearchModeText))
}

const soldResultsFixture = `<!DOCTYPE html>
<html><body><ul class="srp-results">
<li class="s-item">
  <div class="s-item__image"><img src="https://ir.ebaystatic.com/s_1x2.gif"></div>
  <div class="s-item__title">Shop on eBay</div>
  <span class="s-item__price">$20.00</span>
</li>
<li class="s-item">
  <div class="s-item__image-wrapper"><img src="https://i.ebayimg.com/images/g/aaa/s-l225.jpg?set=1"></div>
  <a class="s-item__link" href="https://www.ebay.com/itm/111?hash=x"><div class="s-item__title"><span>New Listing</span>2020 Prizm Justin Jefferson #398 PSA 10</div></a>
  <span class="s-item__price">$55.00</span>
  <span class="s-item__shipping">+$4.50 shipping</span>
  <span class="s-item__caption--signal">Sold  Mar 3, 2024</span>
</li>
<li class="s-item">
  <div class="s-item__image-wrapper"><img src="https://ir.ebaystatic.com/s_1x2.gif" data-src="https://i.ebayimg.com/images/g/bbb/s-l225.jpg"></div>
  <a class="s-item__link" href="https://www.ebay.com/itm/222"><div class="s-item__title">2020 Prizm Justin Jefferson #398</div></a>
  <span class="s-item__price">$22.50</span>
  <span class="s-item__shipping">Free shipping</span>
  <span class="s-item__caption--signal">Sold Mar 4, 2024</span>
</li>
<li class="s-item">
  <div class="s-item__image-wrapper"><img src="https://ir.ebaystatic.com/s_1x2.gif"></div>
  <a class="s-item__link" href="https://www.ebay.com/itm/333"><div class="s-item__title">2020 Prizm Justin Jefferson #398 no photo</div></a>
  <span class="s-item__price">$21.00</span>
</li>
<li class="s-item">
  <div class="s-item__image-wrapper"><img srcset="https://i.ebayimg.com/images/g/ccc/s-l140.jpg 1x, https://i.ebayimg.com/images/g/ccc/s-l500.jpg 2x"></div>
  <a class="s-item__link" href="https://www.ebay.com/itm/444"><div class="s-item__title">2020 Prizm Justin Jefferson #398 PSA 9</div></a>
  <span class="s-item__price">$33.00</span>
</li>
</ul></body></html>`

func newHTMLTestSource(url string) *EbayHTMLSource {
	return NewEbayHTMLSource(HTMLSourceConfig{
		BaseURL:    url,
		UserAgent:  "card-comps-test",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, nil)
}

func TestEbayHTMLSource_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sch/i.html", r.URL.Path)
		assert.Equal(t, "jefferson prizm", r.URL.Query().Get("_nkw"))
		assert.Equal(t, "1", r.URL.Query().Get("LH_Sold"))
		assert.Equal(t, "card-comps-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(soldResultsFixture))
	}))
	defer server.Close()

	source := newHTMLTestSource(server.URL)
	listings, err := source.Search(context.Background(), "jefferson prizm", 10)
	require.NoError(t, err)
	require.Len(t, listings, 3, "boilerplate and imageless cards are skipped")

	first := listings[0]
	assert.Equal(t, "2020 Prizm Justin Jefferson #398 PSA 10", first.Title)
	assert.Equal(t, "$55.00", first.PriceText)
	assert.Equal(t, "+$4.50 shipping", first.ShippingText)
	assert.Equal(t, "https://i.ebayimg.com/images/g/aaa/s-l225.jpg?set=1", first.ImageRef)
	assert.Equal(t, "https://www.ebay.com/itm/111?hash=x", first.Link)
	assert.Equal(t, "Sold  Mar 3, 2024", first.DateText)

	assert.Equal(t, "https://i.ebayimg.com/images/g/bbb/s-l225.jpg", listings[1].ImageRef)
	assert.Equal(t, "https://i.ebayimg.com/images/g/ccc/s-l500.jpg", listings[2].ImageRef)

	limited, err := source.Search(context.Background(), "jefferson prizm", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestEbayHTMLSource_Failures(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantKind     SourceFailureKind
		wantSentinel error
		wantRequests int32
	}{
		{
			name:         "client error is not retried",
			status:       http.StatusForbidden,
			wantKind:     FailureNavigation,
			wantSentinel: ErrSourceUnavailable,
			wantRequests: 1,
		},
		{
			name:         "server error is retried",
			status:       http.StatusBadGateway,
			wantKind:     FailureNavigation,
			wantSentinel: ErrSourceUnavailable,
			wantRequests: 2,
		},
		{
			name:         "page without results",
			status:       http.StatusOK,
			body:         "<html><body><p>captcha</p></body></html>",
			wantKind:     FailureSelector,
			wantSentinel: ErrSourceUnavailable,
			wantRequests: 1,
		},
		{
			name:         "only boilerplate",
			status:       http.StatusOK,
			body:         `<ul><li class="s-item"><div class="s-item__title">Shop on eBay</div></li></ul>`,
			wantKind:     FailureEmpty,
			wantSentinel: ErrNoListings,
			wantRequests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&requests, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newHTMLTestSource(server.URL).Search(context.Background(), "jefferson", 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantSentinel)
			assert.Equal(t, tt.wantKind, failureKind(err))
			assert.Equal(t, tt.wantRequests, atomic.LoadInt32(&requests))
		})
	}
}

func TestEbayHTMLSource_SearchByImageUnsupported(t *testing.T) {
	_, err := newHTMLTestSource("http://127.0.0.1:0").SearchByImage(context.Background(), "/tmp/card.jpg", 10)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, FailureUnsupported, failureKind(err))
}

func TestFallbackSource(t *testing.T) {
	listing := models.RawListing{Title: "Jefferson", PriceText: "$20", ImageRef: "https://img/a.jpg"}
	primaryErr := newSourceError("browser", "search", FailureTimeout, context.DeadlineExceeded)

	t.Run("primary success skips secondary", func(t *testing.T) {
		primary := &fakeSource{name: "browser", listings: []models.RawListing{listing}}
		secondary := &fakeSource{name: "html"}
		got, err := NewFallbackSource(primary, secondary).Search(context.Background(), "q", 10)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, 0, secondary.callCount())
	})

	t.Run("primary failure falls back", func(t *testing.T) {
		primary := &fakeSource{name: "browser", err: primaryErr}
		secondary := &fakeSource{name: "html", listings: []models.RawListing{listing, listing}}
		got, err := NewFallbackSource(primary, secondary).Search(context.Background(), "q", 10)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("both fail reports primary error", func(t *testing.T) {
		primary := &fakeSource{name: "browser", err: primaryErr}
		secondary := &fakeSource{name: "html", err: newSourceError("html", "search", FailureSelector, nil)}
		_, err := NewFallbackSource(primary, secondary).Search(context.Background(), "q", 10)
		assert.Equal(t, FailureTimeout, failureKind(err))
	})

	t.Run("image search uses primary only", func(t *testing.T) {
		primary := &fakeSource{name: "browser", listings: []models.RawListing{listing}}
		secondary := &fakeSource{name: "html"}
		source := NewFallbackSource(primary, secondary)
		_, err := source.SearchByImage(context.Background(), "/tmp/a.jpg", 10)
		require.NoError(t, err)
		assert.Equal(t, 0, secondary.callCount())
		assert.Equal(t, "browser+html", source.Name())
	})
}

func TestSourceError(t *testing.T) {
	cause := errors.New("net::ERR_NAME_NOT_RESOLVED")
	err := newSourceError("ebay-browser", "search", FailureNavigation, cause)

	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNoListings)
	assert.Contains(t, err.Error(), "navigation")

	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ebay-browser", se.Source)

	assert.ErrorIs(t, newSourceError("x", "search", FailureEmpty, nil), ErrNoListings)
	assert.Equal(t, FailureNavigation, failureKind(errors.New("plain")))
}
