package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/codyseavey/card-comps/backend/internal/models"
)

const (
	ebayBaseURL = "https://www.ebay.com"

	// DefaultTextLimit and DefaultImageLimit apply when the caller passes 0
	DefaultTextLimit  = 120
	DefaultImageLimit = 60
	// MaxListingLimit is one full eBay results page
	MaxListingLimit = 240
)

// Result card selectors shared by the browser and HTML sources
const (
	selResultItem = ".s-item"
	selTitle      = ".s-item__title"
	selPrice      = ".s-item__price"
	selShipping   = ".s-item__shipping, .s-item__freeXDays, .s-item__logisticsCost"
	selImage      = "img.s-item__image-img, .s-item__image-wrapper img, .s-item__image img"
	selLink       = "a.s-item__link"
	selDate       = ".s-item__endedDate, .s-item__listingDate, .s-item__soldDate, .s-item__caption--signal, .POSITIVE"
)

// ListingSource fetches raw listings from a marketplace. Implementations must
// release every browser or connection they open before returning.
type ListingSource interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]models.RawListing, error)
	SearchByImage(ctx context.Context, imagePath string, limit int) ([]models.RawListing, error)
}

// boilerplateTitles are promotional cards mixed into result pages
var boilerplateTitles = []string{
	"shop on ebay",
	"results matching fewer words",
}

// IsBoilerplate reports whether a result card is not a real product
func IsBoilerplate(title string) bool {
	lower := strings.ToLower(strings.TrimSpace(title))
	if lower == "" {
		return true
	}
	for _, b := range boilerplateTitles {
		if strings.Contains(lower, b) {
			return true
		}
	}
	return false
}

// CleanTitle removes the "New Listing" marker and collapses whitespace
func CleanTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	for _, prefix := range []string{"New Listing", "NEW LISTING", "New listing"} {
		title = strings.TrimSpace(strings.TrimPrefix(title, prefix))
	}
	return title
}

// IsPlaceholderImage matches lazy-load placeholders, spacer pixels and gifs
func IsPlaceholderImage(src string) bool {
	lower := strings.ToLower(strings.TrimSpace(src))
	if lower == "" {
		return true
	}
	if strings.Contains(lower, "placeholder") || strings.Contains(lower, "no-image") || strings.Contains(lower, "spacer") {
		return true
	}
	return strings.HasSuffix(CleanURL(lower), ".gif")
}

// ImageCandidates are the image attributes read off a result card
type ImageCandidates struct {
	Src        string `json:"src"`
	DataSrc    string `json:"dataSrc"`
	SrcSet     string `json:"srcset"`
	DataSrcSet string `json:"dataSrcset"`
}

// BestImage tries src, data-src, then the last (largest) srcset and
// data-srcset candidates. Returns "" when none is a real image.
func BestImage(c ImageCandidates) string {
	for _, candidate := range []string{
		c.Src,
		c.DataSrc,
		lastSrcSetCandidate(c.SrcSet),
		lastSrcSetCandidate(c.DataSrcSet),
	} {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && !IsPlaceholderImage(candidate) {
			return candidate
		}
	}
	return ""
}

func lastSrcSetCandidate(srcset string) string {
	parts := strings.Split(srcset, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		fields := strings.Fields(parts[i])
		if len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// SoldSearchURL builds the completed/sold search URL for a query
func SoldSearchURL(baseURL, query string) string {
	params := url.Values{}
	params.Set("_nkw", query)
	params.Set("_sacat", "0")
	params.Set("LH_Sold", "1")
	params.Set("LH_Complete", "1")
	params.Set("_ipg", "240")
	return strings.TrimRight(baseURL, "/") + "/sch/i.html?" + params.Encode()
}

// ResolveLimit applies the mode default and the hard cap
func ResolveLimit(limit int, mode models.SearchMode) int {
	if limit <= 0 {
		if mode == models.SearchModeImage {
			return DefaultImageLimit
		}
		return DefaultTextLimit
	}
	if limit > MaxListingLimit {
		return MaxListingLimit
	}
	return limit
}

// rawCard is the per-card extraction result shared by both sources
type rawCard struct {
	Title        string          `json:"title"`
	PriceText    string          `json:"price"`
	ShippingText string          `json:"shipping"`
	Images       ImageCandidates `json:"images"`
	Link         string          `json:"link"`
	DateText     string          `json:"date"`
}

// collectListings filters boilerplate and imageless cards and applies the limit
func collectListings(cards []rawCard, limit int) []models.RawListing {
	listings := make([]models.RawListing, 0, min(len(cards), limit))
	for _, card := range cards {
		if len(listings) >= limit {
			break
		}
		title := CleanTitle(card.Title)
		if IsBoilerplate(title) {
			continue
		}
		image := BestImage(card.Images)
		if image == "" {
			continue
		}
		listings = append(listings, models.RawListing{
			Title:        title,
			PriceText:    strings.TrimSpace(card.PriceText),
			ShippingText: strings.TrimSpace(card.ShippingText),
			ImageRef:     image,
			Link:         strings.TrimSpace(card.Link),
			DateText:     strings.TrimSpace(card.DateText),
		})
	}
	return listings
}
