package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codyseavey/card-comps/backend/internal/models"
)

// DropReason explains why a raw listing did not survive normalization
type DropReason string

const (
	DropNone      DropReason = ""
	DropPrice     DropReason = "price"
	DropImage     DropReason = "image"
	DropDuplicate DropReason = "duplicate"
)

var (
	priceStripPattern    = regexp.MustCompile(`[^0-9.]`)
	leadingNumberPattern = regexp.MustCompile(`^\d*\.?\d*`)
	soldDatePattern      = regexp.MustCompile(`([A-Za-z]{3})[a-z]*\.? (\d{1,2}), (\d{4})`)
	relativeDatePattern  = regexp.MustCompile(`(?i)\b(\d+)\s*(m|min|mins|minutes?|h|hrs?|hours?|d|days?|w|wks?|weeks?)\s+ago\b`)
)

// ParsePrice strips everything but digits and dots and parses the leading
// number. Only finite values greater than zero are accepted.
func ParsePrice(text string) (float64, bool) {
	stripped := priceStripPattern.ReplaceAllString(text, "")
	number := strings.TrimSuffix(leadingNumberPattern.FindString(stripped), ".")
	if number == "" || number == "." {
		return 0, false
	}

	d, err := decimal.NewFromString(number)
	if err != nil {
		return 0, false
	}
	value := d.Round(2).InexactFloat64()
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, false
	}
	return value, true
}

// ParseShipping returns the shipping cost. "Free", missing or unparsable
// shipping text is zero.
func ParseShipping(text string) float64 {
	lower := strings.ToLower(text)
	if lower == "" || strings.Contains(lower, "free") {
		return 0
	}
	if v, ok := ParsePrice(text); ok {
		return v
	}
	return 0
}

// ParseSoldDate finds a "Mon D, YYYY" date or a relative "3d ago" marker.
// Anything else is treated as sold today.
func ParseSoldDate(text string, now time.Time) models.CalendarDate {
	if m := soldDatePattern.FindStringSubmatch(text); m != nil {
		month := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
		if t, err := time.Parse("Jan 2, 2006", fmt.Sprintf("%s %s, %s", month, m[2], m[3])); err == nil {
			return models.NewCalendarDate(t)
		}
	}

	if m := relativeDatePattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			unit := strings.ToLower(m[2])
			var ago time.Duration
			switch unit[0] {
			case 'm':
				ago = time.Duration(n) * time.Minute
			case 'h':
				ago = time.Duration(n) * time.Hour
			case 'd':
				ago = time.Duration(n) * 24 * time.Hour
			case 'w':
				ago = time.Duration(n) * 7 * 24 * time.Hour
			}
			return models.NewCalendarDate(now.Add(-ago))
		}
	}

	return models.NewCalendarDate(now)
}

// CleanURL drops the query string and fragment so repeated scrapes of the
// same image or item compare equal
func CleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

// NormalizeStats counts dropped records by reason
type NormalizeStats struct {
	Input        int
	Kept         int
	DroppedPrice int
	DroppedImage int
	DroppedDup   int
}

// Normalizer converts raw listings into typed listings
type Normalizer struct {
	classifier *Classifier
	now        func() time.Time
}

// NewNormalizer creates a normalizer using the given classifier
func NewNormalizer(classifier *Classifier) *Normalizer {
	return &Normalizer{
		classifier: classifier,
		now:        time.Now,
	}
}

// Normalize maps one raw listing. index is its position in the scrape and
// only feeds the ID when the listing has no link.
func (n *Normalizer) Normalize(raw models.RawListing, index int) (models.NormalizedListing, DropReason) {
	price, ok := ParsePrice(raw.PriceText)
	if !ok {
		return models.NormalizedListing{}, DropPrice
	}

	imageURL := CleanURL(raw.ImageRef)
	if imageURL == "" || IsPlaceholderImage(imageURL) {
		return models.NormalizedListing{}, DropImage
	}

	title := CleanTitle(raw.Title)
	shipping := ParseShipping(raw.ShippingText)
	sourceURL := CleanURL(raw.Link)

	return models.NormalizedListing{
		ID:            listingID(sourceURL, title, price, index),
		Title:         title,
		Price:         price,
		Shipping:      shipping,
		TotalPrice:    decimal.NewFromFloat(price).Add(decimal.NewFromFloat(shipping)).InexactFloat64(),
		SoldDate:      ParseSoldDate(raw.DateText, n.now()),
		ImageURL:      imageURL,
		SourceURL:     sourceURL,
		Grade:         n.classifier.Grade(title),
		VariationHint: n.classifier.VariationHint(title),
	}, DropNone
}

// NormalizeBatch normalizes a scrape, dropping malformed records and
// repeated links individually. Order is preserved.
func (n *Normalizer) NormalizeBatch(raws []models.RawListing) ([]models.NormalizedListing, NormalizeStats) {
	stats := NormalizeStats{Input: len(raws)}
	listings := make([]models.NormalizedListing, 0, len(raws))
	seen := make(map[string]bool, len(raws))

	for i, raw := range raws {
		listing, reason := n.Normalize(raw, i)
		switch reason {
		case DropPrice:
			stats.DroppedPrice++
			continue
		case DropImage:
			stats.DroppedImage++
			continue
		}

		if seen[listing.ID] {
			stats.DroppedDup++
			continue
		}
		seen[listing.ID] = true
		listings = append(listings, listing)
	}

	stats.Kept = len(listings)
	return listings, stats
}

// listingID is stable across scrapes of the same item
func listingID(sourceURL, title string, price float64, index int) string {
	name := sourceURL
	if name == "" {
		name = fmt.Sprintf("%s|%.2f|%d", title, price, index)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
