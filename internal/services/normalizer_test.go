package services

import (
	"math"
	"testing"
	"time"

	"github.com/codyseavey/card-comps/backend/internal/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		text   string
		want   float64
		wantOK bool
	}{
		{"$123.45", 123.45, true},
		{"$1,234.56", 1234.56, true},
		{"US $45.00", 45, true},
		{"$19.999", 20, true},
		{"Free shipping $0.00", 0, false},
		{"$0.00", 0, false},
		{"", 0, false},
		{"Best offer", 0, false},
		{".", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParsePrice(tt.text)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParsePrice(%q) = (%v, %v), want (%v, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseShipping(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"", 0},
		{"Free shipping", 0},
		{"FREE delivery", 0},
		{"+$4.99 shipping", 4.99},
		{"Shipping not specified", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ParseShipping(tt.text); got != tt.want {
				t.Errorf("ParseShipping(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseSoldDate(t *testing.T) {
	now := time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)
	date := func(y int, m time.Month, d int) models.CalendarDate {
		return models.NewCalendarDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	}

	tests := []struct {
		text string
		want models.CalendarDate
	}{
		{"Sold  Mar 3, 2024", date(2024, time.March, 3)},
		{"Sold Feb 29, 2024", date(2024, time.February, 29)},
		{"SOLD DEC 25, 2023", date(2023, time.December, 25)},
		{"Sold September 5, 2023", date(2023, time.September, 5)},
		{"3d ago", date(2024, time.March, 7)},
		{"5h ago", date(2024, time.March, 10)},
		{"2 weeks ago", date(2024, time.February, 25)},
		{"", date(2024, time.March, 10)},
		{"recently", date(2024, time.March, 10)},
		{"Sold Foo 45, 2024", date(2024, time.March, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ParseSoldDate(tt.text, now); !got.Equal(tt.want.Time) {
				t.Errorf("ParseSoldDate(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://i.ebayimg.com/images/g/abc/s-l500.jpg?set_id=1", "https://i.ebayimg.com/images/g/abc/s-l500.jpg"},
		{"https://www.ebay.com/itm/123#tab", "https://www.ebay.com/itm/123"},
		{"  https://www.ebay.com/itm/123  ", "https://www.ebay.com/itm/123"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := CleanURL(tt.raw); got != tt.want {
				t.Errorf("CleanURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func newTestNormalizer(now time.Time) *Normalizer {
	n := NewNormalizer(NewClassifier())
	n.now = func() time.Time { return now }
	return n
}

func TestNormalizer_Normalize(t *testing.T) {
	n := newTestNormalizer(time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC))

	raw := models.RawListing{
		Title:        "New Listing 2020 Prizm Justin Jefferson #398 PSA 10",
		PriceText:    "$123.45",
		ShippingText: "+$4.50 shipping",
		ImageRef:     "https://i.ebayimg.com/images/g/abc/s-l500.jpg?x=1",
		Link:         "https://www.ebay.com/itm/111?hash=abc",
		DateText:     "Sold Mar 3, 2024",
	}

	got, reason := n.Normalize(raw, 0)
	if reason != DropNone {
		t.Fatalf("Normalize() dropped listing: %s", reason)
	}
	if got.Title != "2020 Prizm Justin Jefferson #398 PSA 10" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Price != 123.45 || got.Shipping != 4.5 || got.TotalPrice != 127.95 {
		t.Errorf("prices = %v + %v = %v, want 123.45 + 4.5 = 127.95", got.Price, got.Shipping, got.TotalPrice)
	}
	if got.ImageURL != "https://i.ebayimg.com/images/g/abc/s-l500.jpg" {
		t.Errorf("ImageURL = %q", got.ImageURL)
	}
	if got.SourceURL != "https://www.ebay.com/itm/111" {
		t.Errorf("SourceURL = %q", got.SourceURL)
	}
	if got.Grade != models.GradePSA10 {
		t.Errorf("Grade = %q, want %q", got.Grade, models.GradePSA10)
	}
	if got.SoldDate.String() != "2024-03-03" {
		t.Errorf("SoldDate = %s, want 2024-03-03", got.SoldDate)
	}
	if got.ID == "" {
		t.Error("ID should be set")
	}
}

func TestNormalizer_TotalPriceInCents(t *testing.T) {
	n := newTestNormalizer(time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		price    string
		shipping string
		want     float64
	}{
		{"$0.01", "+$0.14 shipping", 0.15},
		{"$0.10", "+$0.20 shipping", 0.3},
		{"$19.99", "+$5.01 shipping", 25},
		{"$1,234.56", "Free shipping", 1234.56},
	}

	for _, tt := range tests {
		t.Run(tt.price+" "+tt.shipping, func(t *testing.T) {
			got, reason := n.Normalize(models.RawListing{
				Title:        "2020 Prizm Justin Jefferson #398",
				PriceText:    tt.price,
				ShippingText: tt.shipping,
				ImageRef:     "https://i.ebayimg.com/images/g/def/s-l500.jpg",
				Link:         "https://www.ebay.com/itm/222",
				DateText:     "Sold Mar 3, 2024",
			}, 0)
			if reason != DropNone {
				t.Fatalf("Normalize() dropped listing: %s", reason)
			}
			if got.TotalPrice != tt.want {
				t.Errorf("TotalPrice = %v, want %v", got.TotalPrice, tt.want)
			}
			if math.Abs(got.TotalPrice-(got.Price+got.Shipping)) >= 0.005 {
				t.Errorf("TotalPrice = %v, more than half a cent from %v + %v", got.TotalPrice, got.Price, got.Shipping)
			}
		})
	}
}

func TestNormalizer_NormalizeDrops(t *testing.T) {
	n := newTestNormalizer(time.Now())

	tests := []struct {
		name string
		raw  models.RawListing
		want DropReason
	}{
		{
			name: "zero price",
			raw:  models.RawListing{Title: "Card", PriceText: "$0.00", ImageRef: "https://img/a.jpg"},
			want: DropPrice,
		},
		{
			name: "unparsable price",
			raw:  models.RawListing{Title: "Card", PriceText: "see description", ImageRef: "https://img/a.jpg"},
			want: DropPrice,
		},
		{
			name: "missing image",
			raw:  models.RawListing{Title: "Card", PriceText: "$10.00"},
			want: DropImage,
		},
		{
			name: "placeholder image",
			raw:  models.RawListing{Title: "Card", PriceText: "$10.00", ImageRef: "https://ir.ebaystatic.com/s_1x2.gif"},
			want: DropImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := n.Normalize(tt.raw, 0); got != tt.want {
				t.Errorf("Normalize() reason = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizer_NormalizeBatch(t *testing.T) {
	n := newTestNormalizer(time.Now())

	raws := []models.RawListing{
		{Title: "Jefferson #398", PriceText: "$20.00", ImageRef: "https://img/1.jpg", Link: "https://www.ebay.com/itm/1"},
		{Title: "Jefferson #398", PriceText: "$21.00", ImageRef: "https://img/2.jpg", Link: "https://www.ebay.com/itm/1?ref=dup"},
		{Title: "Jefferson #398", PriceText: "$0.00", ImageRef: "https://img/3.jpg", Link: "https://www.ebay.com/itm/3"},
		{Title: "Jefferson #398", PriceText: "$22.00", ImageRef: "", Link: "https://www.ebay.com/itm/4"},
		{Title: "Jefferson #398", PriceText: "$23.00", ImageRef: "https://img/5.jpg"},
		{Title: "Jefferson #398", PriceText: "$23.00", ImageRef: "https://img/6.jpg"},
	}

	listings, stats := n.NormalizeBatch(raws)

	want := NormalizeStats{Input: 6, Kept: 3, DroppedPrice: 1, DroppedImage: 1, DroppedDup: 1}
	if stats != want {
		t.Errorf("NormalizeBatch() stats = %+v, want %+v", stats, want)
	}
	if len(listings) != 3 {
		t.Fatalf("NormalizeBatch() kept %d listings, want 3", len(listings))
	}
	if listings[0].Price != 20 {
		t.Errorf("first listing price = %v, want 20 (order preserved)", listings[0].Price)
	}
	// Linkless listings with identical title and price are told apart by position
	if listings[1].ID == listings[2].ID {
		t.Error("linkless listings at different positions should have distinct IDs")
	}
}
