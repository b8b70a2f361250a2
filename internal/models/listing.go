package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RawListing is one result card as extracted from a marketplace page.
// All fields are unparsed text; nothing here is trusted.
type RawListing struct {
	Title        string `json:"title"`
	PriceText    string `json:"price_text"`
	ShippingText string `json:"shipping_text,omitempty"`
	ImageRef     string `json:"image_ref"`
	Link         string `json:"link"`
	DateText     string `json:"date_text"`
}

// CalendarDate is a sold date without a time-of-day component.
// Serialized as "2006-01-02".
type CalendarDate struct {
	time.Time
}

const calendarDateLayout = "2006-01-02"

// NewCalendarDate truncates t to midnight UTC of its calendar day
func NewCalendarDate(t time.Time) CalendarDate {
	return CalendarDate{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// Days returns the number of whole days since the Unix epoch
func (d CalendarDate) Days() int64 {
	return d.Unix() / 86400
}

func (d CalendarDate) String() string {
	return d.Format(calendarDateLayout)
}

func (d CalendarDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(calendarDateLayout))
}

func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(calendarDateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// NormalizedListing is a typed, validated listing.
// TotalPrice is Price + Shipping summed in cents, so it can differ from
// the float64 sum by rounding error. Price is always > 0.
type NormalizedListing struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Price         float64       `json:"price"`
	Shipping      float64       `json:"shipping"`
	TotalPrice    float64       `json:"total_price"`
	SoldDate      CalendarDate  `json:"sold_date"`
	ImageURL      string        `json:"image_url"`
	SourceURL     string        `json:"source_url"`
	Grade         GradeLabel    `json:"grade"`
	VariationHint VariationHint `json:"variation_hint"`
}

// IsGraded returns true if the listing carries a recognized slab grade
func (l NormalizedListing) IsGraded() bool {
	return l.Grade.IsGraded()
}
