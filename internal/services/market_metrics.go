package services

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/card-comps/backend/internal/models"
)

const (
	// DefaultTrendWindow is the number of most recent sales the trend uses
	DefaultTrendWindow = 10

	highDemandSales   = 10
	mediumDemandSales = 5

	minPredictionFactor = 0.10
	maxPredictionFactor = 3.0
)

// ComputeMetrics aggregates a group's members. The trend uses the last
// trendWindow sales by sold date.
func ComputeMetrics(members []models.NormalizedListing, trendWindow int) models.MarketMetrics {
	if len(members) == 0 {
		return models.MarketMetrics{Demand: models.DemandLow}
	}
	if trendWindow < 2 {
		trendWindow = DefaultTrendWindow
	}

	prices := totalPrices(members)
	mean, minPrice, maxPrice := aggregate(prices)

	return models.MarketMetrics{
		AveragePrice: roundCents(mean),
		MinPrice:     roundCents(minPrice),
		MaxPrice:     roundCents(maxPrice),
		SalesCount:   len(members),
		Volatility:   Volatility(prices),
		Trend:        Trend(members, trendWindow),
		Demand:       DemandFor(len(members)),
	}
}

func aggregate(prices []float64) (mean, minPrice, maxPrice float64) {
	minPrice, maxPrice = math.Inf(1), math.Inf(-1)
	sum := 0.0
	for _, p := range prices {
		sum += p
		minPrice = math.Min(minPrice, p)
		maxPrice = math.Max(maxPrice, p)
	}
	return sum / float64(len(prices)), minPrice, maxPrice
}

// Volatility is the population coefficient of variation as a percentage,
// clamped to 0-100
func Volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	mean, _, _ := aggregate(prices)
	if mean <= 0 {
		return 0
	}

	variance := 0.0
	for _, p := range prices {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(len(prices))

	cv := math.Sqrt(variance) / mean * 100
	return math.Round(clamp(cv, 0, 100)*100) / 100
}

// Trend fits a least-squares line of price against sold day over the most
// recent window sales (sorted by date, ties in original order). The slope
// is expressed as fractional change per 30 days relative to the window mean
// and clamped to [-1, 1]. Sales that all share one day have no trend.
func Trend(members []models.NormalizedListing, window int) float64 {
	if len(members) < 2 {
		return 0
	}

	sorted := append([]models.NormalizedListing(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SoldDate.Before(sorted[j].SoldDate.Time)
	})
	if len(sorted) > window {
		sorted = sorted[len(sorted)-window:]
	}

	origin := sorted[0].SoldDate.Days()
	n := float64(len(sorted))
	var sumX, sumY float64
	for _, l := range sorted {
		sumX += float64(l.SoldDate.Days() - origin)
		sumY += l.TotalPrice
	}
	meanX, meanY := sumX/n, sumY/n
	if meanY <= 0 {
		return 0
	}

	var sxx, sxy float64
	for _, l := range sorted {
		dx := float64(l.SoldDate.Days()-origin) - meanX
		sxx += dx * dx
		sxy += dx * (l.TotalPrice - meanY)
	}
	if sxx == 0 {
		return 0
	}

	slopePerDay := sxy / sxx
	trend := clamp(slopePerDay*30/meanY, -1, 1)
	return math.Round(trend*1000) / 1000
}

// DemandFor maps a sales count to a demand tier
func DemandFor(sales int) models.Demand {
	switch {
	case sales > highDemandSales:
		return models.DemandHigh
	case sales >= mediumDemandSales:
		return models.DemandMedium
	default:
		return models.DemandLow
	}
}

// Predict extrapolates the trend linearly from the current average for
// 30, 60 and 90 days, clamped to 10%-300% of the average
func Predict(m models.MarketMetrics) models.PricePrediction {
	at := func(days float64) float64 {
		factor := clamp(1+m.Trend*days/30, minPredictionFactor, maxPredictionFactor)
		return roundCents(m.AveragePrice * factor)
	}
	return models.PricePrediction{
		Days30: at(30),
		Days60: at(60),
		Days90: at(90),
	}
}

// Scores derives the 0-100 display scores
func Scores(m models.MarketMetrics) models.MarketScores {
	stability := int(math.Round(100 - m.Volatility))
	trend := int(math.Round(50 + 50*m.Trend))
	demand := 25
	switch m.Demand {
	case models.DemandHigh:
		demand = 75
	case models.DemandMedium:
		demand = 50
	}
	return models.MarketScores{
		Stability: stability,
		Trend:     trend,
		Demand:    demand,
		Overall:   int(math.Round(float64(stability+trend+demand) / 3)),
	}
}

// PriceHistory returns one point per sold day, oldest first
func PriceHistory(members []models.NormalizedListing) []models.PricePoint {
	type dayAgg struct {
		date  models.CalendarDate
		sum   float64
		count int
	}

	byDay := make(map[int64]*dayAgg)
	for _, m := range members {
		key := m.SoldDate.Days()
		agg, ok := byDay[key]
		if !ok {
			agg = &dayAgg{date: m.SoldDate}
			byDay[key] = agg
		}
		agg.sum += m.TotalPrice
		agg.count++
	}

	points := make([]models.PricePoint, 0, len(byDay))
	for _, agg := range byDay {
		points = append(points, models.PricePoint{
			Date:         agg.date,
			AveragePrice: roundCents(agg.sum / float64(agg.count)),
			Sales:        agg.count,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date.Time)
	})
	return points
}

// ROIPercent is the return of the current average over the price paid
func ROIPercent(average, pricePaid float64) (float64, bool) {
	if pricePaid <= 0 {
		return 0, false
	}
	return math.Round((average/pricePaid-1)*100*100) / 100, true
}

// FilterWindow keeps members sold within the last days relative to now.
// days <= 0 keeps everything.
func FilterWindow(members []models.NormalizedListing, days int, now models.CalendarDate) []models.NormalizedListing {
	if days <= 0 {
		return members
	}
	cutoff := now.Days() - int64(days)
	var kept []models.NormalizedListing
	for _, m := range members {
		if m.SoldDate.Days() >= cutoff {
			kept = append(kept, m)
		}
	}
	return kept
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
