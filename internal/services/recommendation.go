package services

import (
	"fmt"
	"math"

	"github.com/codyseavey/card-comps/backend/internal/models"
)

// Recommendation thresholds
const (
	BuyTrendThreshold   = 0.3
	BuyMaxVolatility    = 40.0
	SellTrendThreshold  = -0.3
	flatTrendBand       = 0.05
	strongBuyVolatility = 30.0
	strongBuyLiquidity  = 0.2
	holdMaxVolatility   = 50.0
	avoidMinVolatility  = 40.0
	minOutlookSales     = 3
	defaultGradingCost  = 30.0
	psa9Probability     = 0.6
	psa10Probability    = 0.2
	ungradedProbability = 1 - psa9Probability - psa10Probability
)

// Recommend maps metrics to Buy, Sell or Hold
func Recommend(m models.MarketMetrics) models.Recommendation {
	trendPct := m.Trend * 100
	details := fmt.Sprintf("%d sales averaging $%.2f (range $%.2f-$%.2f), trend %+.1f%% per month, volatility %.0f/100",
		m.SalesCount, m.AveragePrice, m.MinPrice, m.MaxPrice, trendPct, m.Volatility)

	switch {
	case m.Trend >= BuyTrendThreshold && m.Volatility <= BuyMaxVolatility:
		return models.Recommendation{
			Action:  models.ActionBuy,
			Reason:  "Prices are rising steadily with low volatility",
			Details: details,
		}
	case m.Trend <= SellTrendThreshold:
		return models.Recommendation{
			Action:  models.ActionSell,
			Reason:  "Prices are falling",
			Details: details,
		}
	case m.Trend >= BuyTrendThreshold:
		return models.Recommendation{
			Action:  models.ActionHold,
			Reason:  "Prices are rising but too volatile to buy with confidence",
			Details: details,
		}
	default:
		return models.Recommendation{
			Action:  models.ActionHold,
			Reason:  "No strong price movement",
			Details: details,
		}
	}
}

// Direction buckets the trend into up, down or flat
func Direction(trend float64) models.TrendDirection {
	switch {
	case trend > flatTrendBand:
		return models.TrendUp
	case trend < -flatTrendBand:
		return models.TrendDown
	default:
		return models.TrendFlat
	}
}

// Outlook rates a group on trend, volatility and liquidity (sales per day
// across the sold-date span)
func Outlook(members []models.NormalizedListing, m models.MarketMetrics) models.InvestmentOutlook {
	outlook := models.InvestmentOutlook{Direction: Direction(m.Trend)}

	if len(members) > 0 {
		first, last := members[0].SoldDate.Days(), members[0].SoldDate.Days()
		for _, l := range members[1:] {
			d := l.SoldDate.Days()
			first = min(first, d)
			last = max(last, d)
		}
		outlook.SpanDays = int(last-first) + 1
		outlook.Liquidity = math.Round(float64(len(members))/float64(outlook.SpanDays)*100) / 100
	}

	if len(members) < minOutlookSales {
		outlook.Rating = models.RatingInsufficientData
		outlook.Explanation = fmt.Sprintf("Only %d sales; at least %d are needed for an outlook", len(members), minOutlookSales)
		return outlook
	}

	switch {
	case outlook.Direction == models.TrendUp && m.Volatility < strongBuyVolatility && outlook.Liquidity > strongBuyLiquidity:
		outlook.Rating = models.RatingStrongBuy
		outlook.Explanation = "Rising prices, stable market and regular sales"
	case outlook.Direction == models.TrendFlat && m.Volatility < holdMaxVolatility:
		outlook.Rating = models.RatingHold
		outlook.Explanation = "Flat prices in a reasonably stable market"
	case outlook.Direction == models.TrendDown && m.Volatility > avoidMinVolatility:
		outlook.Rating = models.RatingAvoid
		outlook.Explanation = "Falling prices in a volatile market"
	default:
		outlook.Rating = models.RatingSpeculative
		outlook.Explanation = "Mixed signals; price direction and stability disagree"
	}
	return outlook
}

// GradingProfitFor compares a raw average with PSA 9 and PSA 10 averages.
// A missing graded average is reported as zero and valued at the raw
// average in the expected value.
func GradingProfitFor(rawAverage, psa9Average, psa10Average, gradingCost float64) models.GradingProfit {
	if gradingCost < 0 {
		gradingCost = defaultGradingCost
	}

	p := models.GradingProfit{
		RawAverage:   roundCents(rawAverage),
		PSA9Average:  roundCents(psa9Average),
		PSA10Average: roundCents(psa10Average),
		GradingCost:  gradingCost,
	}

	if psa9Average > 0 {
		p.PSA9Profit = roundCents(psa9Average - rawAverage)
		p.PSA9ProfitAfterCost = roundCents(p.PSA9Profit - gradingCost)
	}
	if psa10Average > 0 {
		p.PSA10Profit = roundCents(psa10Average - rawAverage)
		p.PSA10ProfitAfterCost = roundCents(p.PSA10Profit - gradingCost)
	}

	// Outcomes below PSA 9 keep the raw value
	psa9Value, psa10Value := psa9Average, psa10Average
	if psa9Value <= 0 {
		psa9Value = rawAverage
	}
	if psa10Value <= 0 {
		psa10Value = rawAverage
	}
	p.ExpectedValue = roundCents(psa9Probability*psa9Value + psa10Probability*psa10Value + ungradedProbability*rawAverage)
	p.ExpectedProfit = roundCents(p.ExpectedValue - rawAverage - gradingCost)

	psa9Ok := psa9Average > 0 && p.PSA9ProfitAfterCost > 0
	psa10Ok := psa10Average > 0 && p.PSA10ProfitAfterCost > 0
	switch {
	case psa9Average <= 0 && psa10Average <= 0:
		p.Recommendation = "No graded sales were found for this card, so grading profit cannot be estimated."
	case psa9Ok && psa10Ok:
		p.Recommendation = "Grading looks profitable at both PSA 9 and PSA 10 after grading costs."
	case psa9Ok:
		p.Recommendation = "Grading looks profitable if the card gets a PSA 9; a PSA 10 does not clear grading costs."
	case psa10Ok:
		p.Recommendation = "Grading only pays off with a PSA 10; a PSA 9 does not clear grading costs."
	default:
		p.Recommendation = "Grading is unlikely to be profitable at current prices; consider holding the raw card."
	}
	return p
}
