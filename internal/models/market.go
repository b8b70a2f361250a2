package models

// VariationGroup is a cluster of listings believed to be the same card
// print, parallel and grade. Every member shares the group's Grade.
type VariationGroup struct {
	ID                     string              `json:"id"`
	DisplayTitle           string              `json:"display_title"`
	Grade                  GradeLabel          `json:"grade"`
	Tier                   GradeTier           `json:"tier"`
	Parallel               ParallelCategory    `json:"parallel,omitempty"`
	CardNumber             string              `json:"card_number,omitempty"`
	Members                []NormalizedListing `json:"members"`
	RepresentativeImageURL string              `json:"representative_image_url"`
	AveragePrice           float64             `json:"average_price"`
	MinPrice               float64             `json:"min_price"`
	MaxPrice               float64             `json:"max_price"`
	Count                  int                 `json:"count"`
}

// LowConfidence is true for single-listing groups
func (g *VariationGroup) LowConfidence() bool {
	return g.Count <= 1
}

// Demand is a display-only tier derived from sales count
type Demand string

const (
	DemandHigh   Demand = "high"
	DemandMedium Demand = "medium"
	DemandLow    Demand = "low"
)

// MarketMetrics are aggregate statistics over one group's members
type MarketMetrics struct {
	AveragePrice float64 `json:"average_price"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	SalesCount   int     `json:"sales_count"`
	Volatility   float64 `json:"volatility"` // 0-100, higher = less stable
	Trend        float64 `json:"trend"`      // -1..1
	Demand       Demand  `json:"demand"`
}

// PricePrediction is a linear extrapolation of the recent trend
type PricePrediction struct {
	Days30 float64 `json:"days_30"`
	Days60 float64 `json:"days_60"`
	Days90 float64 `json:"days_90"`
}

// Action is the categorical recommendation
type Action string

const (
	ActionBuy  Action = "Buy"
	ActionSell Action = "Sell"
	ActionHold Action = "Hold"
)

// Recommendation is derived purely from MarketMetrics
type Recommendation struct {
	Action  Action `json:"action"`
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

// MarketScores are 0-100 display scores
type MarketScores struct {
	Stability int `json:"stability"`
	Trend     int `json:"trend"`
	Demand    int `json:"demand"`
	Overall   int `json:"overall"`
}

// InvestmentRating is the longer-horizon outlook label
type InvestmentRating string

const (
	RatingStrongBuy        InvestmentRating = "Strong Buy"
	RatingHold             InvestmentRating = "Hold"
	RatingAvoid            InvestmentRating = "Avoid"
	RatingSpeculative      InvestmentRating = "Speculative"
	RatingInsufficientData InvestmentRating = "Insufficient Data"
)

// TrendDirection is the coarse direction of the trend value
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// InvestmentOutlook summarizes liquidity and a rating
type InvestmentOutlook struct {
	Rating      InvestmentRating `json:"rating"`
	Direction   TrendDirection   `json:"direction"`
	Liquidity   float64          `json:"liquidity"` // sales per day across the sold-date span
	SpanDays    int              `json:"span_days"`
	Explanation string           `json:"explanation"`
}

// PricePoint is one day of the price history series
type PricePoint struct {
	Date         CalendarDate `json:"date"`
	AveragePrice float64      `json:"average_price"`
	Sales        int          `json:"sales"`
}

// GradingProfit compares a raw card's average with graded tiers of the same search
type GradingProfit struct {
	RawAverage           float64 `json:"raw_average"`
	PSA9Average          float64 `json:"psa9_average"`
	PSA10Average         float64 `json:"psa10_average"`
	GradingCost          float64 `json:"grading_cost"`
	PSA9Profit           float64 `json:"psa9_profit"`
	PSA10Profit          float64 `json:"psa10_profit"`
	PSA9ProfitAfterCost  float64 `json:"psa9_profit_after_cost"`
	PSA10ProfitAfterCost float64 `json:"psa10_profit_after_cost"`
	ExpectedValue        float64 `json:"expected_value"`
	ExpectedProfit       float64 `json:"expected_profit"`
	Recommendation       string  `json:"recommendation"`
}

// MarketAnalysis is everything exposed for a selected group
type MarketAnalysis struct {
	SearchKey      string            `json:"search_key"`
	Group          VariationGroup    `json:"group"`
	WindowDays     int               `json:"window_days"`
	WindowApplied  bool              `json:"window_applied"`
	Metrics        MarketMetrics     `json:"metrics"`
	Prediction     PricePrediction   `json:"prediction"`
	Recommendation Recommendation    `json:"recommendation"`
	Scores         MarketScores      `json:"scores"`
	Outlook        InvestmentOutlook `json:"outlook"`
	History        []PricePoint      `json:"history"`
	ROIPercent     *float64          `json:"roi_percent,omitempty"`
	GradingProfit  *GradingProfit    `json:"grading_profit,omitempty"`
}
