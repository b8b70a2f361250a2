package models

// SearchStatus is the outcome of a search. Failures are outcomes, not errors.
type SearchStatus string

const (
	SearchStatusOK                SearchStatus = "ok"
	SearchStatusNoListings        SearchStatus = "no_listings"
	SearchStatusSourceUnavailable SearchStatus = "source_unavailable"
)

// SearchMode distinguishes text and image searches
type SearchMode string

const (
	SearchModeText  SearchMode = "text"
	SearchModeImage SearchMode = "image"
)

// SearchStats counts what happened to listings between scrape and grouping
type SearchStats struct {
	Scraped         int    `json:"scraped"`
	DroppedPrice    int    `json:"dropped_price"`
	DroppedImage    int    `json:"dropped_image"`
	DroppedDup      int    `json:"dropped_duplicate"`
	DroppedFilter   int    `json:"dropped_grade_filter"`
	GlobalOutliers  int    `json:"global_outliers"`
	GroupOutliers   int    `json:"group_outliers"`
	Grouped         int    `json:"grouped"`
	Source          string `json:"source,omitempty"`
	FromCache       bool   `json:"from_cache"`
	DurationMillis  int64  `json:"duration_ms"`
	NormalizedCount int    `json:"normalized"`
}

// SearchResult is returned for every search, including empty ones
type SearchResult struct {
	SearchKey       string              `json:"search_key"`
	Mode            SearchMode          `json:"mode"`
	Query           string              `json:"query,omitempty"`
	Grade           GradeFilter         `json:"grade"`
	Status          SearchStatus        `json:"status"`
	Reason          string              `json:"reason,omitempty"`
	Count           int                 `json:"count"`
	Listings        []NormalizedListing `json:"listings"`
	GroupedListings []VariationGroup    `json:"grouped_listings"`
	Stats           SearchStats         `json:"stats"`
}
