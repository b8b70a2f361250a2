package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/codyseavey/card-comps/backend/internal/models"
)

const floatTolerance = 1e-9

// GroupingConfig holds the grouping thresholds. Field names and types match
// config.GroupingConfig so one converts directly to the other.
type GroupingConfig struct {
	PercentileLow       float64
	PercentileHigh      float64
	IQRMultiplier       float64
	MinPrice            float64
	MaxPrice            float64
	MedianBand          float64
	WideMedianBand      float64
	WideBandThreshold   float64
	SimilarityThreshold float64
	ShortTitleWords     int
	MinWordLength       int
	DisplayTitleMax     int
}

// DefaultGroupingConfig returns the production thresholds
func DefaultGroupingConfig() GroupingConfig {
	return GroupingConfig{
		PercentileLow:       0.10,
		PercentileHigh:      0.90,
		IQRMultiplier:       1.5,
		MinPrice:            5,
		MaxPrice:            2000,
		MedianBand:          0.30,
		WideMedianBand:      0.40,
		WideBandThreshold:   100,
		SimilarityThreshold: 0.70,
		ShortTitleWords:     4,
		MinWordLength:       3,
		DisplayTitleMax:     60,
	}
}

// GroupingResult is the partition produced by Group. Every input listing is
// in exactly one of Groups, GlobalOutliers or GroupOutliers.
type GroupingResult struct {
	Groups         []models.VariationGroup
	GlobalOutliers []models.NormalizedListing
	GroupOutliers  []models.NormalizedListing
}

type groupKind string

const (
	groupByNumber   groupKind = "number"
	groupByParallel groupKind = "parallel"
	groupByTitle    groupKind = "title"
)

// groupDraft is a group before statistics are computed
type groupDraft struct {
	id         string
	kind       groupKind
	grade      models.GradeLabel
	parallel   models.ParallelCategory
	cardNumber string
	members    []models.NormalizedListing
}

// Grouper partitions normalized listings into variation groups. It is
// stateless and deterministic for a given input order.
type Grouper struct {
	cfg        GroupingConfig
	classifier *Classifier
}

// NewGrouper creates a grouper with the given thresholds
func NewGrouper(cfg GroupingConfig, classifier *Classifier) *Grouper {
	return &Grouper{cfg: cfg, classifier: classifier}
}

// Group runs the full pipeline: global outlier bound, grade-tier partition,
// number/parallel/title sub-grouping, median-band pruning, duplicate-title
// merge and count ordering.
func (g *Grouper) Group(listings []models.NormalizedListing) GroupingResult {
	result := GroupingResult{Groups: []models.VariationGroup{}}
	if len(listings) == 0 {
		return result
	}

	kept, outliers := g.FilterGlobalOutliers(listings)
	result.GlobalOutliers = outliers

	var drafts []*groupDraft
	for _, bucket := range partitionByGrade(kept) {
		drafts = append(drafts, g.groupBucket(bucket.grade, bucket.members)...)
	}

	groups := make([]models.VariationGroup, 0, len(drafts))
	for _, d := range drafts {
		var removed []models.NormalizedListing
		d.members, removed = g.PruneToMedianBand(d.members)
		result.GroupOutliers = append(result.GroupOutliers, removed...)
		groups = append(groups, g.materialize(d))
	}

	groups, removed := g.mergeDuplicateTitles(groups)
	result.GroupOutliers = append(result.GroupOutliers, removed...)

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	result.Groups = groups
	return result
}

// FilterGlobalOutliers keeps listings within the percentile/IQR bound,
// clamped to [MinPrice, MaxPrice]. Order is preserved.
func (g *Grouper) FilterGlobalOutliers(listings []models.NormalizedListing) (kept, removed []models.NormalizedListing) {
	low, high := g.GlobalBounds(listings)
	for _, l := range listings {
		if l.TotalPrice >= low-floatTolerance && l.TotalPrice <= high+floatTolerance {
			kept = append(kept, l)
		} else {
			removed = append(removed, l)
		}
	}
	return kept, removed
}

// GlobalBounds returns the accepted total-price range for a listing set
func (g *Grouper) GlobalBounds(listings []models.NormalizedListing) (float64, float64) {
	prices := totalPrices(listings)
	p10 := Percentile(prices, g.cfg.PercentileLow)
	p90 := Percentile(prices, g.cfg.PercentileHigh)
	iqr := p90 - p10
	low := math.Max(g.cfg.MinPrice, p10-g.cfg.IQRMultiplier*iqr)
	high := math.Min(g.cfg.MaxPrice, p90+g.cfg.IQRMultiplier*iqr)
	return low, high
}

// PruneToMedianBand drops members outside the median band until every
// remaining member is inside the band of the remaining median. Groups under
// three members are left alone. If a pass would empty the group the member
// closest to the median is kept.
func (g *Grouper) PruneToMedianBand(members []models.NormalizedListing) (kept, removed []models.NormalizedListing) {
	kept = members
	for len(kept) >= 3 {
		med := Median(totalPrices(kept))
		band := g.cfg.MedianBand
		if med > g.cfg.WideBandThreshold {
			band = g.cfg.WideMedianBand
		}
		low, high := med*(1-band), med*(1+band)

		var inside, outside []models.NormalizedListing
		for _, m := range kept {
			if m.TotalPrice >= low-floatTolerance && m.TotalPrice <= high+floatTolerance {
				inside = append(inside, m)
			} else {
				outside = append(outside, m)
			}
		}

		if len(outside) == 0 {
			break
		}
		if len(inside) == 0 {
			closest := closestTo(kept, med)
			for i, m := range kept {
				if i != closest {
					removed = append(removed, m)
				}
			}
			kept = []models.NormalizedListing{kept[closest]}
			break
		}

		removed = append(removed, outside...)
		kept = inside
	}
	return kept, removed
}

type gradeBucket struct {
	grade   models.GradeLabel
	members []models.NormalizedListing
}

// partitionByGrade splits listings into PSA 10, PSA 9, other graded (one
// bucket per exact label, first-seen order) and Raw
func partitionByGrade(listings []models.NormalizedListing) []gradeBucket {
	byTier := make(map[models.GradeTier][]models.NormalizedListing)
	otherLabels := []models.GradeLabel{}
	byLabel := make(map[models.GradeLabel][]models.NormalizedListing)

	for _, l := range listings {
		tier := l.Grade.Tier()
		if tier == models.TierOtherGraded {
			if _, seen := byLabel[l.Grade]; !seen {
				otherLabels = append(otherLabels, l.Grade)
			}
			byLabel[l.Grade] = append(byLabel[l.Grade], l)
			continue
		}
		byTier[tier] = append(byTier[tier], l)
	}

	var buckets []gradeBucket
	for _, tier := range models.AllGradeTiers() {
		switch tier {
		case models.TierOtherGraded:
			for _, label := range otherLabels {
				buckets = append(buckets, gradeBucket{grade: label, members: byLabel[label]})
			}
		case models.TierPSA10:
			if m := byTier[tier]; len(m) > 0 {
				buckets = append(buckets, gradeBucket{grade: models.GradePSA10, members: m})
			}
		case models.TierPSA9:
			if m := byTier[tier]; len(m) > 0 {
				buckets = append(buckets, gradeBucket{grade: models.GradePSA9, members: m})
			}
		case models.TierRaw:
			if m := byTier[tier]; len(m) > 0 {
				buckets = append(buckets, gradeBucket{grade: models.GradeRaw, members: m})
			}
		}
	}
	return buckets
}

// groupBucket sub-groups one grade bucket: parallels by taxonomy, base
// listings by card number, and the rest by greedy title similarity
func (g *Grouper) groupBucket(grade models.GradeLabel, members []models.NormalizedListing) []*groupDraft {
	prefix := gradeSlug(grade)

	var numberOrder []string
	byNumber := make(map[string]*groupDraft)
	var parallelOrder []models.ParallelCategory
	byParallel := make(map[models.ParallelCategory]*groupDraft)
	var byTitle []*groupDraft

	for _, l := range members {
		if category, ok := g.classifier.ParallelCategory(l.Title); ok {
			d, exists := byParallel[category]
			if !exists {
				number, _ := g.classifier.CardNumber(l.Title)
				d = &groupDraft{
					id:         fmt.Sprintf("%s:parallel:%s", prefix, category),
					kind:       groupByParallel,
					grade:      grade,
					parallel:   category,
					cardNumber: number,
				}
				byParallel[category] = d
				parallelOrder = append(parallelOrder, category)
			}
			d.members = append(d.members, l)
			continue
		}

		if number, ok := g.classifier.CardNumber(l.Title); ok {
			d, exists := byNumber[number]
			if !exists {
				d = &groupDraft{
					id:         fmt.Sprintf("%s:number:%s", prefix, number),
					kind:       groupByNumber,
					grade:      grade,
					cardNumber: number,
				}
				byNumber[number] = d
				numberOrder = append(numberOrder, number)
			}
			d.members = append(d.members, l)
			continue
		}

		joined := false
		for _, d := range byTitle {
			if TitlesSimilar(d.members[0].Title, l.Title, g.cfg) {
				d.members = append(d.members, l)
				joined = true
				break
			}
		}
		if !joined {
			byTitle = append(byTitle, &groupDraft{
				id:      fmt.Sprintf("%s:title:%d", prefix, len(byTitle)+1),
				kind:    groupByTitle,
				grade:   grade,
				members: []models.NormalizedListing{l},
			})
		}
	}

	drafts := make([]*groupDraft, 0, len(numberOrder)+len(parallelOrder)+len(byTitle))
	for _, n := range numberOrder {
		drafts = append(drafts, byNumber[n])
	}
	for _, p := range parallelOrder {
		drafts = append(drafts, byParallel[p])
	}
	return append(drafts, byTitle...)
}

// materialize computes statistics, display title and image for a draft
func (g *Grouper) materialize(d *groupDraft) models.VariationGroup {
	group := models.VariationGroup{
		ID:           d.id,
		DisplayTitle: g.displayTitle(d),
		Grade:        d.grade,
		Tier:         d.grade.Tier(),
		Parallel:     d.parallel,
		CardNumber:   d.cardNumber,
		Members:      d.members,
	}
	fillGroupStats(&group)
	return group
}

func fillGroupStats(group *models.VariationGroup) {
	group.Count = len(group.Members)
	group.AveragePrice, group.MinPrice, group.MaxPrice = 0, 0, 0
	group.RepresentativeImageURL = ""
	if group.Count == 0 {
		return
	}

	sum := 0.0
	group.MinPrice = math.Inf(1)
	group.MaxPrice = math.Inf(-1)
	for _, m := range group.Members {
		sum += m.TotalPrice
		group.MinPrice = math.Min(group.MinPrice, m.TotalPrice)
		group.MaxPrice = math.Max(group.MaxPrice, m.TotalPrice)
		if group.RepresentativeImageURL == "" && m.ImageURL != "" {
			group.RepresentativeImageURL = m.ImageURL
		}
	}
	group.AveragePrice = sum / float64(group.Count)
}

func (g *Grouper) displayTitle(d *groupDraft) string {
	switch d.kind {
	case groupByParallel:
		label := d.parallel.DisplayName()
		if d.cardNumber != "" {
			label += " #" + d.cardNumber
		}
		return label + " - " + string(d.grade)
	case groupByNumber:
		label := "Base"
		if hint := d.members[0].VariationHint; hint.Kind != models.VariationTitle && hint.Kind != models.VariationParallel {
			label = hint.Label
		}
		return fmt.Sprintf("%s #%s - %s", label, d.cardNumber, d.grade)
	default:
		return truncateRunes(d.members[0].Title, g.cfg.DisplayTitleMax)
	}
}

// mergeDuplicateTitles merges groups of the same grade whose display titles
// match case-insensitively. Merged groups are pruned again.
func (g *Grouper) mergeDuplicateTitles(groups []models.VariationGroup) ([]models.VariationGroup, []models.NormalizedListing) {
	type mergeKey struct {
		grade models.GradeLabel
		title string
	}

	index := make(map[mergeKey]int, len(groups))
	merged := make([]models.VariationGroup, 0, len(groups))
	dirty := make(map[int]bool)

	for _, group := range groups {
		key := mergeKey{grade: group.Grade, title: strings.ToLower(strings.TrimSpace(group.DisplayTitle))}
		if i, ok := index[key]; ok {
			target := &merged[i]
			target.Members = append(target.Members, group.Members...)
			if target.CardNumber != group.CardNumber {
				target.CardNumber = ""
			}
			dirty[i] = true
			continue
		}
		index[key] = len(merged)
		merged = append(merged, group)
	}

	var removed []models.NormalizedListing
	for i := range merged {
		if !dirty[i] {
			continue
		}
		var pruned []models.NormalizedListing
		merged[i].Members, pruned = g.PruneToMedianBand(merged[i].Members)
		removed = append(removed, pruned...)
		fillGroupStats(&merged[i])
	}
	return merged, removed
}

// gradeSlug turns "PSA 10" into "psa-10" and "Raw" into "raw"
func gradeSlug(grade models.GradeLabel) string {
	return strings.ReplaceAll(strings.ToLower(string(grade)), " ", "-")
}

func totalPrices(listings []models.NormalizedListing) []float64 {
	prices := make([]float64, len(listings))
	for i, l := range listings {
		prices[i] = l.TotalPrice
	}
	return prices
}

func closestTo(listings []models.NormalizedListing, target float64) int {
	best := 0
	for i, l := range listings {
		if math.Abs(l.TotalPrice-target) < math.Abs(listings[best].TotalPrice-target) {
			best = i
		}
	}
	return best
}

// Percentile returns the p-th quantile (0..1) using linear interpolation
// between closest ranks. Empty input returns 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Median returns the middle value, averaging the two middle values for even
// lengths
func Median(values []float64) float64 {
	return Percentile(values, 0.5)
}
