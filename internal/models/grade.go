package models

import (
	"strings"
)

// GradeLabel is "<Company> <Grade>" (e.g. "PSA 10", "BGS 9.5") or GradeRaw
type GradeLabel string

const (
	GradeRaw   GradeLabel = "Raw"
	GradePSA10 GradeLabel = "PSA 10"
	GradePSA9  GradeLabel = "PSA 9"
)

// GradingCompanies lists the slab companies recognized in titles
var GradingCompanies = []string{"PSA", "BGS", "SGC", "CGC", "CSG", "HGA"}

// AcceptedGrades lists the numeric grades that survive classification.
// Anything else collapses to GradeRaw.
var AcceptedGrades = []string{"10", "9.5", "9", "8.5", "8"}

// NewGradeLabel builds a label from a company token and a grade value.
// Unknown companies or grades outside AcceptedGrades return GradeRaw.
func NewGradeLabel(company, grade string) GradeLabel {
	company = strings.ToUpper(strings.TrimSpace(company))
	grade = strings.TrimSpace(grade)

	knownCompany := false
	for _, c := range GradingCompanies {
		if c == company {
			knownCompany = true
			break
		}
	}
	if !knownCompany {
		return GradeRaw
	}

	for _, g := range AcceptedGrades {
		if g == grade {
			return GradeLabel(company + " " + grade)
		}
	}
	return GradeRaw
}

// IsGraded returns true for any label other than GradeRaw
func (g GradeLabel) IsGraded() bool {
	return g != "" && g != GradeRaw
}

// Company returns the grading company token, or "" for raw cards
func (g GradeLabel) Company() string {
	if !g.IsGraded() {
		return ""
	}
	company, _, _ := strings.Cut(string(g), " ")
	return company
}

// Tier returns the grouping bucket this label belongs to
func (g GradeLabel) Tier() GradeTier {
	switch g {
	case GradePSA10:
		return TierPSA10
	case GradePSA9:
		return TierPSA9
	case GradeRaw, "":
		return TierRaw
	default:
		return TierOtherGraded
	}
}

// GradeTier is one of the four buckets listings are partitioned into before grouping.
// Tiers are never merged.
type GradeTier string

const (
	TierPSA10       GradeTier = "psa-10"
	TierPSA9        GradeTier = "psa-9"
	TierOtherGraded GradeTier = "graded"
	TierRaw         GradeTier = "raw"
)

// AllGradeTiers returns tiers in presentation order
func AllGradeTiers() []GradeTier {
	return []GradeTier{TierPSA10, TierPSA9, TierOtherGraded, TierRaw}
}

// GradeFilter restricts a search to a subset of grades before grouping
type GradeFilter string

const (
	GradeFilterAny    GradeFilter = "any"
	GradeFilterRaw    GradeFilter = "raw"
	GradeFilterGraded GradeFilter = "graded"
)

// ParseGradeFilter normalizes user input such as "PSA10", "psa 10", "Raw" or "".
// Exact labels ("BGS 9.5") are kept as label filters.
func ParseGradeFilter(s string) GradeFilter {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	switch s {
	case "", "any", "all":
		return GradeFilterAny
	case "raw", "ungraded":
		return GradeFilterRaw
	case "graded":
		return GradeFilterGraded
	}

	for _, c := range GradingCompanies {
		lc := strings.ToLower(c)
		if strings.HasPrefix(s, lc) {
			grade := strings.TrimSpace(strings.TrimPrefix(s, lc))
			if label := NewGradeLabel(c, grade); label.IsGraded() {
				return GradeFilter(label)
			}
		}
	}
	return GradeFilterAny
}

// Matches reports whether a listing grade passes the filter
func (f GradeFilter) Matches(g GradeLabel) bool {
	switch f {
	case GradeFilterAny, "":
		return true
	case GradeFilterRaw:
		return !g.IsGraded()
	case GradeFilterGraded:
		return g.IsGraded()
	default:
		return GradeLabel(f) == g
	}
}
