package models

import "strings"

// VariationKind tags which rule produced a variation hint
type VariationKind string

const (
	VariationRookie   VariationKind = "rookie"
	VariationParallel VariationKind = "parallel" // colorway, finish or refractor
	VariationBrand    VariationKind = "brand"    // prizm, mosaic, optic, select
	VariationInsert   VariationKind = "insert"   // autos, relics, 1/1s, inserts, short prints
	VariationTitle    VariationKind = "title"    // literal-title bucket
)

// VariationHint is the best-effort variation label derived from a title.
// For VariationTitle the label is the truncated original title.
type VariationHint struct {
	Kind  VariationKind `json:"kind"`
	Label string        `json:"label"`
}

// ParallelCategory is the fixed colorway taxonomy parallel listings are grouped by
type ParallelCategory string

const (
	ParallelSilver    ParallelCategory = "silver"
	ParallelGold      ParallelCategory = "gold"
	ParallelBlue      ParallelCategory = "blue"
	ParallelRed       ParallelCategory = "red"
	ParallelGreen     ParallelCategory = "green"
	ParallelPurple    ParallelCategory = "purple"
	ParallelBlack     ParallelCategory = "black"
	ParallelOrange    ParallelCategory = "orange"
	ParallelPink      ParallelCategory = "pink"
	ParallelRefractor ParallelCategory = "refractor"
	ParallelOther     ParallelCategory = "other-parallel"
)

// AllParallelCategories returns the taxonomy in match order
func AllParallelCategories() []ParallelCategory {
	return []ParallelCategory{
		ParallelSilver,
		ParallelGold,
		ParallelBlue,
		ParallelRed,
		ParallelGreen,
		ParallelPurple,
		ParallelBlack,
		ParallelOrange,
		ParallelPink,
		ParallelRefractor,
		ParallelOther,
	}
}

// DisplayName returns the label used in group titles
func (p ParallelCategory) DisplayName() string {
	switch p {
	case ParallelRefractor:
		return "Refractor"
	case ParallelOther:
		return "Parallel"
	case "":
		return ""
	default:
		s := string(p)
		return strings.ToUpper(s[:1]) + s[1:] + " Parallel"
	}
}
