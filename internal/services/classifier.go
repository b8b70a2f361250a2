package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/codyseavey/card-comps/backend/internal/models"
)

const (
	gradeCompanies = `(PSA|BGS|SGC|CGC|CSG|HGA)`
	// Any one- or two-digit grade is captured whole so that "9.8" is not
	// read as "9"; NewGradeLabel collapses unaccepted values to Raw.
	gradeValues    = `(\d{1,2}(?:\.\d)?)`

	// VariationTitleMax caps the literal-title variation hint
	VariationTitleMax = 60
)

// Grade patterns, most specific first
var gradePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b` + gradeCompanies + `\s*GEM[\s-]*(?:MINT|MT)\s*` + gradeValues + `\b`),
	regexp.MustCompile(`(?i)\b` + gradeCompanies + gradeValues + `\b`),
	regexp.MustCompile(`(?i)\b` + gradeCompanies + `\b[^0-9]{0,6}` + gradeValues + `\b`),
}

var rookiePattern = regexp.MustCompile(`\b(rookie|rc)\b`)

type variationRule struct {
	pattern *regexp.Regexp
	kind    models.VariationKind
	label   func(match string) string
}

func suffixed(suffix string) func(string) string {
	return func(match string) string {
		return strings.ToUpper(match[:1]) + match[1:] + " " + suffix
	}
}

func fixed(label string) func(string) string {
	return func(string) string { return label }
}

// Variation rules checked against the lower-cased title in order
var variationRules = []variationRule{
	{regexp.MustCompile(`\b(gold|silver|bronze|ruby|emerald|sapphire)\b`), models.VariationParallel, suffixed("Parallel")},
	{regexp.MustCompile(`\b(blue|red|green|purple|yellow|orange|black|white|pink)\b`), models.VariationParallel, suffixed("Parallel")},
	{regexp.MustCompile(`\b(shimmer|glitter|shine|sparkle|disco)\b`), models.VariationParallel, suffixed("Parallel")},
	{regexp.MustCompile(`\b(prizm|mosaic|optic|select)\b`), models.VariationBrand, suffixed("Card")},
	{regexp.MustCompile(`\brefractor\b`), models.VariationParallel, fixed("Refractor")},
	{regexp.MustCompile(`\bauto(graph)?\b`), models.VariationInsert, fixed("Autograph Card")},
	{regexp.MustCompile(`\bmemo(rabilia)?\b`), models.VariationInsert, fixed("Memorabilia Card")},
	{regexp.MustCompile(`\bpatch\b`), models.VariationInsert, fixed("Patch Card")},
	{regexp.MustCompile(`\bjersey\b`), models.VariationInsert, fixed("Jersey Card")},
	{regexp.MustCompile(`(^|[^0-9/])1/1\b|\bone of one\b`), models.VariationInsert, fixed("One-of-One Card")},
	{regexp.MustCompile(`\binsert(ion)?\b`), models.VariationInsert, fixed("Insert Card")},
	{regexp.MustCompile(`\bshort print\b|\bsp\b`), models.VariationInsert, fixed("Short Print Card")},
}

// Team and place names that contain color words
var colorFalsePositives = strings.NewReplacer(
	"green bay", " ",
	"red sox", " ",
	"white sox", " ",
	"blue jays", " ",
	"red wings", " ",
	"blue jackets", " ",
	"golden state", " ",
	"golden knights", " ",
)

type parallelRule struct {
	category models.ParallelCategory
	pattern  *regexp.Regexp
}

// Parallel taxonomy used for grouping. Brand names like "prizm" on their own
// are a product line, not a parallel.
var parallelRules = []parallelRule{
	{models.ParallelSilver, regexp.MustCompile(`\bsilver\b`)},
	{models.ParallelGold, regexp.MustCompile(`\bgold\b`)},
	{models.ParallelBlue, regexp.MustCompile(`\bblue\b`)},
	{models.ParallelRed, regexp.MustCompile(`\bred\b`)},
	{models.ParallelGreen, regexp.MustCompile(`\bgreen\b`)},
	{models.ParallelPurple, regexp.MustCompile(`\bpurple\b`)},
	{models.ParallelBlack, regexp.MustCompile(`\bblack\b`)},
	{models.ParallelOrange, regexp.MustCompile(`\borange\b`)},
	{models.ParallelPink, regexp.MustCompile(`\bpink\b`)},
	{models.ParallelRefractor, regexp.MustCompile(`\brefractor\b`)},
	{models.ParallelOther, regexp.MustCompile(`\b(parallel|shimmer|glitter|sparkle|disco|wave|mojo|holo|cracked ice|hyper|scope|velocity|ruby|emerald|sapphire|bronze|yellow|white|tie[\s-]?dye|camo)\b|(^|\s)/\d{1,4}\b|\b\d{1,3}/\d{1,4}\b`)},
}

var (
	hashNumberPattern    = regexp.MustCompile(`#\s*([a-z]{0,4}-?\d{1,4}[a-z]?)\b`)
	labeledNumberPattern = regexp.MustCompile(`\b(?:card|no\.?|number)\s*#?\s*(\d{1,4})\b`)
	bareNumberPattern    = regexp.MustCompile(`\b\d{2,4}\b`)
	serialPattern        = regexp.MustCompile(`\d*/\d+`)
	seasonPattern        = regexp.MustCompile(`\b(?:19|20)\d{2}-\d{2}\b`)
	decimalPattern       = regexp.MustCompile(`\d+\.\d+`)
	gradeTokenPattern    = regexp.MustCompile(`(?i)\b` + gradeCompanies + `\b[^0-9]{0,6}\d+(?:\.\d+)?`)
)

// Classifier extracts grades, variation hints, parallel categories and card
// numbers from listing titles. It holds no state and is safe for concurrent use.
type Classifier struct{}

// NewClassifier creates a new classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Grade returns the grade label for a title. No recognizable grade means Raw.
func (c *Classifier) Grade(title string) models.GradeLabel {
	for _, pattern := range gradePatterns {
		if m := pattern.FindStringSubmatch(title); m != nil {
			return models.NewGradeLabel(m[1], m[2])
		}
	}
	// "raw", "ungraded" and titles without a slab grade are all Raw
	return models.GradeRaw
}

// VariationHint returns the first matching variation hint for a title
func (c *Classifier) VariationHint(title string) models.VariationHint {
	lower := strings.ToLower(title)

	if rookiePattern.MatchString(lower) {
		return models.VariationHint{Kind: models.VariationRookie, Label: "Rookie Card"}
	}

	for _, rule := range variationRules {
		if m := rule.pattern.FindStringSubmatch(lower); m != nil {
			match := m[0]
			if len(m) > 1 && m[1] != "" {
				match = m[1]
			}
			return models.VariationHint{Kind: rule.kind, Label: rule.label(strings.TrimSpace(match))}
		}
	}

	return models.VariationHint{Kind: models.VariationTitle, Label: truncateRunes(strings.TrimSpace(title), VariationTitleMax)}
}

// ParallelCategory returns the colorway category of a title, if any
func (c *Classifier) ParallelCategory(title string) (models.ParallelCategory, bool) {
	lower := colorFalsePositives.Replace(strings.ToLower(title))
	for _, rule := range parallelRules {
		if rule.pattern.MatchString(lower) {
			return rule.category, true
		}
	}
	return "", false
}

// CardNumber extracts a card number: "#123", "card 123", "no. 123",
// "number 123", or else a bare 2-4 digit token that is not a year, a grade
// or a serial number.
func (c *Classifier) CardNumber(title string) (string, bool) {
	lower := strings.ToLower(title)

	if m := hashNumberPattern.FindStringSubmatch(lower); m != nil {
		return trimCardNumber(m[1]), true
	}
	if m := labeledNumberPattern.FindStringSubmatch(lower); m != nil {
		return trimCardNumber(m[1]), true
	}

	stripped := lower
	for _, pattern := range gradePatterns {
		stripped = pattern.ReplaceAllString(stripped, " ")
	}
	stripped = gradeTokenPattern.ReplaceAllString(stripped, " ")
	stripped = seasonPattern.ReplaceAllString(stripped, " ")
	stripped = serialPattern.ReplaceAllString(stripped, " ")
	stripped = decimalPattern.ReplaceAllString(stripped, " ")

	for _, token := range bareNumberPattern.FindAllString(stripped, -1) {
		if isYear(token) {
			continue
		}
		n := strings.TrimLeft(token, "0")
		if n == "" {
			continue
		}
		return n, true
	}
	return "", false
}

func trimCardNumber(n string) string {
	if trimmed := strings.TrimLeft(n, "0"); trimmed != "" {
		return trimmed
	}
	return n
}

func isYear(token string) bool {
	if len(token) != 4 {
		return false
	}
	return token[:2] == "19" || token[:2] == "20"
}

// truncateRunes caps s at max runes without splitting a character
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
