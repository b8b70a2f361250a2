package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewGradeLabel(t *testing.T) {
	tests := []struct {
		company  string
		grade    string
		expected GradeLabel
	}{
		{"PSA", "10", GradePSA10},
		{"psa", "9", GradePSA9},
		{"BGS", "9.5", "BGS 9.5"},
		{"SGC", "8.5", "SGC 8.5"},
		{"PSA", "7", GradeRaw},
		{"PSA", "9.0", GradeRaw},
		{"XYZ", "10", GradeRaw},
		{"", "", GradeRaw},
	}

	for _, tt := range tests {
		t.Run(tt.company+" "+tt.grade, func(t *testing.T) {
			result := NewGradeLabel(tt.company, tt.grade)
			if result != tt.expected {
				t.Errorf("NewGradeLabel(%q, %q) = %q, want %q", tt.company, tt.grade, result, tt.expected)
			}
		})
	}
}

func TestGradeLabelTier(t *testing.T) {
	tests := []struct {
		label    GradeLabel
		expected GradeTier
	}{
		{GradePSA10, TierPSA10},
		{GradePSA9, TierPSA9},
		{"BGS 9.5", TierOtherGraded},
		{"PSA 8", TierOtherGraded},
		{GradeRaw, TierRaw},
		{"", TierRaw},
	}

	for _, tt := range tests {
		if result := tt.label.Tier(); result != tt.expected {
			t.Errorf("GradeLabel(%q).Tier() = %s, want %s", tt.label, result, tt.expected)
		}
	}
}

func TestGradeLabelCompany(t *testing.T) {
	if c := GradeLabel("BGS 9.5").Company(); c != "BGS" {
		t.Errorf("Company() = %q, want BGS", c)
	}
	if c := GradeRaw.Company(); c != "" {
		t.Errorf("Company() for raw = %q, want empty", c)
	}
}

func TestParseGradeFilter(t *testing.T) {
	tests := []struct {
		input    string
		expected GradeFilter
	}{
		{"", GradeFilterAny},
		{"ANY", GradeFilterAny},
		{"raw", GradeFilterRaw},
		{"Ungraded", GradeFilterRaw},
		{"graded", GradeFilterGraded},
		{"PSA10", GradeFilter(GradePSA10)},
		{"psa  9", GradeFilter(GradePSA9)},
		{"bgs 9.5", GradeFilter("BGS 9.5")},
		{"psa 7", GradeFilterAny},
		{"nonsense", GradeFilterAny},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseGradeFilter(tt.input)
			if result != tt.expected {
				t.Errorf("ParseGradeFilter(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGradeFilterMatches(t *testing.T) {
	tests := []struct {
		name     string
		filter   GradeFilter
		grade    GradeLabel
		expected bool
	}{
		{"any matches raw", GradeFilterAny, GradeRaw, true},
		{"any matches graded", GradeFilterAny, GradePSA10, true},
		{"raw matches raw", GradeFilterRaw, GradeRaw, true},
		{"raw rejects graded", GradeFilterRaw, GradePSA9, false},
		{"graded rejects raw", GradeFilterGraded, GradeRaw, false},
		{"graded matches bgs", GradeFilterGraded, "BGS 9.5", true},
		{"exact label matches", GradeFilter(GradePSA10), GradePSA10, true},
		{"exact label rejects other", GradeFilter(GradePSA10), GradePSA9, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.filter.Matches(tt.grade); result != tt.expected {
				t.Errorf("GradeFilter(%q).Matches(%q) = %v, want %v", tt.filter, tt.grade, result, tt.expected)
			}
		})
	}
}

func TestParallelCategoryDisplayName(t *testing.T) {
	tests := []struct {
		category ParallelCategory
		expected string
	}{
		{ParallelSilver, "Silver Parallel"},
		{ParallelPink, "Pink Parallel"},
		{ParallelRefractor, "Refractor"},
		{ParallelOther, "Parallel"},
		{"", ""},
	}

	for _, tt := range tests {
		if result := tt.category.DisplayName(); result != tt.expected {
			t.Errorf("ParallelCategory(%q).DisplayName() = %q, want %q", tt.category, result, tt.expected)
		}
	}
}

func TestCalendarDateJSON(t *testing.T) {
	d := NewCalendarDate(time.Date(2024, time.March, 3, 17, 45, 0, 0, time.UTC))

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"2024-03-03"` {
		t.Errorf("Marshal = %s, want \"2024-03-03\"", data)
	}

	var parsed CalendarDate
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !parsed.Equal(d.Time) {
		t.Errorf("Unmarshal = %v, want %v", parsed, d)
	}

	if err := json.Unmarshal([]byte(`"March 3"`), &parsed); err == nil {
		t.Error("Unmarshal of invalid date should fail")
	}
}
