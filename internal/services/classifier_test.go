package services

import (
	"strings"
	"testing"

	"github.com/codyseavey/card-comps/backend/internal/models"
)

func TestClassifier_Grade(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		title string
		want  models.GradeLabel
	}{
		{"2020 Panini Prizm PSA10", "PSA 10"},
		{"2020 Panini Prizm Justin Jefferson BGS 9.5", "BGS 9.5"},
		{"2020 Panini Prizm Justin Jefferson raw near mint", models.GradeRaw},
		{"2020 Panini Prizm Justin Jefferson PSA 7", models.GradeRaw},
		{"Justin Jefferson PSA GEM MINT 10", "PSA 10"},
		{"Justin Jefferson PSA GEM-MT 10 Rookie", "PSA 10"},
		{"Justin Jefferson psa 9 mint", "PSA 9"},
		{"Justin Jefferson SGC 8.5", "SGC 8.5"},
		{"Justin Jefferson CGC - 9", "CGC 9"},
		{"Justin Jefferson HGA10", "HGA 10"},
		{"Justin Jefferson Ungraded", models.GradeRaw},
		{"Justin Jefferson PSA 100 lot", models.GradeRaw},
		{"Justin Jefferson ABC 10", models.GradeRaw},
		{"Justin Jefferson CGC 9.8", models.GradeRaw},
		{"Justin Jefferson BGS 8.7", models.GradeRaw},
		{"", models.GradeRaw},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := c.Grade(tt.title); got != tt.want {
				t.Errorf("Grade(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestClassifier_VariationHint(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		title     string
		wantKind  models.VariationKind
		wantLabel string
	}{
		{"2020 Prizm Justin Jefferson Rookie #398 Silver", models.VariationRookie, "Rookie Card"},
		{"2020 Prizm Justin Jefferson RC #398", models.VariationRookie, "Rookie Card"},
		{"2021 Topps Chrome Gold Refractor /50", models.VariationParallel, "Gold Parallel"},
		{"2021 Prizm Blue Wave", models.VariationParallel, "Blue Parallel"},
		{"Donruss Optic Shimmer", models.VariationParallel, "Shimmer Parallel"},
		{"2020 Prizm Justin Jefferson #398", models.VariationBrand, "Prizm Card"},
		{"Topps Chrome Refractor #12", models.VariationParallel, "Refractor"},
		{"Patrick Mahomes National Treasures Autograph", models.VariationInsert, "Autograph Card"},
		{"Jersey relic Tom Brady", models.VariationInsert, "Jersey Card"},
		{"Kobe Bryant 1/1 Superfractor", models.VariationInsert, "One-of-One Card"},
		{"Luka Doncic Kaboom Insert", models.VariationInsert, "Insert Card"},
		{"Michael Jordan 1986 Fleer #57", models.VariationTitle, "Michael Jordan 1986 Fleer #57"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := c.VariationHint(tt.title)
			if got.Kind != tt.wantKind || got.Label != tt.wantLabel {
				t.Errorf("VariationHint(%q) = {%s %q}, want {%s %q}", tt.title, got.Kind, got.Label, tt.wantKind, tt.wantLabel)
			}
		})
	}
}

func TestClassifier_VariationHintTruncatesTitle(t *testing.T) {
	c := NewClassifier()
	title := strings.Repeat("Michael Jordan Fleer ", 10)

	got := c.VariationHint(title)
	if got.Kind != models.VariationTitle {
		t.Fatalf("VariationHint() kind = %s, want %s", got.Kind, models.VariationTitle)
	}
	if n := len([]rune(got.Label)); n > VariationTitleMax {
		t.Errorf("VariationHint() label has %d runes, want <= %d", n, VariationTitleMax)
	}
}

func TestClassifier_ParallelCategory(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		title  string
		want   models.ParallelCategory
		wantOK bool
	}{
		{"2020 Prizm Justin Jefferson Silver #398", models.ParallelSilver, true},
		{"Topps Chrome Gold Refractor /50", models.ParallelGold, true},
		{"Topps Chrome Refractor", models.ParallelRefractor, true},
		{"Jordan Love Green Bay Packers #12", "", false},
		{"Jordan Love Green Bay Packers Green Prizm", models.ParallelGreen, true},
		{"Boston Red Sox Mookie Betts", "", false},
		{"2020 Prizm Justin Jefferson #398", "", false},
		{"Select Tie-Dye", models.ParallelOther, true},
		{"Optic numbered 23/99", models.ParallelOther, true},
		{"Mosaic /25", models.ParallelOther, true},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, ok := c.ParallelCategory(tt.title)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParallelCategory(%q) = (%q, %v), want (%q, %v)", tt.title, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClassifier_CardNumber(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		title  string
		want   string
		wantOK bool
	}{
		{"2020 Prizm Justin Jefferson #398", "398", true},
		{"2020 Prizm Justin Jefferson # 398 PSA 10", "398", true},
		{"Topps Chrome #007", "7", true},
		{"Fleer Card 57 Michael Jordan", "57", true},
		{"Fleer No. 57 Michael Jordan", "57", true},
		{"Fleer Number 57", "57", true},
		{"2003-04 Topps LeBron James 221", "221", true},
		{"2020 Prizm Justin Jefferson PSA 10", "", false},
		{"2020 Prizm Gold /10", "", false},
		{"2020 Prizm BGS 9.5", "", false},
		{"Michael Jordan SGC 96", "", false},
		{"Michael Jordan PSA 7 Fleer", "", false},
		{"2020 Prizm CGC 9.8 398", "398", true},
		{"Justin Jefferson 2020 Prizm 398 Silver", "398", true},
		{"Justin Jefferson", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, ok := c.CardNumber(tt.title)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CardNumber(%q) = (%q, %v), want (%q, %v)", tt.title, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
