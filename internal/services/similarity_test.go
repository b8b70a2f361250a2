package services

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"2020 Panini Prizm - Justin Jefferson #398!!", "2020 panini prizm justin jefferson 398"},
		{"  LeBron   James\tRC ", "lebron james rc"},
		{"Pokémon Pikachu", "pokémon pikachu"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := NormalizeTitle(tt.title); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestTitlesSimilar(t *testing.T) {
	cfg := DefaultGroupingConfig()

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{
			name: "identical after normalization",
			a:    "Ken Griffey Jr. Upper Deck",
			b:    "ken griffey jr upper deck!",
			want: true,
		},
		{
			name: "one extra word stays above threshold",
			a:    "Ken Griffey Junior Upper Deck Star Rookie",
			b:    "Ken Griffey Junior Upper Deck Star Rookie Card",
			want: true,
		},
		{
			name: "threshold must hold in both directions",
			a:    "Ken Griffey Junior Upper Deck",
			b:    "Ken Griffey Junior Upper Deck Star Rookie Card Collection",
			want: false,
		},
		{
			name: "exactly seventy percent each way",
			a:    "alpha bravo charlie delta echo foxtrot golf hotel india juliet",
			b:    "alpha bravo charlie delta echo foxtrot golf kilo lima mike",
			want: true,
		},
		{
			name: "short titles need an exact match",
			a:    "Jordan Fleer",
			b:    "Jordan Fleer Card",
			want: false,
		},
		{
			name: "short words are ignored",
			a:    "Ken Griffey Junior Upper Deck of a an",
			b:    "Ken Griffey Junior Upper Deck to be or",
			want: true,
		},
		{
			name: "unrelated titles",
			a:    "Ken Griffey Junior Upper Deck Star Rookie",
			b:    "Shohei Ohtani Topps Chrome Update Series",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TitlesSimilar(tt.a, tt.b, cfg); got != tt.want {
				t.Errorf("TitlesSimilar(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := TitlesSimilar(tt.b, tt.a, cfg); got != tt.want {
				t.Errorf("TitlesSimilar(%q, %q) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}
