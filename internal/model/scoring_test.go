package model

import (
	"math"
	"testing"
)

func intp(v int) *int { return &v }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScoreWorkedExample(t *testing.T) {
	profile := Profile{"Isekai": 3, "Magic": 2}
	isekai := Item{
		ID:           1,
		Genres:       []string{"Isekai"},
		Tags:         []Tag{{Name: "Magic", Rank: 90, HasRank: true}},
		AverageScore: intp(80),
		Popularity:   intp(500000),
		Format:       FormatTV,
	}
	if got := Score(isekai, profile); !approx(got, 15.3) {
		t.Fatalf("expected 15.3, got %v", got)
	}
	short := Item{ID: 2, Genres: []string{"Comedy"}, AverageScore: intp(50), Popularity: intp(1000), Format: FormatTVShort}
	if got := Score(short, profile); !approx(got, 5.001) {
		t.Fatalf("expected 5.001, got %v", got)
	}
}

func TestScoreDefaultsTagRankToOne(t *testing.T) {
	item := Item{Tags: []Tag{{Name: "Magic"}}}
	if got := Score(item, Profile{"Magic": 2}); !approx(got, 2.02) {
		t.Fatalf("expected 2.02, got %v", got)
	}
}

func TestScoreIgnoresOrderAndMissingFields(t *testing.T) {
	profile := Profile{"Action": 2, "Drama": 1, "Mecha": 3}
	a := Item{Genres: []string{"Action", "Drama"}, Tags: []Tag{{Name: "Mecha", Rank: 50, HasRank: true}, {Name: "Space"}}}
	b := Item{Genres: []string{"Drama", "Action"}, Tags: []Tag{{Name: "Space"}, {Name: "Mecha", Rank: 50, HasRank: true}}}
	if Score(a, profile) != Score(b, profile) {
		t.Fatalf("score must not depend on label order")
	}
	if got := Score(Item{}, profile); got != 0 {
		t.Fatalf("empty item should score 0, got %v", got)
	}
	if got := Score(a, nil); got != 0 {
		t.Fatalf("nil profile should score 0, got %v", got)
	}
}

func TestQualityScoreFormats(t *testing.T) {
	base := func(f Format) Item {
		return Item{Format: f, AverageScore: intp(80), Popularity: intp(500000)}
	}
	// 0.8*4 + 0.5*3
	const q = 4.7
	cases := []struct {
		format Format
		want   float64
	}{
		{FormatTV, q * 1.5},
		{FormatMovie, q},
		{FormatOVA, q * 0.5},
		{FormatONA, q * 0.5},
		{FormatSpecial, q * 0.5},
		{FormatTVShort, q * 0.1},
		{FormatUnknown, q},
	}
	for _, c := range cases {
		if got := QualityScore(base(c.format)); !approx(got, c.want) {
			t.Fatalf("%s: expected %v, got %v", c.format, c.want, got)
		}
	}
}

func TestQualityScoreTVRankBonus(t *testing.T) {
	item := Item{
		Format:       FormatTV,
		AverageScore: intp(80),
		Rankings: []Ranking{
			{Type: "RATED", Rank: 1},
			{Type: "tv", Rank: 40},
			{Type: "TV", Rank: 10},
			{Type: "TV", Rank: 0},
		},
	}
	want := 3.2*1.5 + 0.9
	if got := QualityScore(item); !approx(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	item.Rankings = []Ranking{{Type: "TV", Rank: 250}}
	if got := QualityScore(item); !approx(got, 3.2*1.5) {
		t.Fatalf("rank beyond 100 should add nothing, got %v", got)
	}
	if got := QualityScore(Item{Format: FormatMovie, Rankings: []Ranking{{Type: "TV", Rank: 1}}}); got != 0 {
		t.Fatalf("rank bonus only applies to TV, got %v", got)
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("tv_short") != FormatTVShort {
		t.Fatalf("expected TV_SHORT")
	}
	if ParseFormat("MUSIC") != FormatUnknown || ParseFormat("") != FormatUnknown {
		t.Fatalf("unrecognised formats map to UNKNOWN")
	}
}
