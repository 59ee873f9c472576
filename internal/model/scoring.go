package model

import "strings"

const (
	// assumed popularity ceiling used to scale popularity counts
	popularityScale = 1_000_000.0
	// rank assumed for tags that carry none
	defaultTagRank = 1
)

// Score rates how well item matches the preference profile.
// Genre matches add the profile weight; tag matches add the weight scaled by
// the tag's curator rank. Average score and popularity add small tie-breaking
// terms. Absent fields contribute nothing.
func Score(item Item, profile Profile) float64 {
	score := 0.0
	for _, g := range uniqueLabels(item.Genres) {
		score += profile.Weight(g)
	}
	for _, t := range uniqueTags(item.Tags) {
		w := profile.Weight(t.Name)
		if w == 0 {
			continue
		}
		rank := defaultTagRank
		if t.HasRank {
			rank = t.Rank
		}
		score += w * (1 + float64(rank)/100)
	}
	if item.AverageScore != nil {
		score += float64(*item.AverageScore) * 0.1
	}
	if item.Popularity != nil {
		score += float64(*item.Popularity) / popularityScale
	}
	return score
}

// QualityScore estimates catalog quality independent of any user taste.
// Average score and popularity are scaled to [0,1] and weighted 4:3, then
// adjusted by a format multiplier:
//
//	TV              x1.5 plus a bonus for a top-100 TV ranking
//	MOVIE           x1.0
//	OVA/ONA/SPECIAL x0.5
//	TV_SHORT        x0.1
//
// Unknown formats keep the base quality.
func QualityScore(item Item) float64 {
	avg, pop := 0.0, 0.0
	if item.AverageScore != nil {
		avg = float64(*item.AverageScore) / 100
	}
	if item.Popularity != nil {
		pop = float64(*item.Popularity) / popularityScale
	}
	base := avg*4 + pop*3

	switch item.Format {
	case FormatTV:
		return base*1.5 + tvRankBonus(item.Rankings)
	case FormatMovie:
		return base
	case FormatOVA, FormatONA, FormatSpecial:
		return base * 0.5
	case FormatTVShort:
		return base * 0.1
	default:
		return base
	}
}

// tvRankBonus returns max(0, (100-rank)/100) for the best positive TV rank.
func tvRankBonus(rankings []Ranking) float64 {
	bonus := 0.0
	for _, r := range rankings {
		if !strings.EqualFold(r.Type, string(FormatTV)) || r.Rank <= 0 {
			continue
		}
		if b := float64(100-r.Rank) / 100; b > bonus {
			bonus = b
		}
	}
	return bonus
}
