package model

// GoodScore is the lowest 0-10 rating that counts as a positive signal.
const GoodScore = 7.0

// ScoreScale identifies the rating scale a list source uses.
type ScoreScale int

const (
	Scale10  ScoreScale = 10
	Scale100 ScoreScale = 100
)

// NormalizeScore converts a raw rating to the 0-10 scale.
func NormalizeScore(raw float64, scale ScoreScale) float64 {
	if scale == Scale100 {
		return raw / 10
	}
	return raw
}

// Profile maps a genre or tag label to its accumulated preference weight.
// Weights are only meaningful relative to each other.
type Profile map[string]float64

// Weight returns the weight for label, zero when absent.
func (p Profile) Weight(label string) float64 { return p[label] }

// RatingWeight turns a 0-10 score into a preference weight: zero below
// GoodScore, then one unit at GoodScore and one more per point above it.
func RatingWeight(score float64) float64 {
	if score < GoodScore {
		return 0
	}
	return score - (GoodScore - 1)
}

// BuildProfile accumulates genre and tag weights over completed, scored
// events. Genres and tags share one namespace.
func BuildProfile(events []RatingEvent) Profile {
	p := make(Profile)
	for _, e := range events {
		if e.Status != StatusCompleted || e.Score == nil {
			continue
		}
		w := RatingWeight(*e.Score)
		if w == 0 {
			continue
		}
		for _, g := range uniqueLabels(e.Item.Genres) {
			p[g] += w
		}
		for _, t := range uniqueTags(e.Item.Tags) {
			p[t.Name] += w
		}
	}
	return p
}

// uniqueLabels drops empty and repeated labels, keeping first occurrence.
func uniqueLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// uniqueTags drops unnamed and repeated tags. A repeated name keeps its
// highest rank.
func uniqueTags(tags []Tag) []Tag {
	idx := make(map[string]int, len(tags))
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if t.Name == "" {
			continue
		}
		if i, ok := idx[t.Name]; ok {
			if t.HasRank && (!out[i].HasRank || t.Rank > out[i].Rank) {
				out[i] = t
			}
			continue
		}
		idx[t.Name] = len(out)
		out = append(out, t)
	}
	return out
}
