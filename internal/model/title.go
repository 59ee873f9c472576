package model

import (
	"sort"
	"strings"

	"animerec/internal/util"
)

// UnknownTitle is shown when an item has no usable name.
const UnknownTitle = "Unknown Title"

// ResolveTitle picks the display name: English, then romanized, then native.
// Blank names are skipped.
func ResolveTitle(item Item) string {
	for _, t := range []string{item.Titles.English, item.Titles.Romaji, item.Titles.Native} {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return UnknownTitle
}

// ImportantTagRank is the minimum rank for a tag to describe an item in its
// embedding text.
const ImportantTagRank = 60

// FilteredTagNames returns the sorted, unique names of tags ranked at least
// minRank. Tags without a rank never qualify.
func FilteredTagNames(tags []Tag, minRank int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tags {
		if t.Name == "" || !t.HasRank || t.Rank < minRank {
			continue
		}
		if _, ok := seen[t.Name]; ok {
			continue
		}
		seen[t.Name] = struct{}{}
		out = append(out, t.Name)
	}
	sort.Strings(out)
	return out
}

// EmbeddingText is the document embedded for an item. Query-time embeddings
// must come from the same model that embedded these texts.
func EmbeddingText(item Item) string {
	genres := uniqueLabels(item.Genres)
	sort.Strings(genres)
	text := "Title: " + ResolveTitle(item) +
		". Genres: " + strings.Join(genres, " ") +
		". Important tags: " + strings.Join(FilteredTagNames(item.Tags, ImportantTagRank), " ")
	return util.NormalizeWhitespace(text)
}
