package model

import "testing"

func TestResolveTitlePrecedence(t *testing.T) {
	cases := []struct {
		titles Titles
		want   string
	}{
		{Titles{English: "Frieren", Romaji: "Sousou no Frieren", Native: "葬送のフリーレン"}, "Frieren"},
		{Titles{English: "   ", Romaji: " Sousou no Frieren ", Native: "葬送のフリーレン"}, "Sousou no Frieren"},
		{Titles{Native: "葬送のフリーレン"}, "葬送のフリーレン"},
		{Titles{English: "\t", Native: " "}, UnknownTitle},
	}
	for _, c := range cases {
		if got := ResolveTitle(Item{Titles: c.titles}); got != c.want {
			t.Fatalf("titles %+v: got %q want %q", c.titles, got, c.want)
		}
	}
}

func TestEmbeddingTextFiltersTags(t *testing.T) {
	item := Item{
		Titles: Titles{Romaji: "Mushoku Tensei"},
		Genres: []string{"Fantasy", "Drama", "Fantasy"},
		Tags: []Tag{
			{Name: "Isekai", Rank: 80, HasRank: true},
			{Name: "Magic", Rank: 70, HasRank: true},
			{Name: "Isekai", Rank: 90, HasRank: true},
			{Name: "Comedy", Rank: 50, HasRank: true},
			{Name: "Unranked"},
		},
	}
	want := "Title: Mushoku Tensei. Genres: Drama Fantasy. Important tags: Isekai Magic"
	if got := EmbeddingText(item); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got := FilteredTagNames(nil, ImportantTagRank); len(got) != 0 {
		t.Fatalf("expected no tags, got %v", got)
	}
}
