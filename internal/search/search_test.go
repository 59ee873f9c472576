package search

import (
	"context"
	"testing"

	"animerec/internal/model"
)

func testCatalog() map[int]model.Item {
	return map[int]model.Item{
		1: {ID: 1, Titles: model.Titles{English: "Cowboy Bebop"}},
		2: {ID: 2, Titles: model.Titles{English: "Fullmetal Alchemist: Brotherhood", Romaji: "Hagane no Renkinjutsushi"}},
		3: {ID: 3, Titles: model.Titles{Romaji: "Shingeki no Kyojin"}},
		4: {ID: 4},
	}
}

func TestSearchExactAndTypo(t *testing.T) {
	idx, err := Build(testCatalog())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if idx.Len() != 4 {
		t.Fatalf("expected 4 docs, got %d", idx.Len())
	}
	ctx := context.Background()

	hits, err := idx.Search(ctx, "bebop", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].ID != 1 || hits[0].Title != "Cowboy Bebop" {
		t.Fatalf("unexpected hits %+v", hits)
	}

	hits, err = idx.Search(ctx, "alchemst", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].ID != 2 {
		t.Fatalf("typo should still find item 2: %+v", hits)
	}

	hits, err = idx.Search(ctx, "kyojin", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].ID != 3 || hits[0].Title != "Shingeki no Kyojin" {
		t.Fatalf("romaji title should resolve: %+v", hits)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	idx, err := Build(testCatalog())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	hits, err := idx.Search(context.Background(), "   ", 5)
	if err != nil || hits != nil {
		t.Fatalf("expected no hits, got %v %v", hits, err)
	}
}
