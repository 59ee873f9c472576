package vindex

import (
	"errors"
	"reflect"
	"testing"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	x, err := Build(map[int][]float32{
		10: {0, 0},
		20: {1, 0},
		30: {0, 3},
		40: {-1, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	return x
}

func TestSearchOrdersByDistanceThenID(t *testing.T) {
	x := testIndex(t)
	hits, err := x.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []Hit{{ID: 10, Distance: 0}, {ID: 20, Distance: 1}, {ID: 40, Distance: 1}}
	if !reflect.DeepEqual(hits, want) {
		t.Fatalf("got %+v want %+v", hits, want)
	}
	again, _ := x.Search([]float32{0, 0}, 3)
	if !reflect.DeepEqual(hits, again) {
		t.Fatalf("search must be stable for identical input")
	}
}

func TestSearchKBounds(t *testing.T) {
	x := testIndex(t)
	hits, err := x.Search([]float32{0, 1}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != x.Len() {
		t.Fatalf("expected all %d items, got %d", x.Len(), len(hits))
	}
	if hits, _ := x.Search([]float32{0, 1}, 0); len(hits) != 0 {
		t.Fatalf("expected no hits for k=0, got %v", hits)
	}
}

func TestDimensionErrors(t *testing.T) {
	if _, err := Build(map[int][]float32{1: {1, 2}, 2: {1}}); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
	if _, err := Build(nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	x := testIndex(t)
	if _, err := x.Search([]float32{1, 2, 3}, 1); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension for query, got %v", err)
	}
}

func TestSearchFuncSkipsExcludedItems(t *testing.T) {
	x := testIndex(t)
	hits, err := x.SearchFunc([]float32{0, 0}, 2, func(id int) bool { return id != 10 && id != 20 })
	if err != nil {
		t.Fatal(err)
	}
	want := []Hit{{ID: 40, Distance: 1}, {ID: 30, Distance: 9}}
	if !reflect.DeepEqual(hits, want) {
		t.Fatalf("got %+v want %+v", hits, want)
	}
	if hits, _ := x.SearchFunc([]float32{0, 0}, 5, func(int) bool { return false }); len(hits) != 0 {
		t.Fatalf("expected no hits when everything is excluded, got %v", hits)
	}
}
