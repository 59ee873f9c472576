// Package vindex is an exact nearest-neighbour index over item embeddings.
//
// An Index is built once from a fixed embedding set and is read-only
// afterwards, so any number of goroutines may Search it concurrently.
package vindex

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrDimension reports vectors of inconsistent length.
	ErrDimension = errors.New("vindex: dimension mismatch")
	// ErrEmpty reports an attempt to build an index without vectors.
	ErrEmpty = errors.New("vindex: no vectors")
)

// Hit is one search result. Distance is the squared L2 distance.
type Hit struct {
	ID       int
	Distance float64
}

// Index stores vectors contiguously, ordered by ascending item id.
type Index struct {
	dim  int
	ids  []int
	data []float32
}

// Build copies vectors into a new Index. All vectors must share one
// non-zero dimension.
func Build(vectors map[int][]float32) (*Index, error) {
	if len(vectors) == 0 {
		return nil, ErrEmpty
	}
	ids := make([]int, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	dim := len(vectors[ids[0]])
	if dim == 0 {
		return nil, fmt.Errorf("%w: item %d has an empty vector", ErrDimension, ids[0])
	}
	data := make([]float32, 0, dim*len(ids))
	for _, id := range ids {
		v := vectors[id]
		if len(v) != dim {
			return nil, fmt.Errorf("%w: item %d has %d dims, want %d", ErrDimension, id, len(v), dim)
		}
		data = append(data, v...)
	}
	return &Index{dim: dim, ids: ids, data: data}, nil
}

// Len returns the number of indexed vectors.
func (x *Index) Len() int { return len(x.ids) }

// Dim returns the vector dimension.
func (x *Index) Dim() int { return x.dim }

// Search returns the k closest items to query, nearest first. Equal
// distances are ordered by ascending id. A k larger than Len returns every
// item; a non-positive k returns none.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	return x.SearchFunc(query, k, nil)
}

// SearchFunc is Search restricted to items for which keep reports true, so
// excluded items never take a slot among the k results. A nil keep keeps
// every item.
func (x *Index) SearchFunc(query []float32, k int, keep func(id int) bool) ([]Hit, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d dims, want %d", ErrDimension, len(query), x.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	hits := make([]Hit, 0, len(x.ids))
	for i, id := range x.ids {
		if keep != nil && !keep(id) {
			continue
		}
		hits = append(hits, Hit{ID: id, Distance: squaredL2(query, x.data[i*x.dim:(i+1)*x.dim])})
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return a.ID - b.ID
		}
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
