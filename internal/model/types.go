package model

import (
	"strings"

	"github.com/goccy/go-json"
)

// Format is the catalog release format of an item.
type Format string

const (
	FormatTV      Format = "TV"
	FormatMovie   Format = "MOVIE"
	FormatOVA     Format = "OVA"
	FormatONA     Format = "ONA"
	FormatSpecial Format = "SPECIAL"
	FormatTVShort Format = "TV_SHORT"
	FormatUnknown Format = "UNKNOWN"
)

// ParseFormat maps a catalog format string onto a Format, case-insensitively.
// Anything unrecognised becomes FormatUnknown.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToUpper(strings.TrimSpace(s))); f {
	case FormatTV, FormatMovie, FormatOVA, FormatONA, FormatSpecial, FormatTVShort:
		return f
	default:
		return FormatUnknown
	}
}

// ListStatus is the user's list status for an item.
type ListStatus string

const (
	StatusCompleted ListStatus = "COMPLETED"
	StatusPlanning  ListStatus = "PLANNING"
	StatusCurrent   ListStatus = "CURRENT"
	StatusDropped   ListStatus = "DROPPED"
	StatusPaused    ListStatus = "PAUSED"
	StatusRepeating ListStatus = "REPEATING"
)

// Titles holds the localized names of an item.
type Titles struct {
	English string `json:"english,omitempty"`
	Romaji  string `json:"romaji,omitempty"`
	Native  string `json:"native,omitempty"`
}

// Tag is a descriptive label with an optional curator rank in [0,100].
type Tag struct {
	Name    string
	Rank    int
	HasRank bool
}

// UnmarshalJSON accepts either a bare tag name or an object carrying
// "name" plus "rank" or "importance".
func (t *Tag) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*t = Tag{Name: name}
		return nil
	}
	var obj struct {
		Name       string `json:"name"`
		Rank       *int   `json:"rank"`
		Importance *int   `json:"importance"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*t = Tag{Name: obj.Name}
	switch {
	case obj.Rank != nil:
		t.Rank, t.HasRank = *obj.Rank, true
	case obj.Importance != nil:
		t.Rank, t.HasRank = *obj.Importance, true
	}
	return nil
}

// MarshalJSON writes the object form, omitting rank when absent.
func (t Tag) MarshalJSON() ([]byte, error) {
	if !t.HasRank {
		return json.Marshal(struct {
			Name string `json:"name"`
		}{t.Name})
	}
	return json.Marshal(struct {
		Name string `json:"name"`
		Rank int    `json:"rank"`
	}{t.Name, t.Rank})
}

// Ranking is a catalog chart position; rank 1 is best.
type Ranking struct {
	Type string `json:"type"`
	Rank int    `json:"rank"`
}

// Item is an immutable catalog record.
type Item struct {
	ID           int
	Titles       Titles
	Genres       []string
	Tags         []Tag
	Format       Format
	AverageScore *int // 0-100
	Popularity   *int
	Rankings     []Ranking
	Description  string
}

// RatingEvent is one entry of the user's list. Score is on a 0-10 scale.
type RatingEvent struct {
	Item   Item
	Status ListStatus
	Score  *float64
}

// IDSet is a set of item ids.
type IDSet map[int]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...int) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership; a nil set contains nothing.
func (s IDSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}
