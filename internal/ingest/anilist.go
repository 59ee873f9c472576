// Package ingest loads AniList-shaped JSON exports into the store: catalog
// media dumps and a user's MediaListCollection.
package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"animerec/internal/logging"
	"animerec/internal/model"
	"animerec/internal/store/sqlitevec"
)

type mediaTitle struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

// media mirrors the AniList Media object. Genres, tags and rankings stay raw
// so malformed values degrade to empty instead of failing the import.
type media struct {
	ID           int             `json:"id"`
	Title        mediaTitle      `json:"title"`
	Format       string          `json:"format"`
	AverageScore *int            `json:"averageScore"`
	Popularity   *int            `json:"popularity"`
	Description  string          `json:"description"`
	Genres       json.RawMessage `json:"genres"`
	Tags         json.RawMessage `json:"tags"`
	Rankings     json.RawMessage `json:"rankings"`
}

type listEntry struct {
	Status string   `json:"status"`
	Score  *float64 `json:"score"`
	Media  media    `json:"media"`
}

type listCollection struct {
	Data struct {
		MediaListCollection struct {
			Lists []struct {
				Name    string      `json:"name"`
				Entries []listEntry `json:"entries"`
			} `json:"lists"`
		} `json:"MediaListCollection"`
	} `json:"data"`
}

func (m media) toItem() model.Item {
	it := model.Item{
		ID:           m.ID,
		Titles:       model.Titles{English: m.Title.English, Romaji: m.Title.Romaji, Native: m.Title.Native},
		Format:       model.ParseFormat(m.Format),
		AverageScore: m.AverageScore,
		Popularity:   m.Popularity,
		Description:  m.Description,
	}
	it.Genres = decodeOrEmpty[[]string](m.ID, "genres", m.Genres)
	it.Tags = decodeOrEmpty[[]model.Tag](m.ID, "tags", m.Tags)
	it.Rankings = decodeOrEmpty[[]model.Ranking](m.ID, "rankings", m.Rankings)
	return it
}

func decodeOrEmpty[T any](id int, field string, raw json.RawMessage) T {
	var v T
	if len(raw) == 0 {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		logging.Debug("media_field_unparsed", map[string]any{"media_id": id, "field": field, "error": err.Error()})
		var zero T
		return zero
	}
	return v
}

// ImportCatalog reads a JSON array of Media objects and upserts them.
func ImportCatalog(ctx context.Context, db *sqlitevec.DB, r io.Reader) (int, error) {
	var all []media
	if err := json.NewDecoder(r).Decode(&all); err != nil {
		return 0, fmt.Errorf("decode catalog: %w", err)
	}
	n := 0
	for _, m := range all {
		if m.ID <= 0 {
			continue
		}
		if err := db.PutItem(ctx, m.toItem()); err != nil {
			return n, fmt.Errorf("store media %d: %w", m.ID, err)
		}
		n++
	}
	logging.Info("import_catalog", map[string]any{"items": n})
	return n, nil
}

// ListImport counts what ImportList stored.
type ListImport struct {
	Entries int
	Media   int
}

// ImportList reads a MediaListCollection response for user and stores every
// entry plus any media not already in the catalog. Raw scores are stored as
// given; the configured scale converts them at load time.
func ImportList(ctx context.Context, db *sqlitevec.DB, user string, r io.Reader) (ListImport, error) {
	var res ListImport
	var coll listCollection
	if err := json.NewDecoder(r).Decode(&coll); err != nil {
		return res, fmt.Errorf("decode list: %w", err)
	}
	known, err := db.LoadCatalog(ctx)
	if err != nil {
		return res, err
	}
	for _, l := range coll.Data.MediaListCollection.Lists {
		for _, e := range l.Entries {
			if e.Media.ID <= 0 || e.Status == "" {
				continue
			}
			if _, ok := known[e.Media.ID]; !ok {
				it := e.Media.toItem()
				if err := db.PutItem(ctx, it); err != nil {
					return res, fmt.Errorf("store media %d: %w", it.ID, err)
				}
				known[it.ID] = it
				res.Media++
			}
			score := e.Score
			// AniList reports 0 for unscored entries
			if score != nil && *score == 0 {
				score = nil
			}
			if err := db.PutListEntry(ctx, user, e.Media.ID, model.ListStatus(e.Status), score); err != nil {
				return res, fmt.Errorf("store entry %d: %w", e.Media.ID, err)
			}
			res.Entries++
		}
	}
	logging.Info("import_list", map[string]any{"user": user, "entries": res.Entries, "new_media": res.Media})
	return res, nil
}
