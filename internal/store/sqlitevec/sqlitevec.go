// Package sqlitevec persists the catalog, user list entries and item
// embeddings in SQLite. Vectors are stored as little-endian float32 blobs.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"math"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"animerec/internal/logging"
	"animerec/internal/model"
)

// DB wraps a SQLite database used as catalog and vector store.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps ":memory:" databases shared across calls
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS media (
	  id INTEGER PRIMARY KEY,
	  titles TEXT,
	  genres TEXT,
	  tags TEXT,
	  format TEXT,
	  average_score INTEGER,
	  popularity INTEGER,
	  rankings TEXT,
	  description TEXT
	);
	CREATE TABLE IF NOT EXISTS list_entries (
	  user_name TEXT NOT NULL,
	  media_id INTEGER NOT NULL,
	  status TEXT NOT NULL,
	  score REAL,
	  PRIMARY KEY (user_name, media_id)
	);
	CREATE INDEX IF NOT EXISTS idx_list_status ON list_entries(user_name, status);
	CREATE TABLE IF NOT EXISTS embeddings (
	  media_id INTEGER NOT NULL,
	  model TEXT NOT NULL,
	  dim INTEGER NOT NULL,
	  vector BLOB NOT NULL,
	  PRIMARY KEY (media_id, model)
	);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

// PutItem inserts or replaces a catalog item.
func (d *DB) PutItem(ctx context.Context, it model.Item) error {
	titles, _ := json.Marshal(it.Titles)
	genres, _ := json.Marshal(it.Genres)
	tags, _ := json.Marshal(it.Tags)
	rankings, _ := json.Marshal(it.Rankings)
	_, err := d.sql.ExecContext(ctx, `INSERT INTO media(id, titles, genres, tags, format, average_score, popularity, rankings, description)
	VALUES(?,?,?,?,?,?,?,?,?)
	ON CONFLICT(id) DO UPDATE SET titles=excluded.titles, genres=excluded.genres, tags=excluded.tags, format=excluded.format,
	  average_score=excluded.average_score, popularity=excluded.popularity, rankings=excluded.rankings, description=excluded.description`,
		it.ID, string(titles), string(genres), string(tags), string(it.Format), nullInt(it.AverageScore), nullInt(it.Popularity), string(rankings), it.Description)
	return err
}

const mediaColumns = `m.id, m.titles, m.genres, m.tags, m.format, m.average_score, m.popularity, m.rankings, m.description`

type scanner interface{ Scan(dest ...any) error }

func scanItem(s scanner, extra ...any) (model.Item, error) {
	var (
		id                                     int
		titles, genres, tags, format, rankings sql.NullString
		description                            sql.NullString
		avg, pop                               sql.NullInt64
	)
	dest := append([]any{&id, &titles, &genres, &tags, &format, &avg, &pop, &rankings, &description}, extra...)
	if err := s.Scan(dest...); err != nil {
		return model.Item{}, err
	}
	it := model.Item{ID: id, Format: model.ParseFormat(format.String), Description: description.String}
	it.Titles = decodeOrEmpty[model.Titles](id, "titles", titles)
	it.Genres = decodeOrEmpty[[]string](id, "genres", genres)
	it.Tags = decodeOrEmpty[[]model.Tag](id, "tags", tags)
	it.Rankings = decodeOrEmpty[[]model.Ranking](id, "rankings", rankings)
	if avg.Valid {
		v := int(avg.Int64)
		it.AverageScore = &v
	}
	if pop.Valid {
		v := int(pop.Int64)
		it.Popularity = &v
	}
	return it, nil
}

// decodeOrEmpty returns the zero value when the stored JSON is missing or
// malformed.
func decodeOrEmpty[T any](id int, field string, src sql.NullString) T {
	var v T
	if !src.Valid || src.String == "" {
		return v
	}
	if err := json.Unmarshal([]byte(src.String), &v); err != nil {
		logging.Debug("media_field_unparsed", map[string]any{"media_id": id, "field": field, "error": err.Error()})
		var zero T
		return zero
	}
	return v
}

// LoadCatalog returns every stored item keyed by id.
func (d *DB) LoadCatalog(ctx context.Context) (map[int]model.Item, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media m`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int]model.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}

// LoadItemsAfter pages the catalog in id order.
func (d *DB) LoadItemsAfter(ctx context.Context, afterID, limit int) ([]model.Item, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media m WHERE m.id > ? ORDER BY m.id LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// LoadItemsMissingEmbedding pages, in id order, catalog items that have no
// vector for modelName.
func (d *DB) LoadItemsMissingEmbedding(ctx context.Context, modelName string, afterID, limit int) ([]model.Item, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media m
	LEFT JOIN embeddings e ON e.media_id = m.id AND e.model = ?
	WHERE e.media_id IS NULL AND m.id > ? ORDER BY m.id LIMIT ?`, modelName, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// PutListEntry records the user's status and optional raw score for an item.
func (d *DB) PutListEntry(ctx context.Context, user string, mediaID int, status model.ListStatus, score *float64) error {
	var s sql.NullFloat64
	if score != nil {
		s = sql.NullFloat64{Float64: *score, Valid: true}
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO list_entries(user_name, media_id, status, score) VALUES(?,?,?,?)
	ON CONFLICT(user_name, media_id) DO UPDATE SET status=excluded.status, score=excluded.score`, user, mediaID, string(status), s)
	return err
}

// LoadRatings returns the user's list joined with catalog metadata, scores
// normalized to 0-10. Entries for unknown items carry only their id.
func (d *DB) LoadRatings(ctx context.Context, user string, scale model.ScoreScale) ([]model.RatingEvent, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT l.media_id, m.titles, m.genres, m.tags, m.format, m.average_score, m.popularity, m.rankings, m.description, l.status, l.score
	FROM list_entries l LEFT JOIN media m ON m.id = l.media_id
	WHERE l.user_name = ? ORDER BY l.media_id`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RatingEvent
	for rows.Next() {
		var status string
		var score sql.NullFloat64
		it, err := scanItem(rows, &status, &score)
		if err != nil {
			return nil, err
		}
		ev := model.RatingEvent{Item: it, Status: model.ListStatus(status)}
		if score.Valid {
			v := model.NormalizeScore(score.Float64, scale)
			ev.Score = &v
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// LoadPlannedIDs returns ids the user marked as planning to watch.
func (d *DB) LoadPlannedIDs(ctx context.Context, user string) (model.IDSet, error) {
	return d.idSet(ctx, `SELECT media_id FROM list_entries WHERE user_name = ? AND status = ?`, user, string(model.StatusPlanning))
}

// LoadEngagedIDs returns ids the user has any non-planning status for.
func (d *DB) LoadEngagedIDs(ctx context.Context, user string) (model.IDSet, error) {
	return d.idSet(ctx, `SELECT media_id FROM list_entries WHERE user_name = ? AND status <> ?`, user, string(model.StatusPlanning))
}

func (d *DB) idSet(ctx context.Context, q string, args ...any) (model.IDSet, error) {
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := model.IDSet{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// PutEmbedding stores the vector for an item under an embedding model name.
func (d *DB) PutEmbedding(ctx context.Context, mediaID int, modelName string, vec []float32) error {
	if len(vec) == 0 {
		return errors.New("empty vector")
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO embeddings(media_id, model, dim, vector) VALUES(?,?,?,?)
	ON CONFLICT(media_id, model) DO UPDATE SET dim=excluded.dim, vector=excluded.vector`, mediaID, modelName, len(vec), encodeF32(vec))
	return err
}

// LoadEmbeddings returns all vectors stored for modelName.
func (d *DB) LoadEmbeddings(ctx context.Context, modelName string) (map[int][]float32, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT media_id, vector FROM embeddings WHERE model = ?`, modelName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int][]float32{}
	for rows.Next() {
		var id int
		var vb []byte
		if err := rows.Scan(&id, &vb); err != nil {
			return nil, err
		}
		out[id] = decodeF32(vb)
	}
	return out, rows.Err()
}

// CountEmbeddings reports how many items have a vector for modelName.
func (d *DB) CountEmbeddings(ctx context.Context, modelName string) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE model = ?`, modelName).Scan(&n)
	return n, err
}

// SaveCursor upserts a job checkpoint.
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO cursors(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// LoadCursor returns the checkpoint for key, or "" when none is stored.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func encodeF32(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v[i]))
	}
	return b
}

func decodeF32(b []byte) []float32 {
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
