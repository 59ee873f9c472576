package jobs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"animerec/internal/embed"
	"animerec/internal/logging"
	"animerec/internal/metrics"
	"animerec/internal/model"
	"animerec/internal/store/sqlitevec"
)

// EmbedResult summarizes one catalog embedding run.
type EmbedResult struct {
	Embedded int
	LastID   int
}

func cursorKey(modelName string) string { return "embed:" + modelName + ":last_id" }

// EmbedCatalog gives every catalog item a vector for modelName. With reset
// it first re-embeds the whole catalog; that pass checkpoints its cursor
// after each item, and a later run picks an interrupted pass back up.
// Every run then embeds the items that still have no vector, whatever their
// id.
func EmbedCatalog(ctx context.Context, db *sqlitevec.DB, e embed.Embedder, modelName string, batchSize int, reset bool) (EmbedResult, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	key := cursorKey(modelName)
	var res EmbedResult
	start := time.Now()
	metrics.EmbedRuns.Inc()

	after, resume, err := reembedStart(ctx, db, key, reset)
	if err != nil {
		metrics.EmbedErrors.Inc()
		return res, err
	}
	logging.Info("embed_start", map[string]any{"model": modelName, "reembed": resume, "after_id": after})
	if resume {
		if err := db.SaveCursor(ctx, key, strconv.Itoa(after)); err != nil {
			metrics.EmbedErrors.Inc()
			return res, fmt.Errorf("save cursor: %w", err)
		}
		err = embedPages(ctx, db, e, modelName, &res, after, func(after int) ([]model.Item, error) {
			return db.LoadItemsAfter(ctx, after, batchSize)
		}, func(id int) error {
			return db.SaveCursor(ctx, key, strconv.Itoa(id))
		})
		if err != nil {
			return res, err
		}
		if err := db.SaveCursor(ctx, key, ""); err != nil {
			metrics.EmbedErrors.Inc()
			return res, fmt.Errorf("clear cursor: %w", err)
		}
	}

	err = embedPages(ctx, db, e, modelName, &res, 0, func(after int) ([]model.Item, error) {
		return db.LoadItemsMissingEmbedding(ctx, modelName, after, batchSize)
	}, nil)
	if err != nil {
		return res, err
	}
	logging.Info("embed_done", map[string]any{"model": modelName, "embedded": res.Embedded, "last_id": res.LastID, "elapsed_ms": time.Since(start).Milliseconds()})
	return res, nil
}

// reembedStart reports where a full re-embed pass starts and whether one is
// due: always for reset, otherwise only when an earlier pass left a cursor.
func reembedStart(ctx context.Context, db *sqlitevec.DB, key string, reset bool) (int, bool, error) {
	if reset {
		return 0, true, nil
	}
	v, err := db.LoadCursor(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("load cursor: %w", err)
	}
	if v == "" {
		return 0, false, nil
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		logging.Warn("embed_cursor_invalid", map[string]any{"key": key, "value": v})
		return 0, true, nil
	}
	return id, true, nil
}

// embedPages embeds the items load returns, page by page in id order, until
// a page comes back empty. checkpoint, when set, runs after each stored
// vector.
func embedPages(ctx context.Context, db *sqlitevec.DB, e embed.Embedder, modelName string, res *EmbedResult, after int,
	load func(after int) ([]model.Item, error), checkpoint func(id int) error) error {
	for {
		items, err := load(after)
		if err != nil {
			metrics.EmbedErrors.Inc()
			return fmt.Errorf("load catalog page: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		for _, it := range items {
			if err := embedOne(ctx, db, e, modelName, it); err != nil {
				metrics.EmbedErrors.Inc()
				logging.Error("embed_item_error", map[string]any{"media_id": it.ID, "error": err.Error()})
				return err
			}
			after = it.ID
			res.LastID = it.ID
			res.Embedded++
			if checkpoint != nil {
				if err := checkpoint(it.ID); err != nil {
					metrics.EmbedErrors.Inc()
					return fmt.Errorf("save cursor: %w", err)
				}
			}
		}
	}
}

func embedOne(ctx context.Context, db *sqlitevec.DB, e embed.Embedder, modelName string, it model.Item) error {
	vec, err := e.Embed(ctx, model.EmbeddingText(it))
	if err != nil {
		return fmt.Errorf("embed item %d: %w", it.ID, err)
	}
	if err := db.PutEmbedding(ctx, it.ID, modelName, vec); err != nil {
		return fmt.Errorf("store embedding %d: %w", it.ID, err)
	}
	return nil
}
