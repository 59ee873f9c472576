package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"animerec/internal/cmdlog"
	"animerec/internal/config"
	"animerec/internal/embed"
	"animerec/internal/ingest"
	"animerec/internal/jobs"
	"animerec/internal/logging"
	"animerec/internal/metrics"
	"animerec/internal/model"
	"animerec/internal/recommend"
	"animerec/internal/rerank"
	"animerec/internal/search"
	"animerec/internal/store/sqlitevec"
	"animerec/internal/theme"
)

const defaultConfigPath = "./animerec.yaml"

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "import":
		cmdImport()
	case "embed":
		cmdEmbed()
	case "query":
		cmdQuery()
	case "recommend":
		cmdRecommend()
	case "search":
		cmdSearch()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: animerec <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./animerec.yaml")
	fmt.Println("  import      Load AniList catalog and list exports")
	fmt.Println("  embed       Embed catalog items not yet embedded")
	fmt.Println("  query       Recommend titles for a free-text request")
	fmt.Println("  recommend   Recommend titles from your ratings")
	fmt.Println("  search      Find titles by name, typo tolerant")
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func mustLoadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fail(err)
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Pretty)
	metrics.StartServer(cfg.Metrics.Addr)
	return cfg
}

func mustOpenDB(cfg config.Config) *sqlitevec.DB {
	db, err := sqlitevec.Open(cfg.Storage.DBPath)
	if err != nil {
		fail(err)
	}
	return db
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newEmbedder(cfg config.Config) *embed.Client {
	if cfg.Embedding.APIKey == "" {
		fmt.Fprintln(os.Stderr, "warning: missing ANIREC_EMBED_API_KEY; embedding calls may fail")
	}
	return embed.New(embed.Config{
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
		APIKey:  cfg.Embedding.APIKey,
		Timeout: cfg.Embedding.Timeout,
	})
}

func newReranker(cfg config.Config) rerank.Reranker {
	if !strings.EqualFold(cfg.Rerank.Provider, "gemini") {
		return nil
	}
	g := rerank.NewGemini(cfg.Rerank.APIKey, cfg.Rerank.Model, cfg.Rerank.Timeout)
	return rerank.WithBreaker(g, cfg.Rerank.BreakerFailures, cfg.Rerank.BreakerCooldown)
}

func loadEngine(ctx context.Context, cfg config.Config, db *sqlitevec.DB) (*recommend.Engine, error) {
	items, err := db.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	vecs, err := db.LoadEmbeddings(ctx, cfg.Embedding.Model)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	corpus, err := recommend.NewCorpus(items, vecs)
	if err != nil {
		return nil, err
	}
	e := recommend.NewEngine(newEmbedder(cfg), newReranker(cfg), recommend.Options{
		TopN:          cfg.Pipeline.TopN,
		Oversample:    cfg.Pipeline.Oversample,
		EmbedTimeout:  cfg.Embedding.Timeout,
		RerankTimeout: cfg.Rerank.Timeout,
	})
	e.Reload(corpus)
	logging.Info("corpus_loaded", map[string]any{"items": len(items), "vectors": len(vecs), "model": cfg.Embedding.Model})
	return e, nil
}

func printRecs(recs []recommend.Recommendation, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	if len(recs) == 0 {
		fmt.Println("No recommendations.")
		return nil
	}
	for i, r := range recs {
		fmt.Printf("%2d. %s %6.2f  %s (id %d)\n", i+1, theme.Confidence(r.Confidence), r.Confidence, r.Title, r.ID)
	}
	return nil
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", defaultConfigPath, "path to write config")
	user := fs.String("user", "", "AniList user name")
	_ = fs.Parse(os.Args[2:])
	cfg := config.Default()
	cfg.User.Name = *user
	if err := config.Save(*path, cfg); err != nil {
		fail(err)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	catalogPath := fs.String("catalog", "", "JSON array of AniList media")
	listPath := fs.String("list", "", "AniList MediaListCollection response JSON")
	_ = fs.Parse(os.Args[2:])
	cfg := mustLoadConfig(*cfgPath)
	db := mustOpenDB(cfg)
	defer db.Close()
	ctx, cancel := signalContext()
	defer cancel()
	err := cmdlog.Run("import", func() error {
		if *catalogPath == "" && *listPath == "" {
			return fmt.Errorf("nothing to import: pass -catalog and/or -list")
		}
		if *catalogPath != "" {
			f, err := os.Open(*catalogPath)
			if err != nil {
				return err
			}
			defer f.Close()
			n, err := ingest.ImportCatalog(ctx, db, f)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d catalog items\n", n)
		}
		if *listPath != "" {
			if cfg.User.Name == "" {
				return fmt.Errorf("user.name must be set to import a list")
			}
			f, err := os.Open(*listPath)
			if err != nil {
				return err
			}
			defer f.Close()
			res, err := ingest.ImportList(ctx, db, cfg.User.Name, f)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d list entries (%d new media)\n", res.Entries, res.Media)
		}
		return nil
	})
	if err != nil {
		fail(err)
	}
}

func cmdEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	reset := fs.Bool("reset", false, "re-embed the whole catalog")
	_ = fs.Parse(os.Args[2:])
	cfg := mustLoadConfig(*cfgPath)
	db := mustOpenDB(cfg)
	defer db.Close()
	ctx, cancel := signalContext()
	defer cancel()
	err := cmdlog.Run("embed", func() error {
		res, err := jobs.EmbedCatalog(ctx, db, newEmbedder(cfg), cfg.Embedding.Model, cfg.Embedding.BatchSize, *reset)
		fmt.Printf("Embedded %d items (last id %d)\n", res.Embedded, res.LastID)
		return err
	})
	if err != nil {
		fail(err)
	}
}

func cmdQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	text := fs.String("q", "", "what you feel like watching")
	topN := fs.Int("n", 0, "number of results (default from config)")
	keyword := fs.String("keyword", "", "restrict to a genre or tag")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(os.Args[2:])
	if strings.TrimSpace(*text) == "" {
		fail(fmt.Errorf("-q is required"))
	}
	cfg := mustLoadConfig(*cfgPath)
	db := mustOpenDB(cfg)
	defer db.Close()
	ctx, cancel := signalContext()
	defer cancel()
	err := cmdlog.Run("query", func() error {
		engine, err := loadEngine(ctx, cfg, db)
		if err != nil {
			return err
		}
		req := recommend.QueryRequest{Text: *text, TopN: *topN, Keyword: *keyword}
		if cfg.User.Name != "" {
			if req.Planned, err = db.LoadPlannedIDs(ctx, cfg.User.Name); err != nil {
				return err
			}
			if req.Engaged, err = db.LoadEngagedIDs(ctx, cfg.User.Name); err != nil {
				return err
			}
		}
		recs, err := engine.Query(ctx, req)
		if err != nil {
			return err
		}
		return printRecs(recs, *asJSON)
	})
	if err != nil {
		fail(err)
	}
}

func cmdRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	genre := fs.String("genre", "", "boost a genre or tag")
	topN := fs.Int("n", 0, "number of results (default from config)")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(os.Args[2:])
	cfg := mustLoadConfig(*cfgPath)
	if cfg.User.Name == "" {
		fail(fmt.Errorf("user.name must be set in %s", *cfgPath))
	}
	db := mustOpenDB(cfg)
	defer db.Close()
	ctx, cancel := signalContext()
	defer cancel()
	err := cmdlog.Run("recommend", func() error {
		engine, err := loadEngine(ctx, cfg, db)
		if err != nil {
			return err
		}
		ratings, err := db.LoadRatings(ctx, cfg.User.Name, model.ScoreScale(cfg.User.ScoreScale))
		if err != nil {
			return err
		}
		planned, err := db.LoadPlannedIDs(ctx, cfg.User.Name)
		if err != nil {
			return err
		}
		engaged, err := db.LoadEngagedIDs(ctx, cfg.User.Name)
		if err != nil {
			return err
		}
		recs, err := engine.Recommend(ctx, recommend.RecommendRequest{
			Profile:      model.BuildProfile(ratings),
			DesiredGenre: *genre,
			TopN:         *topN,
			Planned:      planned,
			Engaged:      engaged,
		})
		if err != nil {
			return err
		}
		return printRecs(recs, *asJSON)
	})
	if err != nil {
		fail(err)
	}
}

func cmdSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	q := fs.String("q", "", "title to look for")
	limit := fs.Int("n", 10, "max results")
	_ = fs.Parse(os.Args[2:])
	cfg := mustLoadConfig(*cfgPath)
	db := mustOpenDB(cfg)
	defer db.Close()
	ctx, cancel := signalContext()
	defer cancel()
	err := cmdlog.Run("search", func() error {
		items, err := db.LoadCatalog(ctx)
		if err != nil {
			return err
		}
		idx, err := search.Build(items)
		if err != nil {
			return err
		}
		defer idx.Close()
		hits, err := idx.Search(ctx, *q, *limit)
		if err != nil {
			return err
		}
		for _, h := range hits {
			fmt.Printf("%6d  %-50s %.3f\n", h.ID, h.Title, h.Score)
		}
		return nil
	})
	if err != nil {
		fail(err)
	}
}
