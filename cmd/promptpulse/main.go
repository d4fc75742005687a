package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"promptpulse/internal/catalog"
	"promptpulse/internal/cmdlog"
	"promptpulse/internal/config"
	"promptpulse/internal/jobs"
	"promptpulse/internal/metrics"
	"promptpulse/internal/model"
	"promptpulse/internal/recommend"
	"promptpulse/internal/registry"
	"promptpulse/internal/server"
	"promptpulse/internal/suggest"
	"promptpulse/internal/theme"
	"promptpulse/internal/trending"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "seed":
		cmdSeed()
	case "serve":
		cmdServe()
	case "refresh":
		cmdRefresh()
	case "trending":
		cmdTrending()
	case "related":
		cmdRelated()
	case "foryou":
		cmdForYou()
	case "suggest":
		cmdSuggest()
	case "stats":
		cmdStats()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: promptpulse <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./promptpulse.yaml")
	fmt.Println("  seed        Load the bundled prompt catalog into the database")
	fmt.Println("  serve       Run the HTTP API and background registry refresh")
	fmt.Println("  refresh     Sync prompts from the remote registry once")
	fmt.Println("  trending    Show trending prompts with score breakdowns")
	fmt.Println("  related     Show prompts related to a given prompt")
	fmt.Println("  foryou      Personalized picks from viewed/saved history")
	fmt.Println("  suggest     Suggest prompts for a task description")
	fmt.Println("  stats       Catalog counts, categories and top tags")
}

func fatal(err error) {
	fmt.Println("error:", err)
	os.Exit(1)
}

func loadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			cfg.ResolveEnv()
			return cfg
		}
		fatal(err)
	}
	return cfg
}

func openDB(cfg config.Config) *catalog.DB {
	db, err := catalog.Open(cfg.Storage.DBPath)
	if err != nil {
		fatal(err)
	}
	return db
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./promptpulse.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		fatal(err)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	cfgPath := fs.String("config", "./promptpulse.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	db := openDB(cfg)
	defer db.Close()
	err := cmdlog.Run("seed", func() error {
		n, err := db.SeedIfEmpty(context.Background(), time.Now().UTC())
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println("Catalog already has prompts; nothing to seed")
		} else {
			fmt.Printf("Seeded %d prompts\n", n)
		}
		return nil
	})
	if err != nil {
		fatal(err)
	}
}

func cmdServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "./promptpulse.yaml", "config path")
	addr := fs.String("addr", "", "listen address (overrides config)")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	db := openDB(cfg)
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := db.SeedIfEmpty(ctx, time.Now().UTC()); err != nil {
		fatal(err)
	}

	metrics.StartServer(cfg.Server.MetricsAddr)

	if cfg.Registry.URL != "" {
		client := registry.NewHTTPClient(cfg.Registry.URL, cfg.Registry.Token)
		interval := time.Duration(cfg.Registry.RefreshMinutes) * time.Minute
		go func() {
			if err := jobs.RunRefreshLoop(ctx, db, client, interval); err != nil && ctx.Err() == nil {
				fmt.Println("refresh loop stopped:", err)
			}
		}()
	}

	theme.PrintBanner()
	fmt.Println("Serving on", cfg.Server.Addr)
	srv := server.NewServer(db, cfg)
	if err := srv.Run(cfg.Server.Addr); err != nil {
		fatal(err)
	}
}

func cmdRefresh() {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	cfgPath := fs.String("config", "./promptpulse.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	if cfg.Registry.URL == "" {
		fatal(fmt.Errorf("no registry url configured; set registry.url or REGISTRY_URL"))
	}
	db := openDB(cfg)
	defer db.Close()
	client := registry.NewHTTPClient(cfg.Registry.URL, cfg.Registry.Token)
	err := cmdlog.Run("refresh", func() error {
		return jobs.RunRefreshOnce(context.Background(), db, client)
	})
	if err != nil {
		fatal(err)
	}
	n, _ := db.CountPrompts(context.Background())
	fmt.Printf("Catalog now holds %d prompts\n", n)
}

func cmdTrending() {
	fs := flag.NewFlagSet("trending", flag.ExitOnError)
	cfgPath := fs.String("config", "./promptpulse.yaml", "config path")
	limit := fs.Int("limit", 10, "number of prompts to show")
	category := fs.String("category", "", "restrict to one category")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	db := openDB(cfg)
	defer db.Close()
	err := cmdlog.Run("trending", func() error {
		pool, err := db.ListPrompts(context.Background())
		if err != nil {
			return err
		}
		start := time.Now()
		scored := trending.TrendingWithScores(pool, trending.Options{Limit: *limit, Category: *category})
		metrics.ObserveScoring("trending", start)
		for i, sp := range scored {
			fmt.Printf("%2d. %-28s %.3f  (views %.2f copies %.2f saves %.2f rating %.2f fresh %.2f)\n",
				i+1, sp.Prompt.Title, sp.Score.Total,
				sp.Score.Views, sp.Score.Copies, sp.Score.Saves, sp.Score.Rating, sp.Score.Freshness)
		}
		return nil
	})
	if err != nil {
		fatal(err)
	}
}

func cmdRelated() {
	fs := flag.NewFlagSet("related", flag.ExitOnError)
	cfgPath := fs.String("config", "./promptpulse.yaml", "config path")
	id := fs.String("id", "", "source prompt id")
	limit := fs.Int("limit", 10, "number of prompts to show")
	_ = fs.Parse(os.Args[2:])
	if *id == "" {
		fatal(fmt.Errorf("missing -id"))
	}
	cfg := loadConfig(*cfgPath)
	db := openDB(cfg)
	defer db.Close()
	err := cmdlog.Run("related", func() error {
		ctx := context.Background()
		source, err := db.GetPrompt(ctx, *id)
		if err != nil {
			return fmt.Errorf("prompt %q: %w", *id, err)
		}
		pool, err := db.ListPrompts(ctx)
		if err != nil {
			return err
		}
		start := time.Now()
		recs := recommend.Related(source, pool, recommend.Options{Limit: *limit})
		metrics.ObserveScoring("related", start)
		printRecommendations(recs)
		return nil
	})
	if err != nil {
		fatal(err)
	}
}

func cmdForYou() {
	fs := flag.NewFlagSet("foryou", flag.ExitOnError)
	cfgPath := fs.String("config", "./promptpulse.yaml", "config path")
	viewed := fs.String("viewed", "", "comma-separated viewed prompt ids")
	saved := fs.String("saved", "", "comma-separated saved prompt ids")
	limit := fs.Int("limit", 10, "number of prompts to show")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	db := openDB(cfg)
	defer db.Close()
	err := cmdlog.Run("foryou", func() error {
		ctx := context.Background()
		pool, err := db.ListPrompts(ctx)
		if err != nil {
			return err
		}
		history := recommend.History{
			Viewed: lookup(pool, splitIDs(*viewed)),
			Saved:  lookup(pool, splitIDs(*saved)),
		}
		start := time.Now()
		recs := recommend.ForYou(history, pool, recommend.Options{Limit: *limit})
		metrics.ObserveScoring("foryou", start)
		printRecommendations(recs)
		return nil
	})
	if err != nil {
		fatal(err)
	}
}

func cmdSuggest() {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	cfgPath := fs.String("config", "./promptpulse.yaml", "config path")
	task := fs.String("task", "", "task description")
	limit := fs.Int("limit", 5, "number of suggestions")
	_ = fs.Parse(os.Args[2:])
	if strings.TrimSpace(*task) == "" {
		fatal(fmt.Errorf("missing -task"))
	}
	cfg := loadConfig(*cfgPath)
	db := openDB(cfg)
	defer db.Close()
	err := cmdlog.Run("suggest", func() error {
		pool, err := db.ListPrompts(context.Background())
		if err != nil {
			return err
		}
		start := time.Now()
		sugs := suggest.ForTask(*task, pool, *limit)
		metrics.ObserveScoring("suggest", start)
		if len(sugs) == 0 {
			fmt.Println("No matching prompts for that task")
			return nil
		}
		for _, s := range sugs {
			fmt.Printf("%-28s %.2f  %s\n", s.Prompt.Title, s.Relevance, s.Reason)
		}
		return nil
	})
	if err != nil {
		fatal(err)
	}
}

func cmdStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fs.String("config", "./promptpulse.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	db := openDB(cfg)
	defer db.Close()
	err := cmdlog.Run("stats", func() error {
		ctx := context.Background()
		n, err := db.CountPrompts(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Prompts: %d\n", n)
		cats, err := db.Categories(ctx)
		if err != nil {
			return err
		}
		fmt.Println("Categories:")
		for _, c := range cats {
			fmt.Printf("  %-16s %d\n", c.Name, c.Count)
		}
		tags, err := db.Tags(ctx)
		if err != nil {
			return err
		}
		fmt.Println("Top tags:")
		for i, tg := range tags {
			if i >= 10 {
				break
			}
			fmt.Printf("  %-16s %d\n", tg.Name, tg.Count)
		}
		return nil
	})
	if err != nil {
		fatal(err)
	}
}

func printRecommendations(recs []recommend.Recommendation) {
	if len(recs) == 0 {
		fmt.Println("No recommendations")
		return
	}
	for i, r := range recs {
		fmt.Printf("%2d. %-28s %.3f\n", i+1, r.Prompt.Title, r.Score)
		for _, reason := range r.Reasons {
			fmt.Printf("      - %s\n", reason)
		}
	}
}

func lookup(pool []model.Prompt, ids []string) []model.Prompt {
	byID := make(map[string]model.Prompt, len(pool))
	for _, p := range pool {
		byID[p.ID] = p
	}
	var out []model.Prompt
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
