// Command catalogctl runs the catalog pipeline from the command line.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iliyamo/catalog-insights/internal/chart"
	"github.com/iliyamo/catalog-insights/internal/cleaning"
	"github.com/iliyamo/catalog-insights/internal/config"
	"github.com/iliyamo/catalog-insights/internal/database"
	"github.com/iliyamo/catalog-insights/internal/importer"
	"github.com/iliyamo/catalog-insights/internal/insights"
	"github.com/iliyamo/catalog-insights/internal/middleware"
	"github.com/iliyamo/catalog-insights/internal/model"
	"github.com/iliyamo/catalog-insights/internal/query"
	"github.com/iliyamo/catalog-insights/internal/queue"
	"github.com/iliyamo/catalog-insights/internal/repository"
	"github.com/iliyamo/catalog-insights/internal/utils"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "catalogctl: load .env: %v\n", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}
	switch args[0] {
	case "clean":
		return cleanCmd(ctx, args[1:], stdout, stderr)
	case "import":
		return importCmd(ctx, args[1:], stdout, stderr)
	case "report":
		return reportCmd(ctx, args[1:], stdout, stderr)
	case "hash-password":
		return hashPasswordCmd(args[1:], os.Stdin, stdout, stderr)
	case "events":
		return eventsCmd(ctx, args[1:], stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: catalogctl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  clean          Clean the raw CSV and write the cleaned cache")
	fmt.Fprintln(w, "  import         Clean (or load the cache) and import into the database")
	fmt.Fprintln(w, "  report         Write the charts and a JSON summary to a directory")
	fmt.Fprintln(w, "  hash-password  Print a bcrypt hash for ADMIN_PASSWORD_HASH")
	fmt.Fprintln(w, "  events         Consume import events and append them to a rotating log")
}

// pipelineFlags registers the flags shared by every pipeline command.
type pipelineFlags struct {
	raw     string
	cache   string
	rebuild bool
}

func (p *pipelineFlags) register(fs *flag.FlagSet, cfg config.PipelineConfig) {
	fs.StringVar(&p.raw, "raw", cfg.RawPath, "raw catalog CSV")
	fs.StringVar(&p.cache, "cache", cfg.CachePath, "cleaned CSV cache")
	fs.BoolVar(&p.rebuild, "rebuild", false, "ignore the cleaned cache and recompute it")
}

func (p *pipelineFlags) run(ctx context.Context, cfg config.PipelineConfig, logger *log.Logger) (cleaning.Result, error) {
	pl := cleaning.NewPipeline(p.raw, p.cache, cfg.Options(), logger)
	if p.rebuild {
		return pl.Rebuild(ctx)
	}
	return pl.Run(ctx)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func cleanCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	pcfg, err := config.LoadPipelineConfig()
	if err != nil {
		fmt.Fprintf(stderr, "pipeline config: %v\n", err)
		return 1
	}
	fs := newFlagSet("clean", stderr)
	var pf pipelineFlags
	pf.register(fs, pcfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	res, err := pf.run(ctx, pcfg, log.New(stderr, "", log.LstdFlags))
	if err != nil {
		fmt.Fprintf(stderr, "clean: %v\n", err)
		return 1
	}
	return writeJSON(stdout, stderr, map[string]any{
		"from_cache": res.FromCache,
		"rows":       res.Table.Len(),
		"stats":      res.Stats,
	})
}

func importCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	pcfg, err := config.LoadPipelineConfig()
	if err != nil {
		fmt.Fprintf(stderr, "pipeline config: %v\n", err)
		return 1
	}
	fs := newFlagSet("import", stderr)
	var pf pipelineFlags
	pf.register(fs, pcfg)
	driver := fs.String("driver", cfg.DBDriver, "database driver (sqlite or mysql)")
	dsn := fs.String("dsn", cfg.DBDSN, "database DSN")
	amqpURL := fs.String("amqp", cfg.AMQPURL, "RabbitMQ URL for import events (empty disables)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := log.New(stderr, "", log.LstdFlags)
	db, err := database.Open(*driver, *dsn)
	if err != nil {
		fmt.Fprintf(stderr, "open database: %v\n", err)
		return 1
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, *driver); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	res, err := pf.run(ctx, pcfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "clean: %v\n", err)
		return 1
	}

	im := importer.New(repository.NewCatalogRepo(db), logger)
	im.Source = pf.raw
	// a running server must stop serving pages rendered before this import
	if rdb := config.NewRedisClient(); rdb != nil {
		defer rdb.Close()
		im.Cache = middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	}
	if *amqpURL != "" {
		im.Publisher = queue.NewPublisher(*amqpURL)
	}
	out, err := im.Import(ctx, res.Table)
	if err != nil {
		fmt.Fprintf(stderr, "import: %v\n", err)
		return 1
	}
	return writeJSON(stdout, stderr, out)
}

func reportCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	pcfg, err := config.LoadPipelineConfig()
	if err != nil {
		fmt.Fprintf(stderr, "pipeline config: %v\n", err)
		return 1
	}
	fs := newFlagSet("report", stderr)
	var pf pipelineFlags
	pf.register(fs, pcfg)
	outDir := fs.String("out", "report", "output directory")
	genre := fs.String("genre", "", "genre substring filter")
	rating := fs.String("rating", "", "exact rating filter")
	year := fs.String("year", "", "exact year_added filter")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	filter, err := query.ParseFilter(*genre, *rating, *year)
	if err != nil {
		fmt.Fprintf(stderr, "report: %v\n", err)
		return 2
	}
	res, err := pf.run(ctx, pcfg, log.New(stderr, "", log.LstdFlags))
	if err != nil {
		fmt.Fprintf(stderr, "clean: %v\n", err)
		return 1
	}

	entries := make([]model.CatalogEntry, res.Table.Len())
	for r := range entries {
		entries[r] = importer.EntryFromRow(res.Table, r)
	}
	filtered := query.Apply(entries, filter)
	summary := insights.Summarize(filtered)

	if err := writeReport(*outDir, summary, filtered); err != nil {
		fmt.Fprintf(stderr, "report: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote report for %d titles to %s\n", summary.Total, *outDir)
	return 0
}

// releaseSummary is summary.json: the page aggregates plus the release-year
// views that only the report draws.
type releaseSummary struct {
	insights.Summary
	Releases      []insights.YearCount   `json:"releases"`
	RatingRelease []insights.RatingPoint `json:"rating_release"`
}

func writeReport(dir string, s insights.Summary, entries []model.CatalogEntry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	out := releaseSummary{
		Summary:       s,
		Releases:      insights.ReleaseYearTrend(entries),
		RatingRelease: insights.RatingByRelease(entries),
	}
	charts := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{"genres.png", func() ([]byte, error) { return chart.GenreBar(s.Genres) }},
		{"ratings.png", func() ([]byte, error) { return chart.RatingBar(s.Ratings) }},
		{"years.png", func() ([]byte, error) { return chart.YearLine(s.Years) }},
		{"releases.png", func() ([]byte, error) { return chart.ReleaseYearLine(out.Releases) }},
		{"rating_release.png", func() ([]byte, error) { return chart.RatingScatter(out.RatingRelease) }},
	}
	for _, c := range charts {
		b, err := c.render()
		if err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, c.name), b, 0o644); err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "summary.json"), append(b, '\n'), 0o644)
}

func hashPasswordCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := newFlagSet("hash-password", stderr)
	cost := fs.Int("cost", config.BcryptCost(), "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var password string
	if fs.NArg() > 0 {
		password = fs.Arg(0)
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(stderr, "read password: %v\n", err)
			return 1
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		fmt.Fprintln(stderr, "hash-password: empty password")
		return 2
	}

	hash, err := utils.HashPassword(password, *cost)
	if err != nil {
		fmt.Fprintf(stderr, "hash-password: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, hash)
	return 0
}

func eventsCmd(ctx context.Context, args []string, stderr io.Writer) int {
	cfg := config.Load()
	fs := newFlagSet("events", stderr)
	amqpURL := fs.String("amqp", cfg.AMQPURL, "RabbitMQ URL")
	logPath := fs.String("log", cfg.ImportLogPath, "event log file")
	maxSize := fs.Int("max-size", 10, "megabytes before the log is rotated")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *amqpURL == "" {
		*amqpURL = queue.DefaultURL
	}

	w := &lumberjack.Logger{
		Filename:   *logPath,
		MaxSize:    *maxSize,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
	defer w.Close()

	log.New(stderr, "", log.LstdFlags).Printf("consuming %s into %s", queue.ImportedQueueName, *logPath)
	if err := queue.StartImportConsumer(ctx, *amqpURL, w); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "events: %v\n", err)
		return 1
	}
	return 0
}

func writeJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}
