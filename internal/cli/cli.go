// Package cli implements the command-line interface for ythist.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ArseniyKD/yt-history-analysis/internal/config"
	"github.com/ArseniyKD/yt-history-analysis/internal/logctx"
	"github.com/ArseniyKD/yt-history-analysis/internal/server"
	"github.com/ArseniyKD/yt-history-analysis/pkg/analytics"
	"github.com/ArseniyKD/yt-history-analysis/pkg/export"
	"github.com/ArseniyKD/yt-history-analysis/pkg/ingest"
	"github.com/ArseniyKD/yt-history-analysis/pkg/logging"
	"github.com/ArseniyKD/yt-history-analysis/pkg/store"
	"github.com/goccy/go-json"
)

const usage = `usage: ythist <command> [options]
commands: ingest, reset, status, overview, channels, years, months, month, export, serve`

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	return run(context.Background(), args, os.Stdout)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "ingest":
		return runIngest(ctx, args[1:], stdout)
	case "reset":
		return runReset(ctx, args[1:])
	case "status":
		return runStatus(ctx, args[1:], stdout)
	case "overview":
		return runOverview(ctx, args[1:], stdout)
	case "channels":
		return runChannels(ctx, args[1:], stdout)
	case "years":
		return runYears(ctx, args[1:], stdout)
	case "months":
		return runMonths(ctx, args[1:], stdout)
	case "month":
		return runMonth(ctx, args[1:], stdout)
	case "export":
		return runExport(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath string
	dbPath     string
	debug      bool
	human      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&c.dbPath, "db", "", "path to the SQLite database (overrides config)")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&c.human, "human", false, "human-readable console logs")
}

// load reads the layered config, applies flag overrides and initializes
// logging.
func (c *commonFlags) load() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.dbPath != "" {
		cfg.Database.Path = c.dbPath
	}
	if c.debug {
		cfg.Log.Debug = true
	}
	if c.human {
		cfg.Log.Human = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Init(cfg.Log.Debug, cfg.Log.Human)
	return cfg, nil
}

// openStore opens the configured database with its schema in place.
func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := store.Open(cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func clampLimit(limit, maxLimit int) int {
	return max(1, min(limit, maxLimit))
}

func runIngest(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	reset := fs.Bool("reset", false, "drop all tables before loading")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: ythist ingest [options] <watch-history.json | s3://bucket/key>")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}

	ctx = logctx.WithPhase(ctx, "ingest")
	stats, err := ingest.File(ctx, cfg.StoreConfig(), fs.Arg(0), ingest.FileOptions{
		Reset: *reset,
		S3:    cfg.S3Options(),
	})
	if err != nil {
		return err
	}
	return writeJSON(stdout, stats)
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.StoreConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Reset(ctx, db); err != nil {
		return err
	}
	log := logging.WithPhase("schema")
	log.Info().Str("db", cfg.Database.Path).Msg("store reset")
	return nil
}

// storeStatus is the output of the status command.
type storeStatus struct {
	DB     string              `json:"db"`
	Tables []store.TableStatus `json:"tables"`
}

// runStatus reports the tables, row counts and indexes of the store without
// creating a missing schema.
func runStatus(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.StoreConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	tables, err := store.Inspect(ctx, db)
	if err != nil {
		return err
	}
	return writeJSON(stdout, storeStatus{DB: cfg.Database.Path, Tables: tables})
}

func runOverview(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("overview", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := analytics.GetOverview(ctx, db)
	if err != nil {
		return err
	}
	return writeJSON(stdout, ov)
}

func runChannels(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("channels", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	year := fs.Int("year", 0, "restrict the ranking to one calendar year")
	limit := fs.Int("limit", 0, "number of channels (default from config)")
	includeDeleted := fs.Bool("include-deleted", false, "rank the deleted/private videos channel too")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	n := cfg.Server.DefaultLimit
	if *limit != 0 {
		n = *limit
	}
	n = clampLimit(n, cfg.Server.MaxLimit)

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var channels []analytics.ChannelStats
	if *year != 0 {
		channels, err = analytics.TopChannelsForYear(ctx, db, *year, n, *includeDeleted)
	} else {
		channels, err = analytics.TopChannels(ctx, db, n, *includeDeleted)
	}
	if err != nil {
		return err
	}
	return writeJSON(stdout, channels)
}

func runYears(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("years", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	years, err := analytics.PerYearSummary(ctx, db)
	if err != nil {
		return err
	}
	return writeJSON(stdout, years)
}

func runMonths(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("months", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	months, err := analytics.MonthlyViewCounts(ctx, db)
	if err != nil {
		return err
	}
	return writeJSON(stdout, months)
}

func runMonth(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("month", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	year := fs.Int("year", 0, "calendar year")
	month := fs.Int("month", 0, "month number, 1-12")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *year == 0 {
		return errors.New("--year is required")
	}
	if *month < 1 || *month > 12 {
		return errors.New("--month must be between 1 and 12")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	views, err := analytics.VideosForMonth(ctx, db, *year, *month)
	if err != nil {
		return err
	}
	return writeJSON(stdout, views)
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	out := fs.String("out", "", "output Parquet file path or s3://bucket/key")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("--out is required")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = export.ToFile(ctx, db, *out, cfg.S3Options())
	return err
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	addr := fs.String("addr", "", "listen address host:port (overrides config)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *addr != "" {
		if err := cfg.SetAddr(*addr); err != nil {
			return err
		}
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(db, cfg.Server).Run(ctx, cfg.Addr())
}
