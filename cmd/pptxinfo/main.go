package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/gnemet/pptxinfo/internal/ai"
	"github.com/gnemet/pptxinfo/internal/config"
	"github.com/gnemet/pptxinfo/internal/database"
	"github.com/gnemet/pptxinfo/internal/extractor"
	"github.com/gnemet/pptxinfo/internal/observer"
	"github.com/gnemet/pptxinfo/internal/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	output     string
	textOnly   bool
	titlesOnly bool
	html       string
	watch      bool
	reprocess  bool
	list       bool
	configPath string
	verbose    bool
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := pflag.NewFlagSet("pptxinfo", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Extract information from PowerPoint files")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Usage: pptxinfo [flags] <file.pptx>")
		fmt.Fprintln(stderr, "       pptxinfo --watch [flags]")
		fmt.Fprintln(stderr, "       pptxinfo --list [flags]")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}
	fs.StringVarP(&opts.output, "output", "o", "", "output JSON file path")
	fs.BoolVar(&opts.textOnly, "text-only", false, "extract only text content")
	fs.BoolVar(&opts.titlesOnly, "titles-only", false, "extract only slide titles")
	fs.StringVar(&opts.html, "html", "", "also write an HTML summary to this path")
	fs.BoolVar(&opts.watch, "watch", false, "watch the stage directory and extract new decks")
	fs.BoolVar(&opts.reprocess, "reprocess", false, "with --watch, reprocess every known deck first")
	fs.BoolVar(&opts.list, "list", false, "list the decks stored in the database")
	fs.StringVarP(&opts.configPath, "config", "c", "", "config file (default config.yaml)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	setupLogging(stderr, zerolog.InfoLevel)

	cfg, err := config.LoadConfig(opts.configPath, fs)
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if opts.watch || opts.list {
		var err error
		if opts.watch {
			err = watch(cfg, opts.reprocess, stdout)
		} else {
			err = list(cfg, stdout)
		}
		if err != nil {
			fmt.Fprintf(stdout, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	return extract(fs.Arg(0), cfg, opts, stdout)
}

func setupLogging(w io.Writer, level zerolog.Level) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

func extract(path string, cfg *config.Config, opts options, stdout io.Writer) int {
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(stdout, "Error: File '%s' does not exist.\n", path)
		return 1
	}

	ex, err := extractor.New(path,
		extractor.WithLogger(log.Logger),
		extractor.WithOutputDir(cfg.Application.OutputDir))
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}

	switch {
	case opts.textOnly:
		fmt.Fprintln(stdout, "\n=== EXTRACTED TEXT ===")
		for _, s := range ex.AllText().Slides {
			fmt.Fprintf(stdout, "\nSlide %d:\n", s.SlideNumber)
			fmt.Fprintln(stdout, s.CombinedText)
		}

	case opts.titlesOnly:
		fmt.Fprintln(stdout, "\n=== SLIDE TITLES ===")
		for _, t := range ex.SlideTitles() {
			fmt.Fprintf(stdout, "Slide %d: %s\n", t.SlideNumber, t.Title)
		}

	default:
		outputFile, err := ex.Save(cfg.Application.Output)
		if err != nil {
			fmt.Fprintf(stdout, "Error: %v\n", err)
			return 1
		}
		if opts.html != "" {
			if err := report.WriteHTML(opts.html, ex.AllInformation()); err != nil {
				fmt.Fprintf(stdout, "Error: %v\n", err)
				return 1
			}
			log.Info().Str("path", opts.html).Msg("HTML summary saved")
		}

		info := ex.BasicInfo()
		fmt.Fprintln(stdout, "\n=== SUMMARY ===")
		fmt.Fprintf(stdout, "File: %s\n", info.FilePath)
		fmt.Fprintf(stdout, "Total slides: %d\n", info.TotalSlides)
		fmt.Fprintf(stdout, "Dimensions: %d x %d\n", info.SlideDimensions.Width, info.SlideDimensions.Height)
		fmt.Fprintf(stdout, "Full extraction saved to: %s\n", outputFile)
	}
	return 0
}

func watch(cfg *config.Config, reprocess bool, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store observer.Store
		repo  *database.Repository
	)
	if cfg.Database.Enabled() {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = database.NewRepository(db)
		store = repo
	}

	var summarizer observer.Summarizer
	if settings, ok := cfg.AI.Active(); ok {
		client, err := ai.NewClient(ctx, settings)
		if err != nil {
			return err
		}
		defer client.Close()
		summarizer = client
	} else {
		log.Debug().Str("provider", cfg.AI.ActiveProvider).Msg("AI summaries disabled")
	}

	results := make(chan observer.Result, 16)
	obs := observer.NewObserver(cfg, store, summarizer, results)

	go func() {
		for {
			select {
			case r := <-results:
				printResult(stdout, r)
			case <-ctx.Done():
				return
			}
		}
	}()

	if reprocess {
		if err := obs.ReprocessAll(ctx); err != nil {
			return err
		}
	}
	if err := obs.Start(ctx); err != nil {
		return err
	}

	if repo != nil && summarizer != nil {
		// ctx is already cancelled here.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := printTokenTotal(shutdownCtx, repo, stdout); err != nil {
			log.Warn().Err(err).Msg("failed to read token usage")
		}
	}
	return nil
}

func list(cfg *config.Config, stdout io.Writer) error {
	if !cfg.Database.Enabled() {
		return errors.New("database not configured (set DB_URL or PG_HOST)")
	}
	ctx := context.Background()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return listDecks(ctx, database.NewRepository(db), stdout)
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.NewConnection(cfg.Database.GetConnectStr())
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func printResult(w io.Writer, r observer.Result) {
	switch {
	case r.Err != nil:
		fmt.Fprintf(w, "Error: %s: %v\n", r.Path, r.Err)
	case r.Duplicate:
		fmt.Fprintf(w, "Skipped duplicate: %s\n", r.Path)
	default:
		fmt.Fprintf(w, "Processed: %s -> %s\n", r.Path, r.ReportPath)
		if r.Summary != "" {
			fmt.Fprintf(w, "Summary: %s\n", r.Summary)
		}
	}
}
