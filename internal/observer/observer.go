// Package observer watches a stage directory and extracts every deck that
// lands in it.
package observer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gnemet/pptxinfo/internal/ai"
	"github.com/gnemet/pptxinfo/internal/config"
	"github.com/gnemet/pptxinfo/internal/database"
	"github.com/gnemet/pptxinfo/internal/extractor"
)

// Store persists reports. *database.Repository implements it.
type Store interface {
	FindByChecksum(ctx context.Context, checksum string) (*database.Deck, error)
	SaveReport(ctx context.Context, path, checksum string, report extractor.Report) (int, error)
	UpdateSummary(ctx context.Context, id int, summary string) error
	UpdatePath(ctx context.Context, id int, path string) error
	LogAIUsage(ctx context.Context, u *database.AIUsage) error
	Clear(ctx context.Context) error
}

// Summarizer produces a deck summary. *ai.Client implements it.
type Summarizer interface {
	SummarizeDeck(ctx context.Context, text string) (*ai.Summary, error)
}

// Result describes one processed file.
type Result struct {
	Path       string
	ReportPath string
	Checksum   string
	DeckID     int
	Duplicate  bool
	Summary    string
	Err        error
}

type Observer struct {
	cfg        *config.Config
	store      Store
	summarizer Summarizer
	logger     zerolog.Logger

	seen         map[string]string // checksum -> report path
	// stageScanned is set by ReprocessAll so the next Start does not walk
	// the stage directory a second time.
	stageScanned bool
	mu           sync.Mutex

	// Results receives one entry per processed file. Sends never block.
	Results chan Result
}

// NewObserver wires an observer. store and summarizer may be nil.
func NewObserver(cfg *config.Config, store Store, summarizer Summarizer, results chan Result) *Observer {
	return &Observer{
		cfg:        cfg,
		store:      store,
		summarizer: summarizer,
		logger:     log.Logger.With().Str("component", "observer").Logger(),
		seen:       make(map[string]string),
		Results:    results,
	}
}

func (o *Observer) publish(r Result) {
	if o.Results == nil {
		return
	}
	select {
	case o.Results <- r:
	default:
		// fast non-blocking drop if buffer full
	}
}

func isDeck(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(strings.ToLower(base), ".pptx") && !strings.HasPrefix(base, "~$")
}

// Start scans the stage directory, then processes decks as they are
// created or written until ctx is cancelled.
func (o *Observer) Start(ctx context.Context) error {
	stageDir := o.cfg.Application.Storage.Stage
	if stageDir == "" {
		return errors.New("stage storage directory not configured")
	}
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return fmt.Errorf("failed to create stage directory: %w", err)
	}
	if dir := o.cfg.Application.Storage.Processed; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			o.logger.Warn().Err(err).Str("dir", dir).Msg("failed to create processed directory")
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(stageDir); err != nil {
		return err
	}
	o.logger.Info().Str("dir", stageDir).Msg("watching stage directory")

	o.initialScan(ctx, stageDir)

	debounce := o.cfg.Application.WatchDebounce
	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) || !isDeck(event.Name) {
				continue
			}
			o.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("detected change")

			// Wait for the transfer to settle; every new event restarts the wait.
			if t, ok := timers[event.Name]; ok {
				t.Reset(debounce)
				continue
			}
			name := event.Name
			timers[name] = time.AfterFunc(debounce, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})

		case name := <-ready:
			delete(timers, name)
			if _, err := os.Stat(name); err != nil {
				// moved or deleted while settling
				continue
			}
			o.processFile(ctx, name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.logger.Error().Err(err).Msg("watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}

// initialScan processes the decks already in the stage directory, unless
// ReprocessAll has just done so. It reports whether it scanned.
func (o *Observer) initialScan(ctx context.Context, dir string) bool {
	o.mu.Lock()
	skip := o.stageScanned
	o.stageScanned = false
	o.mu.Unlock()
	if skip {
		o.logger.Debug().Str("dir", dir).Msg("stage already scanned by reprocess")
		return false
	}
	o.scanDirectory(ctx, dir)
	return true
}

func (o *Observer) scanDirectory(ctx context.Context, dir string) {
	files, err := os.ReadDir(dir)
	if err != nil {
		o.logger.Error().Err(err).Str("dir", dir).Msg("failed to scan directory")
		return
	}

	for _, f := range files {
		if ctx.Err() != nil {
			return
		}
		if !f.IsDir() && isDeck(f.Name()) {
			o.processFile(ctx, filepath.Join(dir, f.Name()))
		}
	}
}

func (o *Observer) processFile(ctx context.Context, path string) Result {
	res := o.process(ctx, path)
	if res.Err != nil {
		o.logger.Error().Err(res.Err).Str("path", path).Msg("failed to process deck")
	}
	o.publish(res)
	return res
}

func (o *Observer) process(ctx context.Context, path string) Result {
	res := Result{Path: path}
	filename := filepath.Base(path)
	o.logger.Info().Str("file", filename).Msg("processing deck")

	checksum, err := fileChecksum(path)
	if err != nil {
		res.Err = fmt.Errorf("checksum: %w", err)
		return res
	}
	res.Checksum = checksum

	if dup, ok := o.duplicate(ctx, checksum); ok {
		o.logger.Info().Str("file", filename).Str("checksum", checksum).Int("id", dup.DeckID).
			Msg("already processed, skipping duplicate")
		res.Duplicate = true
		res.DeckID = dup.DeckID
		res.ReportPath = dup.ReportPath
		res.Path = o.finalizeFile(ctx, path, dup.DeckID)
		return res
	}

	ex, err := extractor.New(path,
		extractor.WithLogger(o.logger),
		extractor.WithOutputDir(o.cfg.Application.OutputDir))
	if err != nil {
		res.Err = err
		return res
	}
	res.ReportPath, err = ex.Save("")
	if err != nil {
		res.Err = err
		return res
	}

	o.mu.Lock()
	o.seen[checksum] = res.ReportPath
	o.mu.Unlock()

	var report extractor.Report
	if o.store != nil || o.summarizer != nil {
		report = ex.AllInformation()
	}

	if o.store != nil {
		res.DeckID, err = o.store.SaveReport(ctx, path, checksum, report)
		if err != nil {
			o.logger.Error().Err(err).Str("file", filename).Msg("failed to store report")
		}
	}

	if o.summarizer != nil {
		res.Summary = o.summarize(ctx, res.DeckID, report)
	}

	o.logger.Info().Str("file", filename).Str("report", res.ReportPath).Msg("successfully processed")

	res.Path = o.finalizeFile(ctx, path, res.DeckID)
	return res
}

type duplicateInfo struct {
	DeckID     int
	ReportPath string
}

func (o *Observer) duplicate(ctx context.Context, checksum string) (duplicateInfo, bool) {
	o.mu.Lock()
	reportPath, ok := o.seen[checksum]
	o.mu.Unlock()
	if ok {
		return duplicateInfo{ReportPath: reportPath}, true
	}

	if o.store == nil {
		return duplicateInfo{}, false
	}
	deck, err := o.store.FindByChecksum(ctx, checksum)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			o.logger.Error().Err(err).Msg("checking for existing deck")
		}
		return duplicateInfo{}, false
	}
	return duplicateInfo{DeckID: deck.ID}, true
}

func (o *Observer) summarize(ctx context.Context, deckID int, report extractor.Report) string {
	summary, err := o.summarizer.SummarizeDeck(ctx, DeckText(report))
	if err != nil {
		if !errors.Is(err, ai.ErrEmptyInput) {
			o.logger.Error().Err(err).Msg("failed to generate deck summary")
		}
		return ""
	}

	if o.store != nil && deckID != 0 {
		if err := o.store.UpdateSummary(ctx, deckID, summary.Text); err != nil {
			o.logger.Error().Err(err).Int("id", deckID).Msg("failed to save summary")
		}
		usage := &database.AIUsage{
			DeckID:           deckID,
			Provider:         o.cfg.AI.ActiveProvider,
			Model:            summary.Model,
			PromptTokens:     summary.PromptTokens,
			CompletionTokens: summary.CompletionTokens,
			TotalTokens:      summary.TotalTokens,
		}
		if err := o.store.LogAIUsage(ctx, usage); err != nil {
			o.logger.Error().Err(err).Msg("failed to log AI usage")
		}
	}
	return summary.Text
}

// DeckText renders the per-slide text of a report as a summary prompt body.
func DeckText(report extractor.Report) string {
	var b strings.Builder
	for _, s := range report.TextContent.Slides {
		if s.CombinedText == "" {
			continue
		}
		fmt.Fprintf(&b, "Slide %d: %s\n", s.SlideNumber, s.CombinedText)
	}
	return b.String()
}

// finalizeFile moves the deck to the processed directory, if configured,
// and returns its final path.
func (o *Observer) finalizeFile(ctx context.Context, path string, deckID int) string {
	dir := o.cfg.Application.Storage.Processed
	if dir == "" {
		return path
	}

	newPath := filepath.Join(dir, filepath.Base(path))
	if path == newPath {
		return path
	}

	if err := os.Rename(path, newPath); err != nil {
		o.logger.Error().Err(err).Str("file", path).Msg("failed to move to processed folder")
		return path
	}
	o.logger.Info().Str("from", path).Str("to", newPath).Msg("moved deck")

	if o.store != nil && deckID != 0 {
		if err := o.store.UpdatePath(ctx, deckID, newPath); err != nil {
			o.logger.Error().Err(err).Int("id", deckID).Msg("failed to update file path")
		}
	}
	return newPath
}

// ReprocessAll forgets every processed deck, moves processed files back to
// the stage directory and scans it again.
func (o *Observer) ReprocessAll(ctx context.Context) error {
	o.logger.Info().Msg("starting full reprocess")

	if o.store != nil {
		if err := o.store.Clear(ctx); err != nil {
			return fmt.Errorf("clearing store: %w", err)
		}
	}
	o.mu.Lock()
	o.seen = make(map[string]string)
	o.mu.Unlock()

	stageDir := o.cfg.Application.Storage.Stage
	processedDir := o.cfg.Application.Storage.Processed

	if processedDir != "" && stageDir != "" {
		files, err := os.ReadDir(processedDir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		for _, file := range files {
			if file.IsDir() || !isDeck(file.Name()) {
				continue
			}
			oldPath := filepath.Join(processedDir, file.Name())
			newPath := filepath.Join(stageDir, file.Name())
			if err := os.Rename(oldPath, newPath); err != nil {
				o.logger.Error().Err(err).Str("file", file.Name()).Msg("failed to move back to stage")
			}
		}
	}

	o.scanDirectory(ctx, stageDir)

	o.mu.Lock()
	o.stageScanned = true
	o.mu.Unlock()
	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
