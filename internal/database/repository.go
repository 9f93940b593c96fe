package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gnemet/pptxinfo/internal/extractor"
)

var ErrNotFound = errors.New("deck not found")

type Deck struct {
	ID          int             `json:"id"`
	Filename    string          `json:"filename"`
	FilePath    string          `json:"file_path"`
	Checksum    string          `json:"checksum"`
	TotalSlides int             `json:"total_slides"`
	Width       int64           `json:"width"`
	Height      int64           `json:"height"`
	Title       string          `json:"title"`
	Report      json.RawMessage `json:"report"`
	AISummary   string          `json:"ai_summary"`
	CreatedAt   time.Time       `json:"created_at"`
}

type DeckSlide struct {
	ID         int    `json:"id"`
	DeckID     int    `json:"deck_id"`
	SlideNum   int    `json:"slide_number"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Notes      string `json:"notes"`
	LayoutName string `json:"layout_name"`
}

type AIUsage struct {
	ID               int       `json:"id"`
	DeckID           int       `json:"deck_id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

// Repository stores extraction reports in PostgreSQL.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const deckColumns = "id, filename, file_path, checksum, total_slides, width, height, title, report, ai_summary, created_at"

func scanDeck(row interface{ Scan(...any) error }) (*Deck, error) {
	var d Deck
	err := row.Scan(&d.ID, &d.Filename, &d.FilePath, &d.Checksum, &d.TotalSlides, &d.Width, &d.Height, &d.Title, &d.Report, &d.AISummary, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindByChecksum returns ErrNotFound when no deck has the checksum.
func (r *Repository) FindByChecksum(ctx context.Context, checksum string) (*Deck, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+deckColumns+" FROM decks WHERE checksum = $1", checksum)
	d, err := scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// SaveReport stores the report and one row per slide in a single
// transaction and returns the new deck ID.
func (r *Repository) SaveReport(ctx context.Context, path, checksum string, report extractor.Report) (id int, err error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("encoding report: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	title := ""
	if len(report.Titles) > 0 {
		title = report.Titles[0].Title
	}

	query := `
		INSERT INTO decks (filename, file_path, checksum, total_slides, width, height, title, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	info := report.BasicInfo
	err = tx.QueryRowContext(ctx, query, filepath.Base(path), path, checksum, info.TotalSlides,
		info.SlideDimensions.Width, info.SlideDimensions.Height, title, string(raw)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting deck: %w", err)
	}

	for _, s := range deckSlides(report) {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO deck_slides (deck_id, slide_number, title, content, notes, layout_name)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id, s.SlideNum, s.Title, s.Content, s.Notes, s.LayoutName)
		if err != nil {
			return 0, fmt.Errorf("inserting slide %d: %w", s.SlideNum, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// deckSlides flattens the per-slide sections of a report.
func deckSlides(report extractor.Report) []DeckSlide {
	slides := make([]DeckSlide, 0, report.BasicInfo.TotalSlides)
	for i, t := range report.Titles {
		s := DeckSlide{SlideNum: t.SlideNumber, Title: t.Title}
		if i < len(report.TextContent.Slides) {
			s.Content = report.TextContent.Slides[i].CombinedText
		}
		if i < len(report.LayoutInfo) {
			s.LayoutName = report.LayoutInfo[i].LayoutName
		}
		slides = append(slides, s)
	}
	for _, n := range report.Notes {
		for i := range slides {
			if slides[i].SlideNum == n.SlideNumber {
				slides[i].Notes = n.Notes
			}
		}
	}
	return slides
}

func (r *Repository) UpdateSummary(ctx context.Context, id int, summary string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE decks SET ai_summary = $1 WHERE id = $2", summary, id)
	return err
}

func (r *Repository) UpdatePath(ctx context.Context, id int, path string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE decks SET file_path = $1 WHERE id = $2", path, id)
	return err
}

func (r *Repository) GetAll(ctx context.Context) ([]Deck, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+deckColumns+" FROM decks ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decks []Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		decks = append(decks, *d)
	}
	return decks, rows.Err()
}

func (r *Repository) GetSlides(ctx context.Context, deckID int) ([]DeckSlide, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, deck_id, slide_number, title, content, notes, layout_name FROM deck_slides WHERE deck_id = $1 ORDER BY slide_number", deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slides []DeckSlide
	for rows.Next() {
		var s DeckSlide
		if err := rows.Scan(&s.ID, &s.DeckID, &s.SlideNum, &s.Title, &s.Content, &s.Notes, &s.LayoutName); err != nil {
			return nil, err
		}
		slides = append(slides, s)
	}
	return slides, rows.Err()
}

// Clear removes every stored deck, its slides and usage records.
func (r *Repository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "TRUNCATE ai_usage, deck_slides, decks RESTART IDENTITY")
	return err
}

func (r *Repository) LogAIUsage(ctx context.Context, u *AIUsage) error {
	query := `
		INSERT INTO ai_usage (deck_id, provider, model, prompt_tokens, completion_tokens, total_tokens)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var deckID any
	if u.DeckID != 0 {
		deckID = u.DeckID
	}
	_, err := r.db.ExecContext(ctx, query, deckID, u.Provider, u.Model, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	return err
}

func (r *Repository) GetTotalTokens(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(total_tokens), 0) FROM ai_usage").Scan(&total)
	return total, err
}
