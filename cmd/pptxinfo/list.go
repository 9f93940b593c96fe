package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gnemet/pptxinfo/internal/database"
)

// catalog reads back stored decks. *database.Repository implements it.
type catalog interface {
	GetAll(ctx context.Context) ([]database.Deck, error)
	GetSlides(ctx context.Context, deckID int) ([]database.DeckSlide, error)
	GetTotalTokens(ctx context.Context) (int, error)
}

// listDecks prints every stored deck with its slide titles, newest first,
// followed by the AI token total.
func listDecks(ctx context.Context, c catalog, w io.Writer) error {
	decks, err := c.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("listing decks: %w", err)
	}

	fmt.Fprintf(w, "\n=== STORED DECKS (%d) ===\n", len(decks))
	for _, d := range decks {
		fmt.Fprintf(w, "\n[%d] %s: %d slides, added %s\n", d.ID, d.Filename, d.TotalSlides, d.CreatedAt.Format(time.DateTime))
		fmt.Fprintf(w, "    %s\n", d.FilePath)
		if d.AISummary != "" {
			fmt.Fprintf(w, "    Summary: %s\n", d.AISummary)
		}
		slides, err := c.GetSlides(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("listing slides of deck %d: %w", d.ID, err)
		}
		for _, s := range slides {
			fmt.Fprintf(w, "    Slide %d: %s\n", s.SlideNum, s.Title)
		}
	}
	return printTokenTotal(ctx, c, w)
}

func printTokenTotal(ctx context.Context, c catalog, w io.Writer) error {
	total, err := c.GetTotalTokens(ctx)
	if err != nil {
		return fmt.Errorf("reading token usage: %w", err)
	}
	fmt.Fprintf(w, "\nAI tokens used: %d\n", total)
	return nil
}
