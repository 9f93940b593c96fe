package database

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/gnemet/pptxinfo/internal/extractor"
)

func sampleReport() extractor.Report {
	return extractor.Report{
		BasicInfo: extractor.BasicInfo{
			FilePath:        "stage/deck.pptx",
			TotalSlides:     2,
			SlideDimensions: extractor.Dimensions{Width: 9144000, Height: 6858000},
		},
		Titles: []extractor.SlideTitle{{SlideNumber: 1, Title: "Intro"}, {SlideNumber: 2, Title: "Numbers"}},
		TextContent: extractor.TextContent{
			Slides: []extractor.SlideText{
				{SlideNumber: 1, TextElements: []string{"Intro", "Hello"}, CombinedText: "Intro Hello"},
				{SlideNumber: 2, TextElements: []string{"Numbers"}, CombinedText: "Numbers"},
			},
			AllTextCombined: []string{"Intro", "Hello", "Numbers"},
		},
		ImagesInfo: []extractor.SlideImages{},
		Notes:      []extractor.SlideNotes{{SlideNumber: 2, Notes: "Say the numbers"}},
		LayoutInfo: []extractor.SlideLayout{
			{SlideNumber: 1, LayoutName: "Title Slide", Shapes: []extractor.ShapeInfo{}},
			{SlideNumber: 2, LayoutName: "Title and Content", Shapes: []extractor.ShapeInfo{}},
		},
	}
}

func TestDeckSlides(t *testing.T) {
	slides := deckSlides(sampleReport())
	if len(slides) != 2 {
		t.Fatalf("got %d slides, want 2", len(slides))
	}
	want := DeckSlide{SlideNum: 2, Title: "Numbers", Content: "Numbers", Notes: "Say the numbers", LayoutName: "Title and Content"}
	if slides[1] != want {
		t.Errorf("slide 2 = %+v, want %+v", slides[1], want)
	}
	if slides[0].Notes != "" || slides[0].Content != "Intro Hello" {
		t.Errorf("slide 1 = %+v", slides[0])
	}
}

// openTestDB connects to PPTXINFO_TEST_DB_URL, skipping when unset.
func openTestDB(t *testing.T) *Repository {
	t.Helper()
	url := os.Getenv("PPTXINFO_TEST_DB_URL")
	if url == "" {
		t.Skip("PPTXINFO_TEST_DB_URL not set")
	}
	db, err := NewConnection(url)
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := EnsureSchema(ctx, db); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	repo := NewRepository(db)
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	return repo
}

func TestRepository_RoundTrip(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	if _, err := repo.FindByChecksum(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindByChecksum on empty store: %v", err)
	}

	id, err := repo.SaveReport(ctx, "stage/deck.pptx", "abc", sampleReport())
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	d, err := repo.FindByChecksum(ctx, "abc")
	if err != nil {
		t.Fatalf("FindByChecksum: %v", err)
	}
	if d.ID != id || d.Filename != "deck.pptx" || d.TotalSlides != 2 || d.Title != "Intro" {
		t.Errorf("deck = %+v", d)
	}
	var stored extractor.Report
	if err := json.Unmarshal(d.Report, &stored); err != nil {
		t.Fatalf("stored report: %v", err)
	}
	if stored.BasicInfo.TotalSlides != 2 {
		t.Errorf("stored report = %+v", stored.BasicInfo)
	}

	if _, err := repo.SaveReport(ctx, "other/deck.pptx", "abc", sampleReport()); err == nil {
		t.Error("duplicate checksum accepted")
	}

	if err := repo.UpdateSummary(ctx, id, "A short deck."); err != nil {
		t.Fatalf("UpdateSummary: %v", err)
	}
	if err := repo.UpdatePath(ctx, id, "processed/deck.pptx"); err != nil {
		t.Fatalf("UpdatePath: %v", err)
	}
	if err := repo.LogAIUsage(ctx, &AIUsage{DeckID: id, Provider: "gemini", Model: "m", PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}); err != nil {
		t.Fatalf("LogAIUsage: %v", err)
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 || all[0].AISummary != "A short deck." || all[0].FilePath != "processed/deck.pptx" {
		t.Errorf("GetAll = %+v", all)
	}

	slides, err := repo.GetSlides(ctx, id)
	if err != nil {
		t.Fatalf("GetSlides: %v", err)
	}
	if len(slides) != 2 || slides[1].Notes != "Say the numbers" {
		t.Errorf("GetSlides = %+v", slides)
	}

	total, err := repo.GetTotalTokens(ctx)
	if err != nil || total != 5 {
		t.Errorf("GetTotalTokens = %d, %v", total, err)
	}
}
