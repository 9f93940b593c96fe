// check_gemini summarizes a deck with the configured Gemini model, to verify
// the API key and model outside watch mode.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/gnemet/pptxinfo/internal/ai"
	"github.com/gnemet/pptxinfo/internal/config"
	"github.com/gnemet/pptxinfo/internal/extractor"
	"github.com/gnemet/pptxinfo/internal/observer"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "config file")
	pflag.Parse()
	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: check_gemini [-c config.yaml] <file.pptx>")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	settings, ok := cfg.AI.Active()
	if !ok {
		log.Fatal().Str("provider", cfg.AI.ActiveProvider).Msg("no API key configured (GEMINI_KEY)")
	}

	ex, err := extractor.New(pflag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("loading deck")
	}

	ctx := context.Background()
	client, err := ai.NewClient(ctx, settings)
	if err != nil {
		log.Fatal().Err(err).Msg("creating client")
	}
	defer client.Close()

	summary, err := client.SummarizeDeck(ctx, observer.DeckText(ex.AllInformation()))
	if err != nil {
		log.Fatal().Err(err).Msg("summarizing")
	}
	fmt.Printf("Model: %s (%d tokens)\n\n%s\n", summary.Model, summary.TotalTokens, summary.Text)
}
