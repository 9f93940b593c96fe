// dump_shapes prints the parsed shape tree of a deck, for checking how
// shapes are classified.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/gnemet/pptxinfo/internal/extractor"
	"github.com/gnemet/pptxinfo/internal/pptx"
)

func main() {
	notes := pflag.BoolP("notes", "n", false, "also dump notes slides")
	pflag.Parse()
	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dump_shapes [--notes] <file.pptx>")
		os.Exit(2)
	}

	pres, err := pptx.Open(pflag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open deck")
	}

	titles := extractor.FromPresentation(pres).SlideTitles()

	fmt.Printf("%s: %d slides, %d x %d EMU\n", pres.Path, len(pres.Slides), pres.Width, pres.Height)
	for i, s := range pres.Slides {
		fmt.Printf("\nSlide %d (%s) layout=%q title=%q\n", s.Number, s.Part, s.Layout.Name, titles[i].Title)
		dump(s.Shapes)
		if *notes && s.Notes != nil {
			fmt.Println("  notes:")
			dump(s.Notes.Shapes)
		}
	}
}

func dump(shapes []pptx.Shape) {
	for _, sh := range shapes {
		fmt.Printf("  #%-3d %-24q %-18s %-11s", sh.ID, sh.Name, sh.Type, sh.Kind())
		if sh.Placeholder != nil {
			fmt.Printf(" ph=%d/%d", sh.Placeholder.Type, sh.Placeholder.Idx)
		}
		fmt.Printf(" @(%d,%d %dx%d)", sh.Left, sh.Top, sh.Width, sh.Height)
		if sh.Text != nil {
			fmt.Printf(" text=%q", *sh.Text)
		}
		fmt.Println()
	}
}
