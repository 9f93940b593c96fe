// Package report renders an extraction report as a Markdown or HTML summary.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/russross/blackfriday/v2"

	"github.com/gnemet/pptxinfo/internal/extractor"
)

const emuPerInch = 914400

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`,
	"|", `\|`, "#", `\#`, "&", `\&`,
	"\r\n", " ", "\n", " ", "\v", " ",
)

func escape(s string) string {
	return mdEscaper.Replace(s)
}

// Markdown summarizes r: deck facts, a slide table, slide text and notes.
func Markdown(r extractor.Report) []byte {
	var b bytes.Buffer
	info := r.BasicInfo

	fmt.Fprintf(&b, "# %s\n\n", escape(filepath.Base(info.FilePath)))
	fmt.Fprintf(&b, "- **Slides:** %d\n", info.TotalSlides)
	fmt.Fprintf(&b, "- **Dimensions:** %d x %d EMU (%.2f x %.2f in)\n",
		info.SlideDimensions.Width, info.SlideDimensions.Height,
		float64(info.SlideDimensions.Width)/emuPerInch, float64(info.SlideDimensions.Height)/emuPerInch)
	pictures := 0
	for _, s := range r.ImagesInfo {
		pictures += s.ImageCount
	}
	fmt.Fprintf(&b, "- **Pictures:** %d\n", pictures)

	if len(r.Titles) > 0 {
		layouts := make(map[int]extractor.SlideLayout, len(r.LayoutInfo))
		for _, l := range r.LayoutInfo {
			layouts[l.SlideNumber] = l
		}

		b.WriteString("\n## Slides\n\n")
		b.WriteString("| # | Title | Layout | Shapes |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, t := range r.Titles {
			l := layouts[t.SlideNumber]
			fmt.Fprintf(&b, "| %d | %s | %s | %d |\n", t.SlideNumber, escape(t.Title), escape(l.LayoutName), l.ShapeCount)
		}
	}

	if len(r.TextContent.Slides) > 0 {
		b.WriteString("\n## Text\n")
		for _, s := range r.TextContent.Slides {
			if s.CombinedText == "" {
				continue
			}
			fmt.Fprintf(&b, "\n### Slide %d\n\n%s\n", s.SlideNumber, escape(s.CombinedText))
		}
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n## Notes\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "\n**Slide %d.** %s\n", n.SlideNumber, escape(n.Notes))
		}
	}
	return b.Bytes()
}

// HTML renders Markdown(r) as a standalone HTML page.
func HTML(r extractor.Report) []byte {
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags | blackfriday.CompletePage,
		Title: filepath.Base(r.BasicInfo.FilePath),
	})
	return blackfriday.Run(Markdown(r),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(renderer))
}

// WriteHTML writes HTML(r) to path, creating its directory.
func WriteHTML(path string, r extractor.Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, HTML(r), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
