// Package extractor turns a loaded presentation into the sections of an
// extraction report: basic info, titles, text, images, notes and layouts.
package extractor

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/gnemet/pptxinfo/internal/pptx"
)

// NoTitle is reported for slides without any usable title text.
const NoTitle = "No Title"

// DefaultOutputDir is where Save writes when no path is given.
const DefaultOutputDir = "slides"

// Extractor answers read-only queries over one presentation. Every method
// builds a fresh record; nothing is cached between calls.
type Extractor struct {
	pres      *pptx.Presentation
	outputDir string
	logger    zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for load and save events.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithOutputDir sets the directory Save derives its default path from.
func WithOutputDir(dir string) Option {
	return func(e *Extractor) {
		if dir != "" {
			e.outputDir = dir
		}
	}
}

// New opens the presentation at path.
func New(path string, opts ...Option) (*Extractor, error) {
	pres, err := pptx.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	e := FromPresentation(pres, opts...)
	e.logger.Info().Str("path", path).Int("slides", len(pres.Slides)).Msg("loaded presentation")
	return e, nil
}

// FromPresentation wraps an already loaded presentation.
func FromPresentation(p *pptx.Presentation, opts ...Option) *Extractor {
	e := &Extractor{pres: p, outputDir: DefaultOutputDir, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) BasicInfo() BasicInfo {
	return BasicInfo{
		FilePath:    e.pres.Path,
		TotalSlides: len(e.pres.Slides),
		SlideDimensions: Dimensions{
			Width:  e.pres.Width,
			Height: e.pres.Height,
		},
	}
}

// AllText collects the trimmed, non-empty text of every text-bearing shape.
func (e *Extractor) AllText() TextContent {
	content := TextContent{
		Slides:          make([]SlideText, 0, len(e.pres.Slides)),
		AllTextCombined: []string{},
	}
	for _, slide := range e.pres.Slides {
		elements := []string{}
		for _, shape := range slide.Shapes {
			if text, ok := shape.TrimmedText(); ok {
				elements = append(elements, text)
			}
		}
		content.Slides = append(content.Slides, SlideText{
			SlideNumber:  slide.Number,
			TextElements: elements,
			CombinedText: strings.Join(elements, " "),
		})
		content.AllTextCombined = append(content.AllTextCombined, elements...)
	}
	return content
}

func (e *Extractor) SlideTitles() []SlideTitle {
	titles := make([]SlideTitle, 0, len(e.pres.Slides))
	for _, slide := range e.pres.Slides {
		titles = append(titles, SlideTitle{SlideNumber: slide.Number, Title: slideTitle(slide)})
	}
	return titles
}

// slideTitle looks at the first placeholder on the slide only: if it is a
// title placeholder with text, that text wins. Otherwise the first line of
// the first shape with text is used.
func slideTitle(slide *pptx.Slide) string {
	for _, shape := range slide.Shapes {
		if !shape.IsPlaceholder() {
			continue
		}
		if shape.Placeholder.Type == pptx.PlaceholderTitle {
			if text, ok := shape.TrimmedText(); ok {
				return text
			}
		}
		break
	}

	for _, shape := range slide.Shapes {
		if text, ok := shape.TrimmedText(); ok {
			first, _, _ := strings.Cut(text, "\n")
			return first
		}
	}
	return NoTitle
}

// ImagesInfo lists picture shapes. Slides without pictures are left out.
func (e *Extractor) ImagesInfo() []SlideImages {
	result := []SlideImages{}
	for _, slide := range e.pres.Slides {
		var images []ImageInfo
		for _, shape := range slide.Shapes {
			if shape.Kind() != pptx.KindPicture {
				continue
			}
			images = append(images, ImageInfo{
				ShapeName: shape.Name,
				Width:     shape.Width,
				Height:    shape.Height,
				Left:      shape.Left,
				Top:       shape.Top,
			})
		}
		if len(images) == 0 {
			continue
		}
		result = append(result, SlideImages{
			SlideNumber: slide.Number,
			Images:      images,
			ImageCount:  len(images),
		})
	}
	return result
}

// Notes returns speaker notes for slides that have any.
func (e *Extractor) Notes() []SlideNotes {
	result := []SlideNotes{}
	for _, slide := range e.pres.Slides {
		if slide.Notes == nil {
			continue
		}
		var b strings.Builder
		for _, shape := range slide.Notes.Shapes {
			if text, ok := shape.TrimmedText(); ok {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		notes := strings.TrimSpace(b.String())
		if notes == "" {
			continue
		}
		result = append(result, SlideNotes{SlideNumber: slide.Number, Notes: notes})
	}
	return result
}

func (e *Extractor) LayoutInfo() []SlideLayout {
	result := make([]SlideLayout, 0, len(e.pres.Slides))
	for _, slide := range e.pres.Slides {
		shapes := make([]ShapeInfo, 0, len(slide.Shapes))
		for _, shape := range slide.Shapes {
			_, hasText := shape.TrimmedText()
			shapes = append(shapes, ShapeInfo{
				Name:          shape.Name,
				Type:          shape.Type.String(),
				HasText:       hasText,
				IsPlaceholder: shape.IsPlaceholder(),
			})
		}
		result = append(result, SlideLayout{
			SlideNumber: slide.Number,
			LayoutName:  slide.Layout.Name,
			ShapeCount:  len(slide.Shapes),
			Shapes:      shapes,
		})
	}
	return result
}

// AllInformation computes every section independently.
func (e *Extractor) AllInformation() Report {
	return Report{
		BasicInfo:   e.BasicInfo(),
		Titles:      e.SlideTitles(),
		TextContent: e.AllText(),
		ImagesInfo:  e.ImagesInfo(),
		Notes:       e.Notes(),
		LayoutInfo:  e.LayoutInfo(),
	}
}
