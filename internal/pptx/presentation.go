// Package pptx loads PowerPoint (Office Open XML) presentations into an
// immutable slide/shape model.
package pptx

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Presentation is a loaded deck. It holds no open file handles.
type Presentation struct {
	Path string
	// Width and Height are the slide size in EMU, 0 when the deck does not
	// declare one.
	Width  int64
	Height int64
	Slides []*Slide
}

// Slide is one slide in presentation order.
type Slide struct {
	Number int // 1-based
	Part   string
	Shapes []Shape
	Layout Layout
	Notes  *NotesSlide
}

// Layout is the slide layout a slide is based on.
type Layout struct {
	Name string
	Part string
}

// NotesSlide holds the speaker-notes page of a slide.
type NotesSlide struct {
	Shapes []Shape
}

// Open reads a .pptx file. The archive is closed before Open returns.
func Open(filename string) (*Presentation, error) {
	pkg, err := openPackage(filename)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()

	l := &loader{
		pkg:     pkg,
		layouts: make(map[string]*layoutPart),
		masters: make(map[string][]Shape),
	}
	return l.load(filename)
}

type layoutPart struct {
	name         string
	placeholders []Shape
}

// loader carries the per-load caches; layouts and masters are shared by
// many slides.
type loader struct {
	pkg     *opcPackage
	layouts map[string]*layoutPart
	masters map[string][]Shape
}

func (l *loader) load(filename string) (*Presentation, error) {
	if !l.pkg.has("[Content_Types].xml") {
		return nil, fmt.Errorf("missing required file: [Content_Types].xml")
	}

	mainPart, err := l.mainPart()
	if err != nil {
		return nil, err
	}

	var pres presentationXML
	if err := l.pkg.decode(mainPart, &pres); err != nil {
		return nil, fmt.Errorf("parsing presentation: %w", err)
	}

	slideParts, err := l.slideParts(mainPart, &pres)
	if err != nil {
		return nil, fmt.Errorf("resolving slides: %w", err)
	}

	p := &Presentation{
		Path:   filename,
		Slides: make([]*Slide, 0, len(slideParts)),
	}
	if pres.SlideSize != nil {
		p.Width = pres.SlideSize.Cx
		p.Height = pres.SlideSize.Cy
	}

	for i, part := range slideParts {
		slide, err := l.slide(part, i+1)
		if err != nil {
			return nil, fmt.Errorf("parsing slide %d: %w", i+1, err)
		}
		p.Slides = append(p.Slides, slide)
	}
	return p, nil
}

// mainPart locates the presentation part through the package
// relationships.
func (l *loader) mainPart() (string, error) {
	rels, err := l.pkg.rels("")
	if err != nil {
		return "", fmt.Errorf("parsing package relationships: %w", err)
	}
	if rel, ok := rels.byType(relOfficeDocument); ok {
		if name, ok := resolveTarget("", rel); ok && l.pkg.has(name) {
			return name, nil
		}
	}
	if l.pkg.has("ppt/presentation.xml") {
		return "ppt/presentation.xml", nil
	}
	return "", fmt.Errorf("missing required file: ppt/presentation.xml")
}

// slideParts returns slide part names in presentation order.
func (l *loader) slideParts(mainPart string, pres *presentationXML) ([]string, error) {
	rels, err := l.pkg.rels(mainPart)
	if err != nil {
		return nil, err
	}

	if pres.SlideIDList != nil && rels != nil {
		parts := make([]string, 0, len(pres.SlideIDList.SlideIDs))
		for _, id := range pres.SlideIDList.SlideIDs {
			rel, ok := rels.byID(id.RID)
			if !ok {
				return nil, fmt.Errorf("slide relationship %q not found", id.RID)
			}
			if !strings.HasSuffix(rel.Type, relSlide) {
				return nil, fmt.Errorf("relationship %q is not a slide", id.RID)
			}
			name, ok := resolveTarget(mainPart, rel)
			if !ok || !l.pkg.has(name) {
				return nil, fmt.Errorf("slide part %q not found", rel.Target)
			}
			parts = append(parts, name)
		}
		return parts, nil
	}

	// No slide list: fall back to the conventional part names.
	var parts []string
	for name := range l.pkg.parts {
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			parts = append(parts, name)
		}
	}
	sort.Slice(parts, func(i, j int) bool {
		return slideNumber(parts[i]) < slideNumber(parts[j])
	})
	return parts, nil
}

// slideNumber extracts N from ppt/slides/slideN.xml.
func slideNumber(name string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(path.Base(name), "slide"), ".xml"))
	if err != nil {
		return 0
	}
	return n
}

func (l *loader) slide(part string, number int) (*Slide, error) {
	shapes, _, err := l.shapes(part)
	if err != nil {
		return nil, err
	}
	slide := &Slide{Number: number, Part: part, Shapes: shapes}

	rels, err := l.pkg.rels(part)
	if err != nil {
		return nil, err
	}

	if rel, ok := rels.byType(relSlideLayout); ok {
		if name, ok := resolveTarget(part, rel); ok {
			layout, err := l.layout(name)
			if err != nil {
				return nil, err
			}
			slide.Layout = Layout{Name: layout.name, Part: name}
			for i := range slide.Shapes {
				inheritGeometry(&slide.Shapes[i], layout.placeholders, func(base Placeholder) bool {
					return base.Idx == slide.Shapes[i].Placeholder.Idx
				})
			}
		}
	}

	if rel, ok := rels.byType(relNotesSlide); ok {
		if name, ok := resolveTarget(part, rel); ok && l.pkg.has(name) {
			notes, _, err := l.shapes(name)
			if err != nil {
				return nil, err
			}
			slide.Notes = &NotesSlide{Shapes: notes}
		}
	}
	return slide, nil
}

// layout parses and caches a slide layout with positions inherited from
// its master already applied to its placeholders.
func (l *loader) layout(part string) (*layoutPart, error) {
	if cached, ok := l.layouts[part]; ok {
		return cached, nil
	}
	shapes, name, err := l.shapes(part)
	if err != nil {
		return nil, err
	}
	layout := &layoutPart{name: name, placeholders: placeholders(shapes)}

	rels, err := l.pkg.rels(part)
	if err != nil {
		return nil, err
	}
	if rel, ok := rels.byType(relSlideMaster); ok {
		if masterName, ok := resolveTarget(part, rel); ok {
			master, err := l.master(masterName)
			if err != nil {
				return nil, err
			}
			for i := range layout.placeholders {
				want := layout.placeholders[i].Placeholder.Type.masterType()
				inheritGeometry(&layout.placeholders[i], master, func(base Placeholder) bool {
					return base.Type == want
				})
			}
		}
	}

	l.layouts[part] = layout
	return layout, nil
}

func (l *loader) master(part string) ([]Shape, error) {
	if cached, ok := l.masters[part]; ok {
		return cached, nil
	}
	shapes, _, err := l.shapes(part)
	if err != nil {
		return nil, err
	}
	phs := placeholders(shapes)
	l.masters[part] = phs
	return phs, nil
}

// shapes decodes a part's shape tree and returns its shapes and the
// p:cSld name.
func (l *loader) shapes(part string) ([]Shape, string, error) {
	var doc partXML
	if err := l.pkg.decode(part, &doc); err != nil {
		return nil, "", err
	}
	shapes := make([]Shape, 0, len(doc.CSld.SpTree.Shapes))
	for i := range doc.CSld.SpTree.Shapes {
		shapes = append(shapes, newShape(&doc.CSld.SpTree.Shapes[i]))
	}
	return shapes, doc.CSld.Name, nil
}

func placeholders(shapes []Shape) []Shape {
	var out []Shape
	for _, s := range shapes {
		if s.Placeholder != nil {
			out = append(out, s)
		}
	}
	return out
}

// inheritGeometry copies position and size from the first matching base
// placeholder when the shape is a placeholder without its own transform.
func inheritGeometry(shape *Shape, bases []Shape, match func(Placeholder) bool) {
	if shape.Placeholder == nil || shape.hasXfrm {
		return
	}
	for _, base := range bases {
		if base.Placeholder != nil && match(*base.Placeholder) {
			shape.Geometry = base.Geometry
			shape.hasXfrm = base.hasXfrm
			return
		}
	}
}
