package pptx_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"

	"github.com/gnemet/pptxinfo/internal/pptx"
	"github.com/gnemet/pptxinfo/internal/pptx/pptxtest"
)

func openDeck(t *testing.T, d pptxtest.Deck) *pptx.Presentation {
	t.Helper()
	path := pptxtest.Write(t, t.TempDir(), "deck.pptx", d)
	p, err := pptx.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return p
}

func TestOpen_Basics(t *testing.T) {
	p := openDeck(t, pptxtest.Deck{
		Width:  9144000,
		Height: 6858000,
		Slides: []pptxtest.Slide{
			{Layout: "Title Slide", Shapes: []string{pptxtest.Title(2, "Hello")}},
			{Layout: "Blank"},
		},
	})

	if p.Width != 9144000 || p.Height != 6858000 {
		t.Errorf("size = %dx%d, want 9144000x6858000", p.Width, p.Height)
	}
	if len(p.Slides) != 2 {
		t.Fatalf("len(Slides) = %d, want 2", len(p.Slides))
	}
	for i, s := range p.Slides {
		if s.Number != i+1 {
			t.Errorf("slide %d Number = %d", i, s.Number)
		}
	}
	if got := p.Slides[0].Layout.Name; got != "Title Slide" {
		t.Errorf("layout name = %q, want %q", got, "Title Slide")
	}
	if got := p.Slides[1].Layout.Name; got != "Blank" {
		t.Errorf("layout name = %q, want %q", got, "Blank")
	}
	if len(p.Slides[1].Shapes) != 0 {
		t.Errorf("blank slide has %d shapes", len(p.Slides[1].Shapes))
	}
	if p.Slides[0].Notes != nil {
		t.Error("slide without notes relationship has Notes")
	}
}

func TestOpen_MissingSlideSize(t *testing.T) {
	p := openDeck(t, pptxtest.Deck{OmitSize: true, Slides: []pptxtest.Slide{{}}})
	if p.Width != 0 || p.Height != 0 {
		t.Errorf("size = %dx%d, want 0x0", p.Width, p.Height)
	}
}

func TestOpen_ShapeOrderAndTypes(t *testing.T) {
	p := openDeck(t, pptxtest.Deck{Slides: []pptxtest.Slide{{Shapes: []string{
		pptxtest.Picture(4, "Picture 3", 1, 2, 3, 4),
		pptxtest.Title(2, "Title"),
		pptxtest.TextBox(5, "TextBox 4", "box"),
		pptxtest.Table(6, "Table 5", "cell"),
		pptxtest.Group(7, "Group 6", pptxtest.TextBox(8, "Inner", "inside")),
		pptxtest.Connector(9, "Connector 8"),
		pptxtest.AutoShape(10, "Rectangle 9", "rect"),
	}}}})

	want := []struct {
		name    string
		typ     string
		kind    pptx.Kind
		hasText bool
	}{
		{"Picture 3", "PICTURE (13)", pptx.KindPicture, false},
		{"Title 2", "PLACEHOLDER (14)", pptx.KindPlaceholder, true},
		{"TextBox 4", "TEXT_BOX (17)", pptx.KindText, true},
		{"Table 5", "TABLE (19)", pptx.KindOther, false},
		{"Group 6", "GROUP (6)", pptx.KindOther, false},
		{"Connector 8", "LINE (9)", pptx.KindOther, false},
		{"Rectangle 9", "AUTO_SHAPE (1)", pptx.KindText, true},
	}

	shapes := p.Slides[0].Shapes
	if len(shapes) != len(want) {
		t.Fatalf("len(Shapes) = %d, want %d", len(shapes), len(want))
	}
	for i, w := range want {
		s := shapes[i]
		if s.Name != w.name {
			t.Errorf("shape %d name = %q, want %q", i, s.Name, w.name)
		}
		if got := s.Type.String(); got != w.typ {
			t.Errorf("shape %q type = %q, want %q", s.Name, got, w.typ)
		}
		if got := s.Kind(); got != w.kind {
			t.Errorf("shape %q kind = %v, want %v", s.Name, got, w.kind)
		}
		if got := s.Text != nil; got != w.hasText {
			t.Errorf("shape %q has text capability = %v, want %v", s.Name, got, w.hasText)
		}
	}

	pic := shapes[0]
	if pic.Left != 1 || pic.Top != 2 || pic.Width != 3 || pic.Height != 4 {
		t.Errorf("picture geometry = %+v", pic.Geometry)
	}
}

func TestOpen_Text(t *testing.T) {
	p := openDeck(t, pptxtest.Deck{Slides: []pptxtest.Slide{{Shapes: []string{
		pptxtest.TextBox(2, "Multi", "first\nsecond"),
		pptxtest.TextBox(3, "Break", "left\vright"),
		pptxtest.EmptyShape(4, "Empty"),
	}}}})

	shapes := p.Slides[0].Shapes
	if got := *shapes[0].Text; got != "first\nsecond" {
		t.Errorf("paragraph text = %q", got)
	}
	if got := *shapes[1].Text; got != "left\vright" {
		t.Errorf("line break text = %q", got)
	}
	if shapes[2].Text == nil || *shapes[2].Text != "" {
		t.Errorf("shape without txBody should have empty text, got %v", shapes[2].Text)
	}
	if _, ok := shapes[2].TrimmedText(); ok {
		t.Error("TrimmedText() reported text for an empty shape")
	}
}

func TestOpen_PlaceholderInheritsGeometry(t *testing.T) {
	p := openDeck(t, pptxtest.Deck{Slides: []pptxtest.Slide{{Shapes: []string{
		pptxtest.Title(2, "T"),
		pptxtest.Placeholder(3, "Content", "", 1, "body"),
	}}}})

	title := p.Slides[0].Shapes[0]
	if title.Placeholder == nil || title.Placeholder.Type != pptx.PlaceholderTitle {
		t.Fatalf("title placeholder = %+v", title.Placeholder)
	}
	if title.Geometry != (pptx.Geometry{Left: 1, Top: 2, Width: 3, Height: 4}) {
		t.Errorf("title geometry = %+v, want layout geometry", title.Geometry)
	}

	// The layout's content placeholder has no transform either, so the
	// position comes from the master body placeholder.
	body := p.Slides[0].Shapes[1]
	if body.Placeholder.Type != pptx.PlaceholderObject {
		t.Errorf("untyped placeholder type = %d, want %d", body.Placeholder.Type, pptx.PlaceholderObject)
	}
	want := pptx.Geometry{Left: 457200, Top: 1600200, Width: 8229600, Height: 4525963}
	if body.Geometry != want {
		t.Errorf("body geometry = %+v, want %+v", body.Geometry, want)
	}
}

func TestOpen_Notes(t *testing.T) {
	p := openDeck(t, pptxtest.Deck{Slides: []pptxtest.Slide{{
		Notes: []string{
			pptxtest.Placeholder(2, "Slide Image Placeholder 1", "sldImg", -1, ""),
			pptxtest.Placeholder(3, "Notes Placeholder 2", "body", 1, "Speak slowly"),
		},
	}}})

	notes := p.Slides[0].Notes
	if notes == nil {
		t.Fatal("Notes = nil")
	}
	if len(notes.Shapes) != 2 {
		t.Fatalf("len(notes.Shapes) = %d, want 2", len(notes.Shapes))
	}
	if got, _ := notes.Shapes[1].TrimmedText(); got != "Speak slowly" {
		t.Errorf("notes text = %q", got)
	}
	if notes.Shapes[0].Placeholder.Type != pptx.PlaceholderSlideImage {
		t.Errorf("slide image placeholder type = %d", notes.Shapes[0].Placeholder.Type)
	}
}

func TestOpen_DeclaredCharset(t *testing.T) {
	slide := `<?xml version="1.0" encoding="ISO-8859-1"?>` +
		`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:cSld><p:spTree><p:sp><p:nvSpPr><p:cNvPr id="2" name="Caf` + "\xe9" + `"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>` +
		`<p:txBody><a:p><a:r><a:t>Cr` + "\xe8" + `me br` + "\xfb" + `l` + "\xe9" + `e</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`

	p := openDeck(t, pptxtest.Deck{
		Slides: []pptxtest.Slide{{}},
		Parts:  map[string]string{"ppt/slides/slide1.xml": slide},
	})
	s := p.Slides[0].Shapes[0]
	if s.Name != "Café" {
		t.Errorf("name = %q, want %q", s.Name, "Café")
	}
	if got := *s.Text; got != "Crème brûlée" {
		t.Errorf("text = %q, want %q", got, "Crème brûlée")
	}
}

func TestOpen_UTF16(t *testing.T) {
	slide := `<?xml version="1.0" encoding="UTF-16" standalone="yes"?>` +
		`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:cSld><p:spTree><p:sp><p:nvSpPr><p:cNvPr id="2" name="Café"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>` +
		`<p:txBody><a:p><a:r><a:t>Crème brûlée</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`

	for _, tt := range []struct {
		name   string
		endian unicode.Endianness
		bom    string
	}{
		{"little endian", unicode.LittleEndian, "\xff\xfe"},
		{"big endian", unicode.BigEndian, "\xfe\xff"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := unicode.UTF16(tt.endian, unicode.UseBOM).NewEncoder().String(slide)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(encoded, tt.bom) {
				t.Fatalf("encoded part does not start with BOM %q", tt.bom)
			}

			p := openDeck(t, pptxtest.Deck{
				Slides: []pptxtest.Slide{{}},
				Parts:  map[string]string{"ppt/slides/slide1.xml": encoded},
			})
			s := p.Slides[0].Shapes[0]
			if s.Name != "Café" {
				t.Errorf("name = %q, want %q", s.Name, "Café")
			}
			if s.Text == nil || *s.Text != "Crème brûlée" {
				t.Errorf("text = %v, want %q", s.Text, "Crème brûlée")
			}
		})
	}
}

func TestOpen_FreeformTextBox(t *testing.T) {
	// A text box drawn with custom geometry classifies as a freeform.
	freeform := `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Freeform 1"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>` +
		`<p:spPr><a:xfrm><a:off x="10" y="20"/><a:ext cx="30" cy="40"/></a:xfrm>` +
		`<a:custGeom><a:pathLst><a:path w="30" h="40"><a:moveTo><a:pt x="0" y="0"/></a:moveTo></a:path></a:pathLst></a:custGeom></p:spPr>` +
		`<p:txBody><a:p><a:r><a:t>Drawn</a:t></a:r></a:p></p:txBody></p:sp>`

	p := openDeck(t, pptxtest.Deck{Slides: []pptxtest.Slide{{
		Shapes: []string{freeform, pptxtest.TextBox(3, "TextBox 2", "Plain")},
	}}})
	shapes := p.Slides[0].Shapes
	if shapes[0].Type != pptx.ShapeTypeFreeform {
		t.Errorf("custGeom text box type = %v, want %v", shapes[0].Type, pptx.ShapeTypeFreeform)
	}
	if shapes[0].Kind() != pptx.KindText {
		t.Errorf("custGeom text box kind = %v, want %v", shapes[0].Kind(), pptx.KindText)
	}
	if shapes[1].Type != pptx.ShapeTypeTextBox {
		t.Errorf("text box type = %v, want %v", shapes[1].Type, pptx.ShapeTypeTextBox)
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	notZip := filepath.Join(dir, "plain.pptx")
	if err := os.WriteFile(notZip, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	noTypes := pptxtest.Write(t, dir, "notypes.pptx", pptxtest.Deck{
		Slides: []pptxtest.Slide{{}},
		Parts:  map[string]string{"[Content_Types].xml": ""},
	})

	wordDoc := pptxtest.Write(t, dir, "word.pptx", pptxtest.Deck{
		Slides: []pptxtest.Slide{{}},
		Parts: map[string]string{
			"ppt/presentation.xml": `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`,
		},
	})

	brokenSlide := pptxtest.Write(t, dir, "broken.pptx", pptxtest.Deck{
		Slides: []pptxtest.Slide{{}},
		Parts:  map[string]string{"ppt/slides/slide1.xml": `<p:sld xmlns:p="x"><p:cSld>`},
	})

	emptyZip := filepath.Join(dir, "empty.pptx")
	f, err := os.Create(emptyZip)
	if err != nil {
		t.Fatal(err)
	}
	if err := zip.NewWriter(f).Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing file", filepath.Join(dir, "nope.pptx"), "opening ZIP archive"},
		{"not a zip", notZip, "opening ZIP archive"},
		{"empty zip", emptyZip, "[Content_Types].xml"},
		{"no content types", noTypes, "[Content_Types].xml"},
		{"wrong main part", wordDoc, "parsing presentation"},
		{"broken slide", brokenSlide, "parsing slide 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pptx.Open(tt.path)
			if err == nil {
				t.Fatal("Open() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Open() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestShapeTypeString(t *testing.T) {
	tests := []struct {
		typ  pptx.ShapeType
		want string
	}{
		{pptx.ShapeTypePicture, "PICTURE (13)"},
		{pptx.ShapeTypePlaceholder, "PLACEHOLDER (14)"},
		{pptx.ShapeTypeFreeform, "FREEFORM (5)"},
		{pptx.ShapeTypeMedia, "MEDIA (16)"},
		{pptx.ShapeTypeNone, "None"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("ShapeType(%d).String() = %q, want %q", int(tt.typ), got, tt.want)
		}
	}
}

func TestParsePlaceholderType(t *testing.T) {
	tests := map[string]pptx.PlaceholderType{
		"":         pptx.PlaceholderObject,
		"title":    pptx.PlaceholderTitle,
		"ctrTitle": pptx.PlaceholderCenterTitle,
		"subTitle": pptx.PlaceholderSubtitle,
		"body":     pptx.PlaceholderBody,
		"sldNum":   pptx.PlaceholderSlideNumber,
		"dt":       pptx.PlaceholderDate,
		"ftr":      pptx.PlaceholderFooter,
		"dgm":      pptx.PlaceholderOrgChart,
		"clipArt":  pptx.PlaceholderBitmap,
		"bogus":    pptx.PlaceholderMixed,
	}
	for in, want := range tests {
		if got := pptx.ParsePlaceholderType(in); got != want {
			t.Errorf("ParsePlaceholderType(%q) = %d, want %d", in, got, want)
		}
	}
}
