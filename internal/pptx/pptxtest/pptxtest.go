// Package pptxtest writes small .pptx packages for tests.
package pptxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Deck describes a presentation to generate.
type Deck struct {
	Width, Height int64
	// OmitSize leaves p:sldSz out of presentation.xml.
	OmitSize bool
	Slides   []Slide
	// Parts replaces or adds raw package parts after generation. An empty
	// value removes the part.
	Parts map[string]string
}

// Slide describes one slide. Shapes and Notes are raw p:spTree children,
// usually built with the helpers below.
type Slide struct {
	Layout string
	Shapes []string
	// Notes, when non-nil, produces a notes slide with these shapes.
	Notes []string
}

const (
	nsDecl = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`
	relsNS   = "http://schemas.openxmlformats.org/package/2006/relationships"
	relsBase = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	header   = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// Write creates name inside dir and returns its path.
func Write(t testing.TB, dir, name string, d Deck) string {
	t.Helper()
	data, err := Build(d)
	if err != nil {
		t.Fatalf("building pptx: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", p, err)
	}
	return p
}

// Build returns the zipped package bytes.
func Build(d Deck) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := d.parts()
	for _, name := range sortedKeys(files) {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d Deck) parts() map[string]string {
	files := make(map[string]string)

	var overrides strings.Builder
	overrides.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)

	files["_rels/.rels"] = rels(rel("rId1", "officeDocument", "ppt/presentation.xml"))

	var presRels []string
	var sldIDs strings.Builder
	for i, s := range d.Slides {
		n := i + 1
		rid := fmt.Sprintf("rId%d", n+1)
		presRels = append(presRels, rel(rid, "slide", fmt.Sprintf("slides/slide%d.xml", n)))
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="%s"/>`, 255+n, rid)
		fmt.Fprintf(&overrides, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, n)

		layout := s.Layout
		if layout == "" {
			layout = "Title and Content"
		}
		files[fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", n)] = layoutXML(layout)
		files[fmt.Sprintf("ppt/slideLayouts/_rels/slideLayout%d.xml.rels", n)] = rels(rel("rId1", "slideMaster", "../slideMasters/slideMaster1.xml"))

		slideRels := []string{rel("rId1", "slideLayout", fmt.Sprintf("../slideLayouts/slideLayout%d.xml", n))}
		if s.Notes != nil {
			slideRels = append(slideRels, rel("rId2", "notesSlide", fmt.Sprintf("../notesSlides/notesSlide%d.xml", n)))
			files[fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n)] = partXML("notes", "", s.Notes)
		}
		files[fmt.Sprintf("ppt/slides/slide%d.xml", n)] = partXML("sld", "", s.Shapes)
		files[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)] = rels(slideRels...)
	}
	presRels = append(presRels, rel("rId1", "slideMaster", "slideMasters/slideMaster1.xml"))
	files["ppt/_rels/presentation.xml.rels"] = rels(presRels...)
	files["ppt/slideMasters/slideMaster1.xml"] = partXML("sldMaster", "", []string{
		placeholderXML(2, "Title Placeholder 1", "title", -1, "", &[4]int64{457200, 274638, 8229600, 1143000}),
		placeholderXML(3, "Text Placeholder 2", "body", 1, "", &[4]int64{457200, 1600200, 8229600, 4525963}),
	})

	size := ""
	if !d.OmitSize {
		size = fmt.Sprintf(`<p:sldSz cx="%d" cy="%d"/>`, d.Width, d.Height)
	}
	files["ppt/presentation.xml"] = header + `<p:presentation ` + nsDecl + `>` +
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>` +
		`<p:sldIdLst>` + sldIDs.String() + `</p:sldIdLst>` + size + `</p:presentation>`

	files["[Content_Types].xml"] = header +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		overrides.String() + `</Types>`

	for name, content := range d.Parts {
		if content == "" {
			delete(files, name)
			continue
		}
		files[name] = content
	}
	return files
}

// layoutXML has a positioned title placeholder and a body placeholder that
// takes its position from the master.
func layoutXML(name string) string {
	return partXML("sldLayout", name, []string{
		placeholderXML(2, "Title 1", "title", -1, "", &[4]int64{1, 2, 3, 4}),
		placeholderXML(3, "Content Placeholder 2", "", 1, "", nil),
	})
}

func partXML(root, name string, shapes []string) string {
	attr := ""
	if name != "" {
		attr = ` name="` + escape(name) + `"`
	}
	return header + `<p:` + root + ` ` + nsDecl + `><p:cSld` + attr + `><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		strings.Join(shapes, "") + `</p:spTree></p:cSld></p:` + root + `>`
}

func rels(items ...string) string {
	return header + `<Relationships xmlns="` + relsNS + `">` + strings.Join(items, "") + `</Relationships>`
}

func rel(id, typ, target string) string {
	return fmt.Sprintf(`<Relationship Id="%s" Type="%s%s" Target="%s"/>`, id, relsBase, typ, target)
}

// Title returns a title placeholder (type code 1).
func Title(id int, text string) string {
	return placeholderXML(id, fmt.Sprintf("Title %d", id), "title", -1, text, nil)
}

// Placeholder returns a placeholder of the given p:ph type ("" for an
// object placeholder) without its own position.
func Placeholder(id int, name, phType string, idx int, text string) string {
	return placeholderXML(id, name, phType, idx, text, nil)
}

// TextBox returns a non-placeholder text box at a fixed position.
func TextBox(id int, name, text string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="100" y="200"/><a:ext cx="300" cy="400"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>%s</p:sp>`,
		id, escape(name), txBody(text))
}

// AutoShape returns a rectangle with optional text.
func AutoShape(id int, name, text string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="10" cy="10"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>%s</p:sp>`,
		id, escape(name), txBody(text))
}

// EmptyShape returns an auto shape without a text body.
func EmptyShape(id int, name string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/></p:sp>`, id, escape(name))
}

// Picture returns a picture at the given position and size.
func Picture(id int, name string, left, top, width, height int64) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="rId9"/></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm></p:spPr></p:pic>`,
		id, escape(name), left, top, width, height)
}

// Table returns a graphic frame holding a one-cell table.
func Table(id int, name, cell string) string {
	return fmt.Sprintf(`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="%s"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`+
		`<p:xfrm><a:off x="5" y="6"/><a:ext cx="7" cy="8"/></p:xfrm>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl><a:tr h="1"><a:tc>%s</a:tc></a:tr></a:tbl></a:graphicData></a:graphic></p:graphicFrame>`,
		id, escape(name), strings.ReplaceAll(strings.ReplaceAll(txBody(cell), "<p:txBody>", "<a:txBody>"), "</p:txBody>", "</a:txBody>"))
}

// Group returns a group shape wrapping the given shapes.
func Group(id int, name string, children ...string) string {
	return fmt.Sprintf(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="%s"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`+
		`<p:grpSpPr><a:xfrm><a:off x="1" y="1"/><a:ext cx="2" cy="2"/><a:chOff x="1" y="1"/><a:chExt cx="2" cy="2"/></a:xfrm></p:grpSpPr>%s</p:grpSp>`,
		id, escape(name), strings.Join(children, ""))
}

// Connector returns a straight connector.
func Connector(id int, name string) string {
	return fmt.Sprintf(`<p:cxnSp><p:nvCxnSpPr><p:cNvPr id="%d" name="%s"/><p:cNvCxnSpPr/><p:nvPr/></p:nvCxnSpPr>`+
		`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="5" cy="0"/></a:xfrm><a:prstGeom prst="line"><a:avLst/></a:prstGeom></p:spPr></p:cxnSp>`,
		id, escape(name))
}

func placeholderXML(id int, name, phType string, idx int, text string, xfrm *[4]int64) string {
	ph := "<p:ph"
	if phType != "" {
		ph += ` type="` + phType + `"`
	}
	if idx >= 0 {
		ph += fmt.Sprintf(` idx="%d"`, idx)
	}
	ph += "/>"
	spPr := "<p:spPr/>"
	if xfrm != nil {
		spPr = fmt.Sprintf(`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm></p:spPr>`,
			xfrm[0], xfrm[1], xfrm[2], xfrm[3])
	}
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr>%s</p:nvPr></p:nvSpPr>%s%s</p:sp>`,
		id, escape(name), ph, spPr, txBody(text))
}

// txBody renders one a:p per line of text. A vertical tab inside a line
// becomes an a:br.
func txBody(text string) string {
	var b strings.Builder
	b.WriteString("<p:txBody><a:bodyPr/><a:lstStyle/>")
	for _, line := range strings.Split(text, "\n") {
		b.WriteString("<a:p>")
		for i, seg := range strings.Split(line, "\v") {
			if i > 0 {
				b.WriteString("<a:br/>")
			}
			if seg != "" {
				b.WriteString(`<a:r><a:rPr lang="en-US"/><a:t>` + escape(seg) + `</a:t></a:r>`)
			}
		}
		b.WriteString("</a:p>")
	}
	b.WriteString("</p:txBody>")
	return b.String()
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// [Content_Types].xml goes first, like the packages Office writes.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "[Content_Types].xml" || keys[j] == "[Content_Types].xml" {
			return keys[i] == "[Content_Types].xml" && keys[j] != keys[i]
		}
		return keys[i] < keys[j]
	})
	return keys
}
