package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// opcPackage is an opened OPC (zip) package indexed by part name.
type opcPackage struct {
	zr    *zip.ReadCloser
	parts map[string]*zip.File
}

func openPackage(filename string) (*opcPackage, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}
	p := &opcPackage{zr: zr, parts: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		p.parts[f.Name] = f
	}
	return p, nil
}

func (p *opcPackage) Close() error {
	return p.zr.Close()
}

func (p *opcPackage) has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// read returns the raw content of a part.
func (p *opcPackage) read(name string) ([]byte, error) {
	f, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("part not found: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// decode unmarshals a part. The decoder honours the encoding declared in
// the XML prolog. Parts starting with a UTF-16 byte order mark are
// transcoded to UTF-8 up front, since encoding/xml reads the prolog
// before any charset reader gets a chance to run.
func (p *opcPackage) decode(name string, v any) error {
	data, err := p.read(name)
	if err != nil {
		return err
	}
	var r io.Reader = bytes.NewReader(data)
	if hasUTF16BOM(data) {
		r = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	}
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}

// charsetReader passes utf-16 labelled streams through unchanged: by the
// time the prolog is read they have already been transcoded to UTF-8.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if strings.HasPrefix(strings.ToLower(label), "utf-16") {
		return input, nil
	}
	return charset.NewReaderLabel(label, input)
}

// rels returns the relationships of a part, or nil when it has none.
// Pass "" for the package-level relationships.
func (p *opcPackage) rels(part string) (*relationshipsXML, error) {
	name := relsName(part)
	if !p.has(name) {
		return nil, nil
	}
	rels := &relationshipsXML{}
	if err := p.decode(name, rels); err != nil {
		return nil, err
	}
	return rels, nil
}

// relsName maps ppt/slides/slide1.xml to ppt/slides/_rels/slide1.xml.rels.
func relsName(part string) string {
	if part == "" {
		return "_rels/.rels"
	}
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

// resolveTarget turns a relationship target into a part name relative to
// the package root.
func resolveTarget(source string, rel relationshipXML) (string, bool) {
	if strings.EqualFold(rel.TargetMode, "External") || rel.Target == "" {
		return "", false
	}
	if strings.HasPrefix(rel.Target, "/") {
		return strings.TrimPrefix(rel.Target, "/"), true
	}
	base := ""
	if source != "" {
		base = path.Dir(source)
	}
	return path.Clean(path.Join(base, rel.Target)), true
}
