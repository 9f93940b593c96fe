package pptx

import (
	"encoding/xml"
	"strings"
)

// Relationship type suffixes. Matching on the suffix covers both the
// transitional and strict OOXML namespaces.
const (
	relOfficeDocument = "/officeDocument"
	relSlide          = "/slide"
	relSlideLayout    = "/slideLayout"
	relSlideMaster    = "/slideMaster"
	relNotesSlide     = "/notesSlide"
)

// Graphic data URIs used to classify graphic frames.
const (
	uriTable = "http://schemas.openxmlformats.org/drawingml/2006/table"
	uriChart = "http://schemas.openxmlformats.org/drawingml/2006/chart"
	uriOLE   = "http://schemas.openxmlformats.org/presentationml/2006/ole"
)

// presentationXML is ppt/presentation.xml.
type presentationXML struct {
	XMLName     xml.Name        `xml:"presentation"`
	SlideIDList *slideIDListXML `xml:"sldIdLst"`
	SlideSize   *slideSizeXML   `xml:"sldSz"`
}

type slideIDListXML struct {
	SlideIDs []slideIDXML `xml:"sldId"`
}

// slideIDXML only declares the r:id attribute; an unqualified id field
// would also capture r:id.
type slideIDXML struct {
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

type slideSizeXML struct {
	Cx int64 `xml:"cx,attr"`
	Cy int64 `xml:"cy,attr"`
}

// partXML covers slides, layouts, masters and notes slides. All of them
// carry their shapes under p:cSld/p:spTree.
type partXML struct {
	XMLName xml.Name
	CSld    cSldXML `xml:"cSld"`
}

type cSldXML struct {
	Name   string    `xml:"name,attr"`
	SpTree spTreeXML `xml:"spTree"`
}

// spTreeXML keeps the shape elements in document order. Decoding into one
// slice per element kind would lose the interleaving.
type spTreeXML struct {
	Shapes []shapeElemXML
}

func (t *spTreeXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "sp", "pic", "graphicFrame", "grpSp", "cxnSp":
				var shape shapeElemXML
				if err := d.DecodeElement(&shape, &el); err != nil {
					return err
				}
				t.Shapes = append(t.Shapes, shape)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// shapeElemXML is the union of the five shape elements. Only the
// non-visual group matching XMLName is populated.
type shapeElemXML struct {
	XMLName          xml.Name
	NvSpPr           *nvPropsXML `xml:"nvSpPr"`
	NvPicPr          *nvPropsXML `xml:"nvPicPr"`
	NvGraphicFramePr *nvPropsXML `xml:"nvGraphicFramePr"`
	NvGrpSpPr        *nvPropsXML `xml:"nvGrpSpPr"`
	NvCxnSpPr        *nvPropsXML `xml:"nvCxnSpPr"`
	SpPr             *spPrXML    `xml:"spPr"`
	GrpSpPr          *spPrXML    `xml:"grpSpPr"`
	Xfrm             *xfrmXML    `xml:"xfrm"` // graphic frames carry p:xfrm directly
	TxBody           *txBodyXML  `xml:"txBody"`
	Graphic          *graphicXML `xml:"graphic"`
}

func (s *shapeElemXML) nvProps() *nvPropsXML {
	switch {
	case s.NvSpPr != nil:
		return s.NvSpPr
	case s.NvPicPr != nil:
		return s.NvPicPr
	case s.NvGraphicFramePr != nil:
		return s.NvGraphicFramePr
	case s.NvGrpSpPr != nil:
		return s.NvGrpSpPr
	case s.NvCxnSpPr != nil:
		return s.NvCxnSpPr
	}
	return nil
}

func (s *shapeElemXML) xfrm() *xfrmXML {
	switch {
	case s.Xfrm != nil:
		return s.Xfrm
	case s.SpPr != nil && s.SpPr.Xfrm != nil:
		return s.SpPr.Xfrm
	case s.GrpSpPr != nil && s.GrpSpPr.Xfrm != nil:
		return s.GrpSpPr.Xfrm
	}
	return nil
}

type nvPropsXML struct {
	CNvPr   cNvPrXML    `xml:"cNvPr"`
	CNvSpPr *cNvSpPrXML `xml:"cNvSpPr"`
	NvPr    nvPrXML     `xml:"nvPr"`
}

type cNvPrXML struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

type cNvSpPrXML struct {
	TxBox string `xml:"txBox,attr"`
}

type nvPrXML struct {
	Ph        *phXML    `xml:"ph"`
	VideoFile *struct{} `xml:"videoFile"`
}

type phXML struct {
	Type string `xml:"type,attr"`
	Idx  int    `xml:"idx,attr"`
}

type spPrXML struct {
	Xfrm     *xfrmXML  `xml:"xfrm"`
	CustGeom *struct{} `xml:"custGeom"`
}

type xfrmXML struct {
	Off *pointXML `xml:"off"`
	Ext *sizeXML  `xml:"ext"`
}

type pointXML struct {
	X int64 `xml:"x,attr"`
	Y int64 `xml:"y,attr"`
}

type sizeXML struct {
	Cx int64 `xml:"cx,attr"`
	Cy int64 `xml:"cy,attr"`
}

type graphicXML struct {
	GraphicData struct {
		URI string `xml:"uri,attr"`
	} `xml:"graphicData"`
}

type txBodyXML struct {
	Paragraphs []paragraphXML `xml:"p"`
}

// text joins paragraphs with a newline.
func (b *txBodyXML) text() string {
	parts := make([]string, len(b.Paragraphs))
	for i, p := range b.Paragraphs {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}

// paragraphXML flattens a:p into its visible text. Runs and fields
// contribute their a:t content in order, a:br becomes a vertical tab.
type paragraphXML struct {
	Text string
}

func (p *paragraphXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "r", "fld":
				var run struct {
					T string `xml:"t"`
				}
				if err := d.DecodeElement(&run, &el); err != nil {
					return err
				}
				b.WriteString(run.T)
			case "br":
				b.WriteString("\v")
				if err := d.Skip(); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			p.Text = b.String()
			return nil
		}
	}
}

// relationshipsXML is a .rels part.
type relationshipsXML struct {
	XMLName       xml.Name          `xml:"Relationships"`
	Relationships []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// byType returns the first relationship whose type ends with relType.
func (r *relationshipsXML) byType(relType string) (relationshipXML, bool) {
	if r == nil {
		return relationshipXML{}, false
	}
	for _, rel := range r.Relationships {
		if strings.HasSuffix(rel.Type, relType) {
			return rel, true
		}
	}
	return relationshipXML{}, false
}

func (r *relationshipsXML) byID(id string) (relationshipXML, bool) {
	if r == nil {
		return relationshipXML{}, false
	}
	for _, rel := range r.Relationships {
		if rel.ID == id {
			return rel, true
		}
	}
	return relationshipXML{}, false
}
