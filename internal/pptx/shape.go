package pptx

import (
	"fmt"
	"strings"
)

// ShapeType is the MSO shape-type code of a shape.
type ShapeType int

const (
	ShapeTypeNone        ShapeType = 0
	ShapeTypeAutoShape   ShapeType = 1
	ShapeTypeChart       ShapeType = 3
	ShapeTypeFreeform    ShapeType = 5
	ShapeTypeGroup       ShapeType = 6
	ShapeTypeEmbeddedOLE ShapeType = 7
	ShapeTypeLine        ShapeType = 9
	ShapeTypePicture     ShapeType = 13
	ShapeTypePlaceholder ShapeType = 14
	ShapeTypeMedia       ShapeType = 16
	ShapeTypeTextBox     ShapeType = 17
	ShapeTypeTable       ShapeType = 19
)

var shapeTypeNames = map[ShapeType]string{
	ShapeTypeAutoShape:   "AUTO_SHAPE",
	ShapeTypeChart:       "CHART",
	ShapeTypeFreeform:    "FREEFORM",
	ShapeTypeGroup:       "GROUP",
	ShapeTypeEmbeddedOLE: "EMBEDDED_OLE_OBJECT",
	ShapeTypeLine:        "LINE",
	ShapeTypePicture:     "PICTURE",
	ShapeTypePlaceholder: "PLACEHOLDER",
	ShapeTypeMedia:       "MEDIA",
	ShapeTypeTextBox:     "TEXT_BOX",
	ShapeTypeTable:       "TABLE",
}

// String renders the type as "NAME (code)", or "None" when the shape
// could not be classified.
func (t ShapeType) String() string {
	name, ok := shapeTypeNames[t]
	if !ok {
		return "None"
	}
	return fmt.Sprintf("%s (%d)", name, int(t))
}

// PlaceholderType is the placeholder-type code carried by p:ph.
type PlaceholderType int

const (
	PlaceholderMixed          PlaceholderType = -2
	PlaceholderTitle          PlaceholderType = 1
	PlaceholderBody           PlaceholderType = 2
	PlaceholderCenterTitle    PlaceholderType = 3
	PlaceholderSubtitle       PlaceholderType = 4
	PlaceholderVerticalTitle  PlaceholderType = 5
	PlaceholderVerticalBody   PlaceholderType = 6
	PlaceholderObject         PlaceholderType = 7
	PlaceholderChart          PlaceholderType = 8
	PlaceholderBitmap         PlaceholderType = 9
	PlaceholderMediaClip      PlaceholderType = 10
	PlaceholderOrgChart       PlaceholderType = 11
	PlaceholderTable          PlaceholderType = 12
	PlaceholderSlideNumber    PlaceholderType = 13
	PlaceholderHeader         PlaceholderType = 14
	PlaceholderFooter         PlaceholderType = 15
	PlaceholderDate           PlaceholderType = 16
	PlaceholderVerticalObject PlaceholderType = 17
	PlaceholderPicture        PlaceholderType = 18
	PlaceholderSlideImage     PlaceholderType = 101
)

var placeholderTypes = map[string]PlaceholderType{
	"title":    PlaceholderTitle,
	"body":     PlaceholderBody,
	"ctrTitle": PlaceholderCenterTitle,
	"subTitle": PlaceholderSubtitle,
	"obj":      PlaceholderObject,
	"chart":    PlaceholderChart,
	"clipArt":  PlaceholderBitmap,
	"media":    PlaceholderMediaClip,
	"dgm":      PlaceholderOrgChart,
	"tbl":      PlaceholderTable,
	"sldNum":   PlaceholderSlideNumber,
	"hdr":      PlaceholderHeader,
	"ftr":      PlaceholderFooter,
	"dt":       PlaceholderDate,
	"pic":      PlaceholderPicture,
	"sldImg":   PlaceholderSlideImage,
}

// ParsePlaceholderType maps the p:ph type attribute to its code. An absent
// attribute means an object placeholder.
func ParsePlaceholderType(s string) PlaceholderType {
	if s == "" {
		return PlaceholderObject
	}
	if t, ok := placeholderTypes[s]; ok {
		return t
	}
	return PlaceholderMixed
}

// masterType is the master placeholder a layout placeholder of type t
// inherits its position from.
func (t PlaceholderType) masterType() PlaceholderType {
	switch t {
	case PlaceholderTitle, PlaceholderCenterTitle, PlaceholderVerticalTitle:
		return PlaceholderTitle
	case PlaceholderDate, PlaceholderFooter, PlaceholderSlideNumber, PlaceholderHeader:
		return t
	}
	return PlaceholderBody
}

// Placeholder describes a placeholder shape.
type Placeholder struct {
	Type PlaceholderType
	Idx  int
}

// Kind is the coarse shape classification the extractor works with.
type Kind int

const (
	KindOther Kind = iota
	KindPicture
	KindPlaceholder
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindPicture:
		return "picture"
	case KindPlaceholder:
		return "placeholder"
	case KindText:
		return "text"
	}
	return "other"
}

// Geometry is a shape's position and size in EMU.
type Geometry struct {
	Left, Top, Width, Height int64
}

// Shape is one top-level element of a slide's shape tree.
type Shape struct {
	ID   int
	Name string
	Type ShapeType
	Geometry
	// Text is nil for shapes that cannot hold text (pictures, groups,
	// graphic frames, connectors). A text-capable shape with an empty body
	// has a non-nil empty string.
	Text        *string
	Placeholder *Placeholder

	hasXfrm bool
}

// IsPlaceholder reports whether the shape fills a layout placeholder.
func (s Shape) IsPlaceholder() bool {
	return s.Placeholder != nil
}

// TrimmedText returns the shape's text with surrounding whitespace removed
// and whether that text is non-empty.
func (s Shape) TrimmedText() (string, bool) {
	if s.Text == nil {
		return "", false
	}
	t := strings.TrimSpace(*s.Text)
	return t, t != ""
}

// Kind classifies the shape into picture, placeholder, text or other.
func (s Shape) Kind() Kind {
	switch {
	case s.Type == ShapeTypePicture:
		return KindPicture
	case s.Placeholder != nil:
		return KindPlaceholder
	case s.Text != nil:
		return KindText
	}
	return KindOther
}

// newShape converts a decoded shape element.
func newShape(el *shapeElemXML) Shape {
	var shape Shape
	nv := el.nvProps()
	if nv != nil {
		shape.ID = nv.CNvPr.ID
		shape.Name = nv.CNvPr.Name
		if ph := nv.NvPr.Ph; ph != nil {
			shape.Placeholder = &Placeholder{Type: ParsePlaceholderType(ph.Type), Idx: ph.Idx}
		}
	}

	if x := el.xfrm(); x != nil {
		shape.hasXfrm = true
		if x.Off != nil {
			shape.Left, shape.Top = x.Off.X, x.Off.Y
		}
		if x.Ext != nil {
			shape.Width, shape.Height = x.Ext.Cx, x.Ext.Cy
		}
	}

	switch el.XMLName.Local {
	case "sp":
		text := ""
		if el.TxBody != nil {
			text = el.TxBody.text()
		}
		shape.Text = &text
		switch {
		case shape.Placeholder != nil:
			shape.Type = ShapeTypePlaceholder
		case el.SpPr != nil && el.SpPr.CustGeom != nil:
			shape.Type = ShapeTypeFreeform
		case nv != nil && nv.CNvSpPr != nil && isTrue(nv.CNvSpPr.TxBox):
			shape.Type = ShapeTypeTextBox
		default:
			shape.Type = ShapeTypeAutoShape
		}
	case "pic":
		shape.Type = ShapeTypePicture
		if nv != nil && nv.NvPr.VideoFile != nil {
			shape.Type = ShapeTypeMedia
		}
	case "graphicFrame":
		if el.Graphic != nil {
			switch el.Graphic.GraphicData.URI {
			case uriTable:
				shape.Type = ShapeTypeTable
			case uriChart:
				shape.Type = ShapeTypeChart
			case uriOLE:
				shape.Type = ShapeTypeEmbeddedOLE
			}
		}
	case "grpSp":
		shape.Type = ShapeTypeGroup
	case "cxnSp":
		shape.Type = ShapeTypeLine
	}
	return shape
}

func isTrue(v string) bool {
	return v == "1" || v == "true"
}
