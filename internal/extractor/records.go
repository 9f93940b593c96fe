package extractor

// Report is the full extraction result. Field order is the JSON key order.
type Report struct {
	BasicInfo   BasicInfo     `json:"basic_info"`
	Titles      []SlideTitle  `json:"titles"`
	TextContent TextContent   `json:"text_content"`
	ImagesInfo  []SlideImages `json:"images_info"`
	Notes       []SlideNotes  `json:"notes"`
	LayoutInfo  []SlideLayout `json:"layout_info"`
}

type BasicInfo struct {
	FilePath        string     `json:"file_path"`
	TotalSlides     int        `json:"total_slides"`
	SlideDimensions Dimensions `json:"slide_dimensions"`
}

// Dimensions are in EMU (914400 per inch).
type Dimensions struct {
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}

type SlideTitle struct {
	SlideNumber int    `json:"slide_number"`
	Title       string `json:"title"`
}

type TextContent struct {
	Slides          []SlideText `json:"slides"`
	AllTextCombined []string    `json:"all_text_combined"`
}

type SlideText struct {
	SlideNumber  int      `json:"slide_number"`
	TextElements []string `json:"text_elements"`
	CombinedText string   `json:"combined_text"`
}

type SlideImages struct {
	SlideNumber int         `json:"slide_number"`
	Images      []ImageInfo `json:"images"`
	ImageCount  int         `json:"image_count"`
}

type ImageInfo struct {
	ShapeName string `json:"shape_name"`
	Width     int64  `json:"width"`
	Height    int64  `json:"height"`
	Left      int64  `json:"left"`
	Top       int64  `json:"top"`
}

type SlideNotes struct {
	SlideNumber int    `json:"slide_number"`
	Notes       string `json:"notes"`
}

type SlideLayout struct {
	SlideNumber int         `json:"slide_number"`
	LayoutName  string      `json:"layout_name"`
	ShapeCount  int         `json:"shape_count"`
	Shapes      []ShapeInfo `json:"shapes"`
}

type ShapeInfo struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	HasText       bool   `json:"has_text"`
	IsPlaceholder bool   `json:"is_placeholder"`
}
