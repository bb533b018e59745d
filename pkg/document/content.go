package document

// Content is the per-document content descriptor blob. Values mirror
// what the official apps write for a freshly imported file; page data is
// filled in device-side after the first open.
type Content struct {
	ExtraMetadata  map[string]string  `json:"extraMetadata"`
	FileType       string             `json:"fileType"`
	LastOpenedPage int                `json:"lastOpenedPage"`
	LineHeight     int                `json:"lineHeight"`
	Margins        int                `json:"margins"`
	Orientation    string             `json:"orientation"`
	PageCount      int                `json:"pageCount"`
	Pages          []string           `json:"pages"`
	Tags           []string           `json:"tags"`
	TextScale      float64            `json:"textScale"`
	Transform      map[string]float64 `json:"transform"`
}

// NewContent returns a content descriptor for a new document of the
// given file type ("pdf" or "epub").
func NewContent(fileType string) Content {
	return Content{
		ExtraMetadata:  defaultExtraMetadata(),
		FileType:       fileType,
		LastOpenedPage: 0,
		LineHeight:     -1,
		Margins:        180,
		Orientation:    "portrait",
		PageCount:      0,
		Pages:          []string{},
		Tags:           []string{},
		TextScale:      1.0,
		Transform:      identityTransform(),
	}
}

func defaultExtraMetadata() map[string]string {
	return map[string]string{
		"LastBrushColor":           "Black",
		"LastBrushThicknessScale":  "2",
		"LastColor":                "Black",
		"LastEraserThicknessScale": "2",
		"LastEraserTool":           "Eraser",
		"LastPen":                  "Ballpoint",
		"LastPenColor":             "Black",
		"LastPenThicknessScale":    "2",
		"LastPencil":               "SharpPencil",
		"LastPencilColor":          "Black",
		"LastPencilThicknessScale": "2",
		"LastTool":                 "SharpPencil",
		"ThicknessScale":           "2",
		"LastFinelinerv2Size":      "1",
	}
}

func identityTransform() map[string]float64 {
	return map[string]float64{
		"m11": 1, "m12": 0, "m13": 0,
		"m21": 0, "m22": 1, "m23": 0,
		"m31": 0, "m32": 0, "m33": 1,
	}
}
