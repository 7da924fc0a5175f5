package model

// SegmentResult 分割结果
type SegmentResult struct {
	MD5         string  `json:"md5"`
	Provider    string  `json:"provider"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Points      []Point `json:"points"`
	BoundingBox BBox    `json:"bounding_box"`
	Coverage    float64 `json:"coverage"`
	DrawnMask   *string `json:"drawn_mask"`   // base64 PNG
	RefinedMask *string `json:"refined_mask"` // base64 PNG
	Result      *string `json:"result"`       // base64 PNG
	Timestamp   int64   `json:"timestamp"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BBox 边界框
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SegmentResponse is the four-tuple for the presentation layer: three images
// in Data plus the status message.
type SegmentResponse struct {
	Success  bool           `json:"success"`
	Severity string         `json:"severity"`
	Message  string         `json:"message"`
	Markdown string         `json:"markdown"`
	Data     *SegmentResult `json:"data"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
