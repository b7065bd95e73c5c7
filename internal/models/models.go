package models

// BrandContext carries brand metadata used for logging and narrative prompts.
type BrandContext struct {
	CompanyName string `json:"companyName"`
	ProductName string `json:"productName"`
	BriefPrompt string `json:"briefPrompt,omitempty"`
}

// Frame is a single sampled video frame. Image holds the JPEG-encoded pixels;
// frames are immutable once produced by the extractor.
type Frame struct {
	FrameNumber int     `json:"frameNumber"`
	Timestamp   float64 `json:"timestamp"`
	Image       []byte  `json:"image,omitempty"`
}

// FrameExtractionResult is the output of sampling a video at a target rate.
type FrameExtractionResult struct {
	Frames               []Frame  `json:"frames"`
	TotalFramesExtracted int      `json:"totalFramesExtracted"`
	TotalFramesRead      int      `json:"totalFramesRead"`
	VideoDuration        float64  `json:"videoDuration"`
	VideoFPS             float64  `json:"videoFps"`
	ExtractionRate       float64  `json:"extractionRate"`
	Warnings             []string `json:"warnings,omitempty"`
}

// BoundingBox locates a detection within a frame. All fields are fractions of
// the frame dimensions and must lie in [0,1].
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether every field lies in [0,1].
func (b BoundingBox) Valid() bool {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Detection methods.
const (
	MethodTemplate = "template"
	MethodClip     = "clip"
	MethodNone     = "none"
)

// DetectedLogo is a single logo sighting in a frame. BoundingBox is nil for
// similarity-only detections, whose crop is the entire frame.
type DetectedLogo struct {
	FrameNumber int          `json:"frameNumber"`
	Timestamp   float64      `json:"timestamp"`
	Method      string       `json:"method"`
	Confidence  float64      `json:"confidence"`
	BoundingBox *BoundingBox `json:"boundingBox,omitempty"`
	CropImage   []byte       `json:"cropImage,omitempty"`
	Notes       string       `json:"notes,omitempty"`
}

// LogoDetectionResult is the ranked outcome of the detection pipeline.
// Detections are sorted descending by confidence.
type LogoDetectionResult struct {
	LogoFound        bool           `json:"logoFound"`
	Detections       []DetectedLogo `json:"detections"`
	PrimaryDetection *DetectedLogo  `json:"primaryDetection,omitempty"`
	MethodUsed       string         `json:"methodUsed"`
	Warnings         []string       `json:"warnings,omitempty"`
	Notes            string         `json:"notes,omitempty"`
}

// ColorPalette holds the dominant colors of an image or a pooled set of
// images. Colors are uppercase #RRGGBB strings, most frequent first.
type ColorPalette struct {
	DominantColors  []string `json:"dominantColors"`
	SecondaryColors []string `json:"secondaryColors,omitempty"`
	ColorCount      int      `json:"colorCount"`
}

// ColorHarmonyReport compares video and detected-logo palettes against the
// brand reference palette.
type ColorHarmonyReport struct {
	OverallScore        float64       `json:"overallScore"`
	LogoColors          *ColorPalette `json:"logoColors,omitempty"`
	FrameColors         ColorPalette  `json:"frameColors"`
	BrandLogoColors     ColorPalette  `json:"brandLogoColors"`
	ProductColors       *ColorPalette `json:"productColors,omitempty"`
	ColorAlignmentScore float64       `json:"colorAlignmentScore"`
	Analysis            string        `json:"analysis"`
	Recommendations     []string      `json:"recommendations,omitempty"`
	Warnings            []string      `json:"warnings,omitempty"`
}

// VideoAnalysis is the archived record for one analyzed video.
type VideoAnalysis struct {
	VideoName       string               `json:"videoName"`
	Brand           BrandContext         `json:"brand"`
	FramesExtracted int                  `json:"framesExtracted"`
	VideoDuration   float64              `json:"videoDuration"`
	VideoFPS        float64              `json:"videoFps"`
	ExtractionRate  float64              `json:"extractionRate"`
	Detection       *LogoDetectionResult `json:"detection,omitempty"`
	Harmony         *ColorHarmonyReport  `json:"harmony,omitempty"`
	Warnings        []string             `json:"warnings,omitempty"`
}

// DetectionSearchResult is a similarity hit from the detection archive.
type DetectionSearchResult struct {
	VideoName   string  `json:"videoName"`
	FrameNumber int     `json:"frameNumber"`
	Method      string  `json:"method"`
	Confidence  float64 `json:"confidence"`
	Similarity  float64 `json:"similarity"`
}
