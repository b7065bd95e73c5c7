// Package analyzer scores color harmony between an ad video and a brand's
// reference palette, and assembles the full per-video analysis report.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/EdlinOrg/prominentcolor"

	"github.com/brandlens/brandlens/internal/colors"
	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/imaging"
	"github.com/brandlens/brandlens/internal/models"
)

const (
	// framePaletteCap bounds how many frames feed the pooled video palette.
	framePaletteCap = 8

	// detectionPaletteCap bounds how many detection crops feed the pooled
	// logo palette.
	detectionPaletteCap = 5

	// sourcePaletteSize is the per-image palette size when pooling.
	sourcePaletteSize = 3

	// narrativeTimeout bounds the optional model call.
	narrativeTimeout = 20 * time.Second
)

// HarmonyRequest carries everything the color analysis needs. BrandLogo is
// required; Detection and ProductImage are optional.
type HarmonyRequest struct {
	Frames       []models.Frame
	Detection    *models.LogoDetectionResult
	BrandLogo    []byte
	ProductImage []byte
	Brand        models.BrandContext
}

// Analyzer computes color harmony reports.
type Analyzer struct {
	Logger    *slog.Logger
	Narrative NarrativeFunc
	Pivot     float64
}

// NewAnalyzer returns an Analyzer. narrative may be nil to skip the prose
// enrichment entirely.
func NewAnalyzer(logger *slog.Logger, narrative NarrativeFunc, pivot float64) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if pivot <= 20 {
		pivot = config.DefaultColorPivot
	}
	return &Analyzer{Logger: logger, Narrative: narrative, Pivot: pivot}
}

// AnalyzeColorHarmony extracts palettes from the brand logo, the sampled
// frames, and any detection crops, scores their perceptual alignment, and
// builds the report. Numeric results never depend on the narrative model;
// its failures degrade to a warning.
func (a *Analyzer) AnalyzeColorHarmony(ctx context.Context, req HarmonyRequest) (*models.ColorHarmonyReport, error) {
	brandImg, err := imaging.Decode(req.BrandLogo)
	if err != nil {
		return nil, fmt.Errorf("brand logo: %w", err)
	}
	brandHexes := colors.ExtractDominant(brandImg, colors.DefaultColorCount)

	report := &models.ColorHarmonyReport{
		BrandLogoColors: colors.BuildPalette(brandHexes),
	}

	frameSources := a.decodePalettes(framesToImages(req.Frames, framePaletteCap), "frame", &report.Warnings)
	report.FrameColors = colors.AggregatePalettes(frameSources)

	var logoDominants []string
	if req.Detection != nil && req.Detection.LogoFound {
		crops := detectionCrops(req.Detection, detectionPaletteCap)
		logoSources := a.decodePalettes(crops, "detection crop", &report.Warnings)
		if len(logoSources) > 0 {
			logoPalette := colors.AggregatePalettes(logoSources)
			report.LogoColors = &logoPalette
			logoDominants = logoPalette.DominantColors
		}
	}

	// alignment compares dominant colors only; secondaries are reported but
	// not scored
	brandDominants := report.BrandLogoColors.DominantColors
	frameScore := colors.Alignment(report.FrameColors.DominantColors, brandDominants, a.Pivot)
	alignment := frameScore
	logoScore := -1.0
	if len(logoDominants) > 0 {
		logoScore = colors.Alignment(logoDominants, brandDominants, a.Pivot)
		alignment = (frameScore + logoScore) / 2
	}
	report.ColorAlignmentScore = round(alignment, 3)

	overall := 0.7 * alignment
	if report.LogoColors != nil {
		overall += 0.3
	}
	report.OverallScore = round(overall, 3)

	report.Recommendations = recommendations(alignment, logoScore)

	if len(req.ProductImage) > 0 {
		if palette, perr := productPalette(req.ProductImage); perr != nil {
			a.Logger.Warn("product palette extraction failed", "error", perr)
			report.Warnings = append(report.Warnings, fmt.Sprintf("product palette unavailable: %v", perr))
		} else {
			report.ProductColors = palette
		}
	}

	report.Analysis = a.analysisText(ctx, req.Brand, report, &report.Warnings)
	return report, nil
}

// decodePalettes decodes each image and extracts its small pooled palette.
// Undecodable sources are skipped with a warning.
func (a *Analyzer) decodePalettes(images [][]byte, kind string, warnings *[]string) [][]string {
	var sources [][]string
	for i, data := range images {
		img, err := imaging.Decode(data)
		if err != nil {
			a.Logger.Warn("skipping undecodable palette source", "kind", kind, "index", i)
			*warnings = append(*warnings, fmt.Sprintf("%s %d undecodable, excluded from palette", kind, i))
			continue
		}
		hexes := colors.ExtractDominant(img, sourcePaletteSize)
		if len(hexes) > 0 {
			sources = append(sources, hexes)
		}
	}
	return sources
}

// analysisText asks the narrative model for a prose assessment, bounded by a
// timeout, and falls back to a deterministic summary on any failure.
func (a *Analyzer) analysisText(ctx context.Context, brand models.BrandContext, report *models.ColorHarmonyReport, warnings *[]string) string {
	fallback := summaryText(brand, report)
	if a.Narrative == nil {
		return fallback
	}

	nctx, cancel := context.WithTimeout(ctx, narrativeTimeout)
	defer cancel()

	prompt := narrativePrompt(brand, report)
	text, err := a.Narrative(nctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		a.Logger.Warn("narrative generation failed", "error", err)
		*warnings = append(*warnings, "narrative generation unavailable, using summary")
		return fallback
	}
	return strings.TrimSpace(text)
}

func narrativePrompt(brand models.BrandContext, report *models.ColorHarmonyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Brand: %s", brand.CompanyName)
	if brand.ProductName != "" {
		fmt.Fprintf(&b, " (%s)", brand.ProductName)
	}
	fmt.Fprintf(&b, "\nBrand palette: %s", strings.Join(paletteHexes(report.BrandLogoColors), ", "))
	fmt.Fprintf(&b, "\nVideo palette: %s", strings.Join(paletteHexes(report.FrameColors), ", "))
	if report.LogoColors != nil {
		fmt.Fprintf(&b, "\nDetected logo palette: %s", strings.Join(paletteHexes(*report.LogoColors), ", "))
	}
	fmt.Fprintf(&b, "\nColor alignment score: %.3f\nOverall score: %.3f", report.ColorAlignmentScore, report.OverallScore)
	if brand.BriefPrompt != "" {
		fmt.Fprintf(&b, "\nBrief: %s", brand.BriefPrompt)
	}
	return b.String()
}

func summaryText(brand models.BrandContext, report *models.ColorHarmonyReport) string {
	name := brand.CompanyName
	if name == "" {
		name = "the brand"
	}
	switch {
	case report.ColorAlignmentScore >= 0.7:
		return fmt.Sprintf("Video colors closely match %s's palette (alignment %.3f).", name, report.ColorAlignmentScore)
	case report.ColorAlignmentScore >= 0.5:
		return fmt.Sprintf("Video colors partially match %s's palette (alignment %.3f).", name, report.ColorAlignmentScore)
	default:
		return fmt.Sprintf("Video colors diverge from %s's palette (alignment %.3f).", name, report.ColorAlignmentScore)
	}
}

// recommendations derives actionable notes from the alignment scores.
// logoScore is negative when no detected-logo palette was available.
func recommendations(alignment, logoScore float64) []string {
	var recs []string
	switch {
	case alignment < 0.5:
		recs = append(recs, "Video colors diverge strongly from the brand palette; regrade footage or adjust set dressing toward brand colors.")
	case alignment < 0.7:
		recs = append(recs, "Video colors only partially reflect the brand palette; consider emphasizing brand colors in key scenes.")
	}
	if logoScore >= 0 && logoScore < 0.6 {
		recs = append(recs, "The logo as rendered in the video drifts from the reference logo colors; check for filters or overlays applied on top of it.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Color usage is well-aligned with the brand palette.")
	}
	return recs
}

// productPalette pulls an accent swatch from a product still. This is a
// supplemental palette and never feeds the alignment score.
func productPalette(data []byte) (*models.ColorPalette, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	items, err := prominentcolor.Kmeans(imaging.ToNRGBA(img))
	if err != nil {
		return nil, fmt.Errorf("prominent color extraction: %w", err)
	}
	hexes := make([]string, 0, len(items))
	for _, item := range items {
		hexes = append(hexes, "#"+item.AsString())
	}
	p := colors.BuildPalette(hexes)
	return &p, nil
}

func framesToImages(frames []models.Frame, limit int) [][]byte {
	if len(frames) > limit {
		frames = frames[:limit]
	}
	out := make([][]byte, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Image)
	}
	return out
}

func detectionCrops(det *models.LogoDetectionResult, limit int) [][]byte {
	var out [][]byte
	for _, d := range det.Detections {
		if len(d.CropImage) == 0 {
			continue
		}
		out = append(out, d.CropImage)
		if len(out) == limit {
			break
		}
	}
	return out
}

func paletteHexes(p models.ColorPalette) []string {
	return append(append([]string(nil), p.DominantColors...), p.SecondaryColors...)
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
