package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brandlens/brandlens/internal/detector"
	"github.com/brandlens/brandlens/internal/extractor"
	"github.com/brandlens/brandlens/internal/models"
	"github.com/brandlens/brandlens/internal/storage"
)

// Pipeline runs the full per-video analysis: sample frames, find the logo,
// score color harmony, persist the report.
type Pipeline struct {
	Logger    *slog.Logger
	Extractor *extractor.Extractor
	Detector  *detector.Detector
	Analyzer  *Analyzer
	Store     storage.Storage
}

// RunRequest is one video plus its brand reference material. Logo is the
// reference logo image and is required; ProductImage is optional.
type RunRequest struct {
	VideoName       string
	Video           []byte
	Logo            []byte
	ProductImage    []byte
	Brand           models.BrandContext
	FramesPerSecond float64
	PreferFallback  bool
}

// Run executes the pipeline. Detection and harmony failures after a
// successful extraction degrade to warnings so a partial report still comes
// back; extraction failure fails the run.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*models.VideoAnalysis, error) {
	p.Logger.Info("analyzing video", "video", req.VideoName, "brand", req.Brand.CompanyName)

	extraction, err := p.Extractor.Extract(ctx, req.Video, req.FramesPerSecond)
	if err != nil {
		return nil, fmt.Errorf("extract frames: %w", err)
	}
	p.Logger.Info("frames extracted",
		"video", req.VideoName,
		"frames", extraction.TotalFramesExtracted,
		"duration", extraction.VideoDuration)

	analysis := &models.VideoAnalysis{
		VideoName:       req.VideoName,
		Brand:           req.Brand,
		FramesExtracted: extraction.TotalFramesExtracted,
		VideoDuration:   extraction.VideoDuration,
		VideoFPS:        extraction.VideoFPS,
		ExtractionRate:  extraction.ExtractionRate,
		Warnings:        extraction.Warnings,
	}

	detection, err := p.Detector.Detect(ctx, detector.DetectRequest{
		Frames:         extraction.Frames,
		Logo:           req.Logo,
		PreferFallback: req.PreferFallback,
	})
	if err != nil {
		p.Logger.Warn("logo detection failed", "video", req.VideoName, "error", err)
		analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("logo detection failed: %v", err))
	} else {
		analysis.Detection = detection
		p.Logger.Info("logo detection finished",
			"video", req.VideoName,
			"found", detection.LogoFound,
			"method", detection.MethodUsed,
			"detections", len(detection.Detections))
	}

	harmony, err := p.Analyzer.AnalyzeColorHarmony(ctx, HarmonyRequest{
		Frames:       extraction.Frames,
		Detection:    analysis.Detection,
		BrandLogo:    req.Logo,
		ProductImage: req.ProductImage,
		Brand:        req.Brand,
	})
	if err != nil {
		p.Logger.Warn("color harmony analysis failed", "video", req.VideoName, "error", err)
		analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("color harmony analysis failed: %v", err))
	} else {
		analysis.Harmony = harmony
		p.Logger.Info("color harmony scored",
			"video", req.VideoName,
			"alignment", harmony.ColorAlignmentScore,
			"overall", harmony.OverallScore)
	}

	if p.Store != nil {
		if err := p.Store.SaveReport(ctx, *analysis); err != nil {
			p.Logger.Warn("report persistence failed", "video", req.VideoName, "error", err)
			analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("report not persisted: %v", err))
		}
	}
	return analysis, nil
}
