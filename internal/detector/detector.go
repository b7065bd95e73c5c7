// Package detector finds a brand logo inside sampled video frames. Template
// matching runs first; when it finds nothing, an optional embedding-similarity
// pass catches stylized or partially occluded logos.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/imaging"
	"github.com/brandlens/brandlens/internal/models"
)

// ErrNoValidFrames marks a request where not a single frame could be decoded.
var ErrNoValidFrames = errors.New("no valid frames to scan")

// maxSimilarityDetections caps how many embedding-similarity hits are kept.
const maxSimilarityDetections = 3

// Options tunes the detection pipeline.
type Options struct {
	TemplateThreshold   float64
	SimilarityThreshold float64
	EnableEmbedFallback bool
	Workers             int
}

// OptionsFromConfig maps process configuration onto detection options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		TemplateThreshold:   cfg.TemplateThreshold,
		SimilarityThreshold: cfg.SimilarityThreshold,
		EnableEmbedFallback: cfg.EnableEmbedFallback,
	}
}

// DetectRequest carries the frames to scan and the reference logo image.
// PreferFallback opts this request into the embedding-similarity stage; the
// stage runs only when the process configuration also enables it.
type DetectRequest struct {
	Frames         []models.Frame
	Logo           []byte
	PreferFallback bool
}

// Detector scans frames for a logo.
type Detector struct {
	Logger   *slog.Logger
	Embedder Embedder
	Opts     Options
}

// New returns a Detector with the given options. The embedder may be nil, in
// which case the similarity fallback is skipped with a warning.
func New(logger *slog.Logger, embedder Embedder, opts Options) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TemplateThreshold <= 0 {
		opts.TemplateThreshold = config.DefaultTemplateThreshold
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = config.DefaultSimilarityThreshold
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Detector{Logger: logger, Embedder: embedder, Opts: opts}
}

// Detect runs template matching across every frame and falls back to
// embedding similarity when the request opts in, the configuration enables
// it, and no template hit clears the threshold.
// Individual undecodable frames are skipped with a warning; when every frame
// is undecodable the request fails with ErrNoValidFrames.
func (d *Detector) Detect(ctx context.Context, req DetectRequest) (*models.LogoDetectionResult, error) {
	logoImg, err := imaging.Decode(req.Logo)
	if err != nil {
		return nil, fmt.Errorf("logo image: %w", err)
	}
	tmpl := imaging.Grayscale(logoImg)

	result := &models.LogoDetectionResult{MethodUsed: models.MethodNone}

	decoded, warnings := d.decodeFrames(req.Frames)
	result.Warnings = warnings
	if len(decoded) == 0 {
		return nil, fmt.Errorf("%d frames, none decodable: %w", len(req.Frames), ErrNoValidFrames)
	}

	detections := d.templatePass(ctx, decoded, tmpl)
	if len(detections) > 0 {
		sortDetections(detections)
		result.LogoFound = true
		result.Detections = detections
		result.PrimaryDetection = &detections[0]
		result.MethodUsed = models.MethodTemplate
		return result, nil
	}

	if req.PreferFallback && d.Opts.EnableEmbedFallback {
		clipDetections, warn := d.similarityPass(ctx, req.Logo, decoded)
		if warn != "" {
			result.Warnings = append(result.Warnings, warn)
		}
		if len(clipDetections) > 0 {
			sortDetections(clipDetections)
			result.LogoFound = true
			result.Detections = clipDetections
			result.PrimaryDetection = &clipDetections[0]
			result.MethodUsed = models.MethodClip
			return result, nil
		}
	}

	result.Notes = "logo not found by template matching or embedding similarity"
	return result, nil
}

// decodedFrame pairs a frame with its pixel buffer.
type decodedFrame struct {
	models.Frame
	img  image.Image
	gray *image.Gray
}

func (d *Detector) decodeFrames(frames []models.Frame) ([]decodedFrame, []string) {
	var out []decodedFrame
	var warnings []string
	for _, f := range frames {
		img, err := imaging.Decode(f.Image)
		if err != nil {
			d.Logger.Warn("skipping undecodable frame", "frame", f.FrameNumber, "error", err)
			warnings = append(warnings, fmt.Sprintf("frame %d undecodable, skipped", f.FrameNumber))
			continue
		}
		out = append(out, decodedFrame{Frame: f, img: img, gray: imaging.Grayscale(img)})
	}
	return out, warnings
}

// templatePass fans frames out to a worker pool and collects every match at
// or above the template threshold.
func (d *Detector) templatePass(ctx context.Context, frames []decodedFrame, tmpl *image.Gray) []models.DetectedLogo {
	jobs := make(chan decodedFrame)
	var mu sync.Mutex
	var detections []models.DetectedLogo

	var wg sync.WaitGroup
	for w := 0; w < d.Opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				if ctx.Err() != nil {
					continue
				}
				m := bestScaledMatch(f.gray, tmpl)
				if m.Score < d.Opts.TemplateThreshold {
					continue
				}
				det := d.buildDetection(f, m)
				mu.Lock()
				detections = append(detections, det)
				mu.Unlock()
			}
		}()
	}
	for _, f := range frames {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
	return detections
}

// buildDetection converts a template match into a detection with a clipped,
// normalized bounding box and a JPEG crop of the matched region.
func (d *Detector) buildDetection(f decodedFrame, m match) models.DetectedLogo {
	fw := f.gray.Bounds().Dx()
	fh := f.gray.Bounds().Dy()

	x2 := m.X + m.W
	if x2 > fw-1 {
		x2 = fw - 1
	}
	y2 := m.Y + m.H
	if y2 > fh-1 {
		y2 = fh - 1
	}
	w := x2 - m.X
	if w < 1 {
		w = 1
	}
	h := y2 - m.Y
	if h < 1 {
		h = 1
	}

	box := &models.BoundingBox{
		X:      float64(m.X) / float64(fw),
		Y:      float64(m.Y) / float64(fh),
		Width:  float64(w) / float64(fw),
		Height: float64(h) / float64(fh),
	}

	det := models.DetectedLogo{
		FrameNumber: f.FrameNumber,
		Timestamp:   round(f.Timestamp, 2),
		Method:      models.MethodTemplate,
		Confidence:  round(m.Score, 3),
		BoundingBox: box,
		Notes:       fmt.Sprintf("matched at scale %.1f", m.Scale),
	}

	crop := imaging.Crop(f.img, image.Rect(m.X, m.Y, m.X+w, m.Y+h))
	if jpg, err := imaging.EncodeJPEG(crop); err == nil {
		det.CropImage = jpg
	} else {
		d.Logger.Warn("crop encode failed", "frame", f.FrameNumber, "error", err)
	}
	return det
}

// similarityPass embeds the logo and each frame and keeps the top frames
// whose cosine similarity clears the threshold. Embedding failures disable
// the pass with a warning rather than failing the request.
func (d *Detector) similarityPass(ctx context.Context, logo []byte, frames []decodedFrame) ([]models.DetectedLogo, string) {
	if d.Embedder == nil {
		return nil, "embedding fallback unavailable: no embedder configured"
	}

	logoVec, err := d.Embedder.EmbedImage(ctx, logo)
	if err != nil {
		d.Logger.Warn("embedding fallback unavailable", "error", err)
		return nil, fmt.Sprintf("embedding fallback unavailable: %v", err)
	}

	type scored struct {
		frame decodedFrame
		sim   float64
	}
	var hits []scored
	for _, f := range frames {
		if ctx.Err() != nil {
			break
		}
		vec, err := d.Embedder.EmbedImage(ctx, f.Image)
		if err != nil {
			d.Logger.Warn("frame embedding failed", "frame", f.FrameNumber, "error", err)
			continue
		}
		if sim := CosineSimilarity(logoVec, vec); sim >= d.Opts.SimilarityThreshold {
			hits = append(hits, scored{frame: f, sim: sim})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].sim > hits[j].sim })
	if len(hits) > maxSimilarityDetections {
		hits = hits[:maxSimilarityDetections]
	}

	detections := make([]models.DetectedLogo, 0, len(hits))
	for _, h := range hits {
		detections = append(detections, models.DetectedLogo{
			FrameNumber: h.frame.FrameNumber,
			Timestamp:   round(h.frame.Timestamp, 2),
			Method:      models.MethodClip,
			Confidence:  round(h.sim, 3),
			CropImage:   h.frame.Image,
			Notes:       "whole-frame similarity match, no localization",
		})
	}
	return detections, ""
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// sortDetections orders by confidence descending, earlier frames first on
// ties.
func sortDetections(dets []models.DetectedLogo) {
	sort.SliceStable(dets, func(i, j int) bool {
		if dets[i].Confidence != dets[j].Confidence {
			return dets[i].Confidence > dets[j].Confidence
		}
		return dets[i].FrameNumber < dets[j].FrameNumber
	})
}
