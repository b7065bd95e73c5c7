package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"log/slog"

	"github.com/lmittmann/tint"

	"github.com/brandlens/brandlens/internal/analyzer"
	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/detector"
	"github.com/brandlens/brandlens/internal/extractor"
	"github.com/brandlens/brandlens/internal/models"
	"github.com/brandlens/brandlens/internal/storage"
)

func main() {
	ctx := context.Background()

	// Configure logger
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "15:04:05",
		}),
	)

	cfg := config.Load()

	// Parse command line arguments
	videoPath := ""
	logoPath := ""
	productPath := ""
	outputDir := "analysis_output" // default value
	brandName := ""
	fps := config.DefaultFramesPerSecond

	for i := 1; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--video":
			if i+1 < len(os.Args) {
				videoPath = os.Args[i+1]
				i++
			}
		case "--logo":
			if i+1 < len(os.Args) {
				logoPath = os.Args[i+1]
				i++
			}
		case "--product":
			if i+1 < len(os.Args) {
				productPath = os.Args[i+1]
				i++
			}
		case "--output":
			if i+1 < len(os.Args) {
				outputDir = os.Args[i+1]
				i++
			}
		case "--brand":
			if i+1 < len(os.Args) {
				brandName = os.Args[i+1]
				i++
			}
		case "--fps":
			if i+1 < len(os.Args) {
				if v, err := strconv.ParseFloat(os.Args[i+1], 64); err == nil && v > 0 {
					fps = v
				}
				i++
			}
		}
	}

	if videoPath == "" || logoPath == "" {
		fmt.Println("Usage: brandlens --video path/to/ad.mp4 --logo path/to/logo.png [--brand name] [--product path/to/product.jpg] [--output dir] [--fps rate]")
		os.Exit(1)
	}

	videoName := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	video, err := os.ReadFile(videoPath)
	if err != nil {
		log.Fatalf("Failed to read video: %v", err)
	}
	logo, err := os.ReadFile(logoPath)
	if err != nil {
		log.Fatalf("Failed to read logo: %v", err)
	}
	var product []byte
	if productPath != "" {
		if product, err = os.ReadFile(productPath); err != nil {
			log.Fatalf("Failed to read product image: %v", err)
		}
	}

	// Embedder for the similarity fallback and the detection archive
	var embedder detector.Embedder
	if cfg.EnableEmbedFallback {
		embedder = detector.SharedEmbedder(cfg.OllamaBaseURL, cfg.EmbedModel)
	}

	// Narrative agent is optional; the numeric pipeline runs without it
	var narrative analyzer.NarrativeFunc
	if cfg.EnableNarrative {
		narrative, err = analyzer.NewNarrativeAgent(ctx, logger, cfg.OllamaBaseURL, cfg.NarrativeModel)
		if err != nil {
			logger.Warn("narrative agent unavailable", "error", err)
			narrative = nil
		}
	}

	store := newStore(ctx, logger, outputDir, embedder)

	pipeline := &analyzer.Pipeline{
		Logger:    logger,
		Extractor: extractor.New(logger),
		Detector:  detector.New(logger, embedder, detector.OptionsFromConfig(cfg)),
		Analyzer:  analyzer.NewAnalyzer(logger, narrative, cfg.ColorPivot),
		Store:     store,
	}

	fmt.Printf("Starting brand analysis of '%s'...\n", videoName)
	analysis, err := pipeline.Run(ctx, analyzer.RunRequest{
		VideoName:       videoName,
		Video:           video,
		Logo:            logo,
		ProductImage:    product,
		Brand:           models.BrandContext{CompanyName: brandName},
		FramesPerSecond: fps,
		PreferFallback:  cfg.EnableEmbedFallback,
	})
	if err != nil {
		log.Printf("Error analyzing video: %v", err)
		os.Exit(1)
	}

	if err := store.Flush(); err != nil {
		log.Printf("Error saving reports: %v", err)
		os.Exit(1)
	}

	printSummary(analysis)
}

// newStore prefers the Postgres archive when connection details are present
// and falls back to the JSON report file otherwise.
func newStore(ctx context.Context, logger *slog.Logger, outputDir string, embedder detector.Embedder) storage.Storage {
	host := config.String("BRANDLENS_PG_HOST", "")
	if host == "" {
		return storage.NewReportStore(outputDir)
	}

	pgConfig := storage.PostgresConfig{
		Host:     host,
		Port:     config.String("BRANDLENS_PG_PORT", "5432"),
		User:     config.String("BRANDLENS_PG_USER", "brandlens"),
		Password: config.String("BRANDLENS_PG_PASSWORD", ""),
		DBName:   config.String("BRANDLENS_PG_DATABASE", "brandlens"),
	}
	if err := storage.InitSchema(ctx, pgConfig); err != nil {
		logger.Warn("postgres schema init failed, using file store", "error", err)
		return storage.NewReportStore(outputDir)
	}
	pg, err := storage.NewPostgresStorage(ctx, pgConfig, logger)
	if err != nil {
		logger.Warn("postgres unavailable, using file store", "error", err)
		return storage.NewReportStore(outputDir)
	}
	if embedder != nil {
		pg.Embed = embedder.EmbedImage
	}
	return pg
}

func printSummary(analysis *models.VideoAnalysis) {
	fmt.Printf("Analysis of '%s' complete: %d frames sampled over %.1fs\n",
		analysis.VideoName, analysis.FramesExtracted, analysis.VideoDuration)
	if d := analysis.Detection; d != nil {
		if d.LogoFound {
			fmt.Printf("Logo found via %s matching (%d detections, best confidence %.3f)\n",
				d.MethodUsed, len(d.Detections), d.PrimaryDetection.Confidence)
		} else {
			fmt.Println("Logo not found in sampled frames")
		}
	}
	if h := analysis.Harmony; h != nil {
		fmt.Printf("Color alignment %.3f, overall score %.3f\n", h.ColorAlignmentScore, h.OverallScore)
		fmt.Println(h.Analysis)
		for _, rec := range h.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
	for _, w := range analysis.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
