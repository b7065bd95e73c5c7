// Package config resolves tunable pipeline settings from the environment.
// Detection and scoring thresholds are empirical defaults, not protocol
// guarantees, so every one of them can be overridden.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Defaults for the detection and scoring thresholds.
const (
	DefaultTemplateThreshold   = 0.55
	DefaultSimilarityThreshold = 0.25
	DefaultColorPivot          = 120.0
	DefaultFramesPerSecond     = 2.0

	DefaultOllamaBaseURL  = "http://localhost:11434"
	DefaultEmbedModel     = "clip-vit-base-patch32"
	DefaultNarrativeModel = "llama3.2-vision:11b"
)

// Config holds the resolved settings for one process.
type Config struct {
	TemplateThreshold   float64
	SimilarityThreshold float64
	ColorPivot          float64

	EnableEmbedFallback bool
	EnableNarrative     bool

	OllamaBaseURL  string
	EmbedModel     string
	NarrativeModel string
}

// Load reads the environment and fills in defaults.
func Load() Config {
	return Config{
		TemplateThreshold:   Float("BRANDLENS_TEMPLATE_THRESHOLD", DefaultTemplateThreshold),
		SimilarityThreshold: Float("BRANDLENS_SIMILARITY_THRESHOLD", DefaultSimilarityThreshold),
		ColorPivot:          Float("BRANDLENS_COLOR_PIVOT", DefaultColorPivot),
		EnableEmbedFallback: Bool("BRANDLENS_ENABLE_EMBED_FALLBACK", true),
		EnableNarrative:     Bool("BRANDLENS_ENABLE_NARRATIVE", true),
		OllamaBaseURL:       String("OLLAMA_HOST", DefaultOllamaBaseURL),
		EmbedModel:          String("BRANDLENS_EMBED_MODEL", DefaultEmbedModel),
		NarrativeModel:      String("BRANDLENS_NARRATIVE_MODEL", DefaultNarrativeModel),
	}
}

// String returns the value of key, or def when unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Float returns the float value of key, or def when unset or unparseable.
func Float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Bool returns the boolean value of key. Accepts 1/true/yes/on (any case);
// everything else is false. Unset keys return def.
func Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
