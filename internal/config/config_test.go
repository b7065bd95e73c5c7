package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.InDelta(t, DefaultTemplateThreshold, cfg.TemplateThreshold, 1e-9)
	assert.InDelta(t, DefaultSimilarityThreshold, cfg.SimilarityThreshold, 1e-9)
	assert.InDelta(t, DefaultColorPivot, cfg.ColorPivot, 1e-9)
	assert.True(t, cfg.EnableEmbedFallback)
	assert.Equal(t, DefaultEmbedModel, cfg.EmbedModel)
}

func TestFloatOverride(t *testing.T) {
	t.Setenv("BRANDLENS_TEMPLATE_THRESHOLD", "0.72")
	cfg := Load()
	assert.InDelta(t, 0.72, cfg.TemplateThreshold, 1e-9)

	t.Setenv("BRANDLENS_TEMPLATE_THRESHOLD", "not a number")
	cfg = Load()
	assert.InDelta(t, DefaultTemplateThreshold, cfg.TemplateThreshold, 1e-9)
}

func TestBool(t *testing.T) {
	t.Setenv("BRANDLENS_TEST_FLAG", "YES")
	assert.True(t, Bool("BRANDLENS_TEST_FLAG", false))

	t.Setenv("BRANDLENS_TEST_FLAG", "off")
	assert.False(t, Bool("BRANDLENS_TEST_FLAG", true))

	t.Setenv("BRANDLENS_TEST_FLAG", "")
	assert.True(t, Bool("BRANDLENS_TEST_FLAG", true))
}

func TestString(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	cfg := Load()
	assert.Equal(t, "http://gpu-box:11434", cfg.OllamaBaseURL)
}
