package analyzer

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/detector"
	"github.com/brandlens/brandlens/internal/extractor"
)

func TestPipelineFailsWhenVideoUnreadable(t *testing.T) {
	ext := extractor.New(slog.Default())
	ext.FFprobePath = "/nonexistent/ffprobe"

	p := &Pipeline{
		Logger:    slog.Default(),
		Extractor: ext,
		Detector:  detector.New(nil, nil, detector.Options{}),
		Analyzer:  NewAnalyzer(nil, nil, config.DefaultColorPivot),
	}

	_, err := p.Run(context.Background(), RunRequest{
		VideoName: "broken",
		Video:     []byte("not a video"),
		Logo:      []byte("irrelevant"),
	})
	assert.ErrorIs(t, err, extractor.ErrVideoDecode)
	assert.ErrorContains(t, err, "extract frames")
}
