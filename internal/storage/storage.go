// Package storage persists finished video analyses. The default store batches
// reports into a JSON file; the Postgres store archives them with detection
// embeddings for similarity search.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/brandlens/brandlens/internal/models"
)

const batchSize = 10 // reports buffered before an automatic flush

// Storage is where finished analyses go.
type Storage interface {
	// SaveReport records one video analysis.
	SaveReport(ctx context.Context, report models.VideoAnalysis) error

	// Flush ensures all pending reports are saved.
	Flush() error
}

const reportsFileName = "analysis_reports.json"

// reportStore batches reports and writes them to a single JSON file under
// the output directory.
type reportStore struct {
	mu        sync.Mutex
	pending   []models.VideoAnalysis
	outputDir string
}

// NewReportStore returns a file-backed Storage rooted at outputDir.
func NewReportStore(outputDir string) Storage {
	return &reportStore{outputDir: outputDir}
}

// SaveReport buffers the report and flushes when the batch is full.
func (s *reportStore) SaveReport(ctx context.Context, report models.VideoAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, report)
	if len(s.pending) >= batchSize {
		return s.flush()
	}
	return nil
}

// Flush writes all pending reports to disk.
func (s *reportStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *reportStore) flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	path := filepath.Join(s.outputDir, reportsFileName)

	var existing []models.VideoAnalysis
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("unmarshal existing reports: %w", err)
		}
	}
	all := append(existing, s.pending...)

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create reports file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(all); err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}

	s.pending = nil
	return nil
}
