package detector

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"
)

// Embedder produces a vector embedding for an encoded image. Implementations
// must be safe for concurrent use.
type Embedder interface {
	EmbedImage(ctx context.Context, img []byte) ([]float32, error)
}

// OllamaEmbedder generates image embeddings through a local ollama server.
// Results are cached by content hash, so re-embedding the same logo across
// videos is free.
type OllamaEmbedder struct {
	BaseURL string
	Model   string
	Client  *http.Client

	cache sync.Map
}

// NewOllamaEmbedder returns an embedder backed by the given ollama endpoint.
func NewOllamaEmbedder(baseURL, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

var (
	sharedOnce     sync.Once
	sharedEmbedder Embedder
)

// SharedEmbedder returns the process-wide embedder, creating it on first use.
// Later calls ignore the arguments and return the same instance.
func SharedEmbedder(baseURL, model string) Embedder {
	sharedOnce.Do(func() {
		sharedEmbedder = NewOllamaEmbedder(baseURL, model)
	})
	return sharedEmbedder
}

type embedRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt,omitempty"`
	Images []string `json:"images,omitempty"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// EmbedImage returns a unit-normalized embedding for the image bytes.
func (e *OllamaEmbedder) EmbedImage(ctx context.Context, img []byte) ([]float32, error) {
	key := sha256.Sum256(img)
	if cached, ok := e.cache.Load(key); ok {
		if vec, valid := cached.([]float32); valid {
			return vec, nil
		}
	}

	body, err := json.Marshal(embedRequest{
		Model:  e.Model,
		Images: []string{base64.StdEncoding.EncodeToString(img)},
	})
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding request: status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding from model %s", e.Model)
	}

	vec := normalize(parsed.Embedding)
	e.cache.Store(key, vec)
	return vec, nil
}

// normalize converts to float32 and scales to unit length.
func normalize(in []float64) []float32 {
	var normSq float64
	for _, v := range in {
		normSq += v * v
	}
	norm := math.Sqrt(normSq)
	out := make([]float32, len(in))
	if norm == 0 {
		return out
	}
	for i, v := range in {
		out[i] = float32(v / norm)
	}
	return out
}

// CosineSimilarity returns the cosine of the angle between two vectors, or 0
// when either is empty, zero, or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
