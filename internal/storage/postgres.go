package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/brandlens/brandlens/internal/models"
)

// embeddingDim matches the CLIP ViT-B/32 output size.
const embeddingDim = 512

// PostgresConfig holds connection details for PostgreSQL.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func (c PostgresConfig) connString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// EmbedFunc turns an encoded image into a vector. Wired from the detector's
// embedder so archived detections are searchable by similarity.
type EmbedFunc func(ctx context.Context, img []byte) ([]float32, error)

// PostgresStorage archives analyses and detection embeddings in PostgreSQL.
type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	// Embed may be nil; detections are then archived without embeddings and
	// excluded from similarity search.
	Embed EmbedFunc
}

// NewPostgresStorage connects to PostgreSQL and verifies the connection.
func NewPostgresStorage(ctx context.Context, config PostgresConfig, logger *slog.Logger) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, config.connString())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

// Close closes the database connection.
func (s *PostgresStorage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// SaveReport archives the full report as JSON and each detection as a row,
// embedding the crops when an embedder is wired. Embedding failures skip the
// vector, not the row.
func (s *PostgresStorage) SaveReport(ctx context.Context, report models.VideoAnalysis) error {
	videoID, err := s.getOrCreateVideo(ctx, report.VideoName)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	var overall float64
	if report.Harmony != nil {
		overall = report.Harmony.OverallScore
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (video_id, report, overall_score, created_at)
		 VALUES ($1, $2, $3, $4)`,
		videoID, payload, overall, time.Now())
	if err != nil {
		return fmt.Errorf("store report: %w", err)
	}

	if report.Detection == nil {
		return nil
	}
	for _, det := range report.Detection.Detections {
		if err := s.saveDetection(ctx, videoID, det); err != nil {
			return err
		}
	}
	return nil
}

// Flush implements Storage; Postgres writes are immediate.
func (s *PostgresStorage) Flush() error {
	return nil
}

func (s *PostgresStorage) saveDetection(ctx context.Context, videoID int, det models.DetectedLogo) error {
	var vec *pgvector.Vector
	if s.Embed != nil && len(det.CropImage) > 0 {
		embedding, err := s.Embed(ctx, det.CropImage)
		if err != nil {
			s.logger.Warn("detection embedding failed, archiving without vector",
				"frame", det.FrameNumber, "error", err)
		} else if len(embedding) == embeddingDim {
			v := pgvector.NewVector(embedding)
			vec = &v
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO detections
		 (video_id, frame_number, method, confidence, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		videoID, det.FrameNumber, det.Method, det.Confidence, vec, time.Now())
	if err != nil {
		return fmt.Errorf("store detection: %w", err)
	}
	return nil
}

func (s *PostgresStorage) getOrCreateVideo(ctx context.Context, videoName string) (int, error) {
	var id int
	err := s.pool.QueryRow(ctx,
		"SELECT id FROM videos WHERE name = $1", videoName).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("look up video: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		"INSERT INTO videos (name, created_at) VALUES ($1, $2) RETURNING id",
		videoName, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create video entry: %w", err)
	}
	return id, nil
}

// SearchSimilarDetections finds archived detections visually similar to the
// query image, across all videos.
func (s *PostgresStorage) SearchSimilarDetections(ctx context.Context, img []byte, limit int) ([]models.DetectionSearchResult, error) {
	if s.Embed == nil {
		return nil, fmt.Errorf("no embedder wired for similarity search")
	}
	queryVec, err := s.Embed(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("embed query image: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT v.name, d.frame_number, d.method, d.confidence,
		        1 - (d.embedding <=> $1) AS similarity
		 FROM detections d
		 JOIN videos v ON d.video_id = v.id
		 WHERE d.embedding IS NOT NULL
		 ORDER BY d.embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, fmt.Errorf("search detections: %w", err)
	}
	defer rows.Close()

	var results []models.DetectionSearchResult
	for rows.Next() {
		var r models.DetectionSearchResult
		if err := rows.Scan(&r.VideoName, &r.FrameNumber, &r.Method,
			&r.Confidence, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// InitSchema creates the database schema if it doesn't exist.
func InitSchema(ctx context.Context, config PostgresConfig) error {
	conn, err := pgx.Connect(ctx, config.connString())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	_, err = conn.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS videos (
            id SERIAL PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            UNIQUE(name)
        );

        CREATE TABLE IF NOT EXISTS reports (
            id SERIAL PRIMARY KEY,
            video_id INTEGER REFERENCES videos(id) ON DELETE CASCADE,
            report JSONB NOT NULL,
            overall_score DOUBLE PRECISION NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );

        CREATE TABLE IF NOT EXISTS detections (
            id SERIAL PRIMARY KEY,
            video_id INTEGER REFERENCES videos(id) ON DELETE CASCADE,
            frame_number INTEGER NOT NULL,
            method VARCHAR(16) NOT NULL,
            confidence DOUBLE PRECISION NOT NULL,
            embedding vector(%d),
            created_at TIMESTAMPTZ NOT NULL
        );
    `, embeddingDim))
	if err != nil {
		return fmt.Errorf("create database schema: %w", err)
	}

	_, err = conn.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS idx_reports_video_id ON reports(video_id);
        CREATE INDEX IF NOT EXISTS idx_detections_video_id ON detections(video_id);
        CREATE INDEX IF NOT EXISTS idx_detections_embedding ON detections USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
    `)
	if err != nil {
		return fmt.Errorf("create database indexes: %w", err)
	}
	return nil
}
