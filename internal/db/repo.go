package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"mindwell-screening/pkg"
)

// ErrScreeningNotFound is returned by GetScreening for an unknown ID.
var ErrScreeningNotFound = errors.New("screening not found")

// Open connects to Postgres and verifies the connection within timeout.
func Open(ctx context.Context, dsn string, timeout time.Duration) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// Repository stores screening documents. Each screening is one JSONB row;
// the scalar columns duplicate document fields for indexing.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// SaveScreening appends s as a new document and returns its ID. A missing ID
// is generated and a zero timestamp is set to the current UTC time; both are
// written back to s.
func (r *Repository) SaveScreening(ctx context.Context, s *pkg.Screening) (string, error) {
	if s == nil {
		return "", errors.New("nil screening")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	doc, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode screening: %w", err)
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO screenings (id, document, risk_score, model, source, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, doc, s.RiskScore, s.Model, s.Source, s.Timestamp,
	)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

// GetScreening loads a single screening document by ID.
func (r *Repository) GetScreening(ctx context.Context, id string) (*pkg.Screening, error) {
	var doc []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT document FROM screenings WHERE id = $1`, id,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrScreeningNotFound, id)
		}
		return nil, err
	}
	var s pkg.Screening
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode screening %s: %w", id, err)
	}
	return &s, nil
}
