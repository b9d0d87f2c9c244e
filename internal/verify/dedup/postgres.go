package dedup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dErrors "veriflow/pkg/domain-errors"
)

// PostgresIndex stores embeddings in a pgvector-enabled table and
// answers nearest-neighbor queries with the cosine distance operator.
type PostgresIndex struct {
	pool *pgxpool.Pool
	dims int
}

// NewPostgresIndex connects, verifies the connection, and makes sure
// the schema exists.
func NewPostgresIndex(ctx context.Context, dsn string, dims int) (*PostgresIndex, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "connect embedding store")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ping embedding store")
	}

	idx := &PostgresIndex{pool: pool, dims: dims}
	if err := idx.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (p *PostgresIndex) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS scene_embeddings (
			id BIGSERIAL PRIMARY KEY,
			campaign_id UUID NOT NULL,
			image_url TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, p.dims),
		`CREATE INDEX IF NOT EXISTS scene_embeddings_campaign_idx ON scene_embeddings (campaign_id)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "ensure embedding schema")
		}
	}
	return nil
}

// Nearest returns the closest stored embedding for the campaign by
// cosine similarity.
func (p *PostgresIndex) Nearest(ctx context.Context, campaignID uuid.UUID, embedding []float32) (Match, bool, error) {
	const q = `
		SELECT image_url, 1 - (embedding <=> $2::vector) AS similarity
		FROM scene_embeddings
		WHERE campaign_id = $1
		ORDER BY embedding <=> $2::vector
		LIMIT 1`

	var m Match
	err := p.pool.QueryRow(ctx, q, campaignID, vectorLiteral(embedding)).
		Scan(&m.ImageURL, &m.Similarity)
	if errors.Is(err, pgx.ErrNoRows) {
		return Match{}, false, nil
	}
	if err != nil {
		return Match{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "query nearest embedding")
	}
	return m, true, nil
}

// Store records one embedding under its source URL.
func (p *PostgresIndex) Store(ctx context.Context, campaignID uuid.UUID, imageURL string, embedding []float32) error {
	const q = `
		INSERT INTO scene_embeddings (campaign_id, image_url, embedding)
		VALUES ($1, $2, $3::vector)`

	if _, err := p.pool.Exec(ctx, q, campaignID, imageURL, vectorLiteral(embedding)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "insert embedding")
	}
	return nil
}

// Close releases the connection pool.
func (p *PostgresIndex) Close() {
	p.pool.Close()
}

// Health verifies the store is reachable.
func (p *PostgresIndex) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// vectorLiteral renders an embedding in pgvector's input syntax.
func vectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

var _ Index = (*PostgresIndex)(nil)
