package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/parlatext/parlatext/internal/domain"
)

// dbtx is the common query surface of *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DocumentRepository handles persistence of documents and their embeddings.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	var embedding *pgvector.Vector
	if len(d.Embedding) > 0 {
		vec := pgvector.NewVector(d.Embedding)
		embedding = &vec
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, title, content, metadata, composition, embedding, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.Title, d.Content, d.Metadata, d.Composition, embedding, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var d domain.Document
	var embedding *pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT id, title, content, metadata, composition, embedding, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Title, &d.Content, &d.Metadata, &d.Composition, &embedding, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if embedding != nil {
		d.Embedding = embedding.Slice()
	}
	return &d, nil
}

func (r *DocumentRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) UpdateComposition(ctx context.Context, id string, composition *domain.Composition) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET composition = $1, updated_at = $2 WHERE id = $3`,
		composition, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// SearchByEmbedding returns the documents most similar to the query embedding,
// scored in (0, 1] and sorted descending. An optional metadata filter restricts
// results to rows whose metadata field equals the given value. Embeddings are
// returned with the documents so downstream deduplication can compare them.
func (r *DocumentRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filter *domain.MetadataFilter, limit int) ([]domain.ScoredDocument, error) {
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(embedding)

	query := `
		SELECT id, title, content, metadata, composition, embedding,
		       created_at, updated_at,
		       1.0 / (1.0 + (embedding <=> $1)) AS score
		FROM documents
		WHERE embedding IS NOT NULL`
	args := []any{vec}

	if filter != nil {
		query += ` AND metadata->>$2 = $3`
		args = append(args, filter.Field, filter.Value)
	}

	query += fmt.Sprintf(`
		ORDER BY score DESC
		LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredDocument, 0, limit)
	for rows.Next() {
		var d domain.Document
		var docEmbedding *pgvector.Vector
		var score float64
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Metadata, &d.Composition, &docEmbedding, &d.CreatedAt, &d.UpdatedAt, &score); err != nil {
			return nil, err
		}
		if docEmbedding != nil {
			d.Embedding = docEmbedding.Slice()
		}
		results = append(results, domain.ScoredDocument{Document: &d, Score: score})
	}

	return results, rows.Err()
}
