package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Hannan2004/RAG-N-ROLL/internal/config"
	"github.com/Hannan2004/RAG-N-ROLL/internal/core"
	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
)

type CorpusClient struct {
	db *sql.DB
}

func NewCorpusClient(ctx context.Context, cfg *config.Config) (core.CorpusStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("corpus client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &CorpusClient{db: db}, nil
}

func (c *CorpusClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *CorpusClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, file_name, storage_url, content_type, category, status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, COALESCE($7, now()), COALESCE($8, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.FileName, doc.StorageURL, doc.ContentType, doc.Category, doc.Status, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func (c *CorpusClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, file_name, storage_url, content_type, category, status, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.FileName, &d.StorageURL, &d.ContentType, &d.Category, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *CorpusClient) ListDocuments(ctx context.Context) ([]models.Document, error) {
	const q = `
		SELECT id, file_name, storage_url, content_type, category, status, created_at, updated_at
		FROM documents
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.FileName, &d.StorageURL, &d.ContentType, &d.Category, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *CorpusClient) UpdateDocumentStatus(ctx context.Context, id string, status string) error {
	const q = `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// DeleteDocument removes a document row; the docs_chunks FK cascades so its
// chunks go with it.
func (c *CorpusClient) DeleteDocument(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := c.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// InsertDocumentChunks inserts chunks in a single transaction.
func (c *CorpusClient) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO docs_chunks
			(id, document_id, position, chunk, relative_path, category, embedding, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		var vec any
		if len(ch.Embedding) > 0 {
			vec = pgvector.NewVector(ch.Embedding)
		}

		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.Position, ch.Text, ch.RelativePath, ch.Category, vec, ch.TokenCount, ch.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// likeEscaper neutralizes LIKE metacharacters so a bound query only ever
// matches as a literal substring, never as a pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SubstringSearchChunks finds up to limit chunks containing query as a
// literal substring. The query text travels as a bind parameter so user
// input never reaches the SQL text itself, and is escaped so `%`, `_` and
// `\` in a question do not act as wildcards.
func (c *CorpusClient) SubstringSearchChunks(ctx context.Context, query string, limit int) ([]models.RetrievedChunk, error) {
	const q = `
		SELECT chunk, relative_path, category
		FROM docs_chunks
		WHERE chunk ILIKE '%' || $1 || '%'
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, likeEscaper.Replace(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RetrievedChunk
	for rows.Next() {
		var ch models.RetrievedChunk
		if err := rows.Scan(&ch.Text, &ch.RelativePath, &ch.Category); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// VectorSearchChunks finds the limit nearest chunks for a query embedding.
func (c *CorpusClient) VectorSearchChunks(ctx context.Context, queryVec []float32, limit int) ([]models.RetrievedChunk, error) {
	const q = `
		SELECT chunk, relative_path, category
		FROM docs_chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <-> $1
		LIMIT $2
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RetrievedChunk
	for rows.Next() {
		var ch models.RetrievedChunk
		if err := rows.Scan(&ch.Text, &ch.RelativePath, &ch.Category); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
