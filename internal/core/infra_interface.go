package core

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
)

// CorpusStore defines all persistence operations for the reference corpus.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type CorpusStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status string) error

	// DeleteDocument removes a document and, via the schema's cascade, all
	// of its chunks.
	DeleteDocument(ctx context.Context, id string) error

	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error

	// SubstringSearchChunks returns up to limit chunks whose text contains
	// query as a literal substring. The query is always bound as a parameter,
	// never spliced into the SQL text.
	SubstringSearchChunks(ctx context.Context, query string, limit int) ([]models.RetrievedChunk, error)

	// VectorSearchChunks returns the limit nearest chunks to queryVec.
	VectorSearchChunks(ctx context.Context, queryVec []float32, limit int) ([]models.RetrievedChunk, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// DocumentExtractor converts raw document bytes into a stream of text
// fragments for the ingestion pipeline.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, g *errgroup.Group, data []byte, contentType string) (<-chan string, error)
}
