package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Hannan2004/RAG-N-ROLL/internal/config"
	"github.com/Hannan2004/RAG-N-ROLL/internal/core"
	"github.com/Hannan2004/RAG-N-ROLL/internal/core/ingestion_engine"
	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
)

const maxUploadBytes = 32 << 20 // 32 MiB

type DocumentHandler struct {
	store    core.CorpusStore
	obj      core.ObjectClient
	ingestor *ingestion_engine.DocumentIngestor
	cfg      *config.Config
}

func NewDocumentHandler(store core.CorpusStore, obj core.ObjectClient, ingestor *ingestion_engine.DocumentIngestor, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{store: store, obj: obj, ingestor: ingestor, cfg: cfg}
}

// Upload receives a corpus source file, stores it in object storage,
// records the document and queues it for ingestion. The optional category
// form field becomes the storage key prefix (registration, legal, tax,
// licensing, costs).
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "could not read file", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := header.Filename
	if cat := r.FormValue("category"); cat != "" {
		key = fmt.Sprintf("%s/%s", cat, header.Filename)
	}
	category := ingestion_engine.CategoryFromKey(key)

	url, err := h.obj.UploadFile(r.Context(), h.cfg.BucketName, key, data, contentType)
	if err != nil {
		http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusBadGateway)
		return
	}

	now := time.Now()
	doc := &models.Document{
		ID:          uuid.NewString(),
		FileName:    header.Filename,
		StorageURL:  url,
		ContentType: contentType,
		Category:    category,
		Status:      "uploaded",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.CreateDocument(r.Context(), doc); err != nil {
		http.Error(w, fmt.Sprintf("could not record document: %v", err), http.StatusInternalServerError)
		return
	}

	if !h.ingestor.Enqueue(doc.ID) {
		http.Error(w, "ingestion queue is full, try again later", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

// Delete removes a corpus document: the stored object, the document row and
// (via cascade) all of its chunks.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := h.store.GetDocumentByID(r.Context(), id)
	if err != nil {
		http.Error(w, "could not load document", http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	bucket, key := ingestion_engine.ParseS3URL(doc.StorageURL)
	if err := h.obj.DeleteFile(r.Context(), bucket, key); err != nil {
		http.Error(w, fmt.Sprintf("could not delete stored object: %v", err), http.StatusBadGateway)
		return
	}

	if err := h.store.DeleteDocument(r.Context(), id); err != nil {
		http.Error(w, fmt.Sprintf("could not delete document: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// List returns all corpus documents with their ingestion status.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.ListDocuments(r.Context())
	if err != nil {
		http.Error(w, "could not list documents", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}
