package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parlatext/parlatext/internal/api"
	"github.com/parlatext/parlatext/internal/domain"
	"github.com/parlatext/parlatext/internal/service"
)

type DocumentIngestor interface {
	Ingest(ctx context.Context, input service.IngestInput) (*domain.Document, error)
}

type DocumentGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

type DocumentHandler struct {
	ingestor DocumentIngestor
	docs     DocumentGetter
}

func NewDocumentHandler(ingestor DocumentIngestor, docs DocumentGetter) *DocumentHandler {
	return &DocumentHandler{ingestor: ingestor, docs: docs}
}

type IngestDocumentRequest struct {
	Title              string            `json:"title"`
	Content            string            `json:"content"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	SpeakerAffiliation string            `json:"speaker_affiliation,omitempty"`
}

type DocumentResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Content     string              `json:"content,omitempty"`
	Metadata    map[string]string   `json:"metadata,omitempty"`
	Composition *domain.Composition `json:"composition,omitempty"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

func documentToResponse(d *domain.Document, includeContent bool) *DocumentResponse {
	resp := &DocumentResponse{
		ID:          d.ID,
		Title:       d.Title,
		Metadata:    d.Metadata,
		Composition: d.Composition,
		CreatedAt:   d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if includeContent {
		resp.Content = d.Content
	}
	return resp
}

func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	input := service.IngestInput{
		Title:              req.Title,
		Content:            req.Content,
		Metadata:           req.Metadata,
		SpeakerAffiliation: req.SpeakerAffiliation,
	}

	doc, err := h.ingestor.Ingest(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc, false))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.docs.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc, true))
}
