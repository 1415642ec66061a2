package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/parlatext/parlatext/internal/api"
	"github.com/parlatext/parlatext/internal/domain"
)

type SearchService interface {
	Search(ctx context.Context, query string) ([]domain.ScoredDocument, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResultResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Snippet     string              `json:"snippet,omitempty"`
	Score       float64             `json:"score"`
	Metadata    map[string]string   `json:"metadata,omitempty"`
	Composition *domain.Composition `json:"composition,omitempty"`
}

type SearchResponse struct {
	Results []*SearchResultResponse `json:"results"`
}

const snippetChars = 300

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.svc.Search(r.Context(), req.Query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SearchResultResponse, len(results))
	for i, result := range results {
		doc := result.Document
		responses[i] = &SearchResultResponse{
			ID:          doc.ID,
			Title:       doc.Title,
			Snippet:     snippet(doc.Content),
			Score:       result.Score,
			Metadata:    doc.Metadata,
			Composition: doc.Composition,
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: responses})
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetChars {
		return content
	}
	return string(runes[:snippetChars]) + "..."
}
