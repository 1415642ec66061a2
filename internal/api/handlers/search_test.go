package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parlatext/parlatext/internal/domain"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, query string) ([]domain.ScoredDocument, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredDocument), args.Error(1)
}

func TestSearchHandler_Search_Success(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	results := []domain.ScoredDocument{
		{Document: newTestDocument(), Score: 0.91},
	}
	mockSvc.On("Search", mock.Anything, "Klimapolitik").Return(results, nil)

	body := `{"query":"Klimapolitik"}`
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	resultList := data["results"].([]interface{})
	require.Len(t, resultList, 1)
	first := resultList[0].(map[string]interface{})
	assert.Equal(t, "d-123", first["id"])
	assert.Equal(t, 0.91, first["score"])
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_InvalidJSON(t *testing.T) {
	handler := NewSearchHandler(new(MockSearchService))

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(`{invalid`)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestSearchHandler_Search_MissingQuery(t *testing.T) {
	handler := NewSearchHandler(new(MockSearchService))

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "query is required")
}

func TestSearchHandler_Search_ServiceError(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyQuery)

	body := `{"query":"   "}`
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_Search_SnippetTruncation(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	doc := newTestDocument()
	doc.Content = strings.Repeat("a", 500)
	results := []domain.ScoredDocument{{Document: doc, Score: 0.8}}
	mockSvc.On("Search", mock.Anything, mock.Anything).Return(results, nil)

	body := `{"query":"test"}`
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	resultList := data["results"].([]interface{})
	first := resultList[0].(map[string]interface{})
	assert.Len(t, first["snippet"], 303)
}
