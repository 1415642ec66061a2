package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parlatext/parlatext/internal/api/handlers"
	"github.com/parlatext/parlatext/internal/domain"
	"github.com/parlatext/parlatext/internal/service"
)

const testToken = "plx_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type MockDocumentIngestor struct {
	mock.Mock
}

func (m *MockDocumentIngestor) Ingest(ctx context.Context, input service.IngestInput) (*domain.Document, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

type MockDocumentGetter struct {
	mock.Mock
}

func (m *MockDocumentGetter) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

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

func setupRouter() (http.Handler, *MockDocumentIngestor, *MockDocumentGetter, *MockSearchService) {
	ingestor := new(MockDocumentIngestor)
	getter := new(MockDocumentGetter)
	searchSvc := new(MockSearchService)

	cfg := RouterConfig{
		APIToken:        testToken,
		DocumentHandler: handlers.NewDocumentHandler(ingestor, getter),
		SearchHandler:   handlers.NewSearchHandler(searchSvc),
	}

	router := NewRouter(cfg)
	return router, ingestor, getter, searchSvc
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, _, _, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/documents"},
		{http.MethodGet, "/documents/123"},
		{http.MethodPost, "/search"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_AuthenticatedRoutes_WithValidAuth(t *testing.T) {
	router, _, getter, _ := setupRouter()

	expectedDoc := &domain.Document{
		ID:        "d-123",
		Title:     "Plenarprotokoll 21/12",
		Content:   "Die Sitzung ist eröffnet.",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	getter.On("GetByID", mock.Anything, "d-123").Return(expectedDoc, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents/d-123", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	getter.AssertExpectations(t)
}

func TestRouter_Search_WithValidAuth(t *testing.T) {
	router, _, _, searchSvc := setupRouter()

	searchSvc.On("Search", mock.Anything, "Klimapolitik").Return([]domain.ScoredDocument{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"Klimapolitik"}`))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	searchSvc.AssertExpectations(t)
}

func TestRouter_WrongToken_Rejected(t *testing.T) {
	router, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"x"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
