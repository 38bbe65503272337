package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, repo Repository, archive *ExportArchive) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/admin/leads", NewHandler(repo, archive, nil).Routes)
	return r
}

func seededRepo(t *testing.T, n int) *InMemoryRepository {
	t.Helper()
	repo := NewInMemoryRepository(DefaultCapacity)
	for i := 1; i <= n; i++ {
		_, err := repo.Save(context.Background(), testLead(i))
		require.NoError(t, err)
	}
	return repo
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestHandler_ListLeads(t *testing.T) {
	router := newTestRouter(t, seededRepo(t, 3), nil)

	tests := []struct {
		name      string
		target    string
		wantCount int
		wantLimit int
	}{
		{name: "default limit", target: "/admin/leads", wantCount: 3, wantLimit: 50},
		{name: "explicit limit", target: "/admin/leads?limit=2", wantCount: 2, wantLimit: 2},
		{name: "limit above max falls back", target: "/admin/leads?limit=500", wantCount: 3, wantLimit: 50},
		{name: "garbage limit falls back", target: "/admin/leads?limit=abc", wantCount: 3, wantLimit: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(router, http.MethodGet, tt.target)
			require.Equal(t, http.StatusOK, rr.Code)

			var resp ListLeadsResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCount, resp.Count)
			assert.Equal(t, tt.wantLimit, resp.Limit)
			assert.Equal(t, "lead_003", resp.Leads[0].ID)
		})
	}
}

func TestHandler_GetLead(t *testing.T) {
	router := newTestRouter(t, seededRepo(t, 2), nil)

	rr := serve(router, http.MethodGet, "/admin/leads/lead_001")
	require.Equal(t, http.StatusOK, rr.Code)
	var lead LeadRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lead))
	assert.Equal(t, "lead_001", lead.ID)
	assert.Equal(t, 90, lead.Score)

	rr = serve(router, http.MethodGet, "/admin/leads/lead_404")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_DeleteAndClear(t *testing.T) {
	repo := seededRepo(t, 3)
	router := newTestRouter(t, repo, nil)

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "/admin/leads/lead_002").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/admin/leads/lead_002").Code)

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "/admin/leads").Code)
	all, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestHandler_Exports(t *testing.T) {
	router := newTestRouter(t, seededRepo(t, 2), nil)

	rr := serve(router, http.MethodGet, "/admin/leads/export.csv")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), ".csv")
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,timestamp,summary,tier,score"))
	assert.True(t, strings.HasPrefix(lines[1], "lead_002,"))

	rr = serve(router, http.MethodGet, "/admin/leads/export.json")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var leads []LeadRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &leads))
	assert.Len(t, leads, 2)
}

type brokenRepo struct{ *InMemoryRepository }

func (brokenRepo) List(context.Context, int) ([]*LeadRecord, error) {
	return nil, errors.New("connection refused")
}

func TestHandler_RepositoryErrors(t *testing.T) {
	router := newTestRouter(t, brokenRepo{NewInMemoryRepository(1)}, nil)
	assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/admin/leads").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/admin/leads/export.csv").Code)
}

func TestHandler_ArchiveExport(t *testing.T) {
	repo := seededRepo(t, 1)

	rr := serve(newTestRouter(t, repo, nil), http.MethodPost, "/admin/leads/export/archive")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	failing := NewExportArchive(&stubS3{err: errors.New("no such bucket")}, "lead-exports", nil)
	rr = serve(newTestRouter(t, repo, failing), http.MethodPost, "/admin/leads/export/archive")
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	client := &stubS3{}
	rr = serve(newTestRouter(t, repo, NewExportArchive(client, "lead-exports", nil)), http.MethodPost, "/admin/leads/export/archive")
	require.Equal(t, http.StatusCreated, rr.Code)
	var res ArchiveResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Count)
	assert.Len(t, client.puts, 2)
}
