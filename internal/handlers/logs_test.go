package handlers

import (
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogsFixture(t *testing.T) *AdminLogsHandler {
	t.Helper()
	dir := t.TempDir()
	today := strings.Join([]string{
		`{"level":"INFO","time":"2025-03-10T09:15:00.000+0530","message":"Платёж создан","request_id":"r1","user_id":7}`,
		`{"level":"ERROR","time":"2025-03-10T09:40:00.000+0530","message":"Сверка: шлюз недоступен"}`,
		`не json`,
		`{"level":"INFO","time":"2025-03-10T11:00:00.000+0530","message":"Подписка активирована","request_id":"r2","user_id":8}`,
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log"), []byte(today), 0o644))

	f, err := os.Create(filepath.Join(dir, "app-2025-03-09T23-59-59.000.log.gz"))
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(`{"level":"WARN","time":"2025-03-09T20:00:00.000+0530","message":"Redis недоступен"}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	return &AdminLogsHandler{LogDir: dir, Retention: 14, now: func() time.Time { return now }}
}

func getData(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var resp struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func TestAdminLogs_ListDays(t *testing.T) {
	h := newLogsFixture(t)
	rec := httptest.NewRecorder()
	h.ListDays(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs/days", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var days []string
	require.NoError(t, json.Unmarshal(getData(t, rec)["days"], &days))
	assert.Equal(t, []string{"2025-03-09", "2025-03-10"}, days)
}

func TestAdminLogs_GetLogsFilters(t *testing.T) {
	h := newLogsFixture(t)

	cases := []struct {
		query string
		want  int
	}{
		{"day=2025-03-10", 3},
		{"day=2025-03-10&level=error", 1},
		{"day=2025-03-10&user_id=7", 1},
		{"day=2025-03-10&request_id=r2", 1},
		{"day=2025-03-10&q=" + url.QueryEscape("подписка"), 1},
		{"day=2025-03-10&limit=1", 1},
		{"day=2025-03-09", 1},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.GetLogs(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs?"+tc.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			var items []json.RawMessage
			require.NoError(t, json.Unmarshal(getData(t, rec)["items"], &items))
			assert.Len(t, items, tc.want)
		})
	}

	rec := httptest.NewRecorder()
	h.GetLogs(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs?day=2025-01-01", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.GetLogs(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs?day=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminLogs_StatsByHour(t *testing.T) {
	h := newLogsFixture(t)
	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs/stats?day=2025-03-10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]map[string]int
	require.NoError(t, json.Unmarshal(getData(t, rec)["stats"], &stats))
	assert.Equal(t, 1, stats["9"]["INFO"])
	assert.Equal(t, 1, stats["9"]["ERROR"])
	assert.Equal(t, 1, stats["11"]["INFO"])
}

func TestAdminLogs_Summary(t *testing.T) {
	h := newLogsFixture(t)
	rec := httptest.NewRecorder()
	h.StatsSummary(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs/summary?days=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data := getData(t, rec)
	var total int
	require.NoError(t, json.Unmarshal(data["total"], &total))
	assert.Equal(t, 4, total)
}
