package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "saaspulse/internal/errors"
	"saaspulse/internal/exporter"
	"saaspulse/internal/ingest"
	"saaspulse/internal/services"
	"saaspulse/internal/session"
)

const handlerCSV = `Date,Revenue,Operating Expenses,Customer Count,Churn Rate,Cash In,Cash Out,Cash Balance
2024-01-01,50000,30000,100,5,55000,35000,200000
2024-02-01,55000,32000,110,4.5,60000,37000,223000
`

const testCookieName = "saaspulse_session"

func newFinancialHandler(t *testing.T, maxBytes int64) (*FinancialHandler, *session.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := session.NewStore(time.Hour, logger)
	svc := services.NewFinancialService(ingest.NewParser(logger), store, logger)
	h := NewFinancialHandler(svc, NewSessionCookie(testCookieName), maxBytes,
		logger, apierrors.NewErrorHandler(logger, false))
	return h, store
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func sessionFromResponse(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	t.Fatalf("response carries no %s cookie", testCookieName)
	return nil
}

func TestUploadAccepted(t *testing.T) {
	h, store := newFinancialHandler(t, 1<<20)

	body, contentType := multipartUpload(t, "data.csv", handlerCSV)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result services.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Rows)
	assert.InDelta(t, 55000, result.Metrics.MRR.Value, 1e-9)

	cookie := sessionFromResponse(t, rec)
	assert.True(t, cookie.HttpOnly)
	records, err := store.Records(cookie.Value)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	h, _ := newFinancialHandler(t, 1<<20)

	body, contentType := multipartUpload(t, "data.pdf", "whatever")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Validation Failed", problem["title"])
	assert.Equal(t, "file", problem["field"])
}

func TestUploadRejectsOversizePayload(t *testing.T) {
	h, _ := newFinancialHandler(t, 256)

	body, contentType := multipartUpload(t, "data.csv", strings.Repeat("x", 4096))
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Payload Too Large", problem["title"])
}

func TestUploadRowFailureProblem(t *testing.T) {
	h, _ := newFinancialHandler(t, 1<<20)

	bad := "Date,Revenue\n2024-01-01,not-a-number\n"
	body, contentType := multipartUpload(t, "data.csv", bad)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, float64(2), problem["row"])
	assert.Equal(t, "Revenue", problem["field"])
}

func TestGetMetricsRequiresSession(t *testing.T) {
	h, _ := newFinancialHandler(t, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "No Financial Data", problem["title"])
}

func TestGetMetricsForStoredSession(t *testing.T) {
	h, store := newFinancialHandler(t, 1<<20)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	id := session.NewSessionID()
	records, err := ingest.NewParser(logger).Parse([]byte(handlerCSV))
	require.NoError(t, err)
	store.PutRecords(id, records)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: id})
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	mrr := m["mrr"].(map[string]any)
	assert.InDelta(t, 55000, mrr["value"].(float64), 1e-9)
	assert.InDelta(t, 10, mrr["change"].(float64), 1e-9)
}

func TestGetChart(t *testing.T) {
	h, store := newFinancialHandler(t, 1<<20)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	id := session.NewSessionID()
	records, err := ingest.NewParser(logger).Parse([]byte(handlerCSV))
	require.NoError(t, err)
	store.PutRecords(id, records)

	req := httptest.NewRequest(http.MethodGet, "/chart", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: id})
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var points []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 2)
	assert.InDelta(t, -23000, points[1]["net_burn"].(float64), 1e-9)
}

func TestClearSession(t *testing.T) {
	h, store := newFinancialHandler(t, 1<<20)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	id := session.NewSessionID()
	records, err := ingest.NewParser(logger).Parse([]byte(handlerCSV))
	require.NoError(t, err)
	store.PutRecords(id, records)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: id})
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err = store.Records(id)
	assert.ErrorIs(t, err, session.ErrNoData)
}

func TestDownloadTemplate(t *testing.T) {
	h, _ := newFinancialHandler(t, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/template", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), exporter.TemplateFilename)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "template is a ZIP workbook")
}
