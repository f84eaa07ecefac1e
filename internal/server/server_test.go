package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/TobiSchelling/StockBrief/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServer(t *testing.T, db *database.DB) *Server {
	t.Helper()
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func insertReport(t *testing.T, db *database.DB, runID, code string) int64 {
	t.Helper()
	msg := "too short"
	id, err := db.InsertReport(&database.Report{
		RunID:         runID,
		EntityCode:    code,
		EntityName:    "SK하이닉스",
		ReferenceDate: "20260206",
		Markdown: "## 1-1. 주가 및 거래량 분석\n\n| 항목 | 값 |\n|---|---|\n| 종가 | 185,000 |\n\n" +
			"<img src=\"data:image/svg+xml;base64,AAAA\" alt=\"price\" />\n",
		Reliability: 1,
		Status:      "reliable",
	}, []database.SectionResult{
		{SectionID: "price_volume_analysis", Length: 300},
		{SectionID: "news_analysis", Kind: "validation_failed", Error: &msg},
	})
	if err != nil {
		t.Fatalf("failed to insert report: %v", err)
	}
	return id
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	insertReport(t, db, "run-a", "000660")
	insertReport(t, db, "run-b", "005930")
	srv := newTestServer(t, db)

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Reports") || !strings.Contains(body, "2026-02-06") {
		t.Error("expected report list in response body")
	}
	if !strings.Contains(body, "000660") || !strings.Contains(body, "005930") {
		t.Error("expected both entities listed")
	}

	filtered := get(t, srv, "/?entity=005930").Body.String()
	if strings.Contains(filtered, "(000660)") {
		t.Error("expected entity filter to hide 000660")
	}
}

func TestIndexEmpty(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))
	rec := get(t, srv, "/")
	if !strings.Contains(rec.Body.String(), "No reports yet") {
		t.Error("expected empty state message")
	}
}

func TestUnknownPath(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))
	if rec := get(t, srv, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestReportRoute(t *testing.T) {
	db := openTestDB(t)
	id := insertReport(t, db, "run-a", "000660")
	srv := newTestServer(t, db)

	rec := get(t, srv, "/report/"+itoa(id))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<table>") {
		t.Error("expected markdown table to be rendered")
	}
	if !strings.Contains(body, `<img src="data:image/svg+xml;base64,AAAA"`) {
		t.Error("expected embedded chart HTML to pass through")
	}
	if !strings.Contains(body, "validation_failed") {
		t.Error("expected section outcomes in response")
	}
}

func TestReportMarkdownFormat(t *testing.T) {
	db := openTestDB(t)
	id := insertReport(t, db, "run-a", "000660")
	srv := newTestServer(t, db)

	rec := get(t, srv, "/report/"+itoa(id)+"?format=md")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("expected markdown content type, got %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "## 1-1.") {
		t.Error("expected raw markdown body")
	}
}

func TestReportNotFound(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))

	rec := get(t, srv, "/report/42")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Report not found") {
		t.Error("expected not-found page")
	}

	if rec := get(t, srv, "/report/abc"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for bad id, got %d", rec.Code)
	}
	if rec := get(t, srv, "/report/"); rec.Code != http.StatusFound {
		t.Errorf("expected redirect, got %d", rec.Code)
	}
}

func TestAlertsRoute(t *testing.T) {
	db := openTestDB(t)
	db.InsertAlert("critical", "SK하이닉스(000660)", "", "<b>market_data down</b>", false)
	db.InsertAlert("warning", "SK하이닉스(000660)", "news_analysis", "too short", true)
	srv := newTestServer(t, db)

	body := get(t, srv, "/alerts").Body.String()
	if !strings.Contains(body, "&lt;b&gt;market_data down&lt;/b&gt;") {
		t.Error("expected alert message escaped in response")
	}
	if !strings.Contains(body, "news_analysis") {
		t.Error("expected warning alert listed")
	}

	critical := get(t, srv, "/alerts?severity=critical").Body.String()
	if strings.Contains(critical, "too short") {
		t.Error("expected severity filter to hide warnings")
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))
	rec := get(t, srv, "/metrics")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected Prometheus exposition format")
	}
}

func TestHealthz(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)
	if rec := get(t, srv, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	db.Close()
	if rec := get(t, srv, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after close, got %d", rec.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, db, 0) }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}

func TestStaticCSS(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))
	if rec := get(t, srv, "/static/style.css"); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
