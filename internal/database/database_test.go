package database

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func sampleReport(runID, code, date string, reliability float64) *Report {
	return &Report{
		RunID:            runID,
		EntityCode:       code,
		EntityName:       "SK하이닉스",
		ReferenceDate:    date,
		Markdown:         "# report\n",
		Reliability:      reliability,
		Status:           "신뢰가능",
		ValidationPassed: reliability >= 0.8,
	}
}

func TestInsertAndGetReport(t *testing.T) {
	db := openTestDB(t)
	r := sampleReport("run-1", "000660", "20260206", 1.0)
	r.ReferencePrice = ptr("185000")

	sections := []SectionResult{
		{SectionID: "price_volume_analysis", Length: 420},
		{SectionID: "investor_trading_analysis", Kind: "validation_failure", Error: ptr("too short"), Length: 12},
	}
	id, err := db.InsertReport(r, sections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 || r.ID != id {
		t.Fatalf("expected report id to be set, got %d / %d", id, r.ID)
	}

	got, err := db.GetReport(id)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got == nil {
		t.Fatal("expected report, got nil")
	}
	if got.RunID != "run-1" || got.EntityCode != "000660" || !got.ValidationPassed {
		t.Errorf("unexpected report %+v", got)
	}
	if got.ReferencePrice == nil || *got.ReferencePrice != "185000" {
		t.Errorf("expected reference price, got %v", got.ReferencePrice)
	}
	if got.PriceDeviation != nil {
		t.Errorf("expected nil deviation, got %v", *got.PriceDeviation)
	}
	if got.GeneratedAt == nil {
		t.Error("expected generated_at default")
	}

	results, err := db.GetSectionResults(id)
	if err != nil {
		t.Fatalf("GetSectionResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 section results, got %d", len(results))
	}
	if !results[0].Succeeded() || results[1].Succeeded() {
		t.Errorf("unexpected outcomes %+v", results)
	}
	if results[1].Error == nil || *results[1].Error != "too short" {
		t.Errorf("expected error text to round-trip, got %v", results[1].Error)
	}
}

func TestGetReportMissing(t *testing.T) {
	db := openTestDB(t)
	r, err := db.GetReport(99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != nil {
		t.Errorf("expected nil, got %+v", r)
	}
}

func TestDuplicateRunIDRollsBack(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.InsertReport(sampleReport("dup", "000660", "20260206", 1), nil); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := db.InsertReport(sampleReport("dup", "000660", "20260207", 1),
		[]SectionResult{{SectionID: "news_analysis"}})
	if err == nil {
		t.Fatal("expected unique constraint error")
	}

	reports, err := db.ListReports("", 0)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(reports) != 1 {
		t.Errorf("expected 1 report after rollback, got %d", len(reports))
	}
}

func TestListReports(t *testing.T) {
	db := openTestDB(t)
	db.InsertReport(sampleReport("a", "000660", "20260205", 1), nil)
	db.InsertReport(sampleReport("b", "005930", "20260205", 0.5), nil)
	db.InsertReport(sampleReport("c", "000660", "20260206", 0.8), nil)

	all, err := db.ListReports("", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(all))
	}
	if all[0].RunID != "c" {
		t.Errorf("expected newest first, got %q", all[0].RunID)
	}

	hynix, err := db.ListReports("000660", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hynix) != 1 || hynix[0].RunID != "c" {
		t.Errorf("unexpected filtered list %+v", hynix)
	}

	latest, err := db.GetLatestReport("005930")
	if err != nil {
		t.Fatalf("GetLatestReport: %v", err)
	}
	if latest == nil || latest.RunID != "b" {
		t.Errorf("unexpected latest %+v", latest)
	}
}

func TestInsertSectionResultsReplaces(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertReport(sampleReport("r", "000660", "20260206", 1),
		[]SectionResult{{SectionID: "news_analysis"}})

	err := db.InsertSectionResults(id, []SectionResult{
		{SectionID: "price_volume_analysis"},
		{SectionID: "news_analysis", Kind: "generation_failure"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, _ := db.GetSectionResults(id)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].SectionID != "price_volume_analysis" || results[0].Position != 0 {
		t.Errorf("unexpected order %+v", results)
	}
}

func TestAlerts(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.InsertAlert("critical", "SK하이닉스(000660)", "", "market_data down", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.InsertAlert("warning", "SK하이닉스(000660)", "news_analysis", "too short", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.InsertAlert("info", "", "", "bad severity", true); err == nil {
		t.Error("expected check constraint to reject unknown severity")
	}

	all, err := db.ListAlerts("", 0)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(all))
	}
	if all[0].Severity != "warning" || !all[0].Delivered {
		t.Errorf("unexpected newest alert %+v", all[0])
	}
	if all[1].Section != nil {
		t.Errorf("expected NULL section, got %q", *all[1].Section)
	}

	critical, _ := db.ListAlerts("critical", 10)
	if len(critical) != 1 {
		t.Errorf("expected 1 critical alert, got %d", len(critical))
	}
}

func TestMarkAlertDelivered(t *testing.T) {
	db := openTestDB(t)
	id, err := db.InsertAlert("error", "", "news_analysis", "queued", false)
	if err != nil {
		t.Fatalf("InsertAlert: %v", err)
	}
	if err := db.MarkAlertDelivered(id); err != nil {
		t.Fatalf("MarkAlertDelivered: %v", err)
	}

	alerts, err := db.ListAlerts("", 0)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(alerts) != 1 || !alerts[0].Delivered {
		t.Errorf("expected delivered alert, got %+v", alerts)
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	db.InsertReport(sampleReport("a", "000660", "20260205", 1), []SectionResult{
		{SectionID: "news_analysis", Kind: "generation_failure"},
		{SectionID: "price_volume_analysis"},
	})
	interrupted := sampleReport("b", "005930", "20260205", 0.5)
	interrupted.Interrupted = true
	db.InsertReport(interrupted, nil)
	db.InsertAlert("error", "", "", "x", false)

	s, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Reports != 2 || s.ReliableReports != 1 || s.InterruptedRuns != 1 || s.Entities != 2 {
		t.Errorf("unexpected report stats %+v", s)
	}
	if s.FailedSections != 1 || s.Alerts != 1 || s.UndeliveredAlerts != 1 {
		t.Errorf("unexpected section/alert stats %+v", s)
	}
}

func TestProbe(t *testing.T) {
	db := openTestDB(t)
	if err := db.Probe(context.Background()); err != nil {
		t.Errorf("expected probe to pass: %v", err)
	}
	db.Close()
	if err := db.Probe(context.Background()); err == nil {
		t.Error("expected probe to fail after close")
	}
}
