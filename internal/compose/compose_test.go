package compose

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/TobiSchelling/StockBrief/internal/locale"
	"github.com/TobiSchelling/StockBrief/internal/section"
)

type mockProvider struct {
	response string
	err      error
	prompt   string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func sampleResults() *section.Results {
	r := section.NewResults()
	r.Set(section.PriceVolume, "주가 분석 본문")
	r.Set(section.News, "분석 실패: news_analysis")
	return r
}

func TestStrategy(t *testing.T) {
	p := &mockProvider{response: "### 종합 의견\n매수"}
	c := New(p, locale.Korean, 0)
	r := sampleResults()

	text, err := c.Strategy(context.Background(), r, r.Combined(section.Catalog), "삼성전자", "005930", "20260206")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "### 종합 의견\n매수" {
		t.Errorf("unexpected strategy %q", text)
	}
	if !strings.Contains(p.prompt, "--- PRICE_VOLUME_ANALYSIS ---") {
		t.Error("expected combined sections in prompt")
	}
	if !strings.Contains(p.prompt, `read "분석 실패: "`) {
		t.Error("expected placeholder prefix in prompt")
	}
	if !strings.Contains(p.prompt, "2026-02-06") {
		t.Error("expected display date in prompt")
	}
}

func TestStrategyFailures(t *testing.T) {
	r := sampleResults()
	if _, err := New(nil, locale.Korean, 0).Strategy(context.Background(), r, "", "n", "c", "20260206"); err == nil {
		t.Error("expected error without provider")
	}
	if _, err := New(&mockProvider{response: "  "}, locale.Korean, 0).Strategy(context.Background(), r, "", "n", "c", "20260206"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
	if _, err := New(&mockProvider{}, locale.Korean, 0).Strategy(context.Background(), section.NewResults(), "", "n", "c", "20260206"); err == nil {
		t.Error("expected error with no sections")
	}
}

func TestSummaryJSON(t *testing.T) {
	resp, _ := json.Marshal(map[string]any{
		"headline":   "실적 개선 기대",
		"key_points": []string{"HBM 수요 증가", "거래량 증가"},
		"outlook":    "다음 분기 실적 확인 필요",
	})
	r := sampleResults()
	r.Set(section.InvestmentStrategy, "전략 본문")
	p := &mockProvider{response: string(resp)}

	text, err := New(p, locale.Korean, 0).Summary(context.Background(), r, "삼성전자", "005930", "20260206")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "# 핵심 투자 포인트\n\n**실적 개선 기대**\n\n- HBM 수요 증가\n- 거래량 증가\n\n다음 분기 실적 확인 필요"
	if text != want {
		t.Errorf("got %q\nwant %q", text, want)
	}
	if !strings.Contains(p.prompt, "--- INVESTMENT_STRATEGY ---") {
		t.Error("expected strategy in summary input")
	}
}

func TestSummaryProseFallback(t *testing.T) {
	p := &mockProvider{response: "# Key Investment Points\n\nDemand is recovering."}
	text, err := New(p, locale.English, 0).Summary(context.Background(), sampleResults(), "n", "c", "20260206")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "# Key Investment Points\n\nDemand is recovering." {
		t.Errorf("unexpected summary %q", text)
	}
}

func TestSummaryProviderError(t *testing.T) {
	p := &mockProvider{err: errors.New("connection refused")}
	if _, err := New(p, locale.Korean, 0).Summary(context.Background(), sampleResults(), "n", "c", "20260206"); err == nil {
		t.Error("expected error")
	}
}
