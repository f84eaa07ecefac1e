// Package locale carries every language-dependent string and pattern used to
// validate and assemble a report.
package locale

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/TobiSchelling/StockBrief/internal/section"
)

// Locale bundles the text a report run needs in one language.
type Locale struct {
	Code     string
	Language string // model-facing language name
	Currency string

	// RequiredKeywords lists tokens a section's text must contain.
	RequiredKeywords map[section.ID][]string
	// PricePatterns each capture a thousands-separated integer price in group 1.
	PricePatterns []*regexp.Regexp

	SectionTitles map[section.ID]string

	Disclaimer       string
	PlaceholderFmt   string // %s is the section id
	StrategyFallback string
	SummaryFallback  string
	SummaryHeading   string
	PriceLineFmt     string // how producers must quote the latest close; %s is the price

	QualityHeading    string
	ReliabilityLabel  string
	SourcesLabel      string
	AnalyzedAtLabel   string
	SourceHealthy     string
	SourceUnhealthy   string
	StatusReliable    string
	StatusNeedsReview string

	AlertCritical      string
	AlertValidation    string
	AlertSectionFailed string
	AlertPriceCheck    string
	AlertAborted       string
	FieldEntity        string
	FieldSection       string
	FieldError         string
	FieldReferenceDate string

	PriceVolumeCharts string
	PriceChart        string
	VolumeChart       string
	MarketCapCharts   string
	MarketCapChart    string
	FundamentalsChart string
}

// Placeholder returns the fixed text recorded for a failed section.
func (l *Locale) Placeholder(id section.ID) string {
	return fmt.Sprintf(l.PlaceholderFmt, id)
}

// Title returns the display heading for a section, falling back to its id.
func (l *Locale) Title(id section.ID) string {
	if t, ok := l.SectionTitles[id]; ok {
		return t
	}
	return string(id)
}

var registry = map[string]*Locale{
	Korean.Code:  Korean,
	English.Code: English,
}

// Get returns the locale registered under code.
func Get(code string) (*Locale, error) {
	l, ok := registry[code]
	if !ok {
		return nil, fmt.Errorf("unknown locale %q (available: %v)", code, Codes())
	}
	return l, nil
}

// Codes lists the registered locale codes.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for c := range registry {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Korean matches the market data the pipeline was built around.
var Korean = &Locale{
	Code:     "ko",
	Language: "Korean",
	Currency: "원",
	RequiredKeywords: map[section.ID][]string{
		section.PriceVolume: {"주가", "거래량"},
	},
	PricePatterns: []*regexp.Regexp{
		regexp.MustCompile(`최근\s*종가[:\s]*\*{0,2}([0-9][0-9,]*)\*{0,2}\s*원`),
		regexp.MustCompile(`현재가[:\s]*\*{0,2}([0-9][0-9,]*)\*{0,2}\s*원`),
		regexp.MustCompile(`기준\s*가격[:\s]*\*{0,2}([0-9][0-9,]*)\*{0,2}\s*원`),
	},
	SectionTitles: map[section.ID]string{
		section.PriceVolume:        "1-1. 주가 및 거래량 분석",
		section.InvestorTrading:    "1-2. 투자자 거래 동향 분석",
		section.CompanyStatus:      "2-1. 기업 현황 분석",
		section.CompanyOverview:    "2-2. 기업 개요 분석",
		section.News:               "3. 최근 주요 뉴스 요약",
		section.MarketIndex:        "4. 시장 분석",
		section.InvestmentStrategy: "5. 투자 전략 및 의견",
	},
	Disclaimer: "> **투자 유의사항**: 본 보고서는 AI 기반 자동 분석 결과이며 투자 권유를 목적으로 하지 않습니다. " +
		"제시된 정보의 정확성과 완전성을 보장하지 않으며, 투자 판단과 그에 따른 책임은 투자자 본인에게 있습니다.",
	PlaceholderFmt:   "분석 실패: %s",
	StrategyFallback: "투자 전략 분석 실패",
	SummaryFallback:  "# 핵심 투자 포인트\n\n분석 요약을 생성하는 데 문제가 발생했습니다.",
	SummaryHeading:   "핵심 투자 포인트",
	PriceLineFmt:     "최근 종가: %s원",

	QualityHeading:    "📊 데이터 품질 정보",
	ReliabilityLabel:  "신뢰도 점수",
	SourcesLabel:      "데이터 소스 상태",
	AnalyzedAtLabel:   "분석 시각",
	SourceHealthy:     "✅ 정상",
	SourceUnhealthy:   "❌ 실패",
	StatusReliable:    "신뢰가능",
	StatusNeedsReview: "검증필요",

	AlertCritical:      "🚨 [긴급] 필수 데이터 소스 '%s' 연결 실패",
	AlertValidation:    "⚠️ [경고] 데이터 검증 실패",
	AlertSectionFailed: "🚨 [오류] 섹션 분석 실패",
	AlertPriceCheck:    "⚠️ [경고] 가격 데이터 불일치",
	AlertAborted:       "분석이 중단되었습니다.",
	FieldEntity:        "종목",
	FieldSection:       "섹션",
	FieldError:         "오류",
	FieldReferenceDate: "분석 시각",

	PriceVolumeCharts: "가격 및 거래량 차트",
	PriceChart:        "가격 차트",
	VolumeChart:       "거래량 차트",
	MarketCapCharts:   "시가총액 및 기본 지표 차트",
	MarketCapChart:    "시가총액 추이",
	FundamentalsChart: "기본 지표 분석",
}

// English is used when reports are produced for non-Korean readers.
var English = &Locale{
	Code:     "en",
	Language: "English",
	Currency: "KRW",
	RequiredKeywords: map[section.ID][]string{
		section.PriceVolume: {"price", "trading volume"},
	},
	PricePatterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)latest\s*close[:\s]*\*{0,2}([0-9][0-9,]*)\*{0,2}\s*(?:KRW|won)`),
		regexp.MustCompile(`(?i)current\s*price[:\s]*\*{0,2}([0-9][0-9,]*)\*{0,2}\s*(?:KRW|won)`),
		regexp.MustCompile(`(?i)reference\s*price[:\s]*\*{0,2}([0-9][0-9,]*)\*{0,2}\s*(?:KRW|won)`),
	},
	SectionTitles: map[section.ID]string{
		section.PriceVolume:        "1-1. Price and Trading Volume Analysis",
		section.InvestorTrading:    "1-2. Investor Trading Trends",
		section.CompanyStatus:      "2-1. Company Status",
		section.CompanyOverview:    "2-2. Company Overview",
		section.News:               "3. Recent News Summary",
		section.MarketIndex:        "4. Market Analysis",
		section.InvestmentStrategy: "5. Investment Strategy and Opinion",
	},
	Disclaimer: "> **Disclaimer**: This report is generated by automated AI analysis and is not investment advice. " +
		"Accuracy and completeness are not guaranteed; investment decisions and their consequences rest with the reader.",
	PlaceholderFmt:   "analysis failed: %s",
	StrategyFallback: "investment strategy analysis failed",
	SummaryFallback:  "# Key Investment Points\n\nThere was a problem generating the analysis summary.",
	SummaryHeading:   "Key Investment Points",
	PriceLineFmt:     "Latest close: %s KRW",

	QualityHeading:    "📊 Data Quality",
	ReliabilityLabel:  "Reliability score",
	SourcesLabel:      "Data source status",
	AnalyzedAtLabel:   "Analyzed at",
	SourceHealthy:     "✅ OK",
	SourceUnhealthy:   "❌ Failed",
	StatusReliable:    "reliable",
	StatusNeedsReview: "needs verification",

	AlertCritical:      "🚨 [CRITICAL] Required data source '%s' unavailable",
	AlertValidation:    "⚠️ [WARNING] Data validation failed",
	AlertSectionFailed: "🚨 [ERROR] Section analysis failed",
	AlertPriceCheck:    "⚠️ [WARNING] Price data mismatch",
	AlertAborted:       "Analysis aborted.",
	FieldEntity:        "Entity",
	FieldSection:       "Section",
	FieldError:         "Error",
	FieldReferenceDate: "Reference date",

	PriceVolumeCharts: "Price and Volume Charts",
	PriceChart:        "Price Chart",
	VolumeChart:       "Volume Chart",
	MarketCapCharts:   "Market Cap and Fundamentals Charts",
	MarketCapChart:    "Market Cap Trend",
	FundamentalsChart: "Fundamentals",
}
