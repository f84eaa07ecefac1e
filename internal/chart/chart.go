// Package chart renders price history as SVG images embeddable in markdown.
package chart

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/marketdata"
)

// Kind selects which chart to draw.
type Kind int

const (
	Price Kind = iota
	Volume
	MarketCap
	Fundamentals
)

func (k Kind) String() string {
	switch k {
	case Price:
		return "price"
	case Volume:
		return "volume"
	case MarketCap:
		return "market_cap"
	case Fundamentals:
		return "fundamentals"
	default:
		return "unknown"
	}
}

// ErrUnsupported is returned for chart kinds the renderer cannot draw.
var ErrUnsupported = errors.New("chart kind not supported")

// Options controls the size and window of a chart.
type Options struct {
	Days   int
	Width  int
	Height int
	End    time.Time // zero means now
}

// HistorySource supplies price history. *marketdata.Client satisfies it.
type HistorySource interface {
	Symbol(code string) string
	History(ctx context.Context, symbol string, end time.Time, days int) (*marketdata.Series, error)
}

// SVGRenderer draws price and volume charts from the market data feed.
type SVGRenderer struct {
	source HistorySource
}

// NewSVGRenderer creates a renderer backed by source.
func NewSVGRenderer(source HistorySource) *SVGRenderer {
	return &SVGRenderer{source: source}
}

// Render returns an <img> tag holding the chart as a base64 SVG.
func (r *SVGRenderer) Render(ctx context.Context, code, name string, kind Kind, title string, opts Options) (string, error) {
	if kind != Price && kind != Volume {
		return "", fmt.Errorf("%s: %w", kind, ErrUnsupported)
	}
	if opts.Days < 1 {
		opts.Days = 365
	}
	if opts.Width < 200 {
		opts.Width = 900
	}
	if opts.Height < 150 {
		opts.Height = 400
	}
	end := opts.End
	if end.IsZero() {
		end = time.Now()
	}

	series, err := r.source.History(ctx, r.source.Symbol(code), end, opts.Days)
	if err != nil {
		return "", err
	}
	if len(series.Candles) < 2 {
		return "", fmt.Errorf("not enough data to chart %s", code)
	}

	fullTitle := fmt.Sprintf("%s (%s) %s", name, code, title)
	var svg string
	if kind == Price {
		svg = priceSVG(series.Candles, fullTitle, opts.Width, opts.Height)
	} else {
		svg = volumeSVG(series.Candles, fullTitle, opts.Width, opts.Height)
	}
	return EmbedSVG(svg, fullTitle), nil
}

// EmbedSVG wraps svg in an <img> tag with a data URI.
func EmbedSVG(svg, alt string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(svg))
	return fmt.Sprintf(`<img src="data:image/svg+xml;base64,%s" alt="%s" style="max-width:100%%" />`, enc, html.EscapeString(alt))
}

const (
	padLeft   = 70
	padRight  = 20
	padTop    = 40
	padBottom = 30
)

type frame struct {
	w, h     int
	min, max float64
	n        int
}

func (f frame) x(i int) float64 {
	plot := float64(f.w - padLeft - padRight)
	if f.n <= 1 {
		return padLeft
	}
	return padLeft + plot*float64(i)/float64(f.n-1)
}

func (f frame) y(v float64) float64 {
	plot := float64(f.h - padTop - padBottom)
	span := f.max - f.min
	if span == 0 {
		return padTop + plot/2
	}
	return padTop + plot*(1-(v-f.min)/span)
}

func header(sb *strings.Builder, w, h int, title string) {
	fmt.Fprintf(sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`, w, h, w, h)
	fmt.Fprintf(sb, `<rect width="%d" height="%d" fill="#ffffff"/>`, w, h)
	fmt.Fprintf(sb, `<text x="%d" y="24" font-size="16" font-weight="bold">%s</text>`, padLeft, html.EscapeString(title))
}

func axes(sb *strings.Builder, f frame, candles []marketdata.Candle, label func(float64) string) {
	bottom := f.h - padBottom
	fmt.Fprintf(sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#999"/>`, padLeft, padTop, padLeft, bottom)
	fmt.Fprintf(sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#999"/>`, padLeft, bottom, f.w-padRight, bottom)
	for _, v := range []float64{f.min, (f.min + f.max) / 2, f.max} {
		y := f.y(v)
		fmt.Fprintf(sb, `<text x="%d" y="%.1f" font-size="11" text-anchor="end">%s</text>`, padLeft-6, y+4, label(v))
		fmt.Fprintf(sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#eee"/>`, padLeft, y, f.w-padRight, y)
	}
	first, last := candles[0].Time, candles[len(candles)-1].Time
	fmt.Fprintf(sb, `<text x="%d" y="%d" font-size="11">%s</text>`, padLeft, bottom+18, first.Format("2006-01-02"))
	fmt.Fprintf(sb, `<text x="%d" y="%d" font-size="11" text-anchor="end">%s</text>`, f.w-padRight, bottom+18, last.Format("2006-01-02"))
}

func priceSVG(candles []marketdata.Candle, title string, w, h int) string {
	f := frame{w: w, h: h, n: len(candles), min: math.Inf(1), max: math.Inf(-1)}
	for _, c := range candles {
		f.min = math.Min(f.min, c.Close)
		f.max = math.Max(f.max, c.Close)
	}

	var sb strings.Builder
	header(&sb, w, h, title)
	axes(&sb, f, candles, func(v float64) string { return fmt.Sprintf("%.0f", v) })

	points := make([]string, len(candles))
	for i, c := range candles {
		points[i] = fmt.Sprintf("%.1f,%.1f", f.x(i), f.y(c.Close))
	}
	fmt.Fprintf(&sb, `<polyline fill="none" stroke="#1f77b4" stroke-width="1.5" points="%s"/>`, strings.Join(points, " "))
	sb.WriteString(`</svg>`)
	return sb.String()
}

func volumeSVG(candles []marketdata.Candle, title string, w, h int) string {
	f := frame{w: w, h: h, n: len(candles)}
	for _, c := range candles {
		f.max = math.Max(f.max, float64(c.Volume))
	}

	var sb strings.Builder
	header(&sb, w, h, title)
	axes(&sb, f, candles, compact)

	barW := math.Max(1, float64(w-padLeft-padRight)/float64(len(candles))*0.8)
	base := f.y(0)
	for i, c := range candles {
		top := f.y(float64(c.Volume))
		color := "#d62728"
		if i > 0 && c.Close < candles[i-1].Close {
			color = "#1f77b4"
		}
		fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
			f.x(i)-barW/2, top, barW, base-top, color)
	}
	sb.WriteString(`</svg>`)
	return sb.String()
}

func compact(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
