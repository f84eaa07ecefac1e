package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/chart"
	"github.com/TobiSchelling/StockBrief/internal/logger"
	"github.com/TobiSchelling/StockBrief/internal/mdclean"
	"github.com/TobiSchelling/StockBrief/internal/quality"
	"github.com/TobiSchelling/StockBrief/internal/section"
)

type chartSpec struct {
	kind  chart.Kind
	title string
}

// assemble concatenates the document in its fixed order: disclaimer, quality
// block, summary, then every section in document order with chart blocks
// injected after price/volume and company status.
func (p *Pipeline) assemble(ctx context.Context, req Request, meta quality.Metadata, summary string, results *section.Results) string {
	var sb strings.Builder
	sb.WriteString(p.loc.Disclaimer)
	sb.WriteString("\n\n")
	sb.WriteString(quality.Render(meta, p.loc))
	sb.WriteString("\n\n")
	sb.WriteString(summary)
	sb.WriteString("\n\n")

	for _, e := range results.Ordered(section.Document()) {
		sb.WriteString("## ")
		sb.WriteString(p.loc.Title(e.ID))
		sb.WriteString("\n\n")
		sb.WriteString(e.Text)
		sb.WriteString("\n\n")

		switch e.ID {
		case section.PriceVolume:
			sb.WriteString(p.chartBlock(ctx, req, p.loc.PriceVolumeCharts, []chartSpec{
				{chart.Price, p.loc.PriceChart},
				{chart.Volume, p.loc.VolumeChart},
			}))
		case section.CompanyStatus:
			sb.WriteString(p.chartBlock(ctx, req, p.loc.MarketCapCharts, []chartSpec{
				{chart.MarketCap, p.loc.MarketCapChart},
				{chart.Fundamentals, p.loc.FundamentalsChart},
			}))
		}
	}

	return mdclean.Clean(sb.String())
}

// chartBlock renders each chart independently. A chart that fails is left
// out; a block with no charts is empty.
func (p *Pipeline) chartBlock(ctx context.Context, req Request, heading string, specs []chartSpec) string {
	if p.deps.Charts == nil || ctx.Err() != nil {
		return ""
	}

	opts := p.opts.Charts
	if opts.End.IsZero() {
		if end, err := time.ParseInLocation(DateLayout, req.ReferenceDate, time.Local); err == nil {
			opts.End = end
		}
	}

	var sb strings.Builder
	for _, s := range specs {
		markup, err := p.deps.Charts.Render(ctx, req.EntityCode, req.EntityName, s.kind, s.title, opts)
		if err != nil {
			logger.Log.Warnf("%s chart for %s unavailable: %v", s.kind, req.Entity(), err)
			continue
		}
		sb.WriteString("### ")
		sb.WriteString(s.title)
		sb.WriteString("\n\n")
		sb.WriteString(markup)
		sb.WriteString("\n\n")
	}
	if sb.Len() == 0 {
		return ""
	}
	return "\n## " + heading + "\n\n" + sb.String()
}
