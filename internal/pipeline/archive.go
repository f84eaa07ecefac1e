package pipeline

import (
	"strconv"

	"github.com/TobiSchelling/StockBrief/internal/database"
)

// ReportStore persists finished runs. *database.DB satisfies it.
type ReportStore interface {
	InsertReport(r *database.Report, sections []database.SectionResult) (int64, error)
}

// Archive stores a finished run and returns the report id.
func Archive(store ReportStore, r *Result) (int64, error) {
	report := &database.Report{
		RunID:            r.RunID,
		EntityCode:       r.Request.EntityCode,
		EntityName:       r.Request.EntityName,
		ReferenceDate:    r.Request.ReferenceDate,
		Markdown:         r.Document,
		Reliability:      r.Quality.Reliability,
		Status:           r.Quality.Status,
		ValidationPassed: r.Quality.ValidationPassed,
		Interrupted:      r.Interrupted,
	}
	if pc := r.PriceCheck; pc != nil {
		ref := strconv.FormatFloat(r.Request.TriggerPrice, 'f', -1, 64)
		report.ReferencePrice = &ref
		if pc.Found && pc.Reference > 0 {
			dev := strconv.FormatFloat(pc.Deviation, 'f', 4, 64)
			report.PriceDeviation = &dev
		}
	}

	sections := make([]database.SectionResult, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		sr := database.SectionResult{SectionID: o.Section.String(), Length: len([]rune(o.Text))}
		if !o.OK() {
			sr.Kind = o.Kind.String()
		}
		if o.Err != nil {
			msg := o.Err.Error()
			sr.Error = &msg
		}
		sections = append(sections, sr)
	}
	return store.InsertReport(report, sections)
}
