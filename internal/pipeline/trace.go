package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TobiSchelling/StockBrief/internal/section"
)

var tracer = otel.Tracer("stockbrief.pipeline")

func startRunSpan(ctx context.Context, r *Result) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Pipeline.Run",
		trace.WithAttributes(
			attribute.String("run.id", r.RunID),
			attribute.String("entity.code", r.Request.EntityCode),
			attribute.String("reference_date", r.Request.ReferenceDate),
		),
	)
}

func endRunSpan(span trace.Span, r *Result, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(
		attribute.Int("sections.failed", len(r.Failed())),
		attribute.Float64("quality.reliability", r.Quality.Reliability),
		attribute.Bool("run.interrupted", r.Interrupted),
	)
	span.SetStatus(codes.Ok, "")
}

func startSectionSpan(ctx context.Context, id section.ID) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Pipeline.Section",
		trace.WithAttributes(attribute.String("section.id", id.String())),
	)
}

func endSectionSpan(span trace.Span, o Outcome) {
	span.SetAttributes(attribute.String("section.outcome", o.Kind.String()))
	if o.Err != nil {
		span.RecordError(o.Err)
		span.SetStatus(codes.Error, o.Kind.String())
	}
}
