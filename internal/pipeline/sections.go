package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/alert"
	"github.com/TobiSchelling/StockBrief/internal/failure"
	"github.com/TobiSchelling/StockBrief/internal/logger"
	"github.com/TobiSchelling/StockBrief/internal/metrics"
	"github.com/TobiSchelling/StockBrief/internal/section"
	"github.com/TobiSchelling/StockBrief/internal/validate"
)

var (
	errNoProducer    = errors.New("no producer configured")
	errPriceNotFound = errors.New("no price quoted in the price/volume section")
)

// runSection produces and validates one section. It never returns an error:
// failures come back as an Outcome carrying the placeholder text.
func (p *Pipeline) runSection(ctx context.Context, req Request, id section.ID) Outcome {
	ctx, span := startSectionSpan(ctx, id)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.SectionDuration.WithLabelValues(id.String()).Observe(time.Since(start).Seconds())
	}()

	text, err := p.produce(ctx, req, id)
	switch {
	case err != nil && ctx.Err() != nil:
		o := p.cancelled(id, ctx.Err())
		endSectionSpan(span, o)
		return o
	case err != nil:
		err = &failure.GenerationError{Section: id.String(), Err: err}
	default:
		if err = p.deps.Validator.Validate(text, id); err != nil {
			logger.Log.Warnf("validation failed for %s: %v", id, err)
			p.notify(ctx, p.sectionAlert(alert.Warning, p.loc.AlertValidation, req, id, err))
		}
	}

	if err != nil {
		logger.Log.Errorf("section %s failed for %s: %v", id, req.Entity(), err)
		p.notify(ctx, p.sectionAlert(alert.Error, p.loc.AlertSectionFailed, req, id, err))
		o := Outcome{Section: id, Text: p.loc.Placeholder(id), Kind: failure.KindOf(err), Err: err}
		endSectionSpan(span, o)
		return o
	}

	logger.Log.Infof("section %s done (%d characters)", id, len([]rune(text)))
	o := Outcome{Section: id, Text: text}
	endSectionSpan(span, o)
	return o
}

// produce routes id to its producer. Cache-eligible sections are shared
// across runs through the section cache.
func (p *Pipeline) produce(ctx context.Context, req Request, id section.ID) (string, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	create := func() (string, error) {
		if !id.EntityScoped() {
			if p.deps.Market == nil {
				return "", errNoProducer
			}
			return p.deps.Market.ProduceMarket(ctx, id, req.ReferenceDate)
		}
		if p.deps.Sections == nil {
			return "", errNoProducer
		}
		return p.deps.Sections.Produce(ctx, id, req.EntityName, req.EntityCode, req.ReferenceDate)
	}

	if !id.CacheEligible() || p.deps.Cache == nil {
		return create()
	}
	text, hit, err := p.deps.Cache.GetOrCreate(id, req.ReferenceDate, create)
	if hit {
		logger.Log.Infof("using cached %s", id)
	}
	return text, err
}

func (p *Pipeline) cancelled(id section.ID, cause error) Outcome {
	return Outcome{
		Section: id,
		Text:    p.loc.Placeholder(id),
		Kind:    failure.KindCancelled,
		Err:     failure.Cancelled(id.String(), cause),
	}
}

func (p *Pipeline) sectionAlert(sev alert.Severity, title string, req Request, id section.ID, err error) alert.Message {
	return alert.Message{
		Severity: sev,
		Title:    title,
		Entity:   req.Entity(),
		Section:  id.String(),
		Fields: []alert.Field{
			{Label: p.loc.FieldEntity, Value: req.Entity()},
			{Label: p.loc.FieldSection, Value: id.String()},
			{Label: p.loc.FieldError, Value: err.Error()},
		},
	}
}

// strategy synthesizes the investment strategy, falling back to fixed text.
func (p *Pipeline) strategy(ctx context.Context, req Request, results *section.Results) Outcome {
	id := section.InvestmentStrategy
	fallback := func(kind failure.Kind, err error) Outcome {
		return Outcome{Section: id, Text: p.loc.StrategyFallback, Kind: kind, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fallback(failure.KindCancelled, failure.Cancelled(id.String(), err))
	}
	if p.deps.Synth == nil {
		return fallback(failure.KindGeneration, &failure.GenerationError{Section: id.String(), Err: errNoProducer})
	}

	sctx, cancel := p.withTimeout(ctx)
	defer cancel()
	text, err := p.deps.Synth.Strategy(sctx, results, results.Combined(section.Catalog),
		req.EntityName, req.EntityCode, req.ReferenceDate)
	if err != nil {
		logger.Log.Errorf("strategy synthesis failed for %s: %v", req.Entity(), err)
		return fallback(failure.KindGeneration, &failure.GenerationError{Section: id.String(), Err: err})
	}
	return Outcome{Section: id, Text: strings.TrimLeft(text, "\n")}
}

// summary synthesizes the executive summary, falling back to fixed markdown.
func (p *Pipeline) summary(ctx context.Context, req Request, results *section.Results) string {
	if ctx.Err() != nil || p.deps.Synth == nil {
		return p.loc.SummaryFallback
	}

	sctx, cancel := p.withTimeout(ctx)
	defer cancel()
	text, err := p.deps.Synth.Summary(sctx, results, req.EntityName, req.EntityCode, req.ReferenceDate)
	if err != nil {
		logger.Log.Errorf("summary synthesis failed for %s: %v", req.Entity(), err)
		return p.loc.SummaryFallback
	}
	return text
}

// checkPrice compares the price quoted by the price/volume section with the
// trigger price. A mismatch is reported but never fails the run.
func (p *Pipeline) checkPrice(ctx context.Context, req Request, pv Outcome) *PriceCheck {
	if req.TriggerPrice <= 0 || !pv.OK() {
		return nil
	}

	pc := &PriceCheck{}
	price, ok := p.deps.Validator.ExtractPrice(pv.Text)
	if !ok {
		pc.Err = errPriceNotFound
	} else {
		pc.Found = true
		pc.Comparison, pc.Err = validate.CheckPrice(price.InexactFloat64(), req.TriggerPrice, p.opts.PriceTolerance)
	}
	if pc.Err == nil {
		logger.Log.Infof("price cross-check passed for %s (deviation %.2f%%)", req.Entity(), pc.Deviation*100)
		return pc
	}

	var mismatch *failure.PriceMismatchError
	if errors.As(pc.Err, &mismatch) {
		mismatch.Entity = req.Entity()
	}
	logger.Log.Warnf("price cross-check failed: %v", pc.Err)
	p.notify(ctx, p.sectionAlert(alert.Warning, p.loc.AlertPriceCheck, req, pv.Section, pc.Err))
	return pc
}
