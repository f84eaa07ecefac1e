// Package pipeline runs one report: health gate, per-section generation and
// validation, synthesis, and assembly of the final markdown document.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/StockBrief/internal/alert"
	"github.com/TobiSchelling/StockBrief/internal/chart"
	"github.com/TobiSchelling/StockBrief/internal/failure"
	"github.com/TobiSchelling/StockBrief/internal/locale"
	"github.com/TobiSchelling/StockBrief/internal/logger"
	"github.com/TobiSchelling/StockBrief/internal/metrics"
	"github.com/TobiSchelling/StockBrief/internal/quality"
	"github.com/TobiSchelling/StockBrief/internal/section"
	"github.com/TobiSchelling/StockBrief/internal/sectioncache"
	"github.com/TobiSchelling/StockBrief/internal/validate"
)

// DateLayout is the reference date format used throughout a run.
const DateLayout = "20060102"

// SectionProducer writes an entity-scoped section. *analyst.Analyst satisfies it.
type SectionProducer interface {
	Produce(ctx context.Context, id section.ID, name, code, date string) (string, error)
}

// MarketProducer writes a section that only depends on the reference date.
type MarketProducer interface {
	ProduceMarket(ctx context.Context, id section.ID, date string) (string, error)
}

// Synthesizer writes the cross-section texts. *compose.Composer satisfies it.
type Synthesizer interface {
	Strategy(ctx context.Context, results *section.Results, combined, name, code, date string) (string, error)
	Summary(ctx context.Context, results *section.Results, name, code, date string) (string, error)
}

// ChartRenderer returns embeddable markup for one chart.
type ChartRenderer interface {
	Render(ctx context.Context, code, name string, kind chart.Kind, title string, opts chart.Options) (string, error)
}

// HealthChecker reports whether a named dependency is usable.
type HealthChecker interface {
	Check(ctx context.Context, name string) bool
}

// Notifier delivers operator alerts. *alert.Recorder satisfies it.
type Notifier interface {
	Notify(ctx context.Context, m alert.Message) bool
}

// Deps are the collaborators of a pipeline. Charts, Alerts and Cache may be nil.
type Deps struct {
	Sections  SectionProducer
	Market    MarketProducer
	Synth     Synthesizer
	Charts    ChartRenderer
	Health    HealthChecker
	Alerts    Notifier
	Validator *validate.Validator
	Cache     *sectioncache.Cache
	Locale    *locale.Locale
}

// Options tune a pipeline.
type Options struct {
	// Required dependencies are checked in order before any section runs.
	Required       []string
	SectionTimeout time.Duration
	PriceTolerance float64
	Charts         chart.Options
	Now            func() time.Time
}

// State is a step of the run state machine.
type State string

const (
	StateInit        State = "init"
	StateHealthGate  State = "health_gate"
	StateSectionLoop State = "section_loop"
	StateStrategy    State = "strategy_synthesis"
	StateSummary     State = "summary_synthesis"
	StateAssembly    State = "assembly"
	StateDone        State = "done"
	StateAborted     State = "aborted"
)

// Request names the entity and day to analyze.
type Request struct {
	EntityCode    string
	EntityName    string
	ReferenceDate string // YYYYMMDD, empty means today
	// TriggerPrice, when positive, is cross-checked against the price quoted
	// by the price/volume section.
	TriggerPrice float64
}

// Entity renders the entity the way alerts show it.
func (r Request) Entity() string {
	return fmt.Sprintf("%s(%s)", r.EntityName, r.EntityCode)
}

// Outcome is the typed result of one section.
type Outcome struct {
	Section section.ID
	Text    string
	Kind    failure.Kind
	Err     error
}

// OK reports whether the section produced accepted text.
func (o Outcome) OK() bool { return o.Kind == failure.KindNone }

// PriceCheck records the trigger price cross-check of a run.
type PriceCheck struct {
	validate.Comparison
	Found bool
	Err   error
}

// Result is everything a finished run produced.
type Result struct {
	RunID       string
	Request     Request
	Document    string
	Outcomes    []Outcome // section.Document() order
	Quality     quality.Metadata
	States      []State
	Interrupted bool
	PriceCheck  *PriceCheck
}

func (r *Result) enter(s State) {
	r.States = append(r.States, s)
	logger.Log.Debugf("run %s: %s", r.RunID, s)
}

// Failed returns the outcomes that did not produce accepted text.
func (r *Result) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Pipeline produces reports. It holds no per-run state and may run
// concurrently; the section cache is the only shared structure.
type Pipeline struct {
	deps Deps
	opts Options
	loc  *locale.Locale
}

// New creates a pipeline.
func New(deps Deps, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PriceTolerance <= 0 {
		opts.PriceTolerance = validate.DefaultTolerance
	}
	loc := deps.Locale
	if loc == nil {
		loc = locale.Korean
	}
	if deps.Validator == nil {
		deps.Validator = validate.New(loc, validate.DefaultMinLength, nil)
	}
	return &Pipeline{deps: deps, opts: opts, loc: loc}
}

// Run produces the report for req. The only error it returns wraps
// failure.ErrDependencyUnavailable, raised when a required dependency fails
// the health gate; every later failure becomes placeholder content.
//
// Cancelling ctx after the gate stops section generation: the remaining
// sections get placeholders, synthesis falls back, and the document is still
// assembled with Interrupted set.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	now := p.opts.Now()
	if req.ReferenceDate == "" {
		req.ReferenceDate = now.Format(DateLayout)
	}

	r := &Result{RunID: uuid.NewString(), Request: req}
	ctx, span := startRunSpan(ctx, r)
	defer span.End()

	r.enter(StateInit)
	logger.Log.Infof("analyzing %s for %s (run %s)", req.Entity(), req.ReferenceDate, r.RunID)

	r.enter(StateHealthGate)
	statuses, err := p.healthGate(ctx, req)
	if err != nil {
		r.enter(StateAborted)
		metrics.PipelineRuns.WithLabelValues("aborted").Inc()
		endRunSpan(span, r, err)
		return nil, err
	}

	r.enter(StateSectionLoop)
	results := section.NewResults()
	validated := true
	for _, id := range section.Catalog {
		var o Outcome
		if err := ctx.Err(); err != nil {
			o = p.cancelled(id, err)
		} else {
			o = p.runSection(ctx, req, id)
		}
		if o.Kind == failure.KindCancelled {
			if !r.Interrupted {
				logger.Log.Warnf("run %s interrupted at %s", r.RunID, id)
			}
			r.Interrupted = true
		}
		if !o.OK() {
			validated = false
		}
		metrics.Sections.WithLabelValues(id.String(), o.Kind.String()).Inc()
		results.Set(id, o.Text)
		r.Outcomes = append(r.Outcomes, o)
	}

	if pv := r.Outcomes[0]; pv.Section == section.PriceVolume {
		r.PriceCheck = p.checkPrice(ctx, req, pv)
	}

	r.enter(StateStrategy)
	strategy := p.strategy(ctx, req, results)
	results.Set(section.InvestmentStrategy, strategy.Text)
	r.Outcomes = append(r.Outcomes, strategy)

	r.enter(StateSummary)
	summary := p.summary(ctx, req, results)

	r.enter(StateAssembly)
	r.Quality = quality.Score(statuses, validated, p.opts.Now())
	r.Document = p.assemble(ctx, req, r.Quality, summary, results)

	r.enter(StateDone)
	outcome := "completed"
	if r.Interrupted {
		outcome = "interrupted"
	}
	metrics.PipelineRuns.WithLabelValues(outcome).Inc()
	logger.Log.Infof("report for %s finished: %d/%d sections ok, reliability %.0f%%",
		req.Entity(), len(section.Catalog)-countFailed(r.Outcomes[:len(section.Catalog)]),
		len(section.Catalog), r.Quality.Reliability*100)
	endRunSpan(span, r, nil)
	return r, nil
}

// healthGate checks the required dependencies in order and stops at the
// first unhealthy one.
func (p *Pipeline) healthGate(ctx context.Context, req Request) (quality.Statuses, error) {
	statuses := make(quality.Statuses, 0, len(p.opts.Required))
	for _, name := range p.opts.Required {
		healthy := p.deps.Health != nil && p.deps.Health.Check(ctx, name)
		statuses = append(statuses, quality.Status{Name: name, Healthy: healthy})
		if healthy {
			continue
		}

		err := &failure.DependencyError{Name: name}
		logger.Log.Errorf("CRITICAL: %v (%s, %s)", err, req.Entity(), req.ReferenceDate)
		p.notify(ctx, alert.Message{
			Severity: alert.Critical,
			Title:    fmt.Sprintf(p.loc.AlertCritical, name),
			Entity:   req.Entity(),
			Fields: []alert.Field{
				{Label: p.loc.FieldEntity, Value: req.Entity()},
				{Label: p.loc.FieldReferenceDate, Value: req.ReferenceDate},
			},
			Note: p.loc.AlertAborted,
		})
		return nil, err
	}
	return statuses, nil
}

func (p *Pipeline) notify(ctx context.Context, m alert.Message) {
	if p.deps.Alerts == nil {
		logger.Log.Warnf("alert not sent (no notifier): %s", m.Title)
		return
	}
	// Alerts about an interrupted run must still go out.
	p.deps.Alerts.Notify(context.WithoutCancel(ctx), m)
}

// withTimeout bounds one producer or synthesis call.
func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.SectionTimeout > 0 {
		return context.WithTimeout(ctx, p.opts.SectionTimeout)
	}
	return context.WithCancel(ctx)
}

func countFailed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}
