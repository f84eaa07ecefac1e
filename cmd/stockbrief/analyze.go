package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/StockBrief/internal/alert"
	"github.com/TobiSchelling/StockBrief/internal/failure"
	"github.com/TobiSchelling/StockBrief/internal/pipeline"
	"github.com/TobiSchelling/StockBrief/internal/quality"
	"github.com/TobiSchelling/StockBrief/internal/validate"
)

// --- analyze command ---

var (
	analyzeDate    string
	analyzeTrigger float64
	analyzeOutput  string
	noArchive      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [code[:name]...]",
	Short: "Generate reports for one or more entities (default from config)",
	Long: `Runs the report pipeline for each entity in turn. Entities are given as
CODE or CODE:NAME, e.g. 000660:SK하이닉스. Running several entities in one
invocation reuses the market section between them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeDate != "" {
			if _, err := time.Parse(pipeline.DateLayout, analyzeDate); err != nil {
				return fmt.Errorf("invalid --date %q, expected YYYYMMDD", analyzeDate)
			}
		}
		requests, err := parseEntities(args)
		if err != nil {
			return err
		}
		if analyzeOutput != "" && len(requests) > 1 {
			return errors.New("--output can only be used with a single entity")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		pipe := a.pipeline()
		ctx := cmd.Context()
		var failed int
		for _, req := range requests {
			req.ReferenceDate = analyzeDate
			req.TriggerPrice = analyzeTrigger

			fmt.Printf("Analyzing %s...\n", req.Entity())
			result, err := pipe.Run(ctx, req)
			if err != nil {
				// Only a required data source outage gets here.
				fmt.Printf("  Aborted: %v\n", err)
				failed++
				continue
			}

			printRunSummary(result)
			if err := writeReport(result); err != nil {
				return err
			}
			if !noArchive {
				id, err := pipeline.Archive(a.db, result)
				if err != nil {
					return fmt.Errorf("archiving report: %w", err)
				}
				fmt.Printf("  Archived as report %d. Run 'stockbrief serve' to view it.\n", id)
			}
			if result.Interrupted {
				fmt.Println("Interrupted; remaining entities skipped.")
				break
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d analyses aborted", failed, len(requests))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeDate, "date", "d", "", "Reference date YYYYMMDD (default today)")
	analyzeCmd.Flags().Float64Var(&analyzeTrigger, "trigger-price", 0, "Cross-check the quoted latest close against this price")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the report to this file instead of the data directory")
	analyzeCmd.Flags().BoolVar(&noArchive, "no-archive", false, "Do not store the report in the database")
}

func parseEntities(args []string) ([]pipeline.Request, error) {
	if len(args) == 0 {
		return []pipeline.Request{{EntityCode: cfg.Entity.Code, EntityName: cfg.Entity.Name}}, nil
	}
	requests := make([]pipeline.Request, 0, len(args))
	for _, arg := range args {
		code, name, _ := strings.Cut(arg, ":")
		code = strings.TrimSpace(code)
		if code == "" {
			return nil, fmt.Errorf("invalid entity %q", arg)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = code
			if code == cfg.Entity.Code {
				name = cfg.Entity.Name
			}
		}
		requests = append(requests, pipeline.Request{EntityCode: code, EntityName: name})
	}
	return requests, nil
}

func printRunSummary(r *pipeline.Result) {
	ok := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			ok++
			continue
		}
		fmt.Printf("  %s: %s\n", o.Section, o.Kind)
	}
	fmt.Printf("  Sections: %d/%d ok, reliability %.0f%% (%s)\n",
		ok, len(r.Outcomes), r.Quality.Reliability*100, r.Quality.Status)
	if pc := r.PriceCheck; pc != nil {
		if pc.Err != nil {
			fmt.Printf("  Price check: %v\n", pc.Err)
		} else {
			fmt.Printf("  Price check: ok (deviation %.2f%%)\n", pc.Deviation*100)
		}
	}
}

func writeReport(r *pipeline.Result) error {
	path := analyzeOutput
	if path == "" {
		dir := cfg.GetDataDir() + "/reports"
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating reports directory: %w", err)
		}
		path = fmt.Sprintf("%s/%s_%s.md", dir, r.Request.EntityCode, r.Request.ReferenceDate)
	}
	if err := os.WriteFile(path, []byte(r.Document), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Printf("  Report written to %s\n", path)
	return nil
}

// --- health command ---

var healthAll bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the required data sources without generating a report",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		names := append([]string(nil), cfg.Health.Required...)
		if healthAll {
			names = appendMissing(names, depMarketData, depLLM, depArchive)
			for _, p := range cfg.Health.Probes {
				names = appendMissing(names, p.Name)
			}
		}

		statuses := a.checker.CheckAll(cmd.Context(), names)
		meta := quality.Score(statuses, true, time.Now())
		fmt.Print(quality.Render(meta, a.loc))

		for i, st := range statuses {
			if i < len(cfg.Health.Required) && !st.Healthy {
				return &failure.DependencyError{Name: st.Name}
			}
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().BoolVarP(&healthAll, "all", "a", false, "Also check the LLM, the archive and every configured probe")
}

func appendMissing(names []string, more ...string) []string {
	for _, m := range more {
		found := false
		for _, n := range names {
			if n == m {
				found = true
				break
			}
		}
		if !found {
			names = append(names, m)
		}
	}
	return names
}

// --- check-price command ---

var (
	checkReportID int64
	checkAlert    bool
)

var checkPriceCmd = &cobra.Command{
	Use:   "check-price [code] [reference-price]",
	Short: "Cross-check a price against the market feed or an archived report",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := args[0]
		reference, err := strconv.ParseFloat(strings.ReplaceAll(args[1], ",", ""), 64)
		if err != nil {
			return fmt.Errorf("invalid reference price: %s", args[1])
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var analyzed float64
		source := "market feed"
		if checkReportID > 0 {
			report, err := a.db.GetReport(checkReportID)
			if err != nil {
				return err
			}
			if report == nil {
				return fmt.Errorf("report %d not found", checkReportID)
			}
			price, ok := a.validator().ExtractPrice(report.Markdown)
			if !ok {
				return fmt.Errorf("report %d quotes no price", checkReportID)
			}
			analyzed = price.InexactFloat64()
			source = fmt.Sprintf("report %d", checkReportID)
		} else {
			candle, err := a.market.Latest(cmd.Context(), a.market.Symbol(code))
			if err != nil {
				return fmt.Errorf("fetching latest price: %w", err)
			}
			analyzed = candle.Close
		}

		comparison, err := validate.CheckPrice(analyzed, reference, cfg.Validation.PriceTolerance)
		fmt.Printf("%s: %.0f from %s, reference %.0f, deviation %.2f%% (tolerance %.0f%%)\n",
			code, analyzed, source, reference, comparison.Deviation*100, comparison.Tolerance*100)
		if err == nil {
			fmt.Println("OK")
			return nil
		}

		var mismatch *failure.PriceMismatchError
		if errors.As(err, &mismatch) {
			mismatch.Entity = code
		}
		if checkAlert {
			a.recorder.Notify(cmd.Context(), alert.Message{
				Severity: alert.Warning,
				Title:    a.loc.AlertPriceCheck,
				Entity:   code,
				Fields: []alert.Field{
					{Label: a.loc.FieldEntity, Value: code},
					{Label: a.loc.FieldError, Value: err.Error()},
				},
			})
		}
		return err
	},
}

func init() {
	checkPriceCmd.Flags().Int64Var(&checkReportID, "report", 0, "Use the price quoted in this archived report")
	checkPriceCmd.Flags().BoolVar(&checkAlert, "alert", false, "Send a warning alert on mismatch")
}
