package main

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// --- reports command ---

var (
	reportsEntity string
	reportsLimit  int
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List archived reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reports, err := db.ListReports(reportsEntity, reportsLimit)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("No reports yet. Create one with: stockbrief analyze")
			return nil
		}

		for _, r := range reports {
			flags := ""
			if r.Interrupted {
				flags = " [interrupted]"
			}
			if !r.ValidationPassed {
				flags += " [validation failed]"
			}
			fmt.Printf("  [%d] %s %s(%s) %.0f%% %s%s\n",
				r.ID, r.ReferenceDate, r.EntityName, r.EntityCode, r.Reliability*100, r.Status, flags)
		}
		return nil
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print an archived report as markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid report ID: %s", args[0])
		}
		r, err := db.GetReport(id)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("report %d not found", id)
		}
		fmt.Print(r.Markdown)
		return nil
	},
}

func init() {
	reportsCmd.Flags().StringVarP(&reportsEntity, "entity", "e", "", "Only list reports for this entity code")
	reportsCmd.Flags().IntVarP(&reportsLimit, "limit", "n", 20, "Maximum number of reports")
	reportsCmd.AddCommand(reportsShowCmd)
}

// --- alerts command ---

var (
	alertsSeverity string
	alertsLimit    int
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List recorded alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		alerts, err := db.ListAlerts(alertsSeverity, alertsLimit)
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			fmt.Println("No alerts recorded.")
			return nil
		}

		for _, a := range alerts {
			delivered := "sent"
			if !a.Delivered {
				delivered = "not sent"
			}
			when := ""
			if a.CreatedAt != nil {
				when = *a.CreatedAt
			}
			fmt.Printf("  [%d] %s %-8s (%s)\n", a.ID, when, a.Severity, delivered)
			for _, line := range strings.Split(stripTags(a.Message), "\n") {
				if line != "" {
					fmt.Printf("        %s\n", line)
				}
			}
		}
		return nil
	},
}

func init() {
	alertsCmd.Flags().StringVarP(&alertsSeverity, "severity", "s", "", "Only list critical, error, or warning alerts")
	alertsCmd.Flags().IntVarP(&alertsLimit, "limit", "n", 20, "Maximum number of alerts")
}

var tagReplacer = strings.NewReplacer("<b>", "", "</b>", "")

// stripTags undoes the chat markup alerts are stored with.
func stripTags(s string) string {
	return html.UnescapeString(tagReplacer.Replace(s))
}
