// Package quality turns dependency health into a reliability score and the
// data-quality block printed at the top of every report.
package quality

import (
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/locale"
)

// ReliableThreshold is the lowest score still labelled reliable.
const ReliableThreshold = 0.8

// TimestampLayout is used for the analyzed-at line.
const TimestampLayout = "2006-01-02 15:04:05"

// Status labels.
const (
	StatusReliable    = "reliable"
	StatusNeedsReview = "needs verification"
)

// Status is the health outcome of one dependency.
type Status struct {
	Name    string
	Healthy bool
}

// Statuses keeps dependency results in the order they were checked.
type Statuses []Status

// Healthy counts the healthy entries.
func (s Statuses) Healthy() int {
	n := 0
	for _, st := range s {
		if st.Healthy {
			n++
		}
	}
	return n
}

// Metadata is the read-only quality record for one run.
type Metadata struct {
	Timestamp        time.Time
	Statuses         Statuses
	ValidationPassed bool
	Reliability      float64
	Status           string
}

// Reliable reports whether the score meets the threshold.
func (m Metadata) Reliable() bool { return m.Reliability >= ReliableThreshold }

// Score computes reliability as healthy/total, 0 when nothing was checked.
func Score(statuses Statuses, validationPassed bool, now time.Time) Metadata {
	var reliability float64
	if len(statuses) > 0 {
		reliability = float64(statuses.Healthy()) / float64(len(statuses))
	}
	status := StatusNeedsReview
	if reliability >= ReliableThreshold {
		status = StatusReliable
	}
	return Metadata{
		Timestamp:        now,
		Statuses:         append(Statuses(nil), statuses...),
		ValidationPassed: validationPassed,
		Reliability:      reliability,
		Status:           status,
	}
}

// Render formats the metadata as a markdown block in the given locale.
func Render(m Metadata, loc *locale.Locale) string {
	icon := "⚠️"
	label := loc.StatusNeedsReview
	if m.Reliable() {
		icon = "✅"
		label = loc.StatusReliable
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n## %s\n\n", loc.QualityHeading)
	fmt.Fprintf(&sb, "**%s**: %s %.0f%% (%s)\n\n", loc.ReliabilityLabel, icon, m.Reliability*100, label)
	fmt.Fprintf(&sb, "**%s**:\n", loc.SourcesLabel)
	for _, st := range m.Statuses {
		mark := loc.SourceUnhealthy
		if st.Healthy {
			mark = loc.SourceHealthy
		}
		fmt.Fprintf(&sb, "- %s: %s\n", st.Name, mark)
	}
	fmt.Fprintf(&sb, "\n**%s**: %s\n", loc.AnalyzedAtLabel, m.Timestamp.Format(TimestampLayout))
	return sb.String()
}
