package database

// Report is one archived pipeline run.
type Report struct {
	ID               int64
	RunID            string
	EntityCode       string
	EntityName       string
	ReferenceDate    string // YYYYMMDD
	Markdown         string
	Reliability      float64
	Status           string
	ValidationPassed bool
	Interrupted      bool
	ReferencePrice   *string
	PriceDeviation   *string
	GeneratedAt      *string
}

// SectionResult records how one section of a report ended.
type SectionResult struct {
	ReportID  int64
	SectionID string
	Position  int
	Kind      string // empty when the section succeeded
	Error     *string
	Length    int
}

// Succeeded reports whether the section produced real content.
func (s SectionResult) Succeeded() bool { return s.Kind == "" }

// Alert is a recorded operator notification.
type Alert struct {
	ID        int64
	Severity  string
	Entity    *string
	Section   *string
	Message   string
	Delivered bool
	CreatedAt *string
}

// Stats holds aggregate database statistics.
type Stats struct {
	Reports           int
	ReliableReports   int
	InterruptedRuns   int
	Entities          int
	FailedSections    int
	Alerts            int
	UndeliveredAlerts int
}
