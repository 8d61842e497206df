package model

import "time"

// ReportType distinguishes the period an AI report covers.
type ReportType string

const (
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
	ReportCustom  ReportType = "custom"
)

// ReportInsights is the structured part of an AI report.
// Numeric fields are computed locally from sessions; the text fields come
// from the completion provider when its reply could be parsed.
type ReportInsights struct {
	ProductivityScore int      `json:"productivityScore"`
	Streak            int      `json:"streak"`
	TotalHours        float64  `json:"totalHours"`
	AverageSession    float64  `json:"averageSession"`
	Summary           string   `json:"summary,omitempty"`
	Achievements      []string `json:"achievements"`
	Recommendations   []string `json:"recommendations"`
	FocusAreas        []string `json:"focusAreas"`
}

// AIReport is an immutable record of one generated report.
// Several reports of the same type may exist for a user; readers take the
// most recently created one.
type AIReport struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Type        ReportType     `json:"type"`
	ReportText  string         `json:"reportText"`
	Insights    ReportInsights `json:"insights"`
	PeriodStart time.Time      `json:"periodStart"`
	PeriodEnd   time.Time      `json:"periodEnd"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
