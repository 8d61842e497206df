package ai

import (
	"encoding/json"
	"strings"
)

// ReportKind tells callers whether the model's reply had the requested shape.
type ReportKind string

const (
	// ReportParsed means the reply was a JSON object with the report fields.
	ReportParsed ReportKind = "parsed"
	// ReportRaw means the reply was kept as plain text in Summary.
	ReportRaw ReportKind = "raw"
)

// WeeklyReport is the narrative part of a weekly report.
type WeeklyReport struct {
	Summary         string   `json:"summary"`
	Achievements    []string `json:"achievements"`
	Recommendations []string `json:"recommendations"`
	FocusAreas      []string `json:"focusAreas"`
}

// ParsedReport is the tagged result of ParseWeeklyReport.
type ParsedReport struct {
	Kind   ReportKind
	Report WeeklyReport
}

// ParseWeeklyReport interprets a model reply.
//
// Models often wrap JSON in a ```json fence, so one is stripped first. A reply
// that still is not a JSON object with a non-empty summary becomes a raw
// report whose Summary is the whole text and whose lists are empty. That is a
// valid outcome, not an error.
func ParseWeeklyReport(text string) ParsedReport {
	candidate := stripCodeFence(strings.TrimSpace(text))

	var report WeeklyReport
	if strings.HasPrefix(candidate, "{") && json.Unmarshal([]byte(candidate), &report) == nil &&
		strings.TrimSpace(report.Summary) != "" {
		report.Achievements = nonNil(report.Achievements)
		report.Recommendations = nonNil(report.Recommendations)
		report.FocusAreas = nonNil(report.FocusAreas)
		return ParsedReport{Kind: ReportParsed, Report: report}
	}

	return ParsedReport{
		Kind: ReportRaw,
		Report: WeeklyReport{
			Summary:         text,
			Achievements:    []string{},
			Recommendations: []string{},
			FocusAreas:      []string{},
		},
	}
}

// stripCodeFence removes a surrounding Markdown code fence, with or without a
// language tag. Text without a fence is returned unchanged.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// drop the language tag line, e.g. "json\n"
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 && !strings.Contains(inner[:nl], "{") {
		inner = inner[nl+1:]
	}
	return strings.TrimSpace(inner)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
