package ai

import (
	"fmt"
	"strings"
)

const coachPersona = "You are a helpful productivity coach for software developers."

const chatPersona = "You are a helpful productivity coach for software developers. " +
	"Provide concise, actionable advice about coding productivity, time management, " +
	"learning strategies, and career development. Keep responses under 200 words."

// WeekSummary is the aggregate a weekly report prompt is built from.
type WeekSummary struct {
	TotalHours     float64
	SessionCount   int
	Projects       []string
	AverageSession float64 // hours
}

// WeeklyReportRequest builds the completion request for a weekly report.
// The model is asked to answer with a JSON object that ParseWeeklyReport
// understands.
func WeeklyReportRequest(s WeekSummary) CompletionRequest {
	var b strings.Builder
	b.WriteString("As a productivity coach for software developers, analyze this coding activity ")
	b.WriteString("data from the past week and provide a helpful weekly report.\n\n")
	b.WriteString("Weekly Summary:\n")
	fmt.Fprintf(&b, "- Total coding hours: %.1f hours\n", s.TotalHours)
	fmt.Fprintf(&b, "- Number of sessions: %d\n", s.SessionCount)
	fmt.Fprintf(&b, "- Projects worked on: %s\n", strings.Join(s.Projects, ", "))
	fmt.Fprintf(&b, "- Average session length: %.1f hours\n\n", s.AverageSession)
	b.WriteString("Please provide:\n")
	b.WriteString("1. A brief summary of the week's productivity\n")
	b.WriteString("2. 3-4 key achievements or positive patterns\n")
	b.WriteString("3. 2-3 actionable recommendations for improvement\n")
	b.WriteString("4. 2-3 focus areas for the upcoming week\n\n")
	b.WriteString("Format the response as a JSON object with these fields:\n")
	b.WriteString("- summary: string\n")
	b.WriteString("- achievements: array of strings\n")
	b.WriteString("- recommendations: array of strings\n")
	b.WriteString("- focusAreas: array of strings\n\n")
	b.WriteString("Keep the tone encouraging and constructive.")

	return CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: coachPersona},
			{Role: RoleUser, Content: b.String()},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	}
}

// ChatRequest wraps a free-form user question with the coach persona.
func ChatRequest(message string) CompletionRequest {
	return CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: chatPersona},
			{Role: RoleUser, Content: message},
		},
		Temperature: 0.7,
		MaxTokens:   150,
	}
}
