package ai

var suggestions = []string{
	"Try the Pomodoro technique (25 minutes focused, 5 minutes break)",
	"Schedule your most important coding tasks during your most productive hours",
	"Review and refactor old code to improve maintainability",
	"Take regular breaks to avoid burnout and maintain focus",
	"Set specific, measurable goals for each coding session",
	"Use version control effectively with meaningful commit messages",
	"Document your code as you write it for future reference",
}

// Suggestions returns the fixed list of productivity tips.
// The caller gets its own copy.
func Suggestions() []string {
	out := make([]string, len(suggestions))
	copy(out, suggestions)
	return out
}
