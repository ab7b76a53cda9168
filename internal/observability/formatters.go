// Package observability sets up logging and metrics and formats analysis output for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/cover-letter-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// writeList writes up to limit items with a trailing "... and N more" line
func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
	sb.WriteString("\n")
}

// PrintSkills outputs a summary of the skills extracted from a resume.
func (p *Printer) PrintSkills(skills *types.SkillsAnalysis) {
	if skills.IsEmpty() {
		return
	}

	technical := make([]string, 0, len(skills.TechnicalSkills))
	for _, s := range skills.TechnicalSkills {
		line := s.Skill
		if s.Years > 0 {
			line += fmt.Sprintf(" (%g yrs)", s.Years)
		}
		if s.Level != "" {
			line += " " + s.Level
		}
		technical = append(technical, line)
	}
	soft := make([]string, 0, len(skills.SoftSkills))
	for _, s := range skills.SoftSkills {
		soft = append(soft, s.Skill)
	}
	achievements := make([]string, 0, len(skills.Achievements))
	for _, a := range skills.Achievements {
		achievements = append(achievements, a.Description)
	}

	var sb strings.Builder
	writeList(&sb, "Technical Skills", technical, maxItemsToShow)
	writeList(&sb, "Soft Skills", soft, 3)
	writeList(&sb, "Achievements", achievements, 3)
	p.printBox("RESUME SKILLS", strings.TrimSuffix(sb.String(), "\n\n"))
}

// PrintRequirements outputs a summary of the parsed job requirements.
func (p *Printer) PrintRequirements(reqs *types.JobRequirements) {
	if reqs.IsEmpty() {
		return
	}

	core := make([]string, 0, len(reqs.CoreRequirements))
	for _, r := range reqs.CoreRequirements {
		line := r.Skill
		if r.YearsExperience > 0 {
			line += fmt.Sprintf(" (%g+ yrs)", r.YearsExperience)
		}
		core = append(core, line)
	}
	nice := make([]string, 0, len(reqs.NiceToHave))
	for _, n := range reqs.NiceToHave {
		nice = append(nice, n.Skill)
	}
	culture := make([]string, 0, len(reqs.CultureIndicators))
	for _, c := range reqs.CultureIndicators {
		culture = append(culture, c.Aspect)
	}

	var sb strings.Builder
	writeList(&sb, "Core Requirements", core, maxItemsToShow)
	writeList(&sb, "Nice-to-haves", nice, 3)
	writeList(&sb, "Culture", culture, 3)
	p.printBox("JOB REQUIREMENTS", strings.TrimSuffix(sb.String(), "\n\n"))
}

// PrintStrategy outputs the skill gap analysis and the top talking points.
func (p *Printer) PrintStrategy(strategy *types.CoverLetterStrategy) {
	if strategy == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Approach: %s\n\n", strategy.OverallApproach))

	gap := strategy.GapAnalysis
	sb.WriteString(fmt.Sprintf("Strong: %d  Partial: %d  Missing: %d\n\n",
		len(gap.StrongMatches), len(gap.PartialMatches), len(gap.MissingSkills)))

	points := append([]types.TalkingPoint(nil), strategy.KeyTalkingPoints...)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Priority < points[j].Priority })
	lines := make([]string, 0, len(points))
	for _, tp := range points {
		lines = append(lines, fmt.Sprintf("[P%d] %s", tp.Priority, tp.Topic))
	}
	writeList(&sb, "Talking Points", lines, maxItemsToShow)

	p.printBox("COVER LETTER STRATEGY", strings.TrimSuffix(sb.String(), "\n\n"))
}

// PrintATSAnalysis outputs the ATS scores and missing keywords.
func (p *Printer) PrintATSAnalysis(analysis *types.ATSAnalysis) {
	if analysis == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Keyword match:    %.2f\n", analysis.KeywordMatchScore))
	sb.WriteString(fmt.Sprintf("Parse confidence: %.2f\n\n", analysis.ParseConfidence))
	writeList(&sb, "Missing Terms", analysis.KeyTermsMissing, maxItemsToShow)

	issues := make([]string, 0, len(analysis.FormatIssues))
	for _, issue := range analysis.FormatIssues {
		issues = append(issues, fmt.Sprintf("%s [%s]", issue.Description, issue.Severity))
	}
	writeList(&sb, "Format Issues", issues, 3)

	p.printBox("ATS ANALYSIS", strings.TrimRight(sb.String(), "\n"))
}

// PrintSuggestions outputs every review suggestion, or a confirmation when there are none.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintSuggestions(suggestions []types.Suggestion) {
	if len(suggestions) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO SUGGESTIONS")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d suggestions:\n\n", len(suggestions)))
	for i, s := range suggestions {
		sb.WriteString(fmt.Sprintf("⚠ %s (%s)\n", s.Type, s.Priority))
		detail := s.Details
		if len(s.Terms) > 0 {
			detail = strings.Join(s.Terms, ", ")
			if s.Suggestion != "" {
				detail += " → " + s.Suggestion
			}
		}
		sb.WriteString(fmt.Sprintf("  %s\n", detail))
		if i < len(suggestions)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("REVIEW SUGGESTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStep outputs a single progress line
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintStep(category, step, message string) {
	fmt.Fprintf(p.out, "[%s] %s: %s\n", category, step, message)
}
