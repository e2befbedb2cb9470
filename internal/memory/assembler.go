package memory

import (
	"strings"

	"github.com/xxxsen/membot/internal/model"
	"github.com/xxxsen/membot/internal/rank"
)

// AssemblerLabels are the line prefixes used when rendering a prompt.
type AssemblerLabels struct {
	Summary   string
	User      string
	Bot       string
	Retrieved string
}

func DefaultLabels() AssemblerLabels {
	return AssemblerLabels{
		Summary:   "Summary: ",
		User:      "User: ",
		Bot:       "Bot: ",
		Retrieved: "Retrieved context:",
	}
}

// Assembler renders memory tiers and retrieved lines into a single prompt.
//
// Layout, each present section separated by a blank line:
//  1. long-term summaries, oldest first
//  2. short-term turns, oldest first
//  3. retrieved context block
//  4. the open turn for the new input
type Assembler struct {
	labels AssemblerLabels
}

func NewAssembler(labels AssemblerLabels) *Assembler {
	return &Assembler{labels: labels}
}

func (a *Assembler) Assemble(input string, short []model.Turn, long []model.Summary, retrieved []rank.Scored) string {
	sections := make([]string, 0, 4)
	if len(long) > 0 {
		lines := make([]string, 0, len(long))
		for _, s := range long {
			lines = append(lines, a.labels.Summary+s.Text)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if len(short) > 0 {
		sections = append(sections, a.Transcript(short))
	}
	if len(retrieved) > 0 {
		var sb strings.Builder
		sb.WriteString(a.labels.Retrieved)
		for _, r := range retrieved {
			sb.WriteString("\n- ")
			sb.WriteString(r.Text)
		}
		sections = append(sections, sb.String())
	}
	sections = append(sections, a.labels.User+input+"\n"+a.labels.Bot)
	return strings.Join(sections, "\n\n")
}

// Transcript renders turns as alternating user/bot lines. A seed turn has no
// user line.
func (a *Assembler) Transcript(turns []model.Turn) string {
	lines := make([]string, 0, len(turns)*2)
	for _, t := range turns {
		if !t.IsSeed() {
			lines = append(lines, a.labels.User+t.UserText)
		}
		lines = append(lines, a.labels.Bot+t.AssistantText)
	}
	return strings.Join(lines, "\n")
}
