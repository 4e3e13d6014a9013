// Package prompt assembles the final model prompt from a question, retrieved
// memory, web search summaries, and extracted file texts, under tiered
// character budgets and a hard overall ceiling.
package prompt

import (
	"fmt"
	"strings"
)

const (
	// DefaultHardLimit is the overall prompt ceiling in characters.
	DefaultHardLimit = 12000

	searchEntryLimit  = 2
	searchCharBudget  = 800
	fileCharBudget    = 5000
	truncatedMarker   = "\n[Context truncated]"
	fileCutMarker     = "\n[file truncated]"
	recentLabelCutoff = 15
)

const systemBase = "You are a helpful private assistant. Be concise and honest. " +
	"Only reference user memory or web search results if explicit excerpts are included in the prompt. " +
	"If no such excerpts are present, do not imply you accessed memory or the web. " +
	"When in doubt, say 'I do not have that information.'"

// Builder assembles prompts. The zero value uses DefaultHardLimit.
type Builder struct {
	HardLimit int
}

// NewBuilder returns a Builder with the default ceiling.
func NewBuilder() *Builder {
	return &Builder{HardLimit: DefaultHardLimit}
}

// memoryBudget returns the per-entry character budget for the i-th memory
// entry (1-indexed). Earlier entries are assumed more relevant and keep more.
func memoryBudget(i int) int {
	switch {
	case i <= 5:
		return 800
	case i <= 15:
		return 500
	case i <= 30:
		return 300
	default:
		return 200
	}
}

// memoryLabel tags an entry with its position so the model can weight recent
// context over older context.
func memoryLabel(i, total int) string {
	if i <= recentLabelCutoff {
		return fmt.Sprintf("Recent %d/%d", i, total)
	}
	return fmt.Sprintf("Context %d/%d", i, total)
}

// clip truncates s to at most budget characters, appending "..." when cut.
func clip(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	return s[:budget] + "..."
}

// Build assembles the full prompt in fixed section order: system instruction,
// memory, search, files, the question, and a closing instruction. Sections
// with no content are omitted entirely. The returned string never exceeds
// the hard ceiling.
func (b *Builder) Build(question, persona string, memoryTexts, searchTexts, fileTexts []string) string {
	var sb strings.Builder

	sb.WriteString(b.systemPrompt(persona))
	sb.WriteString("\n\n")

	if len(memoryTexts) > 0 {
		sb.WriteString("=== PREVIOUS CONVERSATIONS AND MEMORIES ===\n")
		sb.WriteString("The following are from previous interactions with the user. Use this information to answer their questions.\n\n")
		total := len(memoryTexts)
		for i, m := range memoryTexts {
			idx := i + 1
			sb.WriteString(fmt.Sprintf("[%s] %s\n", memoryLabel(idx, total), clip(m, memoryBudget(idx))))
		}
		sb.WriteString("\n=== END OF PREVIOUS CONVERSATIONS ===\n\n")
	}

	if len(searchTexts) > 0 {
		sb.WriteString("Search results (summaries):\n")
		for i, s := range searchTexts {
			if i >= searchEntryLimit {
				break
			}
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, clip(s, searchCharBudget)))
		}
		sb.WriteString("\n")
	}

	if len(fileTexts) > 0 {
		sb.WriteString("Attached file contents:\n")
		for i, f := range fileTexts {
			text := f
			if len(text) > fileCharBudget {
				text = text[:fileCharBudget] + fileCutMarker
			}
			sb.WriteString(fmt.Sprintf("--- File %d ---\n%s\n", i+1, text))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("User question: %s\n", question))
	sb.WriteString("Answer succinctly. If you do not have supporting context, explicitly say you do not know.\n")

	return b.enforceCeiling(sb.String())
}

// systemPrompt weaves an optional persona into the base instruction.
func (b *Builder) systemPrompt(persona string) string {
	persona = strings.TrimSpace(persona)
	if persona == "" {
		return systemBase
	}
	return fmt.Sprintf("You are a helpful private assistant with a %s personality. "+
		"Respond in a %s style while being concise and honest. ", persona, persona) +
		"Only reference user memory or web search results if explicit excerpts are included in the prompt. " +
		"If no such excerpts are present, do not imply you accessed memory or the web. " +
		"When in doubt, say 'I do not have that information.'"
}

// enforceCeiling is the outermost safety net, applied after the per-section
// budgets. The marker counts against the ceiling so the result never exceeds
// the limit.
func (b *Builder) enforceCeiling(s string) string {
	limit := b.HardLimit
	if limit <= 0 {
		limit = DefaultHardLimit
	}
	if len(s) <= limit {
		return s
	}
	return s[:limit-len(truncatedMarker)] + truncatedMarker
}
