package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/documind/internal/core/domain"
	"github.com/custodia-labs/documind/internal/core/ports/driven"
)

// systemInstructions anchors the model to the retrieved excerpts.
const systemInstructions = `You are a document assistant. Answer the user's question using only the document excerpts provided below. Each excerpt is labelled with the page it came from.

Rules:
- Base your answer strictly on the excerpts. Do not use outside knowledge.
- If the excerpts do not contain the answer, say so plainly.
- When you use an excerpt, mention its page number in your answer where natural.
- Be concise.`

// noContextReply is returned when retrieval finds nothing for the query.
const noContextReply = "I couldn't find anything in this document relevant to your question."

// buildMessages assembles the conversation sent to the model: system
// instructions with excerpts, the trailing history window, then the
// current query.
func buildMessages(query string, results []domain.ScoredEntry, history []domain.Turn, maxHistory int) []driven.ChatMessage {
	var sb strings.Builder
	sb.WriteString(systemInstructions)
	sb.WriteString("\n\nDocument excerpts:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "\n--- Excerpt %d (Page %d) ---\n%s\n", i+1, r.Entry.Page, r.Entry.Content)
	}

	messages := []driven.ChatMessage{{Role: "system", Content: sb.String()}}

	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, turn := range history {
		role := "user"
		if turn.Role == domain.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, driven.ChatMessage{Role: role, Content: turn.Content})
	}

	messages = append(messages, driven.ChatMessage{Role: "user", Content: query})
	return messages
}

// sourcePages returns the distinct pages behind the excerpts, ascending.
func sourcePages(results []domain.ScoredEntry) []int {
	seen := make(map[int]bool)
	pages := make([]int, 0, len(results))
	for _, r := range results {
		if !seen[r.Entry.Page] {
			seen[r.Entry.Page] = true
			pages = append(pages, r.Entry.Page)
		}
	}
	sort.Ints(pages)
	return pages
}
