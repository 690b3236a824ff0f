package pipeline

import (
	"fmt"
	"strings"

	"Outreach/backend/go/internal/rag_service/rag/schema"
)

// DefaultContextChars bounds the size of a built context block.
const DefaultContextChars = 4000

// BuildContext renders search results as a numbered block that can be pasted
// into an email-personalisation prompt. Results that would push the block
// past maxChars are left out; maxChars <= 0 means DefaultContextChars.
func BuildContext(query string, results []schema.SearchResult, maxChars int) string {
	if len(results) == 0 {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultContextChars
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Relevant knowledge for: %s\n", query))

	used := 0
	for i, r := range results {
		entry := fmt.Sprintf("---\n[%d] %s (%s, score %.2f)\n%s\n", i+1, r.FileName, r.Category, r.Score, r.Text)
		if used > 0 && sb.Len()+len(entry) > maxChars {
			break
		}
		sb.WriteString(entry)
		used++
	}
	sb.WriteString("---")
	return sb.String()
}
