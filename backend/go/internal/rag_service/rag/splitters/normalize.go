package splitters

import (
	"regexp"
	"strings"
)

var (
	// ASCII control characters except tab, newline and carriage return.
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	// Whitespace runs that do not contain a newline.
	inlineSpace = regexp.MustCompile(`[^\S\n]+`)
	// Spaces hugging a newline.
	spaceAroundNewline = regexp.MustCompile(` *\n *`)
	excessNewlines     = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans extracted text before chunking: control characters are
// removed, whitespace runs collapse to one space, three or more newlines
// collapse to a paragraph break, and the result is trimmed.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = controlChars.ReplaceAllString(text, "")
	text = inlineSpace.ReplaceAllString(text, " ")
	text = spaceAroundNewline.ReplaceAllString(text, "\n")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
