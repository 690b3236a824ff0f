// Package classifier guesses a document category from its text when the
// uploader did not supply one.
package classifier

import (
	"strings"

	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"
)

type keywordGroup struct {
	category string
	keywords []string
}

// Order matters: the first group with a hit wins.
var defaultGroups = []keywordGroup{
	{schema.CategoryAppInfo, []string{"app feature", "our app", "mobile app", "platform feature", "sign up", "onboarding", "user guide", "dashboard"}},
	{schema.CategoryCompanyInfo, []string{"about us", "our company", "mission", "company culture", "headquarters", "founded", "our values", "leadership team"}},
	{schema.CategoryProductDetails, []string{"product", "pricing", "subscription", "specification", "release notes", "roadmap"}},
	{schema.CategoryRecruiting, []string{"recruit", "talent acquisition", "hiring", "job description", "candidate", "internship", "interview", "job opening"}},
	{schema.CategoryTechnical, []string{"api", "architecture", "technical", "database", "integration", "sdk", "infrastructure", "deployment"}},
}

// KeywordClassifier matches lower-cased keywords against the full text.
type KeywordClassifier struct {
	groups []keywordGroup
}

// NewKeywordClassifier returns a classifier using the built-in keyword groups.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{groups: defaultGroups}
}

// Classify returns the first category whose keywords appear in text, or
// schema.CategoryGeneral when none do.
func (c *KeywordClassifier) Classify(text string) string {
	lower := strings.ToLower(text)
	for _, g := range c.groups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.category
			}
		}
	}
	return schema.CategoryGeneral
}

// IsKnownCategory reports whether c is one of the fixed labels.
func IsKnownCategory(c string) bool {
	switch c {
	case schema.CategoryAppInfo, schema.CategoryCompanyInfo, schema.CategoryProductDetails,
		schema.CategoryRecruiting, schema.CategoryTechnical, schema.CategoryGeneral:
		return true
	}
	return false
}

var _ interfaces.Classifier = (*KeywordClassifier)(nil)
