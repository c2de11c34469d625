package query

import "strings"

// referenceTerms flag questions that lean on earlier turns ("show that as a
// breakdown"). The list is fixed; implicit follow-ups without one of these
// terms are not detected lexically and rely on the model classifier.
var referenceTerms = []string{
	"this", "that", "these", "those", "it", "them", "they",
	"above", "below", "previous", "last", "earlier", "before",
	"breakdown", "details", "more", "also", "too", "as well",
}

var (
	recommendationTerms = []string{"recommend", "suggest", "advice", "should", "optimize", "save", "cut"}
	analysisTerms       = []string{"analyze", "pattern", "trend", "compare", "vs", "versus"}
	retrievalTerms      = []string{"how much", "total", "sum", "count", "list", "show"}
)

// Features is the deterministic, model-free read of a question.
type Features struct {
	HasReference   bool
	ReferenceTerms []string
	QueryType      string
}

// ExtractFeatures scans the lowercased question for reference terms and
// seeds a coarse query type from keyword buckets. Reference terms match on
// word boundaries so "item" does not fire the "it" term; bucket keywords are
// stems and match as substrings ("recommendations" fires "recommend").
func ExtractFeatures(question string) Features {
	q := strings.ToLower(question)
	words := tokenize(q)

	f := Features{QueryType: "general"}
	for _, term := range referenceTerms {
		if matchTerm(q, words, term) {
			f.HasReference = true
			f.ReferenceTerms = append(f.ReferenceTerms, term)
		}
	}

	switch {
	case anyStem(q, recommendationTerms):
		f.QueryType = "recommendation"
	case anyStem(q, analysisTerms):
		f.QueryType = "analysis"
	case anyStem(q, retrievalTerms):
		f.QueryType = "data_retrieval"
	}
	return f
}

func anyStem(q string, stems []string) bool {
	for _, s := range stems {
		if strings.Contains(q, s) {
			return true
		}
	}
	return false
}

func matchTerm(q string, words map[string]bool, term string) bool {
	if strings.ContainsRune(term, ' ') {
		return strings.Contains(q, term)
	}
	return words[term]
}

func tokenize(q string) map[string]bool {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '\''
	})
	words := make(map[string]bool, len(fields))
	for _, w := range fields {
		words[strings.Trim(w, "'")] = true
	}
	return words
}
