package query

import "strings"

// CleanSQL strips markdown code fences and a single trailing statement
// separator from raw model output. Cleaning already-clean input is a no-op.
func CleanSQL(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop an optional language tag on the opening fence.
		if i := strings.IndexByte(s, '\n'); i >= 0 && isFenceTag(s[:i]) {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

func isFenceTag(s string) bool {
	tag := strings.TrimSpace(s)
	return tag == "" || strings.EqualFold(tag, "sql")
}
