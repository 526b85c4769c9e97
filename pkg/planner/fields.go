package planner

import "regexp"

// Field-access patterns recognized in generated pandas code. Bracket
// indexing covers df['x'], row["x"] and boolean masks; the call patterns
// cover the common accessor methods.
var codeFieldPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:df|row)\[['"]([^'"\]]+)['"]\]`),
	regexp.MustCompile(`\.get\(\s*['"]([^'"]+)['"]`),
	regexp.MustCompile(`\.groupby\(\s*['"]([^'"]+)['"]`),
	regexp.MustCompile(`\.sort_values\(\s*(?:by\s*=\s*)?['"]([^'"]+)['"]`),
}

// CodeFields extracts the dataset field names referenced by generated code,
// in first-seen order.
func CodeFields(code string) []string {
	if code == "" {
		return nil
	}
	seen := make(map[string]bool)
	var fields []string
	for _, re := range codeFieldPatterns {
		for _, m := range re.FindAllStringSubmatch(code, -1) {
			f := m[1]
			if seen[f] {
				continue
			}
			seen[f] = true
			fields = append(fields, f)
		}
	}
	return fields
}
