package tasks

import "strings"

// Clause is one "Name: value" pair from a clause extraction response.
type Clause struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParseClauses picks the known key clauses out of a raw response, in the
// order they appear. Markdown bullets, numbering and bold markers are ignored.
func ParseClauses(raw string) []Clause {
	known := make(map[string]string, len(KeyClauses))
	for _, k := range KeyClauses {
		known[strings.ToLower(k)] = k
	}

	var out []Clause
	seen := make(map[string]bool)
	for _, line := range strings.Split(raw, "\n") {
		line = cleanLine(line)
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		canonical, ok := known[strings.ToLower(strings.Trim(strings.TrimSpace(name), "*_ "))]
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, Clause{
			Name:  canonical,
			Value: strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*_")),
		})
	}
	return out
}

func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-•* ")
	// "3. Client: ..." or "3) Client: ..."
	if i := strings.IndexAny(line, ".)"); i > 0 && i <= 3 && isDigits(line[:i]) {
		line = strings.TrimSpace(line[i+1:])
	}
	return line
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
