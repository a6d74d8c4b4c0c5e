// Package normalize undoes the stringification CloudFormation applies to
// custom resource properties. Every scalar that crosses the template boundary
// arrives as a string, so "true" and "8080" need to become a bool and an int
// again before the structure can be converted into an API request.
package normalize

import (
	"math"
	"strings"
)

// Tree returns a copy of v in which every string equal (case-insensitively)
// to "true" or "false" has become a bool and every all-digit string has
// become an int. Maps and slices are walked recursively; everything else
// passes through untouched. The input is never mutated.
func Tree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Tree(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Tree(item)
		}
		return out
	case string:
		return scalar(t)
	default:
		return v
	}
}

func scalar(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, ok := digits(s); ok {
		return n
	}
	return s
}

// digits parses s as a base-10 integer iff it is non-empty, composed
// entirely of ASCII digits, and fits in an int. Signs, decimal points,
// exponents and overflowing values are left alone so strings like "-1",
// "1.5" and 20-digit identifiers survive unchanged.
func digits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		d := int(r - '0')
		if n > (math.MaxInt-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return n, true
}
