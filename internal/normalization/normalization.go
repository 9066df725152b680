package normalization

import (
	"strings"
)

func ParseInputString(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// TrimInputString keeps the original casing; used for names and titles.
func TrimInputString(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
