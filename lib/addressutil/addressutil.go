package addressutil

import (
	"fmt"
	"regexp"
	"strings"
)

// qualifiers that upstream county records tack onto street addresses
// but that the portal's search endpoint chokes on.
var qualifierRegex = regexp.MustCompile(`(?i)\s*(LOT\s*\d+|#\s*REAR|\bREAR\b)\s*`)
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize strips lot/rear qualifiers from a raw street address.
// It is pure and idempotent. An address that is nothing but a
// qualifier normalizes to "", which callers must treat as a skip.
func Normalize(raw string) string {
	cleaned := qualifierRegex.ReplaceAllString(raw, " ")
	cleaned = whitespaceRegex.ReplaceAllString(cleaned, " ")
	return strings.Trim(cleaned, " \t\n")
}

type SearchQuery struct {
	Address string
	City    string
	State   string
	Zip     string
}

func (q SearchQuery) String() string {
	return fmt.Sprintf("%s, %s, %s %s", q.Address, q.City, q.State, q.Zip)
}
