// Package dispatch implements the token dispatcher: a lexicographically
// sorted keyword table matched byte-by-byte against the head of an input
// line, aborting as soon as the current candidate is lexicographically
// greater than the input (the input can never match anything after it).
// A match additionally requires the input to end in whitespace or end-of-
// line exactly at the keyword's last byte, so "server" does not match the
// prefix of a longer, unrelated token.
package dispatch

import "strings"

// Entry pairs a keyword with the canonical directive name handlers are
// registered under. Synonyms (del/delete) share a Name.
type Entry struct {
	Keyword string
	Name    string
}

// Table is a sorted keyword table ready for longest-prefix lookup.
type Table []Entry

// NewTable builds a Table from entries, sorting them by keyword. Entries
// must already use lower-case keywords.
func NewTable(entries []Entry) Table {
	t := make(Table, len(entries))
	copy(t, entries)
	for i := 1; i < len(t); i++ {
		for j := i; j > 0 && t[j-1].Keyword > t[j].Keyword; j-- {
			t[j-1], t[j] = t[j], t[j-1]
		}
	}
	return t
}

// Find matches the head of line against the table, case-insensitively.
// It returns the matched entry's Name, the residual text following the
// keyword and any separating whitespace, and whether a match was found.
func Find(t Table, line string) (name, residual string, ok bool) {
	lower := strings.ToLower(line)
	for _, e := range t {
		switch cmp := comparePrefix(lower, e.Keyword); {
		case cmp == 0:
			if isBoundary(line, len(e.Keyword)) {
				return e.Name, strings.TrimLeft(line[len(e.Keyword):], " \t"), true
			}
			// Keyword matched as a text prefix but not as a whole token
			// (e.g. "sendx"); keep scanning — a longer keyword may still
			// match further down the sorted table.
		case cmp < 0:
			// line sorts before this keyword: no later (greater) entry can
			// match either, since the table is sorted. Early termination.
			return "", "", false
		}
	}
	return "", "", false
}

// comparePrefix compares keyword against the first len(keyword) bytes of
// lower. Returns 0 if lower starts with keyword, otherwise the sign of
// lexicographically comparing lower against keyword (treating lower as
// truncated to keyword's length for the purpose of ordering).
func comparePrefix(lower, keyword string) int {
	n := len(keyword)
	if len(lower) < n {
		return strings.Compare(lower, keyword)
	}
	return strings.Compare(lower[:n], keyword)
}

// isBoundary reports whether line has whitespace or end-of-string at
// position n (the byte immediately after a matched keyword).
func isBoundary(line string, n int) bool {
	if n >= len(line) {
		return true
	}
	c := line[n]
	return c == ' ' || c == '\t'
}
