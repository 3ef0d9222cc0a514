package marker

import (
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// Attribute Access
// =============================================================================

// AttrSet holds the attributes of one marker tag. Accessors make the
// "absent field, use default" path explicit so callers never coerce through
// zero values by accident.
type AttrSet map[string]string

// Lookup returns the raw attribute value and whether it was present.
func (a AttrSet) Lookup(key string) (string, bool) {
	v, ok := a[key]
	return v, ok
}

// String returns the attribute value, or def when absent.
func (a AttrSet) String(key, def string) string {
	if v, ok := a[key]; ok {
		return v
	}
	return def
}

// Int returns the attribute parsed as an integer. Absent or unparseable
// values yield def, never a partial parse.
func (a AttrSet) Int(key string, def int) int {
	v, ok := a[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Bool returns true when the attribute is present and reads as true.
func (a AttrSet) Bool(key string) bool {
	v, ok := a[key]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// =============================================================================
// Tokenizer
// =============================================================================

// Token is one extracted marker region: an upper-snake-case tag, its
// attributes, and the body text up to the name-matched closing tag.
// A tag with no matching closer yields a token with an empty body.
type Token struct {
	Name  string
	Attrs AttrSet
	Body  string

	// Start is the byte offset of the opening bracket in the source text.
	Start int
}

// markerSyntax matches anything that looks like one of this module's own
// control tags. Used by plan validation to reject assistant-authored content
// that could forge a control signal.
var markerSyntax = regexp.MustCompile(`\[/?[A-Z][A-Z0-9_]{2,}(?:[\s\]=]|$)`)

// ContainsMarkerSyntax reports whether s contains text resembling a marker
// tag. Three-plus uppercase characters are required so ordinary markdown
// (checkboxes, citations) does not trip it.
func ContainsMarkerSyntax(s string) bool {
	return markerSyntax.MatchString(s)
}

// Tokenize scans text for marker regions. It never fails: anything that does
// not parse as a well-formed opening tag is skipped as plain text.
func Tokenize(text string) []Token {
	var tokens []Token
	i := 0
	for i < len(text) {
		open := strings.IndexByte(text[i:], '[')
		if open < 0 {
			break
		}
		at := i + open
		tok, end, ok := scanTag(text, at)
		if !ok {
			i = at + 1
			continue
		}
		closer := "[/" + tok.Name + "]"
		if rel := strings.Index(text[end:], closer); rel >= 0 {
			tok.Body = text[end : end+rel]
			i = end + rel + len(closer)
		} else {
			// No name-matched closer: treat as a bodyless flag tag.
			i = end
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// scanTag parses an opening tag starting at text[at] == '['. It returns the
// token, the offset just past the closing bracket, and whether the region was
// a well-formed tag.
func scanTag(text string, at int) (Token, int, bool) {
	j := at + 1
	start := j
	for j < len(text) && (isUpper(text[j]) || text[j] == '_' || (j > start && isDigit(text[j]))) {
		j++
	}
	if j == start || !isUpper(text[start]) {
		return Token{}, 0, false
	}
	name := text[start:j]

	attrs := AttrSet{}
	for {
		for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
			j++
		}
		if j >= len(text) {
			return Token{}, 0, false
		}
		if text[j] == ']' {
			return Token{Name: name, Attrs: attrs, Start: at}, j + 1, true
		}

		key, rest, ok := scanAttrKey(text, j)
		if !ok {
			return Token{}, 0, false
		}
		val, rest, ok := scanQuoted(text, rest)
		if !ok {
			return Token{}, 0, false
		}
		attrs[key] = val
		j = rest
	}
}

// scanAttrKey reads `key=` and positions the scan at the opening quote.
func scanAttrKey(text string, j int) (string, int, bool) {
	start := j
	for j < len(text) && (isAlnum(text[j]) || text[j] == '_') {
		j++
	}
	if j == start || j >= len(text) || text[j] != '=' {
		return "", 0, false
	}
	return text[start:j], j + 1, true
}

// scanQuoted reads a double-quoted value with backslash escapes.
func scanQuoted(text string, j int) (string, int, bool) {
	if j >= len(text) || text[j] != '"' {
		return "", 0, false
	}
	j++
	var b strings.Builder
	for j < len(text) {
		switch text[j] {
		case '\\':
			if j+1 < len(text) && (text[j+1] == '"' || text[j+1] == '\\') {
				b.WriteByte(text[j+1])
				j += 2
				continue
			}
			b.WriteByte(text[j])
			j++
		case '"':
			return b.String(), j + 1, true
		case '\n':
			// Attribute values never span lines.
			return "", 0, false
		default:
			b.WriteByte(text[j])
			j++
		}
	}
	return "", 0, false
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlnum(c byte) bool {
	return isDigit(c) || isUpper(c) || (c >= 'a' && c <= 'z')
}
