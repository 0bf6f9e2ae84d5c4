package monitor

import (
	"regexp"
	"strings"
)

// TagFilter selects monitor groups by their tags. A nil *TagFilter matches
// every group.
type TagFilter struct {
	patterns []string
	res      []*regexp.Regexp
}

// CompileFilter turns a whitespace separated list of tag tokens into a
// TagFilter. Each token is either a bare value ("env", "web-*") matched from
// the start of any tag, or a name:value pair ("env:prod*"). Within a token
// '*' matches any run of characters and '?' matches one character; every
// other character is literal. A blank filter, or one whose patterns fail to
// compile, yields nil (match everything).
func CompileFilter(filter string) *TagFilter {
	tokens := strings.Fields(filter)
	if len(tokens) == 0 {
		return nil
	}

	f := &TagFilter{
		patterns: make([]string, 0, len(tokens)),
		res:      make([]*regexp.Regexp, 0, len(tokens)),
	}
	for _, tok := range tokens {
		pattern := tokenPattern(tok)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil
		}
		f.patterns = append(f.patterns, pattern)
		f.res = append(f.res, re)
	}
	return f
}

func tokenPattern(tok string) string {
	name, value, found := strings.Cut(tok, ":")
	if !found {
		return "^" + expandGlobs(regexp.QuoteMeta(tok))
	}
	return "^" + regexp.QuoteMeta(name) + ":" + expandGlobs(regexp.QuoteMeta(value))
}

// expandGlobs rewrites the escaped glob markers of a QuoteMeta'd token.
func expandGlobs(quoted string) string {
	quoted = strings.ReplaceAll(quoted, `\*`, ".*")
	return strings.ReplaceAll(quoted, `\?`, ".")
}

// Patterns returns the anchored regular expressions, one per filter token.
func (f *TagFilter) Patterns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.patterns))
	copy(out, f.patterns)
	return out
}

// MatchTag reports whether a single tag satisfies any filter token.
func (f *TagFilter) MatchTag(tag string) bool {
	if f == nil {
		return true
	}
	for _, re := range f.res {
		if re.MatchString(tag) {
			return true
		}
	}
	return false
}

// MatchGroup reports whether any comma separated tag of a group key
// satisfies any filter token.
func (f *TagFilter) MatchGroup(key string) bool {
	if f == nil {
		return true
	}
	for _, tag := range strings.Split(key, ",") {
		if f.MatchTag(tag) {
			return true
		}
	}
	return false
}
