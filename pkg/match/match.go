// Package match decides whether an update field satisfies a rule expression.
//
// Expressions are tried as, in order: an exact string, a prefix wildcard
// ("hel*", case-insensitive containment of the stem), a placeholder template
// ("/ban {user} {?time}") and finally a delimited regular expression
// ("/^id:(\d+)$/i"). The first form that applies decides the result.
//
// Delimited expressions accept the flags i, m, s, U, x, A, D and u. Any other
// flag makes the pattern a non-expression.
package match

import (
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
)

const (
	wordClass = `[\pL\pM\pN_\s]`
	maxCached = 1024
)

var (
	optionalPlaceholder = regexp.MustCompile(`.?\{\?(.*?)\}`)
	requiredPlaceholder = regexp.MustCompile(`\{(.*?)\}`)

	defaultMatcher = New()
)

// Result is the outcome of matching one expression against one candidate.
type Result struct {
	Matched bool
	// Args holds the non-empty captured groups, left to right.
	Args []string
}

// Matcher evaluates expressions and caches compiled templates and regular expressions.
type Matcher struct {
	cache  sync.Map // string -> *regexp.Regexp (nil for invalid expressions)
	cached atomic.Int64
}

// New returns a Matcher with an empty compile cache.
func New() *Matcher {
	return &Matcher{}
}

// Match evaluates pattern against candidate with the shared default matcher.
func Match(pattern, candidate string) Result {
	return defaultMatcher.Match(pattern, candidate)
}

// Match evaluates pattern against candidate.
func (m *Matcher) Match(pattern, candidate string) Result {
	if pattern == candidate {
		return Result{Matched: true}
	}

	if stem, ok := strings.CutSuffix(pattern, "*"); ok {
		return Result{Matched: strings.Contains(strings.ToLower(candidate), strings.ToLower(stem))}
	}

	if re := m.compile("t:"+pattern, func() (*regexp.Regexp, error) {
		return regexp.Compile(Template(pattern))
	}); re != nil {
		if args, ok := submatches(re, candidate); ok {
			return Result{Matched: true, Args: args}
		}
	}

	if expr, ok := Delimited(pattern); ok {
		if re := m.compile("r:"+pattern, func() (*regexp.Regexp, error) {
			return regexp.Compile(expr)
		}); re != nil {
			if args, ok := submatches(re, candidate); ok {
				return Result{Matched: true, Args: args}
			}
		}
	}

	return Result{}
}

// Template rewrites a placeholder pattern into an anchored regular expression.
// "{?name}" together with the character before it becomes an optional group;
// "{name}" becomes a required group. Required groups are lazy so that adjacent
// placeholders split on whitespace.
func Template(pattern string) string {
	tmp := optionalPlaceholder.ReplaceAllLiteralString(pattern, `(?: (`+wordClass+`+))?`)
	tmp = requiredPlaceholder.ReplaceAllLiteralString(tmp, `(`+wordClass+`+?)`)
	return `(?m)^` + tmp + `$`
}

// Delimited converts a PCRE-style "/expr/flags" expression into Go regexp syntax.
// Any ASCII punctuation character may delimit the expression; bracket delimiters
// close with their counterpart. i, m, s and U map to Go flags; x drops
// unescaped whitespace and #-comments outside classes; A anchors at the start
// of the text; D and u need no translation.
func Delimited(pattern string) (string, bool) {
	if len(pattern) < 2 {
		return "", false
	}

	open := pattern[0]
	if !isDelimiter(open) {
		return "", false
	}

	closing := open
	switch open {
	case '(':
		closing = ')'
	case '[':
		closing = ']'
	case '{':
		closing = '}'
	case '<':
		closing = '>'
	}

	end := strings.LastIndexByte(pattern, closing)
	if end <= 0 {
		return "", false
	}

	var (
		flags    strings.Builder
		extended bool
		anchored bool
	)
	for _, flag := range pattern[end+1:] {
		switch flag {
		case 'i', 'm', 's', 'U':
			flags.WriteRune(flag)
		case 'x':
			extended = true
		case 'A':
			anchored = true
		case 'u', 'D':
		default:
			return "", false
		}
	}

	body := pattern[1:end]
	if extended {
		body = stripExtended(body)
	}
	if anchored {
		body = `\A(?:` + body + `)`
	}
	if flags.Len() == 0 {
		return body, true
	}

	return "(?" + flags.String() + ")" + body, true
}

func stripExtended(expr string) string {
	var (
		b         strings.Builder
		escaped   bool
		inClass   bool
		inComment bool
	)
	for _, r := range expr {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
			}
		case escaped:
			escaped = false
			if !unicode.IsSpace(r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		case r == '\\':
			escaped = true
		case inClass:
			if r == ']' {
				inClass = false
			}
			b.WriteRune(r)
		case r == '[':
			inClass = true
			b.WriteRune(r)
		case r == '#':
			inComment = true
		case unicode.IsSpace(r):
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteByte('\\')
	}

	return b.String()
}

func isDelimiter(c byte) bool {
	if c > '~' || c <= ' ' || c == '\\' {
		return false
	}
	if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
		return false
	}

	return true
}

// compile returns a cached expression, compiling it on first use. Invalid
// expressions are cached as nil so they fail fast on later updates.
func (m *Matcher) compile(key string, build func() (*regexp.Regexp, error)) *regexp.Regexp {
	if v, ok := m.cache.Load(key); ok {
		return v.(*regexp.Regexp)
	}

	re, err := build()
	if err != nil {
		re = nil
	}

	if m.cached.Load() < maxCached {
		if _, loaded := m.cache.LoadOrStore(key, re); !loaded {
			m.cached.Add(1)
		}
	}

	return re
}

func submatches(re *regexp.Regexp, candidate string) ([]string, bool) {
	groups := re.FindStringSubmatch(candidate)
	if groups == nil {
		return nil, false
	}

	var args []string
	for _, group := range groups[1:] {
		if group == "" {
			continue
		}
		args = append(args, group)
	}

	return args, true
}
