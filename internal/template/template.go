package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const marker = "%"

var (
	// ErrNoMatch indicates the input does not follow the template.
	ErrNoMatch = errors.New("input does not match template")
	// ErrInvalidTemplate indicates a template that cannot be compiled.
	ErrInvalidTemplate = errors.New("invalid template")
)

// MatchMode selects how a placeholder resolves ambiguity when its value could
// end at more than one occurrence of the following literal.
type MatchMode int

const (
	// MatchLongest lets each placeholder take the longest span on the current
	// line. Fields are therefore aligned from the right, which keeps trailing
	// numeric fields intact when earlier free-text fields contain the
	// separator.
	MatchLongest MatchMode = iota
	// MatchShortest lets each placeholder take the shortest span up to the
	// next literal, across lines. A placeholder that ends the template is the
	// exception: it extends to the end of its line instead of matching the
	// empty string, so "%title% %bpm%" on "Song A 128.0" yields
	// bpm="A 128.0" rather than an empty bpm.
	MatchShortest
)

// String returns the configuration spelling of the mode.
func (m MatchMode) String() string {
	switch m {
	case MatchShortest:
		return "shortest"
	default:
		return "longest"
	}
}

// ParseMatchMode converts a configuration value into a MatchMode.
func ParseMatchMode(value string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "longest":
		return MatchLongest, nil
	case "shortest":
		return MatchShortest, nil
	default:
		return MatchLongest, fmt.Errorf("unsupported match mode %q", value)
	}
}

// Option customizes template compilation.
type Option func(*compileOptions)

type compileOptions struct {
	mode MatchMode
}

// WithMatchMode selects the placeholder matching mode.
func WithMatchMode(mode MatchMode) Option {
	return func(o *compileOptions) {
		o.mode = mode
	}
}

// Template is a compiled placeholder template.
type Template struct {
	source   string
	literals []string
	fields   []string
	pattern  *regexp.Regexp
	mode     MatchMode
}

// Compile validates src and builds its matcher.
func Compile(src string, opts ...Option) (*Template, error) {
	options := compileOptions{mode: MatchLongest}
	for _, opt := range opts {
		opt(&options)
	}

	parts := strings.Split(normalizeNewlines(src), marker)
	if len(parts)%2 == 0 {
		return nil, fmt.Errorf("%w: unbalanced %q markers in %q", ErrInvalidTemplate, marker, src)
	}

	literals := make([]string, 0, len(parts)/2+1)
	fields := make([]string, 0, len(parts)/2)
	seen := make(map[string]struct{}, len(parts)/2)
	for i, part := range parts {
		if i%2 == 0 {
			literals = append(literals, part)
			continue
		}
		if part == "" {
			return nil, fmt.Errorf("%w: empty placeholder name in %q", ErrInvalidTemplate, src)
		}
		if !validName(part) {
			return nil, fmt.Errorf("%w: placeholder %q must contain only letters, digits, and underscores", ErrInvalidTemplate, part)
		}
		if _, dup := seen[part]; dup {
			return nil, fmt.Errorf("%w: duplicate placeholder %q", ErrInvalidTemplate, part)
		}
		seen[part] = struct{}{}
		fields = append(fields, part)
	}

	var expr strings.Builder
	expr.WriteString(`\A`)
	for i, lit := range literals {
		expr.WriteString(regexp.QuoteMeta(lit))
		if i >= len(fields) {
			break
		}
		trailing := i == len(fields)-1 && literals[i+1] == ""
		expr.WriteString(captureExpr(options.mode, trailing))
	}

	pattern, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	return &Template{
		source:   src,
		literals: literals,
		fields:   fields,
		pattern:  pattern,
		mode:     options.mode,
	}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string, opts ...Option) *Template {
	t, err := Compile(src, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func captureExpr(mode MatchMode, trailing bool) string {
	if mode == MatchShortest && !trailing {
		return `((?s:.*?))`
	}
	return `([^\r\n]*)`
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func validName(name string) bool {
	for _, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return name != ""
}

// Source returns the template text the matcher was compiled from.
func (t *Template) Source() string {
	return t.source
}

// Mode reports the matching mode the template was compiled with.
func (t *Template) Mode() MatchMode {
	return t.mode
}

// Fields returns the placeholder names in template order.
func (t *Template) Fields() []string {
	out := make([]string, len(t.fields))
	copy(out, t.fields)
	return out
}

// Has reports whether the template declares the named placeholder.
func (t *Template) Has(name string) bool {
	for _, field := range t.fields {
		if field == name {
			return true
		}
	}
	return false
}

// Parse extracts placeholder values from text. It returns ErrNoMatch when the
// text does not follow the template from its first character. CRLF line
// endings in text and template are treated as LF.
func (t *Template) Parse(text string) (map[string]string, error) {
	match := t.pattern.FindStringSubmatch(normalizeNewlines(text))
	if match == nil {
		return nil, ErrNoMatch
	}
	values := make(map[string]string, len(t.fields))
	for i, name := range t.fields {
		values[name] = match[i+1]
	}
	return values, nil
}

// Render substitutes values into the template. Missing values render empty.
func (t *Template) Render(values map[string]string) string {
	var b strings.Builder
	for i, lit := range t.literals {
		b.WriteString(lit)
		if i < len(t.fields) {
			b.WriteString(values[t.fields[i]])
		}
	}
	return b.String()
}
