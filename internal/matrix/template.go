package matrix

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind distinguishes literal argv tokens from substituted ones.
type TokenKind int

const (
	// Literal tokens pass through unchanged.
	Literal TokenKind = iota
	// Placeholder tokens are replaced by the value of dimension Dim.
	Placeholder
	// Ordinal tokens are replaced by the combination index, which gives
	// every run a distinct value (e.g. a per-run result file).
	Ordinal
)

// Token is one argv element of a Template.
type Token struct {
	Kind    TokenKind
	Literal string // Literal only
	Dim     int    // Placeholder only
}

// Lit returns a literal token.
func Lit(s string) Token { return Token{Kind: Literal, Literal: s} }

// Dim returns a placeholder bound to dimension index i.
func Dim(i int) Token { return Token{Kind: Placeholder, Dim: i} }

// Seq returns the ordinal placeholder.
func Seq() Token { return Token{Kind: Ordinal} }

func (t Token) String() string {
	switch t.Kind {
	case Placeholder:
		return fmt.Sprintf("{%d}", t.Dim)
	case Ordinal:
		return "{#}"
	default:
		return t.Literal
	}
}

// Template is an immutable command line with placeholder slots. The first
// token is the program; it is executed directly, never through a shell.
type Template struct {
	tokens []Token
}

// NewTemplate builds a Template from tokens without validating it.
// Call Validate before running it.
func NewTemplate(tokens ...Token) *Template {
	return &Template{tokens: append([]Token(nil), tokens...)}
}

// ParseTemplate converts a configured argv into a Template bound to m.
//
// A token written exactly as {name} is replaced by the value of the
// dimension called name, and {#} by the combination index. A token
// starting with {{ is literal with one leading brace removed. Everything
// else is literal.
func ParseTemplate(argv []string, m *Matrix) (*Template, error) {
	if len(argv) == 0 {
		return nil, Invalid("command", "command is empty")
	}
	tokens := make([]Token, len(argv))
	for i, arg := range argv {
		field := fmt.Sprintf("command[%d]", i)
		switch {
		case strings.HasPrefix(arg, "{{"):
			tokens[i] = Lit(arg[1:])
		case arg == "{#}":
			tokens[i] = Seq()
		case len(arg) > 2 && arg[0] == '{' && arg[len(arg)-1] == '}':
			name := arg[1 : len(arg)-1]
			d, ok := m.Index(name)
			if !ok {
				return nil, Invalid(field, "unknown dimension %q", name)
			}
			tokens[i] = Dim(d)
		default:
			tokens[i] = Lit(arg)
		}
	}
	t := &Template{tokens: tokens}
	if err := t.Validate(m.Len()); err != nil {
		return nil, err
	}
	return t, nil
}

// Tokens returns a copy of the template tokens.
func (t *Template) Tokens() []Token {
	return append([]Token(nil), t.tokens...)
}

// Validate checks that the template names a program and that every
// placeholder refers to one of dims declared dimensions.
func (t *Template) Validate(dims int) error {
	if len(t.tokens) == 0 {
		return Invalid("command", "command is empty")
	}
	if first := t.tokens[0]; first.Kind == Literal && first.Literal == "" {
		return Invalid("command[0]", "program path is empty")
	}
	for i, tok := range t.tokens {
		if tok.Kind == Placeholder && (tok.Dim < 0 || tok.Dim >= dims) {
			return Invalid(fmt.Sprintf("command[%d]", i),
				"placeholder refers to dimension %d, only %d declared", tok.Dim, dims)
		}
	}
	return nil
}

// Resolve returns a freshly allocated argv for c. Values are copied
// verbatim: shell metacharacters carry no meaning.
func (t *Template) Resolve(c Combination) ([]string, error) {
	argv := make([]string, len(t.tokens))
	for i, tok := range t.tokens {
		switch tok.Kind {
		case Placeholder:
			if tok.Dim < 0 || tok.Dim >= len(c.Values) {
				return nil, Invalid(fmt.Sprintf("command[%d]", i),
					"placeholder refers to dimension %d, combination has %d values", tok.Dim, len(c.Values))
			}
			argv[i] = c.Values[tok.Dim]
		case Ordinal:
			argv[i] = strconv.Itoa(c.Index)
		default:
			argv[i] = tok.Literal
		}
	}
	return argv, nil
}

// String renders the template with placeholders shown as {d} and {#}.
func (t *Template) String() string {
	parts := make([]string, len(t.tokens))
	for i, tok := range t.tokens {
		parts[i] = tok.String()
	}
	return strings.Join(parts, " ")
}
