package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/ir"
)

// Prefix notation grammar:
//
//	expr  = "zero" | "one"
//	      | ("and" | "or" | "then") expr expr
//	      | ("give" | "get" | "anytime") expr
//	      | "truncate" int expr
//	      | "scale" (int | obs) expr
//	      | "(" expr ")"
//	obs   = "obs" "(" address [ "," string ] ")"
//
// A '#' starts a comment that runs to the end of the line.

// ParseError reports a notation syntax error at a byte offset.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Message)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokString
	tokLParen
	tokRParen
	tokComma
)

type lexToken struct {
	kind tokenKind
	text string
	off  int
}

func (t lexToken) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return strconv.Quote(t.text)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '+'
}

func tokenize(src string) ([]lexToken, error) {
	var toks []lexToken
	for i := 0; i < len(src); {
		r := rune(src[i])
		switch {
		case r == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i++
		case r == '(':
			toks = append(toks, lexToken{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, lexToken{tokRParen, ")", i})
			i++
		case r == ',':
			toks = append(toks, lexToken{tokComma, ",", i})
			i++
		case r == '"':
			end := i + 1
			for end < len(src) && src[end] != '"' {
				if src[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(src) {
				return nil, &ParseError{Offset: i, Message: "unterminated string"}
			}
			s, err := strconv.Unquote(src[i : end+1])
			if err != nil {
				return nil, &ParseError{Offset: i, Message: fmt.Sprintf("invalid string: %v", err)}
			}
			toks = append(toks, lexToken{tokString, s, i})
			i = end + 1
		default:
			start := i
			for i < len(src) {
				c := rune(src[i])
				if c >= 0x80 || !isWordRune(c) {
					break
				}
				i++
			}
			if i == start {
				return nil, &ParseError{Offset: i, Message: fmt.Sprintf("unexpected character %q", src[i])}
			}
			toks = append(toks, lexToken{tokWord, src[start:i], start})
		}
	}
	return append(toks, lexToken{kind: tokEOF, off: len(src)}), nil
}

type parser struct {
	toks []lexToken
	pos  int
}

// Parse reads one contract in prefix notation. The whole input must be
// consumed.
func Parse(src string) (*Expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s after contract", t)
	}
	return e, nil
}

func (p *parser) peek() lexToken { return p.toks[p.pos] }

func (p *parser) next() lexToken {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t lexToken, format string, args ...any) error {
	return &ParseError{Offset: t.off, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind tokenKind, what string) (lexToken, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s, found %s", what, t)
	}
	return t, nil
}

func (p *parser) expr() (*Expr, error) {
	t := p.next()
	switch t.kind {
	case tokLParen:
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	case tokWord:
	default:
		return nil, p.errorf(t, "expected combinator, found %s", t)
	}

	kind, ok := combinator.ParseKind(strings.ToLower(t.text))
	if !ok {
		return nil, p.errorf(t, "unknown combinator %s", t)
	}
	e := &Expr{Kind: kind}

	switch kind {
	case combinator.KindTruncate:
		v, err := p.int("deadline")
		if err != nil {
			return nil, err
		}
		e.Deadline = v
	case combinator.KindScale:
		if p.peek().kind == tokWord && strings.EqualFold(p.peek().text, "obs") {
			if err := p.obs(e); err != nil {
				return nil, err
			}
		} else {
			v, err := p.int("scale factor")
			if err != nil {
				return nil, err
			}
			e.Factor = v
		}
	}

	for i := 0; i < kind.Children(); i++ {
		c, err := p.expr()
		if err != nil {
			return nil, err
		}
		e.Children = append(e.Children, c)
	}
	return e, nil
}

func (p *parser) int(what string) (int64, error) {
	t := p.next()
	if t.kind != tokWord {
		return 0, p.errorf(t, "expected %s, found %s", what, t)
	}
	v, err := strconv.ParseInt(t.text, 10, 64)
	if err != nil {
		return 0, p.errorf(t, "invalid %s %s", what, t)
	}
	return v, nil
}

func (p *parser) obs(e *Expr) error {
	p.next()
	if _, err := p.expect(tokLParen, "'(' after obs"); err != nil {
		return err
	}
	at, err := p.expect(tokWord, "arbiter address")
	if err != nil {
		return err
	}
	arbiter, err := ir.ParseAddress(at.text)
	if err != nil {
		return p.errorf(at, "%v", err)
	}

	name := ""
	if p.peek().kind == tokComma {
		p.next()
		nt, err := p.expect(tokString, "observable name")
		if err != nil {
			return err
		}
		name = nt.text
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return err
	}

	e.Observed, e.Arbiter, e.Name = true, arbiter, norm.NFC.String(name)
	return nil
}
