package query

import (
	"strings"
	"unicode"

	"github.com/fulldump/hashdb/dberror"
)

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenQuoted
	tokenOperator
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Compile turns a filter like `name = "Ann" AND age > 26` into an Expr.
//
// Comparisons are chained left to right with AND/OR (any case) and no
// precedence: `a OR b AND c` means `(a OR b) AND c`. An empty filter matches
// every record.
func Compile(filter string) (Expr, error) {
	tokens, err := tokenize(filter)
	if err != nil {
		return nil, err
	}

	if len(tokens) == 0 {
		return MatchAll{}, nil
	}

	p := &parser{tokens: tokens, filter: filter}

	first, err := p.comparison()
	if err != nil {
		return nil, err
	}

	var expr Expr = first
	for !p.done() {
		t := p.next()
		connective := Connective(strings.ToUpper(t.text))
		if t.kind != tokenWord || (connective != And && connective != Or) {
			return nil, dberror.InvalidArgument("filter: expected AND or OR at %d, found '%s'", t.pos, t.text)
		}
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		expr = &Logical{Connective: connective, Left: expr, Right: right}
	}

	return expr, nil
}

type parser struct {
	filter string
	tokens []token
	i      int
}

func (p *parser) done() bool {
	return p.i >= len(p.tokens)
}

func (p *parser) next() token {
	t := p.tokens[p.i]
	p.i++
	return t
}

func (p *parser) comparison() (*Comparison, error) {
	if p.done() {
		return nil, dberror.InvalidArgument("filter: expected field at %d", len(p.filter))
	}
	field := p.next()
	if field.kind != tokenWord {
		return nil, dberror.InvalidArgument("filter: expected field at %d, found '%s'", field.pos, field.text)
	}

	if p.done() {
		return nil, dberror.InvalidArgument("filter: expected operator after '%s'", field.text)
	}
	op := p.next()
	if op.kind != tokenOperator {
		return nil, dberror.InvalidArgument("filter: expected operator at %d, found '%s'", op.pos, op.text)
	}

	if p.done() {
		return nil, dberror.InvalidArgument("filter: expected value after '%s %s'", field.text, op.text)
	}
	literal := p.next()
	if literal.kind == tokenOperator {
		return nil, dberror.InvalidArgument("filter: expected value at %d, found '%s'", literal.pos, literal.text)
	}

	operator := Operator(op.text)
	if op.text == "==" {
		operator = Equal
	}

	return &Comparison{
		Field:    field.text,
		Operator: operator,
		Literal:  literal.text,
		Quoted:   literal.kind == tokenQuoted,
	}, nil
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("_.@-+", r)
}

func tokenize(filter string) ([]token, error) {
	tokens := []token{}
	runes := []rune(filter)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '"' || r == '\'':
			start := i
			sb := &strings.Builder{}
			i++
			closed := false
			for i < len(runes) {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) {
					sb.WriteRune(runes[i+1])
					i += 2
					continue
				}
				i++
				if c == r {
					closed = true
					break
				}
				sb.WriteRune(c)
			}
			if !closed {
				return nil, dberror.InvalidArgument("filter: unterminated string at %d", start)
			}
			tokens = append(tokens, token{kind: tokenQuoted, text: sb.String(), pos: start})

		case strings.ContainsRune("=!<>", r):
			start := i
			op := string(r)
			if i+1 < len(runes) && runes[i+1] == '=' {
				op += "="
			}
			if op == "!" {
				return nil, dberror.InvalidArgument("filter: unexpected '!' at %d", start)
			}
			i += len(op)
			tokens = append(tokens, token{kind: tokenOperator, text: op, pos: start})

		case isWordRune(r):
			start := i
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenWord, text: string(runes[start:i]), pos: start})

		default:
			return nil, dberror.InvalidArgument("filter: unexpected '%c' at %d", r, i)
		}
	}

	return tokens, nil
}
