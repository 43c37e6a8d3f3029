package query

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/fulldump/hashdb/value"
)

// Expr is a compiled filter.
type Expr interface {
	Match(attributes map[string]any) bool
	String() string
}

type Operator string

const (
	Equal          Operator = "="
	NotEqual       Operator = "!="
	Greater        Operator = ">"
	GreaterOrEqual Operator = ">="
	Less           Operator = "<"
	LessOrEqual    Operator = "<="
)

// Comparison is a `field OP literal` leaf. A missing field reads as "".
type Comparison struct {
	Field    string
	Operator Operator
	Literal  string
	Quoted   bool
}

func (c *Comparison) Match(attributes map[string]any) bool {
	stored := attributes[c.Field]

	order := strings.Compare(value.String(stored), c.Literal)
	if n, ok := c.number(); ok {
		if m, isNumber := value.Number(stored); isNumber {
			order = cmp.Compare(m, n)
		}
	}

	switch c.Operator {
	case Equal:
		return order == 0
	case NotEqual:
		return order != 0
	case Greater:
		return order > 0
	case GreaterOrEqual:
		return order >= 0
	case Less:
		return order < 0
	case LessOrEqual:
		return order <= 0
	}
	return false
}

// number returns the literal as a number when it is an unquoted numeral.
func (c *Comparison) number() (float64, bool) {
	if c.Quoted {
		return 0, false
	}
	return value.ParseNumber(c.Literal)
}

func (c *Comparison) String() string {
	if c.Quoted {
		return fmt.Sprintf("%s %s %q", c.Field, c.Operator, c.Literal)
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Operator, c.Literal)
}

// IndexKey is the value to look up in an index on c.Field. Numeric literals
// are passed as numbers so they meet numeric index entries.
func (c *Comparison) IndexKey() any {
	if n, ok := c.number(); ok {
		return n
	}
	return c.Literal
}

type Connective string

const (
	And Connective = "AND"
	Or  Connective = "OR"
)

type Logical struct {
	Connective Connective
	Left       Expr
	Right      Expr
}

func (l *Logical) Match(attributes map[string]any) bool {
	if l.Connective == And {
		return l.Left.Match(attributes) && l.Right.Match(attributes)
	}
	return l.Left.Match(attributes) || l.Right.Match(attributes)
}

func (l *Logical) String() string {
	return fmt.Sprintf("(%s %s %s)", l.Left, l.Connective, l.Right)
}

// MatchAll is the compiled form of an empty filter.
type MatchAll struct{}

func (MatchAll) Match(map[string]any) bool { return true }
func (MatchAll) String() string            { return "*" }
