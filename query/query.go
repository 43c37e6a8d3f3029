// Package query filters, sorts, paginates and projects the records of a
// collection.
package query

import (
	"maps"
	"sort"
	"strings"

	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/value"
)

// IDField is the reserved key holding the record id in every result row.
const IDField = "ID"

const (
	PlanIndex = "index"
	PlanScan  = "scan"
)

const (
	Ascending  = "asc"
	Descending = "desc"
)

// Source is the read side of a collection.
type Source interface {
	Iterate(f func(id string, attributes map[string]any) bool)
	Get(id string) (map[string]any, bool)
	// Lookup returns the ids indexed under v for field, ok is false when field
	// is not indexed.
	Lookup(field string, v any) (ids []string, ok bool)
}

type Options struct {
	Filter    string   `json:"filter"`
	Fields    []string `json:"fields"`
	SortKey   string   `json:"sort"`
	SortOrder string   `json:"order"` // asc (default) or desc
	Offset    int      `json:"offset"`
	Limit     int      `json:"limit"` // 0 means unlimited
}

type Row map[string]any

type Result struct {
	Rows       []Row  `json:"rows"`
	Plan       string `json:"plan"`
	IndexField string `json:"index_field,omitempty"`
}

// Match is one record selected by a filter.
type Match struct {
	ID         string
	Attributes map[string]any
}

// Selection is the outcome of running a filter against a Source.
type Selection struct {
	Matches    []Match
	Plan       string
	IndexField string
}

// Select evaluates expr against src. A single equality on an indexed field
// with a non-empty literal is answered from the index, every candidate being
// checked again against expr; anything else scans all records.
func Select(src Source, expr Expr) *Selection {
	if c, ok := expr.(*Comparison); ok && c.Operator == Equal && c.Literal != "" {
		if ids, indexed := src.Lookup(c.Field, c.IndexKey()); indexed {
			s := &Selection{
				Matches:    []Match{},
				Plan:       PlanIndex,
				IndexField: c.Field,
			}
			for _, id := range ids {
				attributes, found := src.Get(id)
				if !found || !expr.Match(attributes) {
					continue
				}
				s.Matches = append(s.Matches, Match{ID: id, Attributes: attributes})
			}
			return s
		}
	}

	s := &Selection{
		Matches: []Match{},
		Plan:    PlanScan,
	}
	src.Iterate(func(id string, attributes map[string]any) bool {
		if expr.Match(attributes) {
			s.Matches = append(s.Matches, Match{ID: id, Attributes: attributes})
		}
		return true
	})
	return s
}

// Validate checks pagination and sort order.
func (o Options) Validate() error {
	if o.Offset < 0 {
		return dberror.InvalidArgument("offset %d is negative", o.Offset)
	}
	if o.Limit < 0 {
		return dberror.InvalidArgument("limit %d is negative", o.Limit)
	}
	order := strings.ToLower(o.SortOrder)
	if order != "" && order != Ascending && order != Descending {
		return dberror.InvalidArgument("sort order '%s' should be asc or desc", o.SortOrder)
	}
	return nil
}

// Run compiles options.Filter, selects the matching records and post-processes
// them: sort, then offset, then limit, then projection.
func Run(src Source, options Options) (*Result, error) {
	err := options.Validate()
	if err != nil {
		return nil, err
	}

	expr, err := Compile(options.Filter)
	if err != nil {
		return nil, err
	}

	return Finish(Select(src, expr), options), nil
}

// Finish sorts, paginates and projects a selection. options must be valid.
func Finish(selection *Selection, options Options) *Result {
	matches := selection.Matches

	if options.SortKey != "" {
		Sort(matches, options.SortKey, strings.EqualFold(options.SortOrder, Descending))
	}

	matches = Paginate(matches, options.Offset, options.Limit)

	result := &Result{
		Rows:       make([]Row, 0, len(matches)),
		Plan:       selection.Plan,
		IndexField: selection.IndexField,
	}
	for _, m := range matches {
		result.Rows = append(result.Rows, Project(m, options.Fields))
	}

	return result
}

// Sort orders matches by the value of key, missing values reading as "".
// Ties keep their previous relative order in both directions.
func Sort(matches []Match, key string, descending bool) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].Attributes[key], matches[j].Attributes[key]
		if descending {
			return value.Compare(b, a) < 0
		}
		return value.Compare(a, b) < 0
	})
}

// Paginate skips offset matches and keeps at most limit (0 keeps all).
func Paginate(matches []Match, offset, limit int) []Match {
	if offset >= len(matches) {
		return []Match{}
	}
	matches = matches[offset:]
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches
}

// Project copies the requested fields of m into a row, every field when
// fields is empty. The record id is always present under IDField.
func Project(m Match, fields []string) Row {
	row := Row{}
	if len(fields) == 0 {
		maps.Copy(row, m.Attributes)
	} else {
		for _, field := range fields {
			v, found := m.Attributes[field]
			if !found || v == nil {
				v = ""
			}
			row[field] = v
		}
	}
	row[IDField] = m.ID
	return row
}
