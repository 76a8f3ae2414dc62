package gateway

import (
	"fmt"
	"strings"
)

// Op is a filter operator.
type Op string

const (
	// OpEq is exact equality.
	OpEq Op = "eq"
	// OpILike is a case-insensitive LIKE pattern where % matches any run and _ one character.
	OpILike Op = "ilike"
	// OpContains is array containment: the column holds every listed value.
	OpContains Op = "cs"
)

// Filter is a single column predicate.
type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s.%s.%v", f.Column, f.Op, f.Value)
}

// Eq matches rows whose column equals v.
func Eq(column string, v interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: v}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike makes s match literally inside an ILike pattern.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ILike matches rows whose column matches pattern case-insensitively.
// Backslash escapes the next character.
func ILike(column, pattern string) Filter {
	return Filter{Column: column, Op: OpILike, Value: pattern}
}

// Contains matches rows whose array column holds all values.
func Contains(column string, values []string) Filter {
	return Filter{Column: column, Op: OpContains, Value: values}
}

// Order is one sort key.
type Order struct {
	Column string
	Desc   bool
}

// Query is a read against a collection: all of Where AND (any of Any), ordered and limited.
type Query struct {
	Where []Filter
	Any   []Filter
	Order []Order
	Limit int
}

// Select starts an empty query.
func Select() Query {
	return Query{}
}

// Eq adds an equality predicate.
func (q Query) Eq(column string, v interface{}) Query {
	q.Where = append(append([]Filter{}, q.Where...), Eq(column, v))
	return q
}

// Or sets the disjunctive group.
func (q Query) Or(filters ...Filter) Query {
	q.Any = append([]Filter{}, filters...)
	return q
}

// OrderBy appends a sort key.
func (q Query) OrderBy(column string, desc bool) Query {
	q.Order = append(append([]Order{}, q.Order...), Order{Column: column, Desc: desc})
	return q
}

// WithLimit caps the number of returned rows; zero means no limit.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}
