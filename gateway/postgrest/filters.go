package postgrest

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cppla/discourse/gateway"
)

const reserved = ",.:()\"\\ "

// quote wraps values containing PostgREST reserved characters in double quotes.
func quote(s string) string {
	if !strings.ContainsAny(s, reserved) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func arrayLiteral(values []string) string {
	items := make([]string, len(values))
	for i, v := range values {
		items[i] = `"` + strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), `"`, `\"`) + `"`
	}
	return "{" + strings.Join(items, ",") + "}"
}

// operand renders op.value for a filter, quoting as needed inside logic trees.
func operand(f gateway.Filter, nested bool) (string, error) {
	switch f.Op {
	case gateway.OpEq, gateway.OpILike:
		v := fmt.Sprint(f.Value)
		if nested {
			v = quote(v)
		}
		return string(f.Op) + "." + v, nil
	case gateway.OpContains:
		values, ok := f.Value.([]string)
		if !ok {
			return "", fmt.Errorf("%w: contains expects a string list", gateway.ErrUnsupportedFilter)
		}
		return string(f.Op) + "." + arrayLiteral(values), nil
	}
	return "", fmt.Errorf("%w: operator %q", gateway.ErrUnsupportedFilter, f.Op)
}

func whereParams(v url.Values, where []gateway.Filter) error {
	for _, f := range where {
		op, err := operand(f, false)
		if err != nil {
			return err
		}
		v.Add(f.Column, op)
	}
	return nil
}

// queryParams renders a gateway query as PostgREST query string parameters.
func queryParams(q gateway.Query) (url.Values, error) {
	v := url.Values{"select": {"*"}}
	if err := whereParams(v, q.Where); err != nil {
		return nil, err
	}
	if len(q.Any) > 0 {
		parts := make([]string, 0, len(q.Any))
		for _, f := range q.Any {
			op, err := operand(f, true)
			if err != nil {
				return nil, err
			}
			parts = append(parts, f.Column+"."+op)
		}
		v.Set("or", "("+strings.Join(parts, ",")+")")
	}
	if len(q.Order) > 0 {
		keys := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			keys = append(keys, o.Column+"."+dir)
		}
		v.Set("order", strings.Join(keys, ","))
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprint(q.Limit))
	}
	return v, nil
}
