package sqlstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/discourse/gateway"
)

var postColumns = map[string]bool{
	"id": true, "user_id": true, "title": true, "content": true, "category": true,
	"tags": true, "upvotes": true, "views": true, "pinned": true, "created_at": true,
}

var commentColumns = map[string]bool{
	"id": true, "post_id": true, "user_id": true, "content": true, "created_at": true,
}

var postWritable = map[string]bool{
	"title": true, "content": true, "image_url": true, "youtube_url": true,
	"updated_at": true, "upvotes": true, "views": true, "pinned": true,
}

// applyQuery translates a gateway query into gorm clauses for the dialect of tx.
func applyQuery(tx *gorm.DB, q gateway.Query, columns map[string]bool) (*gorm.DB, error) {
	tx, err := applyWhere(tx, q.Where, columns)
	if err != nil {
		return nil, err
	}
	if len(q.Any) > 0 {
		parts := make([]string, 0, len(q.Any))
		var args []interface{}
		for _, f := range q.Any {
			sql, arg, err := fragment(tx.Dialector.Name(), f, columns)
			if err != nil {
				return nil, err
			}
			parts = append(parts, sql)
			args = append(args, arg)
		}
		tx = tx.Where("("+strings.Join(parts, " OR ")+")", args...)
	}
	for _, o := range q.Order {
		if !columns[o.Column] {
			return nil, fmt.Errorf("%w: order by %q", gateway.ErrUnsupportedFilter, o.Column)
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx, nil
}

func applyWhere(tx *gorm.DB, where []gateway.Filter, columns map[string]bool) (*gorm.DB, error) {
	for _, f := range where {
		sql, arg, err := fragment(tx.Dialector.Name(), f, columns)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(sql, arg)
	}
	return tx, nil
}

func fragment(dialect string, f gateway.Filter, columns map[string]bool) (string, interface{}, error) {
	if !columns[f.Column] {
		return "", nil, fmt.Errorf("%w: unknown column %q", gateway.ErrUnsupportedFilter, f.Column)
	}
	switch f.Op {
	case gateway.OpEq:
		return f.Column + " = ?", f.Value, nil
	case gateway.OpILike:
		if dialect == "postgres" {
			return f.Column + " ILIKE ?", f.Value, nil
		}
		return "LOWER(" + f.Column + ") LIKE LOWER(?)", f.Value, nil
	case gateway.OpContains:
		values, ok := f.Value.([]string)
		if !ok {
			return "", nil, fmt.Errorf("%w: contains expects a string list", gateway.ErrUnsupportedFilter)
		}
		if dialect == "postgres" {
			return f.Column + " @> ?", pq.StringArray(values), nil
		}
		b, err := json.Marshal(values)
		if err != nil {
			return "", nil, err
		}
		return "JSON_CONTAINS(" + f.Column + ", ?)", string(b), nil
	}
	return "", nil, fmt.Errorf("%w: operator %q", gateway.ErrUnsupportedFilter, f.Op)
}
