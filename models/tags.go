package models

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// TagList is the ordered tag sequence of a post. Postgres stores it as text[],
// other dialects as a JSON array.
type TagList []string

// GormDBDataType picks the column type per dialect.
func (TagList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "text[]"
	case "mysql":
		return "JSON"
	default:
		return "text"
	}
}

// GormValue encodes the list for the dialect in use.
func (t TagList) GormValue(ctx context.Context, db *gorm.DB) clause.Expr {
	items := append([]string{}, t...)
	if db.Dialector.Name() == "postgres" {
		v, _ := pq.StringArray(items).Value()
		return clause.Expr{SQL: "?", Vars: []interface{}{v}}
	}
	b, _ := json.Marshal(items)
	return clause.Expr{SQL: "?", Vars: []interface{}{string(b)}}
}

// Scan accepts both postgres array literals and JSON arrays.
func (t *TagList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = TagList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("tag list: unsupported scan type %T", src)
	}
	if len(raw) > 0 && raw[0] == '[' {
		var items []string
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("tag list: %w", err)
		}
		*t = items
		return nil
	}
	var arr pq.StringArray
	if err := arr.Scan(raw); err != nil {
		return fmt.Errorf("tag list: %w", err)
	}
	*t = TagList(arr)
	return nil
}

// MarshalJSON renders an empty list instead of null.
func (t TagList) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// Contains reports whether every term is present in the list.
func (t TagList) Contains(terms ...string) bool {
	for _, term := range terms {
		found := false
		for _, tag := range t {
			if tag == term {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
