package board

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/cppla/discourse/gateway"
)

// SortMode picks the single ordering of the list.
type SortMode string

const (
	SortNew     SortMode = "new"
	SortUpvotes SortMode = "upvotes"
	SortViews   SortMode = "views"
)

// ParseSortMode accepts new, upvotes or views; empty means new.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNew:
		return SortNew, nil
	case SortUpvotes:
		return SortUpvotes, nil
	case SortViews:
		return SortViews, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSort, s)
}

func (m SortMode) column() string {
	switch m {
	case SortUpvotes:
		return "upvotes"
	case SortViews:
		return "views"
	default:
		return "created_at"
	}
}

// ListParams are the three independent inputs of the post list.
type ListParams struct {
	Search   string
	Category string
	Sort     SortMode
}

// Normalize fills defaults and rejects unknown values.
func (p ListParams) Normalize() (ListParams, error) {
	if p.Category == "" {
		p.Category = AllCategories
	}
	if !IsFilterCategory(p.Category) {
		return p, fmt.Errorf("%w: %q", ErrInvalidCategory, p.Category)
	}
	sort, err := ParseSortMode(string(p.Sort))
	if err != nil {
		return p, err
	}
	p.Sort = sort
	return p, nil
}

// SplitTags splits comma separated input into trimmed, non-empty terms. Order and duplicates are kept.
func SplitTags(s string) []string {
	return lo.FilterMap(strings.Split(s, ","), func(t string, _ int) (string, bool) {
		t = strings.TrimSpace(t)
		return t, t != ""
	})
}

// BuildListQuery turns list inputs into one gateway read.
func BuildListQuery(p ListParams) gateway.Query {
	q := gateway.Select()
	if p.Category != "" && p.Category != AllCategories {
		q = q.Eq("category", p.Category)
	}
	if p.Search != "" {
		pattern := "%" + gateway.EscapeLike(p.Search) + "%"
		anyOf := []gateway.Filter{
			gateway.ILike("title", pattern),
			gateway.ILike("content", pattern),
		}
		if terms := SplitTags(p.Search); len(terms) > 0 {
			anyOf = append(anyOf, gateway.Contains("tags", terms))
		}
		q = q.Or(anyOf...)
	}
	return q.OrderBy(p.Sort.column(), true)
}

// TrendingQuery reads the four most upvoted posts.
func TrendingQuery() gateway.Query {
	return gateway.Select().OrderBy("upvotes", true).WithLimit(TrendingLimit)
}

// TrendingLimit is the size of the trending strip.
const TrendingLimit = 4
