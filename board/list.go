package board

import (
	"context"
	"sync"

	"github.com/cppla/discourse/models"
	"github.com/cppla/discourse/utils"
)

// UIState is the per-reader state the list depends on.
type UIState struct {
	Theme    Theme
	Search   string
	Category string
}

// ListResult is what a list read renders: posts, an empty state or an error banner.
type ListResult struct {
	Posts      []models.Post `json:"posts"`
	Empty      bool          `json:"empty"`
	EmptyState string        `json:"empty_state,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// ListView re-reads the post list whenever one of its inputs changes.
// Reads are not sequenced: when calls overlap, the last one to finish wins.
type ListView struct {
	board *Board
	state *UIState

	mu     sync.Mutex
	sort   SortMode
	result ListResult
}

// NewListView binds a list to the reader's UI state.
func (b *Board) NewListView(state *UIState) *ListView {
	if state == nil {
		state = &UIState{}
	}
	if state.Category == "" {
		state.Category = AllCategories
	}
	return &ListView{board: b, state: state, sort: SortNew}
}

// Params returns the current inputs.
func (v *ListView) Params() ListParams {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ListParams{Search: v.state.Search, Category: v.state.Category, Sort: v.sort}
}

// Result returns the last rendered outcome.
func (v *ListView) Result() ListResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.result
}

// SetSearch changes the search text and re-reads.
func (v *ListView) SetSearch(ctx context.Context, search string) ListResult {
	v.mu.Lock()
	v.state.Search = search
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// SetCategory changes the category filter and re-reads.
func (v *ListView) SetCategory(ctx context.Context, category string) ListResult {
	v.mu.Lock()
	v.state.Category = category
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// SetSort changes the sort mode and re-reads.
func (v *ListView) SetSort(ctx context.Context, sort SortMode) ListResult {
	v.mu.Lock()
	v.sort = sort
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// Refresh issues a fresh read for the current inputs.
func (v *ListView) Refresh(ctx context.Context) ListResult {
	params := v.Params()
	posts, err := v.board.ListPosts(ctx, params)
	var res ListResult
	switch {
	case err != nil:
		utils.Sugar.Errorw("fetch posts", "search", params.Search, "category", params.Category, "sort", params.Sort, "error", err)
		res = ListResult{Posts: []models.Post{}, Error: MsgLoadPostsFailed}
	case len(posts) == 0:
		res = ListResult{Posts: []models.Post{}, Empty: true, EmptyState: MsgNoPosts}
	default:
		res = ListResult{Posts: posts}
	}
	v.mu.Lock()
	v.result = res
	v.mu.Unlock()
	return res
}
