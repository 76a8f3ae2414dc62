package board

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/discourse/models"
)

func TestListCategoryFilterIsExact(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		models.Post{Title: "bio", Category: "Biology"},
		models.Post{Title: "biochem", Category: "Biochemistry & Molecular Biology"},
		models.Post{Title: "cs", Category: "Computer Science"},
	)
	ctx := context.Background()

	posts, err := f.board.ListPosts(ctx, ListParams{Category: "Biology"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	for _, p := range posts {
		assert.Equal(t, "Biology", p.Category)
	}

	all, err := f.board.ListPosts(ctx, ListParams{Category: AllCategories})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListSearchIsDisjunction(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		models.Post{Title: "Deep LEARNING notes", Content: "x"},
		models.Post{Title: "Lab", Content: "we are learning pipettes"},
		models.Post{Title: "Tagged", Content: "y", Tags: models.TagList{"learning", "ml"}},
		models.Post{Title: "Unrelated", Content: "z", Tags: models.TagList{"chem"}},
	)
	posts, err := f.board.ListPosts(context.Background(), ListParams{Search: "learning"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Deep LEARNING notes", "Lab", "Tagged"}, titles(posts))

	posts, err = f.board.ListPosts(context.Background(), ListParams{Search: "ml,learning"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tagged"}, titles(posts))
}

func TestListSortIsMonotonic(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		models.Post{Title: "a", Upvotes: 3, Views: 10},
		models.Post{Title: "b", Upvotes: -1, Views: 50},
		models.Post{Title: "c", Upvotes: 7, Views: 0},
		models.Post{Title: "d", Upvotes: 0, Views: 20},
	)
	ctx := context.Background()

	byNew, err := f.board.ListPosts(ctx, ListParams{Sort: SortNew})
	require.NoError(t, err)
	for i := 1; i < len(byNew); i++ {
		assert.False(t, byNew[i].CreatedAt.After(byNew[i-1].CreatedAt))
	}

	byVotes, err := f.board.ListPosts(ctx, ListParams{Sort: SortUpvotes})
	require.NoError(t, err)
	for i := 1; i < len(byVotes); i++ {
		assert.LessOrEqual(t, byVotes[i].Upvotes, byVotes[i-1].Upvotes)
	}

	byViews, err := f.board.ListPosts(ctx, ListParams{Sort: SortViews})
	require.NoError(t, err)
	for i := 1; i < len(byViews); i++ {
		assert.LessOrEqual(t, byViews[i].Views, byViews[i-1].Views)
	}
}

func TestListViewEmptyState(t *testing.T) {
	f := newFixture(t)
	v := f.board.NewListView(nil)
	res := v.Refresh(context.Background())
	assert.True(t, res.Empty)
	assert.Equal(t, MsgNoPosts, res.EmptyState)
	assert.NotNil(t, res.Posts)
	assert.Empty(t, res.Error)
}

func TestListViewReissuesOnEveryChange(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		models.Post{Title: "bio", Category: "Biology", Upvotes: 1},
		models.Post{Title: "cs", Category: "Computer Science", Upvotes: 2},
	)
	state := &UIState{Theme: ThemeDark}
	v := f.board.NewListView(state)
	ctx := context.Background()

	assert.Len(t, v.Refresh(ctx).Posts, 2)
	assert.Equal(t, []string{"cs"}, titles(v.SetCategory(ctx, "Computer Science").Posts))
	assert.Equal(t, "Computer Science", state.Category)
	assert.True(t, v.SetSearch(ctx, "nothing matches").Empty)
	assert.Equal(t, "nothing matches", state.Search)
	v.SetSearch(ctx, "")
	v.SetCategory(ctx, AllCategories)
	assert.Equal(t, []string{"cs", "bio"}, titles(v.SetSort(ctx, SortUpvotes).Posts))
	assert.Equal(t, 6, f.gw.CallCount("SelectPosts"))
}

func TestListViewFailureShowsBannerOnly(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.Post{Title: "bio"})
	f.gw.Fail = func(op string) error { return errors.New("network down") }
	res := f.board.NewListView(nil).Refresh(context.Background())
	assert.Equal(t, MsgLoadPostsFailed, res.Error)
	assert.Empty(t, res.Posts)
	assert.False(t, res.Empty)
}

func TestListViewRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)
	res := f.board.NewListView(&UIState{Category: "Astrology"}).Refresh(context.Background())
	assert.Equal(t, MsgLoadPostsFailed, res.Error)
	assert.Zero(t, f.gw.CallCount("SelectPosts"))
}
