package board

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategories(t *testing.T) {
	assert.Len(t, Categories, 68)
	assert.Equal(t, "Africana Studies", DefaultCategory)
	assert.True(t, IsCategory("Computer Science"))
	assert.False(t, IsCategory(AllCategories))
	assert.True(t, IsFilterCategory(AllCategories))
	assert.False(t, IsCategory("computer science"))

	filter := FilterCategories()
	assert.Equal(t, AllCategories, filter[0])
	assert.Equal(t, Categories, filter[1:])

	grouped := 0
	for _, g := range CategoryGroups {
		for _, c := range g.Categories {
			assert.True(t, IsCategory(c), c)
			grouped++
		}
	}
	assert.Equal(t, len(Categories), grouped)
	assert.Equal(t, "All Majors", DisplayName(AllCategories))
	assert.Equal(t, "Music", DisplayName("Music"))
}

func TestSearchCategories(t *testing.T) {
	assert.Len(t, SearchCategories(""), len(CategoryGroups))

	groups := SearchCategories("  STUDIES ")
	for _, g := range groups {
		for _, c := range g.Categories {
			assert.Contains(t, strings.ToLower(c), "studies")
		}
	}
	assert.NotEmpty(t, groups)

	groups = SearchCategories("neuro")
	require.Len(t, groups, 1)
	assert.Equal(t, "Sciences & Technology", groups[0].Name)
	assert.Equal(t, []string{"Neuroscience"}, groups[0].Categories)

	assert.Empty(t, SearchCategories("astrology"))
}

func TestYouTubeID(t *testing.T) {
	cases := []struct{ url, id string }{
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/v/dQw4w9WgXcQ#t=30", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/u/w/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=short", ""},
		{"https://vimeo.com/123456", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.id, YouTubeID(tc.url), tc.url)
	}
	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ", EmbedURL("https://youtu.be/dQw4w9WgXcQ"))
	assert.Empty(t, EmbedURL("nope"))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "Hello world & friends", Excerpt("<b>Hello</b>\n  world &amp; friends<script>x</script>"))
	long := strings.Repeat("word ", 100)
	got := Excerpt(long)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), ExcerptLength+1)
}

func TestTheme(t *testing.T) {
	th, err := ParseTheme("dark")
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, th)
	assert.Equal(t, ThemeLight, th.Toggle())
	assert.Equal(t, ThemeDark, ThemeLight.Toggle())
	_, err = ParseTheme("solarized")
	assert.ErrorIs(t, err, ErrInvalidTheme)
}

func TestPreferenceStoreInMemory(t *testing.T) {
	ctx := context.Background()
	s := NewPreferenceStore(nil)
	assert.Equal(t, ThemeLight, s.Theme(ctx, "u1"))
	require.NoError(t, s.SetTheme(ctx, "u1", ThemeDark))
	assert.Equal(t, ThemeDark, s.Theme(ctx, "u1"))
	assert.Equal(t, ThemeLight, s.Theme(ctx, "u2"))
	assert.Error(t, s.SetTheme(ctx, "u1", Theme("blue")))
}

func TestDraftStoreInMemory(t *testing.T) {
	ctx := context.Background()
	s := NewDraftStore(nil, time.Hour)
	d := Draft{ID: "d1", Step: Step2, Title: "t", Image: &StagedImage{Filename: "a.png", Data: []byte{1, 2}}}
	require.NoError(t, s.Save(ctx, "u1", d))

	got, err := s.Load(ctx, "u1", "d1")
	require.NoError(t, err)
	assert.Equal(t, d.Title, got.Title)
	assert.Equal(t, Step2, got.Step)
	assert.Equal(t, []byte{1, 2}, got.Image.Data)

	_, err = s.Load(ctx, "u2", "d1")
	assert.ErrorIs(t, err, ErrDraftNotFound)

	require.NoError(t, s.Delete(ctx, "u1", "d1"))
	_, err = s.Load(ctx, "u1", "d1")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestDraftStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewDraftStore(nil, time.Nanosecond)
	require.NoError(t, s.Save(ctx, "u1", Draft{ID: "d1"}))
	time.Sleep(time.Millisecond)
	_, err := s.Load(ctx, "u1", "d1")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestDraftStoreSweepsOnSave(t *testing.T) {
	ctx := context.Background()
	s := NewDraftStore(nil, time.Hour)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, "u1", Draft{ID: "stale", Image: &StagedImage{Data: make([]byte, 1024)}}))
	require.NoError(t, s.Save(ctx, "u2", Draft{ID: "fresh"}))
	assert.Equal(t, 2, s.Len())

	now = now.Add(2 * time.Hour)
	require.NoError(t, s.Save(ctx, "u3", Draft{ID: "new"}))
	assert.Equal(t, 1, s.Len())
}

func TestDraftStoreClaimOnce(t *testing.T) {
	ctx := context.Background()
	s := NewDraftStore(nil, time.Hour)
	require.NoError(t, s.Save(ctx, "u1", Draft{ID: "d1", Title: "t"}))

	var wg sync.WaitGroup
	var won atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, err := s.Claim(ctx, "u1", "d1"); err == nil {
				assert.Equal(t, "t", d.Title)
				won.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrDraftNotFound)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
	_, err := s.Load(ctx, "u1", "d1")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}
