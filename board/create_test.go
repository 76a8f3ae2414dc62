package board

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/discourse/events"
	"github.com/cppla/discourse/models"
)

func TestCreationFlowGuards(t *testing.T) {
	f := newFixture(t)
	flow := f.board.NewCreationFlow()
	assert.Equal(t, Step1, flow.Step())
	assert.Equal(t, DefaultCategory, flow.Draft().Category)

	assert.ErrorIs(t, flow.Next(), ErrStepIncomplete)
	assert.ErrorIs(t, flow.Back(), ErrInvalidState)
	assert.ErrorIs(t, flow.Stage(DraftPatch{Category: strPtr(AllCategories)}), ErrInvalidCategory)

	require.NoError(t, flow.Stage(DraftPatch{Title: strPtr("Office hours?"), Category: strPtr("Physics")}))
	require.NoError(t, flow.Next())
	assert.Equal(t, Step2, flow.Step())

	assert.ErrorIs(t, flow.Next(), ErrStepIncomplete)
	assert.False(t, flow.CanSubmit())
	require.NoError(t, flow.Stage(DraftPatch{Content: strPtr("When are they?")}))
	assert.True(t, flow.CanSubmit())
	require.NoError(t, flow.Next())
	assert.Equal(t, Step3, flow.Step())
	assert.ErrorIs(t, flow.Next(), ErrInvalidState)

	require.NoError(t, flow.Back())
	require.NoError(t, flow.Back())
	assert.Equal(t, Step1, flow.Step())
}

func TestCreateReadRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx, user := f.signIn(t)
	flow := f.board.NewCreationFlow()
	require.NoError(t, flow.Stage(DraftPatch{
		Title:      strPtr("Study group"),
		Category:   strPtr("Computer Science"),
		Tags:       strPtr(" COMP256 , ,algorithms,, "),
		Content:    strPtr("Anyone up for Thursday?"),
		YoutubeURL: strPtr("https://www.youtube.com/watch?v=dQw4w9WgXcQ"),
	}))

	post, err := flow.Submit(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.NotEmpty(t, post.SecretKey)
	assert.True(t, flow.Done())

	v := f.board.OpenPost(post.ID)
	require.NoError(t, v.Sync(ctx))
	got := v.Snapshot().Post
	assert.Equal(t, "Study group", got.Title)
	assert.Equal(t, "Anyone up for Thursday?", got.Content)
	assert.Equal(t, "Computer Science", got.Category)
	assert.Equal(t, models.TagList{"COMP256", "algorithms"}, got.Tags)
	assert.Equal(t, user.ID, got.UserID)
	assert.Nil(t, got.ImageURL)
	assert.Equal(t, "dQw4w9WgXcQ", v.Snapshot().VideoID)
	assert.Zero(t, got.Upvotes)
	assert.Equal(t, []string{events.PostCreated}, f.events.Subjects())

	_, err = flow.Submit(ctx)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitUploadsStagedImage(t *testing.T) {
	f := newFixture(t)
	ctx, _ := f.signIn(t)
	flow := f.board.NewCreationFlow()
	require.NoError(t, flow.Stage(DraftPatch{Title: strPtr("Poster"), Content: strPtr("see image"), ImageAlt: strPtr("event poster")}))
	flow.StageImage(StagedImage{Filename: "poster.final.PNG", ContentType: "image/png", Data: []byte("png")})

	post, err := flow.Submit(ctx)
	require.NoError(t, err)
	require.NotNil(t, post.ImageURL)
	assert.True(t, strings.HasPrefix(*post.ImageURL, "memory://storage/post-images/"))
	assert.True(t, strings.HasSuffix(*post.ImageURL, ".png"))
	assert.Equal(t, "event poster", post.ImageAlt)
	assert.Equal(t, 1, f.gw.ObjectCount())
}

func TestSubmitRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	flow := f.board.NewCreationFlow()
	require.NoError(t, flow.Stage(DraftPatch{Title: strPtr("t"), Content: strPtr("c")}))
	flow.StageImage(StagedImage{Filename: "a.jpg", Data: []byte("x")})
	_, err := flow.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, f.gw.ObjectCount())
	assert.False(t, flow.Done())
}

func TestSubmitUploadFailureAborts(t *testing.T) {
	f := newFixture(t)
	ctx, _ := f.signIn(t)
	flow := f.board.NewCreationFlow()
	require.NoError(t, flow.Stage(DraftPatch{Title: strPtr("t"), Content: strPtr("c")}))
	flow.StageImage(StagedImage{Filename: "a.jpg", Data: []byte("x")})
	f.gw.Fail = func(op string) error {
		if op == "Upload" {
			return errors.New("bucket missing")
		}
		return nil
	}
	_, err := flow.Submit(ctx)
	assert.EqualError(t, err, "bucket missing")
	assert.Zero(t, f.gw.CallCount("InsertPosts"))
}

func TestSubmitInsertFailureOrphansImage(t *testing.T) {
	f := newFixture(t)
	ctx, _ := f.signIn(t)
	flow := f.board.NewCreationFlow()
	require.NoError(t, flow.Stage(DraftPatch{Title: strPtr("t"), Content: strPtr("c")}))
	flow.StageImage(StagedImage{Filename: "a.jpg", Data: []byte("x")})
	f.gw.Fail = func(op string) error {
		if op == "InsertPosts" {
			return errors.New("row violates policy")
		}
		return nil
	}
	_, err := flow.Submit(ctx)
	assert.EqualError(t, err, "row violates policy")
	assert.Equal(t, 1, f.gw.ObjectCount())
	assert.False(t, flow.Done())
}

func TestSubmitIncompleteDraft(t *testing.T) {
	f := newFixture(t)
	ctx, _ := f.signIn(t)
	_, err := f.board.NewCreationFlow().Submit(ctx)
	assert.ErrorIs(t, err, ErrStepIncomplete)
}

func TestResumeCreationFlow(t *testing.T) {
	f := newFixture(t)
	flow := f.board.ResumeCreationFlow(Draft{ID: "d1", Step: 9, Title: "t"})
	assert.Equal(t, Step1, flow.Step())
	assert.Equal(t, "d1", flow.Draft().ID)
}

func TestImageExtension(t *testing.T) {
	assert.Equal(t, "png", imageExtension("image/png"))
	assert.Equal(t, "jpg", imageExtension("IMAGE/JPEG; charset=binary"))
	assert.Equal(t, "webp", imageExtension("image/webp"))
	assert.Equal(t, "", imageExtension("text/html; charset=utf-8"))
	assert.Equal(t, "", imageExtension(""))
}
