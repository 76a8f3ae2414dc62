package board

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"

	"github.com/cppla/discourse/events"
	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
	"github.com/cppla/discourse/utils"
)

// ViewState is the lifecycle of a PostView.
type ViewState int

const (
	StateLoading ViewState = iota
	StateLoaded
	StateEditing
	StateDeleted
)

func (s ViewState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEditing:
		return "editing"
	case StateDeleted:
		return "deleted"
	}
	return "unknown"
}

// EditFields are the staged values of an edit.
type EditFields struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url"`
	YoutubeURL string `json:"youtube_url"`
}

// Confirmer asks the reader to confirm a destructive action.
type Confirmer func() bool

// PostView is one reader's view of a single post and its comments.
// Loading has no timeout: a read that never returns leaves the view in StateLoading.
type PostView struct {
	board *Board
	id    string

	mu       sync.Mutex
	state    ViewState
	post     *models.Post
	comments []models.Comment
	viewer   *models.User
	upvotes  int64
	draft    EditFields
	input    string
	banner   string

	closed  atomic.Bool
	pending sync.WaitGroup
}

// OpenPost returns a view for post id in StateLoading.
func (b *Board) OpenPost(id string) *PostView {
	return &PostView{board: b, id: id, comments: []models.Comment{}}
}

// Load reads the post and its comments and counts one view.
func (v *PostView) Load(ctx context.Context) error {
	return v.load(ctx, true)
}

// Sync reads the post and its comments without counting a view.
func (v *PostView) Sync(ctx context.Context) error {
	return v.load(ctx, false)
}

func (v *PostView) load(ctx context.Context, countView bool) error {
	viewer, err := v.board.CurrentUser(ctx)
	if err != nil {
		// Reading needs no identity; owner controls stay hidden.
		utils.Sugar.Debugw("resolve viewer", "post_id", v.id, "error", err)
		viewer = nil
	}

	posts, err := v.board.gw.SelectPosts(ctx, gateway.Select().Eq("id", v.id).WithLimit(1))
	if err == nil && len(posts) == 0 {
		err = gateway.ErrNotFound
	}
	if err != nil {
		return v.fail(MsgLoadPostFailed, "fetch post", err)
	}
	post := posts[0]

	if countView {
		v.incrementViews(ctx, post.Views)
	}

	comments, err := v.board.gw.SelectComments(ctx, commentsQuery(v.id))
	if err != nil {
		return v.fail(MsgLoadPostFailed, "fetch comments", err)
	}

	if v.closed.Load() {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.post = &post
	v.comments = nonNilComments(comments)
	v.viewer = viewer
	v.upvotes = post.Upvotes
	v.draft = fieldsOf(post)
	v.banner = ""
	v.state = StateLoaded
	return nil
}

// incrementViews writes views+1 without waiting for the result. Failures are only logged.
// The write is absolute, so concurrent loads of the same post can undercount.
func (v *PostView) incrementViews(ctx context.Context, loaded int64) {
	detached := context.WithoutCancel(ctx)
	v.pending.Add(1)
	v.board.background.Add(1)
	go func() {
		defer v.board.background.Done()
		defer v.pending.Done()
		if _, err := v.board.gw.UpdatePosts(detached, map[string]interface{}{"views": loaded + 1}, gateway.Eq("id", v.id)); err != nil {
			utils.Sugar.Debugw("increment views", "post_id", v.id, "error", err)
			return
		}
		v.board.publish(detached, events.Event{Subject: events.PostViewed, PostID: v.id})
	}()
}

// Wait blocks until background view increments have finished.
func (v *PostView) Wait() {
	v.pending.Wait()
}

// Close marks the view as gone; calls still in flight no longer update it.
func (v *PostView) Close() {
	v.closed.Store(true)
}

// SetUpvotes replaces the local counter the next vote is computed from.
func (v *PostView) SetUpvotes(n int64) {
	v.mu.Lock()
	v.upvotes = n
	v.mu.Unlock()
}

// Vote writes local counter + delta as the new absolute value. delta must be +1 or -1.
// The local counter only changes after the write succeeds. Two overlapping votes can
// overwrite each other; votes are not deduplicated per reader.
func (v *PostView) Vote(ctx context.Context, delta int) (int64, error) {
	if delta != 1 && delta != -1 {
		return 0, ErrInvalidVote
	}
	v.mu.Lock()
	if v.state != StateLoaded && v.state != StateEditing {
		v.mu.Unlock()
		return 0, ErrInvalidState
	}
	next := v.upvotes + int64(delta)
	v.mu.Unlock()

	msg := MsgUpvoteFailed
	if delta < 0 {
		msg = MsgDownvoteFailed
	}
	n, err := v.board.gw.UpdatePosts(ctx, map[string]interface{}{"upvotes": next}, gateway.Eq("id", v.id))
	if err == nil && n == 0 {
		err = gateway.ErrNotFound
	}
	if err != nil {
		return 0, v.fail(msg, "vote", err)
	}
	if !v.closed.Load() {
		v.mu.Lock()
		v.upvotes = next
		v.post.Upvotes = next
		v.mu.Unlock()
	}
	v.board.publish(ctx, events.Event{Subject: events.PostVoted, PostID: v.id, Data: map[string]interface{}{"upvotes": next, "delta": delta}})
	return next, nil
}

// SetCommentInput stages comment text.
func (v *PostView) SetCommentInput(s string) {
	v.mu.Lock()
	v.input = s
	v.mu.Unlock()
}

// CommentInput returns the staged comment text.
func (v *PostView) CommentInput() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.input
}

// SubmitComment posts the staged text, reloads the full comment list and clears the input.
// Whitespace-only input is rejected without contacting the gateway and stays staged.
func (v *PostView) SubmitComment(ctx context.Context) error {
	text := v.CommentInput()
	if strings.TrimSpace(text) == "" {
		return ErrEmptyComment
	}
	user, err := v.board.CurrentUser(ctx)
	if err != nil {
		return v.fail(MsgCommentFailed, "comment identity", err)
	}
	comment := &models.Comment{PostID: v.id, UserID: user.ID, Content: text, IsFaculty: user.IsFaculty}
	if err := v.board.gw.InsertComments(ctx, comment); err != nil {
		return v.fail(MsgCommentFailed, "insert comment", err)
	}
	comments, err := v.board.gw.SelectComments(ctx, commentsQuery(v.id))
	if err != nil {
		return v.fail(MsgCommentFailed, "refetch comments", err)
	}
	if !v.closed.Load() {
		v.mu.Lock()
		v.comments = nonNilComments(comments)
		v.input = ""
		v.mu.Unlock()
	}
	v.board.publish(ctx, events.Event{Subject: events.CommentCreated, PostID: v.id, UserID: user.ID, Data: map[string]interface{}{"comment_id": comment.ID}})
	return nil
}

// CanEdit reports whether the viewer owns the post. It only decides what to show;
// the gateway predicate is what enforces ownership.
func (v *PostView) CanEdit() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.canEditLocked()
}

func (v *PostView) canEditLocked() bool {
	return v.viewer != nil && v.post != nil && v.viewer.ID == v.post.UserID
}

// BeginEdit enters StateEditing with fields seeded from the post.
func (v *PostView) BeginEdit() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateLoaded {
		return ErrInvalidState
	}
	if !v.canEditLocked() {
		return ErrNotOwner
	}
	v.draft = fieldsOf(*v.post)
	v.state = StateEditing
	return nil
}

// CancelEdit returns to StateLoaded and drops staged changes.
func (v *PostView) CancelEdit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateEditing {
		v.state = StateLoaded
		v.draft = fieldsOf(*v.post)
	}
}

// StageEdit replaces the staged edit fields.
func (v *PostView) StageEdit(f EditFields) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateEditing {
		return ErrInvalidState
	}
	v.draft = f
	return nil
}

// SubmitEdit writes the four staged fields and a fresh update time, scoped to the owner.
func (v *PostView) SubmitEdit(ctx context.Context) error {
	v.mu.Lock()
	if v.state != StateEditing {
		v.mu.Unlock()
		return ErrInvalidState
	}
	viewer, draft := v.viewer, v.draft
	v.mu.Unlock()

	if viewer == nil {
		return ErrNotAuthenticated
	}
	if strings.TrimSpace(draft.Title) == "" || strings.TrimSpace(draft.Content) == "" {
		return ErrMissingField
	}
	now := v.board.now()
	values := map[string]interface{}{
		"title":       draft.Title,
		"content":     draft.Content,
		"image_url":   optional(draft.ImageURL),
		"youtube_url": optional(draft.YoutubeURL),
		"updated_at":  now,
	}
	n, err := v.board.gw.UpdatePosts(ctx, values, gateway.Eq("id", v.id), gateway.Eq("user_id", viewer.ID))
	if err == nil && n == 0 {
		err = ErrNotOwner
	}
	if err != nil {
		return v.fail(MsgUpdateFailed, "update post", err)
	}
	if !v.closed.Load() {
		v.mu.Lock()
		v.post.Title = draft.Title
		v.post.Content = draft.Content
		v.post.ImageURL = optional(draft.ImageURL)
		v.post.YoutubeURL = optional(draft.YoutubeURL)
		v.post.UpdatedAt = &now
		v.state = StateLoaded
		v.banner = ""
		v.mu.Unlock()
	}
	v.board.publish(ctx, events.Event{Subject: events.PostUpdated, PostID: v.id, UserID: viewer.ID})
	return nil
}

// Delete removes the post after confirm approves. On success the view is StateDeleted.
func (v *PostView) Delete(ctx context.Context, confirm Confirmer) error {
	v.mu.Lock()
	if v.state != StateLoaded && v.state != StateEditing {
		v.mu.Unlock()
		return ErrInvalidState
	}
	if !v.canEditLocked() {
		v.mu.Unlock()
		return ErrNotOwner
	}
	viewer := v.viewer
	v.mu.Unlock()

	if confirm == nil || !confirm() {
		return ErrNotConfirmed
	}
	n, err := v.board.gw.DeletePosts(ctx, gateway.Eq("id", v.id), gateway.Eq("user_id", viewer.ID))
	if err == nil && n == 0 {
		err = ErrNotOwner
	}
	if err != nil {
		return v.fail(MsgDeleteFailed, "delete post", err)
	}
	if !v.closed.Load() {
		v.mu.Lock()
		v.state = StateDeleted
		v.mu.Unlock()
	}
	v.board.publish(ctx, events.Event{Subject: events.PostDeleted, PostID: v.id, UserID: viewer.ID})
	return nil
}

// fail records msg as the banner, logs err and returns it.
func (v *PostView) fail(msg, op string, err error) error {
	utils.Sugar.Errorw(op, "post_id", v.id, "error", err)
	if !v.closed.Load() {
		v.mu.Lock()
		v.banner = msg
		v.mu.Unlock()
	}
	return err
}

// PostSnapshot is a read-only copy of a PostView.
type PostSnapshot struct {
	State    string           `json:"state"`
	Post     *models.Post     `json:"post"`
	Comments []models.Comment `json:"comments"`
	Upvotes  int64            `json:"upvotes"`
	CanEdit  bool             `json:"can_edit"`
	Viewer   *models.User     `json:"viewer,omitempty"`
	Draft    *EditFields      `json:"draft,omitempty"`
	VideoID  string           `json:"video_id,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// State returns the lifecycle state.
func (v *PostView) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Snapshot copies the view for rendering.
func (v *PostView) Snapshot() PostSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := PostSnapshot{
		State:    v.state.String(),
		Comments: append([]models.Comment{}, v.comments...),
		Upvotes:  v.upvotes,
		CanEdit:  v.canEditLocked(),
		Viewer:   v.viewer,
		Error:    v.banner,
	}
	if v.post != nil {
		p := *v.post
		p.SecretKey = ""
		snap.Post = &p
		if p.YoutubeURL != nil {
			snap.VideoID = YouTubeID(*p.YoutubeURL)
		}
	}
	if v.state == StateEditing {
		d := v.draft
		snap.Draft = &d
	}
	return snap
}

func commentsQuery(postID string) gateway.Query {
	return gateway.Select().Eq("post_id", postID).OrderBy("created_at", false)
}

func fieldsOf(p models.Post) EditFields {
	return EditFields{
		Title:      p.Title,
		Content:    p.Content,
		ImageURL:   lo.FromPtr(p.ImageURL),
		YoutubeURL: lo.FromPtr(p.YoutubeURL),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return lo.ToPtr(s)
}

func nonNilComments(c []models.Comment) []models.Comment {
	if c == nil {
		return []models.Comment{}
	}
	return c
}
