package board

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/discourse/events"
	"github.com/cppla/discourse/models"
	"github.com/cppla/discourse/utils"
)

// Step is a page of the creation flow.
type Step int

const (
	Step1 Step = iota + 1 // title, category, tags
	Step2                 // content
	Step3                 // image and video, optional
)

// StagedImage is an image picked in step 3, held until submit.
type StagedImage struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Draft is everything staged by a creation flow.
type Draft struct {
	ID         string       `json:"id"`
	Step       Step         `json:"step"`
	Title      string       `json:"title"`
	Category   string       `json:"category"`
	Tags       string       `json:"tags"`
	Content    string       `json:"content"`
	ImageAlt   string       `json:"image_alt"`
	YoutubeURL string       `json:"youtube_url"`
	Image      *StagedImage `json:"image,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// DraftPatch updates the fields that are set.
type DraftPatch struct {
	Title      *string `json:"title"`
	Category   *string `json:"category"`
	Tags       *string `json:"tags"`
	Content    *string `json:"content"`
	ImageAlt   *string `json:"image_alt"`
	YoutubeURL *string `json:"youtube_url"`
}

func titleAndCategoryStaged(d Draft) bool {
	return strings.TrimSpace(d.Title) != "" && IsCategory(d.Category)
}

func contentStaged(d Draft) bool {
	return strings.TrimSpace(d.Content) != ""
}

// guards[s] must hold to leave step s forwards. Step3 has none.
var guards = map[Step]func(Draft) bool{
	Step1: titleAndCategoryStaged,
	Step2: contentStaged,
}

// CreationFlow stages a post over three steps and submits it.
type CreationFlow struct {
	board *Board
	draft Draft
	done  bool
}

// NewCreationFlow starts at Step1 with the default category selected.
func (b *Board) NewCreationFlow() *CreationFlow {
	return &CreationFlow{board: b, draft: Draft{ID: uuid.NewString(), Step: Step1, Category: DefaultCategory, UpdatedAt: b.now()}}
}

// ResumeCreationFlow continues a stored draft.
func (b *Board) ResumeCreationFlow(d Draft) *CreationFlow {
	if d.Step < Step1 || d.Step > Step3 {
		d.Step = Step1
	}
	return &CreationFlow{board: b, draft: d}
}

// Draft returns a copy of the staged values.
func (f *CreationFlow) Draft() Draft {
	return f.draft
}

// Step returns the current step.
func (f *CreationFlow) Step() Step {
	return f.draft.Step
}

// Stage applies p. A category outside the enumeration is rejected.
func (f *CreationFlow) Stage(p DraftPatch) error {
	if p.Category != nil && !IsCategory(*p.Category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, *p.Category)
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&f.draft.Title, p.Title)
	set(&f.draft.Category, p.Category)
	set(&f.draft.Tags, p.Tags)
	set(&f.draft.Content, p.Content)
	set(&f.draft.ImageAlt, p.ImageAlt)
	set(&f.draft.YoutubeURL, p.YoutubeURL)
	f.draft.UpdatedAt = f.board.now()
	return nil
}

// StageImage holds an image for upload at submit time.
func (f *CreationFlow) StageImage(img StagedImage) {
	f.draft.Image = &img
	f.draft.UpdatedAt = f.board.now()
}

// ClearImage drops the staged image.
func (f *CreationFlow) ClearImage() {
	f.draft.Image = nil
}

// CanAdvance reports whether the current step's guard holds.
func (f *CreationFlow) CanAdvance() bool {
	guard, ok := guards[f.draft.Step]
	return ok && guard(f.draft)
}

// Next moves forward when the current step is complete.
func (f *CreationFlow) Next() error {
	if f.draft.Step >= Step3 {
		return ErrInvalidState
	}
	if !f.CanAdvance() {
		return ErrStepIncomplete
	}
	f.draft.Step++
	return nil
}

// Back moves to the previous step. It is never gated.
func (f *CreationFlow) Back() error {
	if f.draft.Step <= Step1 {
		return ErrInvalidState
	}
	f.draft.Step--
	return nil
}

// CanSubmit reports whether every guard holds.
func (f *CreationFlow) CanSubmit() bool {
	return !f.done && titleAndCategoryStaged(f.draft) && contentStaged(f.draft)
}

// Submit publishes the draft: it checks the identity, uploads the staged image,
// splits the tags and inserts the post with a fresh secret key. Any failure aborts.
// An image uploaded before a failed insert stays in storage.
func (f *CreationFlow) Submit(ctx context.Context) (*models.Post, error) {
	if f.done {
		return nil, ErrInvalidState
	}
	if !f.CanSubmit() {
		return nil, ErrStepIncomplete
	}
	user, err := f.board.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	var imageURL *string
	var uploaded string
	if img := f.draft.Image; img != nil {
		name := uuid.NewString()
		if ext := imageExtension(img.ContentType); ext != "" {
			name += "." + ext
		}
		if err := f.board.gw.Upload(ctx, f.board.bucket, name, bytes.NewReader(img.Data), img.ContentType); err != nil {
			utils.Sugar.Errorw("upload image", "name", name, "error", err)
			return nil, err
		}
		url := f.board.gw.PublicURL(f.board.bucket, name)
		imageURL = &url
		uploaded = name
	}

	post := &models.Post{
		UserID:     user.ID,
		Title:      f.draft.Title,
		Content:    f.draft.Content,
		Category:   f.draft.Category,
		Tags:       models.TagList(SplitTags(f.draft.Tags)),
		ImageURL:   imageURL,
		ImageAlt:   f.draft.ImageAlt,
		YoutubeURL: optional(strings.TrimSpace(f.draft.YoutubeURL)),
		SecretKey:  uuid.NewString(),
	}
	if err := f.board.gw.InsertPosts(ctx, post); err != nil {
		if uploaded != "" {
			utils.Sugar.Warnw("insert failed after upload, image orphaned", "bucket", f.board.bucket, "name", uploaded, "error", err)
		}
		utils.Sugar.Errorw("insert post", "error", err)
		return nil, err
	}
	f.done = true
	f.board.publish(ctx, events.Event{Subject: events.PostCreated, PostID: post.ID, UserID: user.ID, Data: map[string]interface{}{"category": post.Category}})
	return post, nil
}

// Done reports whether the draft was submitted.
func (f *CreationFlow) Done() bool {
	return f.done
}

var imageExtensions = map[string]string{
	"image/png":                "png",
	"image/jpeg":               "jpg",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"image/bmp":                "bmp",
	"image/x-icon":             "ico",
	"image/vnd.microsoft.icon": "ico",
}

// imageExtension names the stored object's extension after its content type.
// The client's file name is never used; unknown types get no extension.
func imageExtension(contentType string) string {
	return imageExtensions[strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))]
}
