package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/cppla/discourse/board"
	"github.com/cppla/discourse/middleware"
	"github.com/cppla/discourse/utils"
)

// DraftController drives the three-step creation flow across requests.
// Drafts are stored per session owner between steps.
type DraftController struct {
	board     *board.Board
	drafts    *board.DraftStore
	maxUpload int64
}

// NewDraftController creates a controller accepting images up to maxUploadBytes.
func NewDraftController(b *board.Board, drafts *board.DraftStore, maxUploadBytes int64) *DraftController {
	return &DraftController{board: b, drafts: drafts, maxUpload: maxUploadBytes}
}

// draftView is a draft as returned to clients. Image bytes stay server side.
type draftView struct {
	ID         string     `json:"id"`
	Step       board.Step `json:"step"`
	Title      string     `json:"title"`
	Category   string     `json:"category"`
	Tags       string     `json:"tags"`
	TagList    []string   `json:"tag_list"`
	Content    string     `json:"content"`
	ImageAlt   string     `json:"image_alt"`
	YoutubeURL string     `json:"youtube_url"`
	VideoID    string     `json:"video_id,omitempty"`
	Image      *imageInfo `json:"image,omitempty"`
	CanAdvance bool       `json:"can_advance"`
	CanSubmit  bool       `json:"can_submit"`
}

type imageInfo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        string `json:"size"`
}

func viewOf(flow *board.CreationFlow) draftView {
	d := flow.Draft()
	v := draftView{
		ID:         d.ID,
		Step:       d.Step,
		Title:      d.Title,
		Category:   d.Category,
		Tags:       d.Tags,
		TagList:    board.SplitTags(d.Tags),
		Content:    d.Content,
		ImageAlt:   d.ImageAlt,
		YoutubeURL: d.YoutubeURL,
		VideoID:    board.YouTubeID(d.YoutubeURL),
		CanAdvance: flow.CanAdvance(),
		CanSubmit:  flow.CanSubmit(),
	}
	if d.Image != nil {
		v.Image = &imageInfo{
			Filename:    d.Image.Filename,
			ContentType: d.Image.ContentType,
			Size:        humanize.IBytes(uint64(len(d.Image.Data))),
		}
	}
	return v
}

func owner(ctx *gin.Context) string {
	return ctx.GetString(middleware.ContextUserIDKey)
}

// load resumes the draft named in the path. It writes the error response itself.
func (d *DraftController) load(ctx *gin.Context) (*board.CreationFlow, bool) {
	draft, err := d.drafts.Load(ctx.Request.Context(), owner(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, board.MsgCreateFailed)
		return nil, false
	}
	return d.board.ResumeCreationFlow(draft), true
}

func (d *DraftController) save(ctx *gin.Context, flow *board.CreationFlow) {
	if err := d.drafts.Save(ctx.Request.Context(), owner(ctx), flow.Draft()); err != nil {
		utils.Sugar.Errorw("save draft", "draft_id", flow.Draft().ID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to save draft")
		return
	}
	utils.Success(ctx, viewOf(flow))
}

// CreateDraft starts a new flow at step 1.
func (d *DraftController) CreateDraft(ctx *gin.Context) {
	d.save(ctx, d.board.NewCreationFlow())
}

// GetDraft returns a stored draft.
func (d *DraftController) GetDraft(ctx *gin.Context) {
	flow, ok := d.load(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, viewOf(flow))
}

type stageRequest struct {
	Title      *string `json:"title"`
	Category   *string `json:"category" binding:"omitempty,category"`
	Tags       *string `json:"tags"`
	Content    *string `json:"content"`
	ImageAlt   *string `json:"image_alt"`
	YoutubeURL *string `json:"youtube_url" binding:"omitempty,url"`
}

// StageDraft updates the fields present in the body.
func (d *DraftController) StageDraft(ctx *gin.Context) {
	var req stageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, bindingMessage(err))
		return
	}
	flow, ok := d.load(ctx)
	if !ok {
		return
	}
	patch := board.DraftPatch{
		Title:      req.Title,
		Category:   req.Category,
		Tags:       req.Tags,
		Content:    req.Content,
		ImageAlt:   req.ImageAlt,
		YoutubeURL: req.YoutubeURL,
	}
	if err := flow.Stage(patch); err != nil {
		respondError(ctx, err, board.MsgCreateFailed)
		return
	}
	d.save(ctx, flow)
}

// UploadImage stages the multipart "file" field as the post image.
func (d *DraftController) UploadImage(ctx *gin.Context) {
	flow, ok := d.load(ctx)
	if !ok {
		return
	}
	img, ok := d.readImage(ctx, true)
	if !ok {
		return
	}
	flow.StageImage(*img)
	d.save(ctx, flow)
}

// readImage reads the multipart "file" field. A missing file is an error only when required.
func (d *DraftController) readImage(ctx *gin.Context, required bool) (*board.StagedImage, bool) {
	file, header, err := ctx.Request.FormFile("file")
	if !required && (errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)) {
		return nil, true
	}
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "no file uploaded")
		return nil, false
	}
	defer file.Close()

	tooLarge := fmt.Sprintf("file size exceeds %s", humanize.IBytes(uint64(d.maxUpload)))
	if header.Size > d.maxUpload {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, tooLarge)
		return nil, false
	}
	data, err := io.ReadAll(io.LimitReader(file, d.maxUpload+1))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "failed to read file")
		return nil, false
	}
	if int64(len(data)) > d.maxUpload {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, tooLarge)
		return nil, false
	}
	// the part header and file name are the client's claim; the bytes decide
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		utils.Error(ctx, http.StatusUnsupportedMediaType, 41501, "only images can be attached")
		return nil, false
	}
	return &board.StagedImage{
		Filename:    filepath.Base(header.Filename),
		ContentType: contentType,
		Data:        data,
	}, true
}

// RemoveImage drops the staged image.
func (d *DraftController) RemoveImage(ctx *gin.Context) {
	flow, ok := d.load(ctx)
	if !ok {
		return
	}
	flow.ClearImage()
	d.save(ctx, flow)
}

// Next advances when the current step is complete.
func (d *DraftController) Next(ctx *gin.Context) {
	flow, ok := d.load(ctx)
	if !ok {
		return
	}
	if err := flow.Next(); err != nil {
		respondError(ctx, err, board.MsgCreateFailed)
		return
	}
	d.save(ctx, flow)
}

// Back returns to the previous step.
func (d *DraftController) Back(ctx *gin.Context) {
	flow, ok := d.load(ctx)
	if !ok {
		return
	}
	if err := flow.Back(); err != nil {
		respondError(ctx, err, board.MsgCreateFailed)
		return
	}
	d.save(ctx, flow)
}

// Submit publishes the draft. The draft is claimed first so a repeated or concurrent
// submit finds nothing; a failed submit puts it back.
func (d *DraftController) Submit(ctx *gin.Context) {
	draft, err := d.drafts.Claim(ctx.Request.Context(), owner(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, board.MsgCreateFailed)
		return
	}
	flow := d.board.ResumeCreationFlow(draft)
	post, err := flow.Submit(ctx.Request.Context())
	if err != nil {
		if saveErr := d.drafts.Save(ctx.Request.Context(), owner(ctx), flow.Draft()); saveErr != nil {
			utils.Sugar.Errorw("restore draft", "draft_id", draft.ID, "error", saveErr)
		}
		respondError(ctx, err, board.MsgCreateFailed)
		return
	}
	post.SecretKey = ""
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"post": post})
}

// DeleteDraft discards a draft.
func (d *DraftController) DeleteDraft(ctx *gin.Context) {
	if err := d.drafts.Delete(ctx.Request.Context(), owner(ctx), ctx.Param("id")); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to delete draft")
		return
	}
	utils.Success(ctx, gin.H{"id": ctx.Param("id")})
}

type publishForm struct {
	Title      string `form:"title" json:"title" binding:"required"`
	Category   string `form:"category" json:"category" binding:"required,category"`
	Tags       string `form:"tags" json:"tags"`
	Content    string `form:"content" json:"content" binding:"required"`
	ImageAlt   string `form:"image_alt" json:"image_alt"`
	YoutubeURL string `form:"youtube_url" json:"youtube_url" binding:"omitempty,url"`
}

// Publish runs the whole creation flow in one request. The body is JSON or a form,
// multipart when it carries a "file" image.
func (d *DraftController) Publish(ctx *gin.Context) {
	var req publishForm
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, bindingMessage(err))
		return
	}
	flow := d.board.NewCreationFlow()
	err := flow.Stage(board.DraftPatch{
		Title:      &req.Title,
		Category:   &req.Category,
		Tags:       &req.Tags,
		Content:    &req.Content,
		ImageAlt:   &req.ImageAlt,
		YoutubeURL: &req.YoutubeURL,
	})
	if err != nil {
		respondError(ctx, err, board.MsgCreateFailed)
		return
	}
	img, ok := d.readImage(ctx, false)
	if !ok {
		return
	}
	if img != nil {
		flow.StageImage(*img)
	}
	post, err := flow.Submit(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, board.MsgCreateFailed)
		return
	}
	post.SecretKey = ""
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"post": post})
}
