package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/cppla/discourse/board"
	"github.com/cppla/discourse/middleware"
	"github.com/cppla/discourse/models"
	"github.com/cppla/discourse/utils"
)

// PostController serves the list, detail and mutation flows of the board.
type PostController struct {
	board *board.Board
	prefs *board.PreferenceStore
}

// NewPostController creates a new PostController instance.
func NewPostController(b *board.Board, prefs *board.PreferenceStore) *PostController {
	return &PostController{board: b, prefs: prefs}
}

// postCard is a list entry with a plain-text preview.
type postCard struct {
	models.Post
	Excerpt string `json:"excerpt"`
	VideoID string `json:"video_id,omitempty"`
}

func cards(posts []models.Post) []postCard {
	return lo.Map(posts, func(p models.Post, _ int) postCard {
		p.SecretKey = ""
		return postCard{Post: p, Excerpt: board.Excerpt(p.Content), VideoID: board.YouTubeID(lo.FromPtr(p.YoutubeURL))}
	})
}

type listQuery struct {
	Search   string `form:"search"`
	Category string `form:"category" binding:"omitempty,filter_category"`
	Sort     string `form:"sort" binding:"omitempty,sort_mode"`
}

// ListPosts runs the filtered, searched and sorted list read.
func (p *PostController) ListPosts(ctx *gin.Context) {
	var q listQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, bindingMessage(err))
		return
	}
	sort, err := board.ParseSortMode(q.Sort)
	if err != nil {
		respondError(ctx, err, board.MsgLoadPostsFailed)
		return
	}

	state := &board.UIState{Search: q.Search, Category: q.Category}
	if user := middleware.CurrentUser(ctx); user != nil {
		state.Theme = p.prefs.Theme(ctx.Request.Context(), user.ID)
	}
	view := p.board.NewListView(state)
	res := view.SetSort(ctx.Request.Context(), sort)
	if res.Error != "" {
		utils.Error(ctx, http.StatusBadGateway, 50201, res.Error)
		return
	}

	params := view.Params()
	utils.Success(ctx, gin.H{
		"items":       cards(res.Posts),
		"empty":       res.Empty,
		"empty_state": res.EmptyState,
		"filters": gin.H{
			"search":   params.Search,
			"category": params.Category,
			"label":    board.DisplayName(params.Category),
			"sort":     params.Sort,
		},
		"theme": state.Theme,
	})
}

// Trending returns the top posts by upvotes. Failures yield an empty list.
func (p *PostController) Trending(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"items": cards(p.board.Trending(ctx.Request.Context()))})
}

// GetPost loads one post with its comments and counts the view.
func (p *PostController) GetPost(ctx *gin.Context) {
	view := p.board.OpenPost(ctx.Param("id"))
	defer view.Close()
	if err := view.Load(ctx.Request.Context()); err != nil {
		respondError(ctx, err, board.MsgLoadPostFailed)
		return
	}
	utils.Success(ctx, view.Snapshot())
}

// open syncs a view for a mutation without counting a view.
func (p *PostController) open(ctx *gin.Context) (*board.PostView, bool) {
	view := p.board.OpenPost(ctx.Param("id"))
	if err := view.Sync(ctx.Request.Context()); err != nil {
		view.Close()
		respondError(ctx, err, board.MsgLoadPostFailed)
		return nil, false
	}
	return view, true
}

// Vote applies an upvote (+1) or downvote (-1).
func (p *PostController) Vote(ctx *gin.Context) {
	var req struct {
		Delta int `json:"delta" binding:"required,oneof=1 -1"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, bindingMessage(err))
		return
	}
	view, ok := p.open(ctx)
	if !ok {
		return
	}
	defer view.Close()

	banner := board.MsgUpvoteFailed
	if req.Delta < 0 {
		banner = board.MsgDownvoteFailed
	}
	upvotes, err := view.Vote(ctx.Request.Context(), req.Delta)
	if err != nil {
		respondError(ctx, err, banner)
		return
	}
	utils.Success(ctx, gin.H{"id": ctx.Param("id"), "upvotes": upvotes})
}

// CreateComment adds a comment and returns the refreshed comment list.
func (p *PostController) CreateComment(ctx *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	// rejected before the post is read
	if strings.TrimSpace(req.Content) == "" {
		respondError(ctx, board.ErrEmptyComment, board.MsgCommentFailed)
		return
	}
	view, ok := p.open(ctx)
	if !ok {
		return
	}
	defer view.Close()

	view.SetCommentInput(req.Content)
	if err := view.SubmitComment(ctx.Request.Context()); err != nil {
		respondError(ctx, err, board.MsgCommentFailed)
		return
	}
	utils.Success(ctx, gin.H{"comments": view.Snapshot().Comments})
}

// UpdatePost rewrites title, content, image and video of an owned post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Title      string `json:"title"`
		Content    string `json:"content"`
		ImageURL   string `json:"image_url" binding:"omitempty,url"`
		YoutubeURL string `json:"youtube_url" binding:"omitempty,url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, bindingMessage(err))
		return
	}
	view, ok := p.open(ctx)
	if !ok {
		return
	}
	defer view.Close()

	if err := view.BeginEdit(); err != nil {
		respondError(ctx, err, board.MsgUpdateFailed)
		return
	}
	fields := board.EditFields{
		Title:      req.Title,
		Content:    req.Content,
		ImageURL:   req.ImageURL,
		YoutubeURL: req.YoutubeURL,
	}
	if err := view.StageEdit(fields); err != nil {
		respondError(ctx, err, board.MsgUpdateFailed)
		return
	}
	if err := view.SubmitEdit(ctx.Request.Context()); err != nil {
		respondError(ctx, err, board.MsgUpdateFailed)
		return
	}
	utils.Success(ctx, view.Snapshot())
}

// DeletePost removes an owned post and its comments. The caller confirms with ?confirm=true.
func (p *PostController) DeletePost(ctx *gin.Context) {
	confirmed, _ := strconv.ParseBool(ctx.Query("confirm"))
	view, ok := p.open(ctx)
	if !ok {
		return
	}
	defer view.Close()

	if err := view.Delete(ctx.Request.Context(), func() bool { return confirmed }); err != nil {
		respondError(ctx, err, board.MsgDeleteFailed)
		return
	}
	utils.Success(ctx, gin.H{"id": ctx.Param("id"), "state": view.State().String()})
}
