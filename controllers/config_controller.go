package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/discourse/board"
	"github.com/cppla/discourse/utils"
)

// ConfigController serves the board's static vocabulary and per-session preferences.
type ConfigController struct {
	prefs *board.PreferenceStore
}

func NewConfigController(prefs *board.PreferenceStore) *ConfigController {
	return &ConfigController{prefs: prefs}
}

// GetCategories returns the category list, optionally narrowed by ?q= as the filter dropdown does.
func (c *ConfigController) GetCategories(ctx *gin.Context) {
	q := ctx.Query("q")
	utils.Success(ctx, gin.H{
		"all":        board.AllCategories,
		"all_label":  board.DisplayName(board.AllCategories),
		"default":    board.DefaultCategory,
		"categories": board.FilterCategories(),
		"groups":     board.SearchCategories(q),
	})
}

// GetTheme returns the session's theme, light by default.
func (c *ConfigController) GetTheme(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"theme": c.prefs.Theme(ctx.Request.Context(), owner(ctx))})
}

// PutTheme stores the requested theme.
func (c *ConfigController) PutTheme(ctx *gin.Context) {
	var req struct {
		Theme string `json:"theme" binding:"required,theme"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, bindingMessage(err))
		return
	}
	c.setTheme(ctx, board.Theme(req.Theme))
}

// ToggleTheme flips between light and dark.
func (c *ConfigController) ToggleTheme(ctx *gin.Context) {
	c.setTheme(ctx, c.prefs.Theme(ctx.Request.Context(), owner(ctx)).Toggle())
}

func (c *ConfigController) setTheme(ctx *gin.Context, t board.Theme) {
	if err := c.prefs.SetTheme(ctx.Request.Context(), owner(ctx), t); err != nil {
		respondError(ctx, err, "failed to save preference")
		return
	}
	utils.Success(ctx, gin.H{"theme": t})
}
