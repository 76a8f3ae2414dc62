package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/discourse/board"
	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/utils"
)

// respondError maps err onto the response envelope. Gateway failures answer 502 with banner,
// the message readers see for the failed action.
func respondError(ctx *gin.Context, err error, banner string) {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, board.ErrNotAuthenticated):
		utils.Error(ctx, http.StatusUnauthorized, 40101, err.Error())
	case errors.Is(err, board.ErrNotOwner):
		utils.Error(ctx, http.StatusForbidden, 40301, err.Error())
	case errors.Is(err, gateway.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
	case errors.Is(err, board.ErrDraftNotFound):
		utils.Error(ctx, http.StatusNotFound, 40402, err.Error())
	case errors.Is(err, board.ErrInvalidCategory):
		utils.Error(ctx, http.StatusBadRequest, 40010, err.Error())
	case errors.Is(err, board.ErrInvalidSort):
		utils.Error(ctx, http.StatusBadRequest, 40011, err.Error())
	case errors.Is(err, board.ErrInvalidVote):
		utils.Error(ctx, http.StatusBadRequest, 40012, err.Error())
	case errors.Is(err, board.ErrEmptyComment):
		utils.Error(ctx, http.StatusBadRequest, 40013, err.Error())
	case errors.Is(err, board.ErrMissingField):
		utils.Error(ctx, http.StatusBadRequest, 40014, err.Error())
	case errors.Is(err, board.ErrInvalidTheme):
		utils.Error(ctx, http.StatusBadRequest, 40015, err.Error())
	case errors.Is(err, board.ErrNotConfirmed):
		utils.Error(ctx, http.StatusPreconditionRequired, 42801, err.Error())
	case errors.Is(err, board.ErrStepIncomplete):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42201, err.Error())
	case errors.Is(err, board.ErrInvalidState):
		utils.Error(ctx, http.StatusConflict, 40901, err.Error())
	case errors.As(err, &gwErr) && gwErr.Status == http.StatusConflict:
		utils.Error(ctx, http.StatusConflict, 40902, banner)
	default:
		_ = ctx.Error(err)
		utils.Error(ctx, http.StatusBadGateway, 50201, banner)
	}
}
