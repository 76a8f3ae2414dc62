package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/middleware"
	"github.com/cppla/discourse/utils"
)

// AuthController exposes the anonymous session resolved by middleware.Session.
type AuthController struct {
	auth gateway.Auth
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(auth gateway.Auth) *AuthController {
	return &AuthController{auth: auth}
}

// Me returns the current identity. Without one, data is empty and auth_error explains why.
func (a *AuthController) Me(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"user": middleware.CurrentUser(ctx)})
}

// Logout revokes the session and clears the cookie. The next request signs in afresh.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if err := a.auth.SignOut(ctx.Request.Context(), token); err != nil {
		utils.Sugar.Errorw("sign out", "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50202, "failed to sign out")
		return
	}
	ctx.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	utils.Success(ctx, gin.H{"signed_out": true})
}
