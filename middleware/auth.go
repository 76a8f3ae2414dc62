package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/discourse/board"
	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
	"github.com/cppla/discourse/utils"
)

const (
	// ContextUserIDKey is the key used to store the session's user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUserKey stores the resolved *models.User.
	ContextUserKey = "user"
	// ContextTokenKey stores the session access token.
	ContextTokenKey = "access_token"
	// SessionCookie carries the access token between requests.
	SessionCookie = "sb-access-token"
	// TokenHeader echoes a freshly issued token for non-browser clients.
	TokenHeader = "X-Access-Token"
)

// Session makes sure every request runs under an anonymous identity. The token is read from the
// Authorization bearer header or the session cookie; a missing or dead one is replaced by a new
// anonymous sign-in. When that fails the request continues without identity and the response
// carries the auth banner.
func Session(boot *board.Bootstrapper, secureCookie bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			token, _ = ctx.Cookie(SessionCookie)
		}

		res := boot.Ensure(ctx.Request.Context(), token)
		if !res.OK() {
			ctx.Set(utils.AuthBannerKey, res.Banner)
			ctx.Next()
			return
		}

		if res.Created {
			maxAge := 0
			if !res.ExpiresAt.IsZero() {
				maxAge = int(time.Until(res.ExpiresAt).Seconds())
			}
			ctx.SetSameSite(http.SameSiteLaxMode)
			ctx.SetCookie(SessionCookie, res.Token, maxAge, "/", "", secureCookie, true)
			ctx.Header(TokenHeader, res.Token)
		}

		ctx.Set(ContextUserKey, res.User)
		ctx.Set(ContextUserIDKey, res.User.ID)
		ctx.Set(ContextTokenKey, res.Token)
		ctx.Request = ctx.Request.WithContext(gateway.WithAccessToken(ctx.Request.Context(), res.Token))
		ctx.Next()
	}
}

// SessionRequired rejects requests that have no identity.
func SessionRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentUser(ctx) == nil {
			msg := ctx.GetString(utils.AuthBannerKey)
			if msg == "" {
				msg = "session required"
			}
			utils.Error(ctx, http.StatusUnauthorized, 40101, msg)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// CurrentUser returns the identity attached by Session, or nil.
func CurrentUser(ctx *gin.Context) *models.User {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func bearerToken(ctx *gin.Context) string {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
