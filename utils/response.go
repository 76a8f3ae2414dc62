package utils

import "github.com/gin-gonic/gin"

// AuthBannerKey is the gin context key holding a session bootstrap failure message.
const AuthBannerKey = "auth_error"

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	AuthError string      `json:"auth_error,omitempty"`
}

// Respond writes a JSON response with the given status code.
// A pending auth banner rides along on every response so reads still succeed without an identity.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:      code,
		Message:   message,
		Data:      data,
		AuthError: ctx.GetString(AuthBannerKey),
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}
