package app

import (
	"net/http"
	"strings"

	"vidtube/internal/service"
	"vidtube/internal/util"

	"github.com/gin-gonic/gin"
)

const accessTokenCookie = "accessToken"

// AuthHandler guards routes that need a requester. Tokens are issued by the
// account service; this side only verifies them.
type AuthHandler struct {
	identities service.IdentityService
}

func NewAuthHandler(identities service.IdentityService) *AuthHandler {
	return &AuthHandler{identities: identities}
}

// AuthMiddleware resolves the requester from the accessToken cookie or a bearer token
func (h *AuthHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.identities.ResolveRequester(c.Request.Context(), requestToken(c))
		if err != nil {
			util.HandleError(c, err)
			c.Abort()
			return
		}

		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	}
}

// GetMe returns the resolved requester
// GET /api/v1/users/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, _ := c.Get("user")
	util.SuccessResponse(c, http.StatusOK, "current user fetched successfully", user)
}

func requestToken(c *gin.Context) string {
	if cookie, err := c.Cookie(accessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// requesterID returns the id set by AuthMiddleware, or "".
func requesterID(c *gin.Context) string {
	if id, ok := c.Get("userID"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
