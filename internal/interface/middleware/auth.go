package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pks-portal/internal/application"
	"github.com/oksasatya/pks-portal/pkg/helpers"
	"github.com/oksasatya/pks-portal/pkg/response"
)

const (
	CtxIdentityKey = "identity"
	CtxUserIDKey   = "userID"
)

// BearerOrCookie returns the session token from the Authorization header or the session cookie.
// The header wins when both are present.
func BearerOrCookie(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	tok, err := c.Cookie(helpers.SessionCookie)
	if err != nil {
		return ""
	}
	return tok
}

// Auth resolves the session token into an Identity and stores it in the Gin context
// under "identity"; the user id is also stored under "userID".
func Auth(gate *application.Gate, exposeErrors bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := gate.Authenticate(c.Request.Context(), BearerOrCookie(c))
		if err != nil {
			response.Fail(c, err, exposeErrors)
			c.Abort()
			return
		}
		c.Set(CtxIdentityKey, id)
		c.Set(CtxUserIDKey, id.ID)
		c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly(gate *application.Gate, exposeErrors bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate.AuthorizeAdmin(CurrentIdentity(c)); err != nil {
			response.Fail(c, err, exposeErrors)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by Auth, or nil.
func CurrentIdentity(c *gin.Context) *application.Identity {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*application.Identity)
	return id
}
