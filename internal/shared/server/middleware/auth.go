package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/shared/auth"
	"casa-backend/internal/shared/server/respond"
)

const (
	identityKey = "identity"
	userIDKey   = "userId"
	isGuestKey  = "isGuest"

	guestHeader     = "X-Guest-Id"
	guestPrefix     = "guest:"
	maxGuestIDLen   = 128
	unauthorizedMsg = "missing or invalid token"
)

// Identity is the authenticated caller. Guests only carry UserID.
type Identity struct {
	UserID  string
	IsGuest bool
	Email   string
	Name    string
	Picture string
}

var defaultPublicPrefixes = []string{"/api/v1/auth/google/", "/api/v1/health", "/metrics"}

// Auth resolves the caller from a Bearer JWT or, failing that, an
// X-Guest-Id header, which becomes the principal "guest:<id>". A bearer
// header that does not verify is rejected rather than downgraded to guest.
// Paths under a public prefix pass through without identity.
func Auth(publicPrefixes ...string) gin.HandlerFunc {
	public := append(append([]string{}, defaultPublicPrefixes...), publicPrefixes...)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		for _, prefix := range public {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		id, ok := resolveIdentity(c)
		if !ok {
			unauthorized(c)
			return
		}
		c.Set(identityKey, id)
		c.Set(userIDKey, id.UserID)
		c.Set(isGuestKey, id.IsGuest)
		c.Next()
	}
}

func resolveIdentity(c *gin.Context) (Identity, bool) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			return Identity{}, false
		}
		claims, err := auth.VerifyJWT(strings.TrimSpace(token))
		if err != nil {
			return Identity{}, false
		}
		return Identity{
			UserID:  claims.Subject,
			Email:   claims.Email,
			Name:    claims.Name,
			Picture: claims.Picture,
		}, true
	}

	guestID := strings.TrimSpace(c.GetHeader(guestHeader))
	if guestID == "" || len(guestID) > maxGuestIDLen || strings.ContainsAny(guestID, " :/\t\r\n") {
		return Identity{}, false
	}
	return Identity{UserID: guestPrefix + guestID, IsGuest: true}, true
}

func unauthorized(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, functionsPrefix) {
		respond.FunctionError(c, http.StatusUnauthorized, unauthorizedMsg)
		return
	}
	respond.Error(c, http.StatusUnauthorized, "unauthorized", unauthorizedMsg, nil)
}

// IdentityFromContext returns the caller resolved by Auth, or the zero
// Identity on public routes.
func IdentityFromContext(c *gin.Context) Identity {
	if c == nil {
		return Identity{}
	}
	val, _ := c.Get(identityKey)
	id, _ := val.(Identity)
	return id
}

// UserIDFromContext returns the caller's principal id.
func UserIDFromContext(c *gin.Context) string {
	return IdentityFromContext(c).UserID
}

// IsGuest reports whether the caller authenticated with a guest header.
func IsGuest(c *gin.Context) bool {
	return IdentityFromContext(c).IsGuest
}
