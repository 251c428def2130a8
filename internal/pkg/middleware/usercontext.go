package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bonlog/bonlog/internal/pkg/database"
	"github.com/bonlog/bonlog/internal/pkg/entitlements"
	"github.com/bonlog/bonlog/internal/pkg/session"
	"github.com/bonlog/bonlog/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request.
// Goth keeps its own fiber session store on /auth/*, so our app session is
// skipped there to prevent cross-store collisions.
func UserContextMiddleware(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	anonymous := func() error {
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		c.Locals(usercontext.KeyIsAdmin, false)
		return c.Next()
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return anonymous()
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		return anonymous()
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)
	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

	// Premium flag straight from the cached column. The reader degrades to
	// the free tier on lookup failure, which is the safe answer here.
	isPremium := false
	if db := database.GetDB(); db != nil {
		if p, err := entitlements.NewReader(db).IsPremiumUser(userID.(uint)); err == nil {
			isPremium = p
		}
	}

	c.Locals("USER_CONTEXT", usercontext.UserContext{
		UserID:     userID.(uint),
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
		IsPremium:  isPremium,
	})
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, userID.(uint))
	c.Locals(usercontext.KeyUsername, username)
	c.Locals(usercontext.KeyIsAdmin, isAdmin)

	return c.Next()
}
