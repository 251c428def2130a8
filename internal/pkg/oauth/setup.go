package oauth

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/bonlog/bonlog/internal/pkg/cache"
	"github.com/bonlog/bonlog/internal/pkg/env"
)

// Setup initializes Goth providers and its session store from environment
// variables. Safe to call multiple times; providers are just re-registered.
func Setup() {
	base := env.AppBaseURL()

	goth.UseProviders(
		google.New(
			env.GetEnv("GOOGLE_KEY", ""),
			env.GetEnv("GOOGLE_SECRET", ""),
			base+"/auth/google/callback",
			"email", "profile",
		),
	)

	// OAuth state via Redis, same connection as app sessions, separate DB.
	cacheOpts := cache.GetClient().Options()
	host, port := "127.0.0.1", 6379
	if cacheOpts != nil && cacheOpts.Addr != "" {
		if h, p, err := net.SplitHostPort(cacheOpts.Addr); err == nil {
			host = h
			if parsed, e := strconv.Atoi(p); e == nil {
				port = parsed
			}
		} else {
			host = cacheOpts.Addr
		}
	}

	gothfiber.SessionStore = session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Password: cacheOpts.Password,
			Database: 2,
		}),
		Expiration:     10 * time.Minute,
		CookieHTTPOnly: true,
		KeyLookup:      "cookie:oauth_session",
	})
}
