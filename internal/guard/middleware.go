package guard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fleettrack-dev/fleettrack/internal/auth"
)

const userContextKey = "guard.user"

// Recorder observes guard decisions
type Recorder interface {
	ObserveGuard(kind, resolution string, redirected bool)
}

// Lookup builds the route context of the request, typically from the
// visitor's session store
type Lookup func(c *gin.Context) RouteContext

// Middleware gates a route group. Redirects abort the chain with 302.
func Middleware(kind Kind, lookup Lookup, rec Recorder, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := Check(c.Request.Context(), kind, lookup(c), c.Request.URL.RequestURI())

		if rec != nil {
			rec.ObserveGuard(kind.String(), d.Resolution.String(), !d.Allowed())
		}

		if !d.Allowed() {
			log.Debug().
				Str("path", c.Request.URL.Path).
				Str("kind", kind.String()).
				Str("resolution", d.Resolution.String()).
				Str("redirect", d.Redirect).
				Msg("Route guard redirect")
			c.Redirect(http.StatusFound, d.Redirect)
			c.Abort()
			return
		}

		if d.User != nil {
			c.Set(userContextKey, d.User)
		}
		c.Next()
	}
}

// UserFrom returns the identity the guard resolved for this request
func UserFrom(c *gin.Context) (*auth.User, bool) {
	v, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*auth.User)
	return user, ok && user != nil
}
