package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fleettrack-dev/fleettrack/internal/apperr"
	"github.com/fleettrack-dev/fleettrack/internal/guard"
)

const (
	visitorCookie = "ft_sid"
	visitorKey    = "web.visitor"
)

// visitorMiddleware resolves the visitor behind the ft_sid cookie, issuing a
// new cookie when the visitor is new or the presented id is unknown
func (s *Server) visitorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(visitorCookie)

		v, err := s.registry.Acquire(c.Request.Context(), id, c.Request.UserAgent())
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to acquire visitor")
			c.String(http.StatusInternalServerError, "Erro interno do servidor")
			c.Abort()
			return
		}

		if v.ID != id {
			s.setVisitorCookie(c, v.ID, int(s.config.Session.IdleTTL.Seconds()))
		}

		c.Set(visitorKey, v)
		c.Next()
	}
}

func (s *Server) setVisitorCookie(c *gin.Context, id string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(visitorCookie, id, maxAge, "/", "", s.config.Session.CookieSecure, true)
}

// visitorFrom returns the visitor set by visitorMiddleware
func visitorFrom(c *gin.Context) *Visitor {
	return c.MustGet(visitorKey).(*Visitor)
}

// render fills the data every layout needs and writes the page
func (s *Server) render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Path"] = navSection(c.Request.URL.Path)
	if _, ok := data["User"]; !ok {
		if user, ok := guard.UserFrom(c); ok {
			data["User"] = user
		}
	}
	if _, ok := data["Fields"]; !ok {
		data["Fields"] = map[string]string{}
	}
	c.HTML(status, page, data)
}

// fleetError answers a failed fleet read or write. A rejected token is
// checked once more; when the session is gone the visitor signs in again.
func (s *Server) fleetError(c *gin.Context, v *Visitor, err error) {
	if apperr.IsAuthentication(err) && v.Store.RefetchMe(c.Request.Context()) == nil {
		c.Redirect(http.StatusFound, guard.SignInURL(c.Request.URL.RequestURI()))
		return
	}

	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Fleet request failed")
	s.render(c, http.StatusBadGateway, pageError, gin.H{
		"Title":   "Não foi possível carregar os dados",
		"Message": apperr.Message(err),
	})
}

// navSection maps a path to the sidebar entry it belongs to
func navSection(path string) string {
	for _, section := range []string{"/dashboard", "/drivers", "/trips", "/maps", "/settings"} {
		if path == section || strings.HasPrefix(path, section+"/") {
			return section
		}
	}
	return path
}
