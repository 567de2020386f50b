package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleettrack-dev/fleettrack/internal/apperr"
	"github.com/fleettrack-dev/fleettrack/internal/auth"
	"github.com/fleettrack-dev/fleettrack/internal/metrics"
	"github.com/fleettrack-dev/fleettrack/internal/session"
)

// SessionResponse is the JSON view of a session. The token is never exposed.
type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	User          *auth.User `json:"user"`
	IsLoading     bool       `json:"isLoading"`
	Error         string     `json:"error,omitempty"`
}

func sessionResponse(st session.State) SessionResponse {
	return SessionResponse{
		Authenticated: st.IsAuthenticated(),
		User:          st.User,
		IsLoading:     st.IsLoading,
		Error:         st.Error,
	}
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, sessionResponse(visitorFrom(c).Store.Snapshot()))
}

func (s *Server) refreshSession(c *gin.Context) {
	v := visitorFrom(c)

	if err := v.Store.RefreshToken(c.Request.Context()); err != nil {
		status, outcome := authFailure(err)
		s.metrics.RecordAuth(actionRefresh, outcome)
		c.JSON(status, gin.H{"message": apperr.Message(err)})
		return
	}

	s.metrics.RecordAuth(actionRefresh, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, sessionResponse(v.Store.Snapshot()))
}
