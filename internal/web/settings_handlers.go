package web

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/fleettrack-dev/fleettrack/internal/forms"
	"github.com/fleettrack-dev/fleettrack/internal/guard"
)

func profilePath(userID string) string {
	return "/settings/profile/" + url.PathEscape(userID)
}

// settingsIndex sends the caller to their own profile
func (s *Server) settingsIndex(c *gin.Context) {
	user, _ := guard.UserFrom(c)
	c.Redirect(http.StatusFound, profilePath(user.ID))
}

func (s *Server) settingsProfile(c *gin.Context) {
	user, _ := guard.UserFrom(c)
	if c.Param("userId") != user.ID {
		c.Redirect(http.StatusFound, profilePath(user.ID))
		return
	}

	v := visitorFrom(c)
	company, err := v.Fleet.Company(c.Request.Context())
	if err != nil {
		s.fleetError(c, v, err)
		return
	}

	data := gin.H{
		"UserID": user.ID,
		"Form":   forms.CompanyProfileFrom(*company),
	}
	if c.Query("saved") != "" {
		data["Flash"] = "Configurações salvas com sucesso"
	}
	s.render(c, http.StatusOK, pageSettings, data)
}

// saveSettingsProfile validates and stores the company profile. A post for
// another user's id saves nothing.
func (s *Server) saveSettingsProfile(c *gin.Context) {
	user, _ := guard.UserFrom(c)
	if c.Param("userId") != user.ID {
		c.Redirect(http.StatusSeeOther, profilePath(user.ID))
		return
	}

	var form forms.CompanyProfile
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusBadRequest, pageSettings, gin.H{
			"UserID": user.ID,
			"Form":   form,
			"Error":  msgBadRequest,
		})
		return
	}

	if err := s.validator.Struct(&form); err != nil {
		s.render(c, http.StatusUnprocessableEntity, pageSettings, gin.H{
			"UserID": user.ID,
			"Form":   form,
			"Fields": fieldsOf(err),
		})
		return
	}

	v := visitorFrom(c)
	if _, err := v.Fleet.SaveCompany(c.Request.Context(), form.Company()); err != nil {
		s.fleetError(c, v, err)
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Company profile saved")
	c.Redirect(http.StatusSeeOther, profilePath(user.ID)+"?saved=1")
}
