package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fleettrack-dev/fleettrack/internal/apperr"
	"github.com/fleettrack-dev/fleettrack/internal/forms"
	"github.com/fleettrack-dev/fleettrack/internal/guard"
	"github.com/fleettrack-dev/fleettrack/internal/metrics"
	"github.com/fleettrack-dev/fleettrack/internal/session"
)

const (
	actionSignIn  = "sign_in"
	actionSignUp  = "sign_up"
	actionSignOut = "sign_out"
	actionRefresh = "refresh"

	msgBadRequest  = "Requisição inválida"
	msgRateLimited = "Muitas tentativas. Aguarde um instante e tente novamente."
)

// landing is only reached by anonymous visitors; the guard sends
// authenticated ones to the dashboard
func (s *Server) landing(c *gin.Context) {
	c.Redirect(http.StatusFound, guard.SignInPath)
}

func (s *Server) signInPage(c *gin.Context) {
	visitorFrom(c).Store.ClearError()
	s.render(c, http.StatusOK, pageSignIn, gin.H{
		"Form": forms.SignIn{Redirect: guard.SafeRedirect(c.Query(guard.RedirectParam))},
	})
}

func (s *Server) signIn(c *gin.Context) {
	var form forms.SignIn
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusBadRequest, pageSignIn, gin.H{"Form": form, "Error": msgBadRequest})
		return
	}
	form.Email = strings.TrimSpace(form.Email)
	form.Redirect = guard.SafeRedirect(form.Redirect)

	if err := s.validator.Struct(&form); err != nil {
		s.metrics.RecordAuth(actionSignIn, metrics.OutcomeInvalid)
		form.Password = ""
		s.render(c, http.StatusUnprocessableEntity, pageSignIn, gin.H{"Form": form, "Fields": fieldsOf(err)})
		return
	}

	v := visitorFrom(c)
	if err := v.Store.Login(c.Request.Context(), form.Email, form.Password); err != nil {
		status, outcome := authFailure(err)
		s.metrics.RecordAuth(actionSignIn, outcome)
		form.Password = ""
		s.render(c, status, pageSignIn, gin.H{"Form": form, "Error": v.Store.Snapshot().Error})
		return
	}

	s.metrics.RecordAuth(actionSignIn, metrics.OutcomeSuccess)
	c.Redirect(http.StatusSeeOther, form.Redirect)
}

func (s *Server) signUpPage(c *gin.Context) {
	visitorFrom(c).Store.ClearError()
	s.render(c, http.StatusOK, pageSignUp, gin.H{"Form": forms.SignUp{}})
}

func (s *Server) signUp(c *gin.Context) {
	var form forms.SignUp
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusBadRequest, pageSignUp, gin.H{"Form": form, "Error": msgBadRequest})
		return
	}
	form.Normalize()

	if err := s.validator.Struct(&form); err != nil {
		s.metrics.RecordAuth(actionSignUp, metrics.OutcomeInvalid)
		form.Password, form.ConfirmPassword = "", ""
		s.render(c, http.StatusUnprocessableEntity, pageSignUp, gin.H{"Form": form, "Fields": fieldsOf(err)})
		return
	}

	v := visitorFrom(c)
	err := v.Store.Register(c.Request.Context(), session.RegisterInput{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		status, outcome := authFailure(err)
		s.metrics.RecordAuth(actionSignUp, outcome)
		form.Password, form.ConfirmPassword = "", ""
		s.render(c, status, pageSignUp, gin.H{"Form": form, "Error": v.Store.Snapshot().Error})
		return
	}

	s.metrics.RecordAuth(actionSignUp, metrics.OutcomeSuccess)
	c.Redirect(http.StatusSeeOther, guard.DashboardPath)
}

// signOut ends the visit. It always succeeds from the browser's point of view.
func (s *Server) signOut(c *gin.Context) {
	v := visitorFrom(c)

	if err := s.registry.Release(c.Request.Context(), v.ID); err != nil {
		s.logger.Error().Err(err).Str("visitor_id", v.ID).Msg("Failed to release visitor")
	}
	s.setVisitorCookie(c, "", -1)

	s.metrics.RecordAuth(actionSignOut, metrics.OutcomeSuccess)
	c.Redirect(http.StatusSeeOther, guard.SignInPath)
}

// rateLimited answers an over-limit sign-in or sign-up with the form and a
// 429
func (s *Server) rateLimited(c *gin.Context) {
	if c.FullPath() == guard.SignUpPath {
		var form forms.SignUp
		_ = c.ShouldBind(&form)
		form.Password, form.ConfirmPassword = "", ""
		s.metrics.RecordAuth(actionSignUp, metrics.OutcomeLimited)
		s.render(c, http.StatusTooManyRequests, pageSignUp, gin.H{"Form": form, "Error": msgRateLimited})
		return
	}

	var form forms.SignIn
	_ = c.ShouldBind(&form)
	form.Password = ""
	form.Redirect = guard.SafeRedirect(form.Redirect)
	s.metrics.RecordAuth(actionSignIn, metrics.OutcomeLimited)
	s.render(c, http.StatusTooManyRequests, pageSignIn, gin.H{"Form": form, "Error": msgRateLimited})
}

// authFailure maps a session error to the response status and metric outcome
func authFailure(err error) (int, string) {
	if apperr.IsNetwork(err) {
		return http.StatusBadGateway, metrics.OutcomeNetwork
	}

	var authErr *apperr.AuthenticationError
	if errors.As(err, &authErr) && authErr.Status >= 400 && authErr.Status < 500 {
		return authErr.Status, metrics.OutcomeRejected
	}
	return http.StatusUnauthorized, metrics.OutcomeRejected
}

func fieldsOf(err error) map[string]string {
	if verr, ok := apperr.AsValidation(err); ok {
		return verr.Fields
	}
	return map[string]string{"form": err.Error()}
}
