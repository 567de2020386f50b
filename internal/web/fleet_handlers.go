package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fleettrack-dev/fleettrack/internal/fleet"
	"github.com/fleettrack-dev/fleettrack/internal/registration"
)

// Wizard actions posted by the registration form
const (
	wizardNext   = "next"
	wizardBack   = "back"
	wizardSubmit = "submit"
	wizardCancel = "cancel"
)

func (s *Server) dashboard(c *gin.Context) {
	v := visitorFrom(c)

	summary, err := v.Fleet.Summary(c.Request.Context())
	if err != nil {
		s.fleetError(c, v, err)
		return
	}

	s.render(c, http.StatusOK, pageDashboard, gin.H{"Summary": summary})
}

func (s *Server) listDrivers(c *gin.Context) {
	v := visitorFrom(c)

	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	page, perPage = fleet.NormalizePage(page, perPage)

	drivers, err := v.Fleet.Drivers(c.Request.Context(), page, perPage)
	if err != nil {
		s.fleetError(c, v, err)
		return
	}

	data := gin.H{"Page": drivers}
	if c.Query("registered") != "" {
		data["Flash"] = "Motorista cadastrado com sucesso"
	}
	s.render(c, http.StatusOK, pageDrivers, data)
}

// wizardView is what the registration template reads
type wizardView struct {
	Step       int
	TotalSteps int
	Progress   int
	Current    registration.Step
	Steps      []registration.Step
	Statuses   []fleet.DriverStatus
	Data       registration.Data
	Errors     map[string]string
}

func viewOf(w *registration.Wizard) wizardView {
	return wizardView{
		Step:       w.Step(),
		TotalSteps: registration.TotalSteps,
		Progress:   w.Progress(),
		Current:    w.Current(),
		Steps:      registration.Steps,
		Statuses:   registration.SelectableStatuses,
		Data:       w.Data(),
		Errors:     w.Errors(),
	}
}

func (s *Server) driverWizard(c *gin.Context) {
	v := visitorFrom(c)
	s.render(c, http.StatusOK, pageDriverNew, gin.H{"Wizard": viewOf(v.Wizard)})
}

// driverWizardStep stores the posted fields of the current step and applies
// the requested action. Valid moves redirect back to the wizard; invalid ones
// re-render it with 422.
func (s *Server) driverWizardStep(c *gin.Context) {
	v := visitorFrom(c)
	w := v.Wizard
	action := c.PostForm("action")

	if action == wizardCancel {
		w.Reset()
		c.Redirect(http.StatusSeeOther, "/drivers")
		return
	}

	status := http.StatusOK
	for _, field := range registration.StepFields[w.Step()] {
		if value, ok := c.GetPostForm(field); ok {
			if err := w.Set(field, value); err != nil {
				status = http.StatusUnprocessableEntity
			}
		}
	}

	switch action {
	case wizardBack:
		w.Back()
	case wizardNext:
		if status == http.StatusOK && !w.Next() {
			status = http.StatusUnprocessableEntity
		}
	case wizardSubmit:
		if status != http.StatusOK {
			break
		}
		in, err := w.Submit()
		if err != nil {
			status = http.StatusUnprocessableEntity
			break
		}

		driver, err := v.Fleet.RegisterDriver(c.Request.Context(), in)
		if err != nil {
			s.fleetError(c, v, err)
			return
		}

		s.logger.Info().Str("driver_id", driver.ID).Str("visitor_id", v.ID).Msg("Driver registered")
		c.Redirect(http.StatusSeeOther, "/drivers?registered="+url.QueryEscape(driver.ID))
		return
	default:
		status = http.StatusBadRequest
	}

	if status == http.StatusOK {
		c.Redirect(http.StatusSeeOther, "/drivers/new")
		return
	}
	s.render(c, status, pageDriverNew, gin.H{"Wizard": viewOf(w)})
}

func (s *Server) listTrips(c *gin.Context) {
	v := visitorFrom(c)

	filter := fleet.TripFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Status: c.Query("status"),
	}

	trips, err := v.Fleet.Trips(c.Request.Context(), filter)
	if err != nil {
		s.fleetError(c, v, err)
		return
	}

	s.render(c, http.StatusOK, pageTrips, gin.H{
		"Trips":    trips,
		"Filter":   filter,
		"Statuses": fleet.TripStatuses,
	})
}

func (s *Server) maps(c *gin.Context) {
	v := visitorFrom(c)

	positions, err := v.Fleet.Positions(c.Request.Context())
	if err != nil {
		s.fleetError(c, v, err)
		return
	}

	s.render(c, http.StatusOK, pageMaps, gin.H{
		"Positions":   positions,
		"MapboxToken": v.MapboxToken(),
	})
}

// setMapToken keeps the map token for the visit. Blank input is ignored.
func (s *Server) setMapToken(c *gin.Context) {
	if token := strings.TrimSpace(c.PostForm("token")); token != "" {
		visitorFrom(c).SetMapboxToken(token)
	}
	c.Redirect(http.StatusSeeOther, "/maps")
}
