package devapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fleettrack-dev/fleettrack/internal/fleet"
)

const recentActivities = 4

// CreateDriverRequest represents a driver registration
type CreateDriverRequest struct {
	Name     string             `json:"name" binding:"required"`
	Email    string             `json:"email" binding:"required,email"`
	Phone    string             `json:"phone" binding:"required"`
	Vehicle  string             `json:"vehicle" binding:"required"`
	Status   fleet.DriverStatus `json:"status"`
	Location string             `json:"location" binding:"required"`
}

// UpdateCompanyRequest represents a company profile update
type UpdateCompanyRequest struct {
	Name          string              `json:"name" binding:"required"`
	Email         string              `json:"email" binding:"required,email"`
	Phone         string              `json:"phone" binding:"required"`
	Address       string              `json:"address"`
	Timezone      string              `json:"timezone" binding:"required"`
	Notifications fleet.Notifications `json:"notifications"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

func (s *Server) listDrivers(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	page, perPage = fleet.NormalizePage(page, perPage)

	var total int64
	if err := s.db.Model(&DriverRecord{}).Count(&total).Error; err != nil {
		s.internalError(c, err, "Failed to count drivers")
		return
	}

	var records []DriverRecord
	err := s.db.Order("rowid").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&records).Error
	if err != nil {
		s.internalError(c, err, "Failed to list drivers")
		return
	}

	data := make([]fleet.Driver, len(records))
	for i := range records {
		data[i] = records[i].Driver()
	}

	c.JSON(http.StatusOK, fleet.DriverPage{
		Data: data,
		Pagination: fleet.Pagination{
			Page:       page,
			PerPage:    perPage,
			Total:      int(total),
			TotalPages: (int(total) + perPage - 1) / perPage,
		},
	})
}

func (s *Server) createDriver(c *gin.Context) {
	var req CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dados inválidos"})
		return
	}

	status := req.Status
	if status == "" {
		status = fleet.DriverActive
	}
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Status desconhecido: %s", req.Status)})
		return
	}

	rec := DriverRecord{
		Name:       strings.TrimSpace(req.Name),
		Email:      normalizeEmail(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Vehicle:    strings.TrimSpace(req.Vehicle),
		Status:     status,
		Location:   strings.TrimSpace(req.Location),
		LastUpdate: s.now(),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		s.internalError(c, err, "Failed to create driver")
		return
	}

	s.logger.Info().
		Str("driver_id", rec.ID).
		Str("created_by", accountFrom(c).ID).
		Msg("Driver registered")

	c.JSON(http.StatusCreated, rec.Driver())
}

func (s *Server) listTrips(c *gin.Context) {
	query := s.db.Order("rowid")
	if status := c.Query("status"); status != "" && status != fleet.StatusAll {
		query = query.Where("status = ?", status)
	}

	var records []TripRecord
	if err := query.Find(&records).Error; err != nil {
		s.internalError(c, err, "Failed to list trips")
		return
	}

	trips := make([]fleet.Trip, len(records))
	for i := range records {
		trips[i] = records[i].Trip()
	}

	c.JSON(http.StatusOK, listResponse[fleet.Trip]{
		Data: fleet.FilterTrips(trips, fleet.TripFilter{Search: c.Query("search")}),
	})
}

func (s *Server) listPositions(c *gin.Context) {
	var records []PositionRecord
	if err := s.db.Order("rowid").Find(&records).Error; err != nil {
		s.internalError(c, err, "Failed to list positions")
		return
	}

	data := make([]fleet.Position, len(records))
	for i := range records {
		data[i] = records[i].Position()
	}
	c.JSON(http.StatusOK, listResponse[fleet.Position]{Data: data})
}

func (s *Server) dashboard(c *gin.Context) {
	summary, err := s.summary()
	if err != nil {
		s.internalError(c, err, "Failed to build dashboard summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// summary derives the dashboard counters and activity feed from the stored fleet
func (s *Server) summary() (*fleet.Summary, error) {
	now := s.now()

	count := func(model any, query string, args ...any) (int, error) {
		var n int64
		tx := s.db.Model(model)
		if query != "" {
			tx = tx.Where(query, args...)
		}
		err := tx.Count(&n).Error
		return int(n), err
	}

	var (
		total, newThisWeek, active, unavailable int
		inProgress, completed                   int
		err                                     error
	)
	if total, err = count(&DriverRecord{}, ""); err != nil {
		return nil, err
	}
	if newThisWeek, err = count(&DriverRecord{}, "created_at >= ?", now.AddDate(0, 0, -7)); err != nil {
		return nil, err
	}
	if active, err = count(&DriverRecord{}, "status = ?", fleet.DriverActive); err != nil {
		return nil, err
	}
	if unavailable, err = count(&DriverRecord{}, "status = ?", fleet.DriverUnavailable); err != nil {
		return nil, err
	}
	if inProgress, err = count(&TripRecord{}, "status = ?", fleet.TripInProgress); err != nil {
		return nil, err
	}
	if completed, err = count(&TripRecord{}, "status = ?", fleet.TripCompleted); err != nil {
		return nil, err
	}

	utilization := 0
	if total > 0 {
		utilization = active * 100 / total
	}
	alertVariant := "default"
	if unavailable > 0 {
		alertVariant = "destructive"
	}

	summary := &fleet.Summary{
		Stats: []fleet.Stat{
			{Title: "Total de Motoristas", Value: strconv.Itoa(total), Icon: "users", Trend: fmt.Sprintf("+%d nesta semana", newThisWeek), Variant: "default"},
			{Title: "Veículos Ativos", Value: strconv.Itoa(active), Icon: "car", Trend: fmt.Sprintf("%d%% de utilização", utilization), Variant: "default"},
			{Title: "Em Rota", Value: strconv.Itoa(inProgress), Icon: "map-pin", Trend: fmt.Sprintf("%d concluídas", completed), Variant: "default"},
			{Title: "Alertas", Value: strconv.Itoa(unavailable), Icon: "alert-triangle", Trend: "motoristas indisponíveis", Variant: alertVariant},
		},
	}

	var recent []DriverRecord
	if err := s.db.Order("last_update DESC").Limit(recentActivities).Find(&recent).Error; err != nil {
		return nil, err
	}

	loc := s.companyLocation()
	for _, d := range recent {
		summary.Activities = append(summary.Activities, fleet.Activity{
			Driver:   d.Name,
			Status:   d.Status.Label(),
			Location: d.Location,
			Time:     d.LastUpdate.In(loc).Format("15:04"),
		})
	}

	return summary, nil
}

// companyLocation is the company's time zone, UTC when unset or unknown
func (s *Server) companyLocation() *time.Location {
	var rec CompanyRecord
	if err := s.db.First(&rec, companyID).Error; err != nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(rec.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s *Server) getCompany(c *gin.Context) {
	var rec CompanyRecord
	if err := s.db.First(&rec, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Empresa não encontrada"})
			return
		}
		s.internalError(c, err, "Failed to load company")
		return
	}
	c.JSON(http.StatusOK, rec.Company())
}

func (s *Server) updateCompany(c *gin.Context) {
	var req UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dados inválidos"})
		return
	}
	if !fleet.ValidTimezone(req.Timezone) {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Fuso horário desconhecido: %s", req.Timezone)})
		return
	}

	rec := companyRecord(fleet.Company{
		Name:          strings.TrimSpace(req.Name),
		Email:         normalizeEmail(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		Timezone:      req.Timezone,
		Notifications: req.Notifications,
	})
	if err := s.db.Save(&rec).Error; err != nil {
		s.internalError(c, err, "Failed to save company")
		return
	}

	s.logger.Info().Str("updated_by", accountFrom(c).ID).Msg("Company profile updated")

	c.JSON(http.StatusOK, rec.Company())
}

func (s *Server) internalError(c *gin.Context, err error, msg string) {
	s.logger.Error().Err(err).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
}
