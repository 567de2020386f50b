package devapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fleettrack-dev/fleettrack/internal/auth"
)

const defaultRole = "user"

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents an account registration
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dados inválidos"})
		return
	}

	var account Account
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "E-mail ou senha inválidos"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find account")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
		return
	}

	if err := VerifyPassword(req.Password, account.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "E-mail ou senha inválidos"})
		return
	}

	token, _, err := s.tokens.Issue(&account)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
		return
	}

	s.logger.Info().Str("user_id", account.ID).Str("email", account.Email).Msg("User logged in")

	c.JSON(http.StatusOK, auth.LoginResponse{User: account.User(), Token: token})
}

func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dados inválidos"})
		return
	}

	email := normalizeEmail(req.Email)

	var existing int64
	if err := s.db.Model(&Account{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count accounts")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "E-mail já cadastrado"})
		return
	}

	hash, err := HashPassword(req.Password, s.passwordCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
		return
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = defaultRole
	}

	account := &Account{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.db.Create(account).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create account")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
		return
	}

	s.logger.Info().Str("user_id", account.ID).Str("email", account.Email).Msg("Account registered")

	c.JSON(http.StatusCreated, gin.H{"user": account.User()})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.revoke(claimsFrom(c)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to revoke token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
		return
	}

	// Expired entries can never validate again
	if err := s.db.Where("expires_at < ?", s.now()).Delete(&RevokedToken{}).Error; err != nil {
		s.logger.Warn().Err(err).Msg("Failed to purge expired revocations")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sessão encerrada"})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": accountFrom(c).User()})
}

// refreshToken swaps the presented token for a fresh one and revokes the old
func (s *Server) refreshToken(c *gin.Context) {
	account := accountFrom(c)

	token, _, err := s.tokens.Issue(account)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
		return
	}

	if err := s.revoke(claimsFrom(c)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to revoke token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
		return
	}

	c.JSON(http.StatusOK, auth.LoginResponse{User: account.User(), Token: token})
}

func (s *Server) revoke(claims *Claims) error {
	rec := RevokedToken{JTI: claims.ID}
	if claims.ExpiresAt != nil {
		rec.ExpiresAt = claims.ExpiresAt.Time
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
