package devapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	bearerPrefix = "Bearer "
	accountKey   = "devapi.account"
	claimsKey    = "devapi.claims"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrRevokedToken      = errors.New("token revoked")
	ErrAccountNotFound   = errors.New("account not found")
)

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Int("status", statusCode).Msg(message)
	c.JSON(statusCode, gin.H{"message": message})
	c.Abort()
}

// bearerAuth validates the access token, rejects revoked ones and loads the
// account behind it
func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, err, "Credencial ausente")
			return
		}

		claims, err := s.tokens.Validate(token)
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, err, "Sessão expirada ou inválida")
			return
		}

		var revoked int64
		if err := s.db.Model(&RevokedToken{}).Where("jti = ?", claims.ID).Count(&revoked).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to check revoked tokens")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Erro interno"})
			return
		}
		if revoked > 0 {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrRevokedToken, "Sessão expirada ou inválida")
			return
		}

		var account Account
		if err := s.db.Where("id = ?", claims.UserID).First(&account).Error; err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrAccountNotFound, "Conta não encontrada")
			return
		}

		c.Set(accountKey, &account)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func accountFrom(c *gin.Context) *Account {
	return c.MustGet(accountKey).(*Account)
}

func claimsFrom(c *gin.Context) *Claims {
	return c.MustGet(claimsKey).(*Claims)
}
