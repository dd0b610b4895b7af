package handler

import (
	"errors"
	"net/http"

	"animehub/internal/microservices/http-api/dto"
	"animehub/internal/microservices/http-api/middleware"
	"animehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// respondError translates service errors into HTTP responses. Handlers never
// inspect error strings.
func respondError(c *gin.Context, err error) {
	var persistErr *service.PersistenceError

	switch {
	case errors.Is(err, service.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "notification not found"})
	case errors.Is(err, service.ErrRecipientNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "recipient not found", Detail: err.Error()})
	case errors.Is(err, service.ErrEntityNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not found", Detail: err.Error()})
	case errors.Is(err, service.ErrAnimeNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "anime not found"})
	case errors.Is(err, service.ErrInvalidNotification):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid notification", Detail: err.Error()})
	case errors.As(err, &persistErr):
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to " + persistErr.Op, Detail: persistErr.Err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error", Detail: err.Error()})
	}
}

func principalOrAbort(c *gin.Context) (service.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "user not authenticated"})
		return service.Principal{}, false
	}
	return p, true
}
