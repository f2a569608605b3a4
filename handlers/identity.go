package handlers

import (
	"net/http"

	"amhaz-backend/middleware"
	"amhaz-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// identityFrom prefers the signed-in user over the guest cart session.
func identityFrom(c *gin.Context) services.Identity {
	if userID, ok := middleware.CurrentUserID(c); ok {
		return services.UserIdentity(userID)
	}
	return services.GuestIdentity(middleware.CurrentSessionKey(c))
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return userID, ok
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
