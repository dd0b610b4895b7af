package service

import "animehub/internal/microservices/http-api/models"

// Principal is the authenticated caller, decoded from a verified access token.
// Services trust it as given.
type Principal struct {
	UserID string
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}
