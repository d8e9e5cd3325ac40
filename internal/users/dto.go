package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
)

// UserDTO is the transport shape that omits the credential hash.
type UserDTO struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          enums.Role `json:"role"`
	DistributorID *uuid.UUID `json:"distributor_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func FromModel(user *models.User) UserDTO {
	if user == nil {
		return UserDTO{}
	}
	return UserDTO{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		DistributorID: user.DistributorID,
		CreatedAt:     user.CreatedAt,
	}
}
