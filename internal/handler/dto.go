package handler

import (
	"time"

	"github.com/msomdec/client-registry/internal/domain"
)

// ClientDTO is the JSON representation of a client. CharacterIcon encodes
// as a number (built-in avatar) or {"id","url"} (hosted image).
type ClientDTO struct {
	ID            string               `json:"id"`
	ClaveCliente  string               `json:"claveCliente"`
	Nombre        string               `json:"nombre"`
	Celular       string               `json:"celular"`
	Email         string               `json:"email"`
	CharacterIcon domain.CharacterIcon `json:"characterIcon"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// UserDTO is the JSON representation of a user. The password hash is never
// included.
type UserDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func toClientDTO(c *domain.Client) ClientDTO {
	return ClientDTO{
		ID:            c.ID,
		ClaveCliente:  c.ClaveCliente,
		Nombre:        c.Nombre,
		Celular:       c.Celular,
		Email:         c.Email,
		CharacterIcon: c.CharacterIcon,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toClientDTOs(clients []domain.Client) []ClientDTO {
	out := make([]ClientDTO, len(clients))
	for i := range clients {
		out[i] = toClientDTO(&clients[i])
	}
	return out
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
