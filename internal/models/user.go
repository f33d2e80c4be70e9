package models

import "time"

// Roles de usuario
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User representa un usuario de la plataforma.
// Las actividades son un historial acotado (máximo 20, más reciente primero)
// y los favoritos se guardan como lista de IDs de producto.
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"` // user, admin
	City          string     `json:"city"`
	JoinedDate    time.Time  `json:"joinedDate"`
	Favorites     []string   `json:"favorites"`
	Activities    []Activity `json:"activities"`
	IsActive      bool       `json:"isActive"`
	EmailVerified bool       `json:"emailVerified"`
}

// HasFavorite indica si el producto está en los favoritos del usuario
func (u *User) HasFavorite(productID string) bool {
	for _, id := range u.Favorites {
		if id == productID {
			return true
		}
	}
	return false
}
