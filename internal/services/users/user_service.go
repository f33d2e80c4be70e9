// Package users maneja perfiles, favoritos y preferencias de los usuarios.
package users

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/roble"
	"github.com/swaply/swaply-api/internal/store"
	"github.com/swaply/swaply-api/internal/trueque"
	"github.com/swaply/swaply-api/internal/utils"
)

const tablaUsuarios = "usuarios"

// UserService es el servicio de usuarios
type UserService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	state      *store.AppState
	maquina    *trueque.Maquina
	roble      *roble.Client
	log        *zap.Logger
}

// NewUserService crea una nueva instancia de UserService
func NewUserService(cfg *config.Config, state *store.AppState, robleClient *roble.Client, log *zap.Logger) *UserService {
	return &UserService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		state:      state,
		maquina:    trueque.NewMaquina(),
		roble:      robleClient,
		log:        log,
	}
}

// GetMe devuelve el perfil del usuario autenticado con su historial de
// actividad
func (s *UserService) GetMe(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	for _, u := range s.state.Snapshot().Users {
		if u.ID == userID {
			return c.JSON(fiber.Map{"user": u})
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Usuario no encontrado"})
}

// GetUser devuelve el perfil público de un usuario
func (s *UserService) GetUser(c fiber.Ctx) error {
	targetID := c.Params("id")

	for _, u := range s.state.Snapshot().Users {
		if u.ID == targetID {
			// El perfil público no expone correo ni actividades
			return c.JSON(fiber.Map{"user": fiber.Map{
				"id":         u.ID,
				"name":       u.Name,
				"city":       u.City,
				"joinedDate": u.JoinedDate,
				"isActive":   u.IsActive,
			}})
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Usuario no encontrado"})
}

// UpdateMe actualiza nombre y ciudad del perfil
func (s *UserService) UpdateMe(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	var req struct {
		Name *string `json:"name"`
		City *string `json:"city"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}

	var updated *models.User
	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		users := make([]models.User, len(st.Users))
		copy(users, st.Users)
		for i := range users {
			if users[i].ID != userID {
				continue
			}
			if req.Name != nil && *req.Name != "" {
				users[i].Name = *req.Name
			}
			if req.City != nil {
				users[i].City = *req.City
			}
			u := users[i]
			updated = &u
			st.Users = users
			return st, nil
		}
		return st, trueque.ErrUsuarioNoEncontrado
	})
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Usuario no encontrado"})
	}

	ctx, cancel := roble.GetContext()
	defer cancel()
	if err := s.roble.Update(ctx, tablaUsuarios, "_id", userID, map[string]any{
		"name": updated.Name,
		"city": updated.City,
	}); err != nil {
		s.log.Error("❌ Error replicando perfil a ROBLE", zap.Error(err))
	}

	return c.JSON(fiber.Map{"success": true, "user": updated})
}

// ToggleFavorite agrega o quita un producto de los favoritos del usuario.
// Al agregar, el dueño del producto recibe una notificación.
func (s *UserService) ToggleFavorite(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	productID := c.Params("productId")

	added := false
	var product *models.Product
	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		for i := range st.Products {
			if st.Products[i].ID == productID {
				p := st.Products[i]
				product = &p
			}
		}
		if product == nil {
			return st, trueque.ErrProductoNoEncontrado
		}

		users := make([]models.User, len(st.Users))
		copy(users, st.Users)
		for i := range users {
			if users[i].ID != userID {
				continue
			}
			if users[i].HasFavorite(productID) {
				var favs []string
				for _, id := range users[i].Favorites {
					if id != productID {
						favs = append(favs, id)
					}
				}
				users[i].Favorites = favs
			} else {
				users[i].Favorites = append(append([]string{}, users[i].Favorites...), productID)
				added = true
			}
			st.Users = users

			if added && product.OwnerUserID != userID {
				nombre := users[i].Name
				st = s.maquina.AgregarNotificacion(st, models.Notification{
					Type:        models.NotifProduct,
					Title:       "Tu producto gusta",
					Description: fmt.Sprintf("A %s le interesa tu producto %q", nombre, product.Title),
					ProductID:   productID,
					UserID:      userID,
				})
			}
			return st, nil
		}
		return st, trueque.ErrUsuarioNoEncontrado
	})
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"success": true, "favorite": added})
}

// GetFavorites devuelve los productos favoritos del usuario
func (s *UserService) GetFavorites(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	st := s.state.Snapshot()
	var out []models.Product
	for _, u := range st.Users {
		if u.ID != userID {
			continue
		}
		for _, favID := range u.Favorites {
			for _, p := range st.Products {
				if p.ID == favID {
					out = append(out, p)
				}
			}
		}
	}

	return c.JSON(fiber.Map{"products": out, "count": len(out)})
}

// Deactivate desactiva la cuenta propia. La sesión guardada se limpia y los
// productos del usuario salen de circulación.
func (s *UserService) Deactivate(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		users := make([]models.User, len(st.Users))
		copy(users, st.Users)
		found := false
		for i := range users {
			if users[i].ID == userID {
				users[i].IsActive = false
				found = true
			}
		}
		if !found {
			return st, trueque.ErrUsuarioNoEncontrado
		}
		st.Users = users

		products := make([]models.Product, len(st.Products))
		copy(products, st.Products)
		for i := range products {
			if products[i].OwnerUserID == userID {
				products[i].Available = false
			}
		}
		st.Products = products
		return st, nil
	})
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Usuario no encontrado"})
	}

	if current := s.state.CurrentUser(); current != nil && current.ID == userID {
		s.state.SetCurrentUser(nil)
	}

	ctx, cancel := roble.GetContext()
	defer cancel()
	if err := s.roble.Update(ctx, tablaUsuarios, "_id", userID, map[string]any{"isActive": false}); err != nil {
		s.log.Error("❌ Error replicando desactivación a ROBLE", zap.Error(err))
	}

	s.log.Info("Cuenta desactivada", zap.String("user_id", userID))
	return c.JSON(fiber.Map{"success": true})
}

// GetTheme devuelve las preferencias de tema guardadas
func (s *UserService) GetTheme(c fiber.Ctx) error {
	theme, color := s.state.Theme()
	return c.JSON(fiber.Map{"theme": theme, "themeColor": color})
}

// SetTheme guarda las preferencias de tema
func (s *UserService) SetTheme(c fiber.Ctx) error {
	var req struct {
		Theme      string `json:"theme"`
		ThemeColor string `json:"themeColor"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}

	s.state.SetTheme(req.Theme, req.ThemeColor)
	return c.JSON(fiber.Map{"success": true})
}
