// Package admin expone las operaciones administrativas: listado de usuarios,
// desactivación de cuentas y retiro de productos. Todas exigen rol admin.
package admin

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/roble"
	"github.com/swaply/swaply-api/internal/store"
	"github.com/swaply/swaply-api/internal/trueque"
	"github.com/swaply/swaply-api/internal/utils"
)

const (
	tablaUsuarios  = "usuarios"
	tablaProductos = "productos"
)

// AdminService es el servicio de administración
type AdminService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	state      *store.AppState
	maquina    *trueque.Maquina
	roble      *roble.Client
	log        *zap.Logger
}

// NewAdminService crea una nueva instancia de AdminService
func NewAdminService(cfg *config.Config, state *store.AppState, robleClient *roble.Client, log *zap.Logger) *AdminService {
	return &AdminService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		state:      state,
		maquina:    trueque.NewMaquina(),
		roble:      robleClient,
		log:        log,
	}
}

// GetUsers devuelve todos los usuarios registrados
func (s *AdminService) GetUsers(c fiber.Ctx) error {
	st := s.state.Snapshot()
	return c.JSON(fiber.Map{"users": st.Users, "count": len(st.Users)})
}

// DeactivateUser desactiva la cuenta de cualquier usuario y retira sus
// productos. El usuario recibe una notificación de sistema.
func (s *AdminService) DeactivateUser(c fiber.Ctx) error {
	targetID := c.Params("id")
	adminID := c.Locals("userID").(string)

	if targetID == adminID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Un administrador no puede desactivarse a sí mismo",
		})
	}

	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		users := make([]models.User, len(st.Users))
		copy(users, st.Users)
		found := false
		for i := range users {
			if users[i].ID == targetID {
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
			if products[i].OwnerUserID == targetID {
				products[i].Available = false
			}
		}
		st.Products = products

		st = s.maquina.AgregarNotificacion(st, models.Notification{
			Type:        models.NotifSystem,
			Title:       "Cuenta desactivada",
			Description: "Tu cuenta fue desactivada por un administrador",
			UserID:      targetID,
		})
		return st, nil
	})
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Usuario no encontrado"})
	}

	if current := s.state.CurrentUser(); current != nil && current.ID == targetID {
		s.state.SetCurrentUser(nil)
	}

	ctx, cancel := roble.GetContext()
	defer cancel()
	if err := s.roble.Update(ctx, tablaUsuarios, "_id", targetID, map[string]any{"isActive": false}); err != nil {
		s.log.Error("❌ Error replicando desactivación a ROBLE", zap.Error(err))
	}

	s.log.Info("Usuario desactivado por administrador",
		zap.String("admin", adminID),
		zap.String("user_id", targetID))

	return c.JSON(fiber.Map{"success": true})
}

// DeleteProduct retira cualquier producto de la plataforma
func (s *AdminService) DeleteProduct(c fiber.Ctx) error {
	productID := c.Params("id")
	adminID := c.Locals("userID").(string)

	var owner string
	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		products := make([]models.Product, len(st.Products))
		copy(products, st.Products)
		for i := range products {
			if products[i].ID != productID {
				continue
			}
			products[i].Available = false
			products[i].Status = models.ProductDraft
			owner = products[i].OwnerUserID
			st.Products = products

			st = s.maquina.AgregarNotificacion(st, models.Notification{
				Type:        models.NotifSystem,
				Title:       "Producto retirado",
				Description: "Tu producto fue retirado por un administrador",
				ProductID:   productID,
				UserID:      owner,
			})
			return st, nil
		}
		return st, trueque.ErrProductoNoEncontrado
	})
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Producto no encontrado"})
	}

	ctx, cancel := roble.GetContext()
	defer cancel()
	if err := s.roble.Update(ctx, tablaProductos, "_id", productID, map[string]any{
		"available": false,
		"status":    models.ProductDraft,
	}); err != nil {
		s.log.Error("❌ Error replicando retiro a ROBLE", zap.Error(err))
	}

	s.log.Info("Producto retirado por administrador",
		zap.String("admin", adminID),
		zap.String("product_id", productID))

	return c.JSON(fiber.Map{"success": true})
}
