package admin

import (
	"github.com/gofiber/fiber/v3"

	"github.com/swaply/swaply-api/internal/middleware"
)

// SetupRoutes configura las rutas administrativas
func (s *AdminService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/admin")

	api.Use(middleware.AuthMiddleware(s.jwtService))
	api.Use(middleware.AdminMiddleware())

	api.Get("/users", s.GetUsers)
	api.Put("/users/:id/deactivate", s.DeactivateUser)
	api.Delete("/products/:id", s.DeleteProduct)
}
