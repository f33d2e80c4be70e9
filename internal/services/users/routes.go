package users

import (
	"github.com/gofiber/fiber/v3"

	"github.com/swaply/swaply-api/internal/middleware"
)

// SetupRoutes configura las rutas de usuarios
func (s *UserService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/users")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/me", s.GetMe)
	api.Put("/me", s.UpdateMe)
	api.Put("/me/deactivate", s.Deactivate)
	api.Get("/favorites", s.GetFavorites)
	api.Post("/favorites/:productId", s.ToggleFavorite)
	api.Get("/theme", s.GetTheme)
	api.Put("/theme", s.SetTheme)
	api.Get("/:id", s.GetUser)
}
