package offerts

import (
	"github.com/gofiber/fiber/v3"

	"github.com/swaply/swaply-api/internal/middleware"
)

// SetupRoutes configura las rutas de la API de productos
func (s *OffertService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/offerts")

	// Listado y detalle son públicos
	api.Get("/", s.GetOfferts)

	protected := app.Group("/api/offerts")
	protected.Use(middleware.AuthMiddleware(s.jwtService))

	protected.Get("/my", s.GetMyOfferts)
	protected.Post("/", s.OffertCreate)
	protected.Put("/:id", s.OffertUpdate)
	protected.Put("/:id/estado", s.EditEstado, middleware.ValidateFields("status"))
	protected.Delete("/:id", s.DelateOffert)

	// El detalle va al final para no capturar /my
	api.Get("/:id", s.GetOffert)
}
