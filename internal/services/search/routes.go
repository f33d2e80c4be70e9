package search

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes configura las rutas de búsqueda
func (s *SearchService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/search")

	// La búsqueda es pública, igual que el listado de productos
	api.Get("/semantic", s.SemanticSearch)
}
