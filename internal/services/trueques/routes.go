package trueques

import (
	"github.com/gofiber/fiber/v3"

	"github.com/swaply/swaply-api/internal/middleware"
)

// SetupRoutes configura las rutas de la API de trueques
func (s *TruequeService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/trueques")

	// Todas las rutas requieren sesión
	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Post("/", s.CreateTrueque, middleware.ValidateFields("productId"))
	api.Get("/my-trades", s.GetMyTrueques)
	api.Get("/completados", s.GetCompletados)
	api.Put("/:tradeId/confirm", s.ConfirmTrueque, middleware.ValidateFields("accion"))
	api.Put("/:tradeId/cancel", s.CancelTrueque)
	api.Put("/:tradeId/complete", s.CompleteTrueque)
}
