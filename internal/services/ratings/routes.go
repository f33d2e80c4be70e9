package ratings

import (
	"github.com/gofiber/fiber/v3"

	"github.com/swaply/swaply-api/internal/middleware"
)

// SetupRoutes configura las rutas de calificaciones
func (s *RatingService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/ratings")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Post("/", s.CreateRating, middleware.ValidateFields("tradeId"))
	api.Get("/trade/:tradeId/status", s.GetTradeRatingStatus)
	api.Get("/:userId", s.GetUserRatings)
}
