package notifications

import (
	"github.com/gofiber/fiber/v3"

	"github.com/swaply/swaply-api/internal/middleware"
)

// SetupRoutes configura las rutas del feed de notificaciones
func (s *NotificationService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/notifications")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/", s.GetNotifications)
	api.Put("/read-all", s.MarkAllRead)
	api.Put("/:id/read", s.MarkRead)
	api.Post("/:id/click", s.Click)
}
