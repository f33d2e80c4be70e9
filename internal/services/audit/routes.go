package audit

import (
	"github.com/gofiber/fiber/v3"

	"github.com/swaply/swaply-api/internal/middleware"
)

// SetupRoutes configura las rutas de auditoría
func (s *AuditService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/auditoria")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/", s.GetAuditoria)
	api.Put("/", s.UpdateAuditoria, middleware.ValidateFields("tradeId", "estado"))
}
