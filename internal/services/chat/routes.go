package chat

import (
	"github.com/gofiber/fiber/v3"

	"github.com/swaply/swaply-api/internal/middleware"
)

// SetupRoutes configura las rutas de chats
func (s *ChatService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/chats")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/", s.GetChats)
	api.Get("/:chatId/messages", s.GetMessages)
	api.Post("/:chatId/messages", s.SendMessage)
}
