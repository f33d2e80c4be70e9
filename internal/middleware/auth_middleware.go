package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/swaply/swaply-api/internal/utils"
)

// AuthMiddleware crea el middleware de verificación del JWT
func AuthMiddleware(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Falta el encabezado de autorización",
			})
		}

		// Verificamos el formato Bearer
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Formato de autorización inválido",
			})
		}

		claims, err := jwtService.ExtractClaims(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token inválido o expirado",
			})
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token sin identidad de usuario",
			})
		}

		// Guardamos la identidad en el contexto
		c.Locals("userID", userID)
		if role, _ := claims["role"].(string); role != "" {
			c.Locals("role", role)
		}

		return c.Next()
	}
}

// AdminMiddleware exige que el token autenticado tenga rol admin. Debe ir
// después de AuthMiddleware.
func AdminMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		if role != "admin" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Se requiere rol de administrador",
			})
		}
		return c.Next()
	}
}
