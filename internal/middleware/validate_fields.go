package middleware

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// ValidateFields crea un middleware que exige que el cuerpo JSON traiga todos
// los campos indicados. Si falta alguno responde 400 listando TODOS los
// faltantes, no solo el primero.
func ValidateFields(fields ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body map[string]any
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			body = nil
		}

		var missing []string
		for _, field := range fields {
			if esCampoVacio(body[field]) {
				missing = append(missing, field)
			}
		}

		if len(missing) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Faltan los siguientes campos obligatorios: %s", strings.Join(missing, ", ")),
			})
		}

		return c.Next()
	}
}

// esCampoVacio considera faltante un campo ausente, nulo o string vacío
func esCampoVacio(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}
