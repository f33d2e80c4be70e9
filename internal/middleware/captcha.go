package middleware

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const siteVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

var captchaClient = &http.Client{Timeout: 10 * time.Second}

// Captcha crea un middleware que verifica el token de reCAPTCHA contra
// Google. El token puede venir en el campo captchaToken del cuerpo o en el
// encabezado X-Recaptcha-Token. Sin secreto configurado la verificación se
// omite con una advertencia, para entornos de desarrollo.
func Captcha(secret string, log *zap.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		if secret == "" {
			log.Warn("⚠️ RECAPTCHA_SECRET_KEY no configurado, verificación de captcha omitida")
			return c.Next()
		}

		token := c.Get("X-Recaptcha-Token")
		if token == "" {
			var body struct {
				CaptchaToken string `json:"captchaToken"`
			}
			if err := json.Unmarshal(c.Body(), &body); err == nil {
				token = body.CaptchaToken
			}
		}

		if token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Falta el token de captcha",
			})
		}

		resp, err := captchaClient.PostForm(siteVerifyURL, url.Values{
			"secret":   {secret},
			"response": {token},
		})
		if err != nil {
			log.Error("❌ Error verificando captcha", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "No se pudo verificar el captcha",
			})
		}
		defer resp.Body.Close()

		var result struct {
			Success    bool     `json:"success"`
			ErrorCodes []string `json:"error-codes"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Respuesta de captcha ilegible",
			})
		}

		if !result.Success {
			log.Warn("⚠️ Captcha rechazado", zap.Strings("codes", result.ErrorCodes))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Captcha inválido",
			})
		}

		return c.Next()
	}
}
