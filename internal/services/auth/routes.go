package auth

import (
	"github.com/gofiber/fiber/v3"

	"github.com/swaply/swaply-api/internal/middleware"
)

// SetupRoutes configura las rutas de autenticación
func (s *AuthService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/auth")

	captcha := middleware.Captcha(s.cfg.RecaptchaSecret, s.log)

	api.Post("/register", s.Register,
		middleware.ValidateFields("name", "email", "password"), captcha)
	api.Post("/login", s.Login,
		middleware.ValidateFields("email", "password"), captcha)
	api.Post("/logout", s.Logout)
	api.Post("/verify", s.Verify, middleware.ValidateFields("token"))
	api.Post("/resend-verification", s.ResendVerification, middleware.ValidateFields("email"))
	api.Get("/session", s.Session)
	api.Post("/forgot-password", s.ForgotPassword, middleware.ValidateFields("email"))
	api.Post("/reset-password", s.ResetPassword, middleware.ValidateFields("token", "password"))
}
