package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func appConCaptcha(secret string) *fiber.App {
	app := fiber.New()
	app.Post("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	}, Captcha(secret, zap.NewNop()))
	return app
}

func TestCaptchaOmitidoSinSecreto(t *testing.T) {
	app := appConCaptcha("")

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCaptchaSinTokenRechazado(t *testing.T) {
	app := appConCaptcha("secreto-de-prueba")

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"ana@swaply.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
