package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/roble"
	"github.com/swaply/swaply-api/internal/store"
	"github.com/swaply/swaply-api/internal/trueque"
	"github.com/swaply/swaply-api/internal/utils"
)

type entorno struct {
	app   *fiber.App
	state *store.AppState
	jwt   *utils.JWTService
}

func nuevoEntorno(t *testing.T) *entorno {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		JWTSecret: "secreto-de-prueba",
		RobleConfig: config.RobleConfig{
			AuthBaseURL: srv.URL,
			DBBaseURL:   srv.URL,
			DBName:      "swaply_test",
		},
	}

	log := zap.NewNop()
	s, err := store.Open(filepath.Join(t.TempDir(), "swaply.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	state := store.NewAppState(s, log)
	require.NoError(t, state.Rehydrate())
	require.NoError(t, state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		st.Users = []models.User{
			{ID: "a1", Name: "Admin", Role: models.RoleAdmin, IsActive: true},
			{ID: "u1", Name: "Ana", Role: models.RoleUser, IsActive: true},
		}
		st.Products = []models.Product{
			{ID: "p1", Title: "Bicicleta", OwnerUserID: "u1", Status: models.ProductPublished, Available: true},
		}
		return st, nil
	}))

	svc := NewAdminService(cfg, state, roble.NewClient(cfg.RobleConfig, log), log)
	app := fiber.New()
	svc.SetupRoutes(app)

	return &entorno{app: app, state: state, jwt: utils.NewJWTService(cfg.JWTSecret)}
}

func (e *entorno) request(t *testing.T, method, path, userID, role string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	token, err := e.jwt.GenerateToken(userID, role)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp.StatusCode, out
}

func TestSoloAdminAccede(t *testing.T) {
	e := nuevoEntorno(t)

	status, out := e.request(t, "GET", "/api/admin/users", "u1", models.RoleUser)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Se requiere rol de administrador", out["error"])

	status, out = e.request(t, "GET", "/api/admin/users", "a1", models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), out["count"])
}

func TestDesactivarUsuario(t *testing.T) {
	e := nuevoEntorno(t)

	status, _ := e.request(t, "PUT", "/api/admin/users/u1/deactivate", "a1", models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, status)

	st := e.state.Snapshot()
	for _, u := range st.Users {
		if u.ID == "u1" {
			assert.False(t, u.IsActive)
		}
	}
	// Sus productos salen de circulación y recibe la notificación
	assert.False(t, st.Products[0].Available)
	require.NotEmpty(t, st.Notifications)
	assert.Equal(t, "Cuenta desactivada", st.Notifications[0].Title)

	// No puede desactivarse a sí mismo
	status, _ = e.request(t, "PUT", "/api/admin/users/a1/deactivate", "a1", models.RoleAdmin)
	assert.Equal(t, fiber.StatusBadRequest, status)

	// Usuario inexistente
	status, _ = e.request(t, "PUT", "/api/admin/users/fantasma/deactivate", "a1", models.RoleAdmin)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRetirarProducto(t *testing.T) {
	e := nuevoEntorno(t)

	status, _ := e.request(t, "DELETE", "/api/admin/products/p1", "a1", models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, status)

	st := e.state.Snapshot()
	assert.False(t, st.Products[0].Available)
	assert.Equal(t, models.ProductDraft, st.Products[0].Status)

	// El dueño recibe la notificación
	require.NotEmpty(t, st.Notifications)
	assert.Equal(t, "Producto retirado", st.Notifications[0].Title)
	assert.Equal(t, "u1", st.Notifications[0].UserID)
}
