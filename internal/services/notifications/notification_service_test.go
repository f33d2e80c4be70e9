package notifications

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/store"
	"github.com/swaply/swaply-api/internal/trueque"
	"github.com/swaply/swaply-api/internal/utils"
	"github.com/swaply/swaply-api/internal/websocket"
)

type entorno struct {
	app   *fiber.App
	state *store.AppState
	jwt   *utils.JWTService
}

func nuevoEntorno(t *testing.T) *entorno {
	t.Helper()

	cfg := &config.Config{JWTSecret: "secreto-de-prueba"}
	log := zap.NewNop()

	s, err := store.Open(filepath.Join(t.TempDir(), "swaply.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	state := store.NewAppState(s, log)
	require.NoError(t, state.Rehydrate())

	ws := websocket.NewManager(log)
	t.Cleanup(ws.Shutdown)

	svc := NewNotificationService(cfg, state, ws, log)
	app := fiber.New()
	svc.SetupRoutes(app)

	return &entorno{app: app, state: state, jwt: utils.NewJWTService(cfg.JWTSecret)}
}

func (e *entorno) sembrar(t *testing.T) (string, string) {
	t.Helper()
	m := trueque.NewMaquina()
	var notifID, tradeID string

	require.NoError(t, e.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		st.Users = []models.User{
			{ID: "u1", Name: "Ana", IsActive: true},
			{ID: "u2", Name: "Carlos", IsActive: true},
		}
		st.Products = []models.Product{
			{ID: "p1", Title: "Bicicleta", OwnerUserID: "u1", Available: true},
			{ID: "p2", Title: "Guitarra", OwnerUserID: "u2", Available: true},
		}
		next, trade, err := m.Proponer(st, "u1", "p2", "p1")
		if err != nil {
			return st, err
		}
		notifID = next.Notifications[0].ID
		tradeID = trade.ID
		return next, nil
	}))
	return notifID, tradeID
}

func (e *entorno) request(t *testing.T, method, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	token, err := e.jwt.GenerateToken("u2", models.RoleUser)
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

func TestListadoConContador(t *testing.T) {
	e := nuevoEntorno(t)
	e.sembrar(t)

	status, out := e.request(t, "GET", "/api/notifications/")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), out["unreadCount"])
	assert.Len(t, out["notifications"], 1)
}

func TestMarcarLeidaEsIdempotente(t *testing.T) {
	e := nuevoEntorno(t)
	notifID, _ := e.sembrar(t)

	status, _ := e.request(t, "PUT", "/api/notifications/"+notifID+"/read")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0, trueque.NoLeidas(e.state.Snapshot()))

	// Repetir no cambia nada y responde igual
	status, _ = e.request(t, "PUT", "/api/notifications/"+notifID+"/read")
	require.Equal(t, fiber.StatusOK, status)

	// Inexistente tampoco falla
	status, _ = e.request(t, "PUT", "/api/notifications/no-existe/read")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestMarcarTodasLeidas(t *testing.T) {
	e := nuevoEntorno(t)
	e.sembrar(t)

	status, _ := e.request(t, "PUT", "/api/notifications/read-all")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0, trueque.NoLeidas(e.state.Snapshot()))
}

func TestClickResuelveAlTrueque(t *testing.T) {
	e := nuevoEntorno(t)
	notifID, tradeID := e.sembrar(t)

	status, out := e.request(t, "POST", "/api/notifications/"+notifID+"/click")
	require.Equal(t, fiber.StatusOK, status)

	target := out["target"].(map[string]any)
	assert.Equal(t, "trade", target["type"])
	assert.Equal(t, tradeID, target["tradeId"])

	// El clic también marca como leída
	assert.Equal(t, 0, trueque.NoLeidas(e.state.Snapshot()))
}

func TestClickSobreInexistenteNoFalla(t *testing.T) {
	e := nuevoEntorno(t)
	e.sembrar(t)

	status, out := e.request(t, "POST", "/api/notifications/no-existe/click")
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, out["target"])
}
