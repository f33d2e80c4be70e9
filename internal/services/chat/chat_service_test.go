package chat

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

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
	require.NoError(t, state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		st.Users = []models.User{
			{ID: "u1", Name: "Ana", IsActive: true},
			{ID: "u2", Name: "Carlos", IsActive: true},
		}
		return st, nil
	}))

	now := time.Now()
	require.NoError(t, state.UpdateChats(func(chats []models.Chat, messages []models.Message) ([]models.Chat, []models.Message, error) {
		return []models.Chat{{
			ID:         "c1",
			TradeID:    "t1",
			SenderID:   "u1",
			ReceiverID: "u2",
			CreatedAt:  now,
			UpdatedAt:  now,
			IsActive:   true,
		}}, nil, nil
	}))

	ws := websocket.NewManager(log)
	t.Cleanup(ws.Shutdown)

	svc := NewChatService(cfg, state, ws, log)
	app := fiber.New()
	svc.SetupRoutes(app)

	return &entorno{app: app, state: state, jwt: utils.NewJWTService(cfg.JWTSecret)}
}

func (e *entorno) request(t *testing.T, method, path, userID, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	token, err := e.jwt.GenerateToken(userID, models.RoleUser)
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

func TestEnviarYListar(t *testing.T) {
	e := nuevoEntorno(t)

	status, out := e.request(t, "POST", "/api/chats/c1/messages", "u1", `{"text":"¿Sigue disponible la guitarra?"}`)
	require.Equal(t, fiber.StatusCreated, status)
	msg := out["message"].(map[string]any)
	assert.Equal(t, "u1", msg["senderId"])

	// El chat refleja el último mensaje
	status, out = e.request(t, "GET", "/api/chats/", "u2", "")
	require.Equal(t, fiber.StatusOK, status)
	chats := out["chats"].([]any)
	require.Len(t, chats, 1)
	chat := chats[0].(map[string]any)
	assert.Equal(t, "¿Sigue disponible la guitarra?", chat["lastMessageText"])
	assert.Equal(t, float64(1), chat["unreadCount"])

	// El destinatario recibe la notificación en el feed
	st := e.state.Snapshot()
	require.NotEmpty(t, st.Notifications)
	assert.Equal(t, models.NotifMessage, st.Notifications[0].Type)
	assert.Contains(t, st.Notifications[0].Description, "Ana")
}

func TestLeerMarcaLeidos(t *testing.T) {
	e := nuevoEntorno(t)
	e.request(t, "POST", "/api/chats/c1/messages", "u1", `{"text":"hola"}`)

	status, out := e.request(t, "GET", "/api/chats/c1/messages", "u2", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), out["count"])

	// Tras leer, el contador de no leídos vuelve a cero
	status, out = e.request(t, "GET", "/api/chats/", "u2", "")
	require.Equal(t, fiber.StatusOK, status)
	chat := out["chats"].([]any)[0].(map[string]any)
	assert.Zero(t, chat["unreadCount"])
}

func TestSoloParticipantes(t *testing.T) {
	e := nuevoEntorno(t)

	status, _ := e.request(t, "GET", "/api/chats/c1/messages", "u3", "")
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = e.request(t, "POST", "/api/chats/c1/messages", "u3", `{"text":"hola"}`)
	assert.Equal(t, fiber.StatusForbidden, status)

	// Los chats ajenos no aparecen en el listado
	status, out := e.request(t, "GET", "/api/chats/", "u3", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(0), out["count"])
}

func TestMensajeVacio(t *testing.T) {
	e := nuevoEntorno(t)

	status, out := e.request(t, "POST", "/api/chats/c1/messages", "u1", `{"text":"   "}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Faltan los siguientes campos obligatorios: text", out["error"])
}

func TestChatInexistente(t *testing.T) {
	e := nuevoEntorno(t)

	status, _ := e.request(t, "GET", "/api/chats/no-existe/messages", "u1", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}
