package ratings

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
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

// tablaFalsa emula la tabla calificaciones de ROBLE con filtros por query
type tablaFalsa struct {
	mu    sync.Mutex
	filas []map[string]any
}

func (f *tablaFalsa) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case strings.HasSuffix(r.URL.Path, "/insert"):
			var body struct {
				Records []map[string]any `json:"records"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.filas = append(f.filas, body.Records...)
			w.Write([]byte(`{}`))
		case strings.HasSuffix(r.URL.Path, "/read"):
			q := r.URL.Query()
			var out []map[string]any
			for _, fila := range f.filas {
				ok := true
				for _, key := range []string{"tradeId", "raterUserId", "ratedUserId"} {
					if v := q.Get(key); v != "" && fila[key] != v {
						ok = false
					}
				}
				if ok {
					out = append(out, fila)
				}
			}
			json.NewEncoder(w).Encode(out)
		default:
			w.Write([]byte(`{}`))
		}
	}
}

type entorno struct {
	app *fiber.App
	jwt *utils.JWTService
}

func nuevoEntorno(t *testing.T, estadoTrade string) *entorno {
	t.Helper()

	falso := &tablaFalsa{}
	srv := httptest.NewServer(falso.handler())
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
			{ID: "u1", Name: "Ana", IsActive: true},
			{ID: "u2", Name: "Carlos", IsActive: true},
		}
		st.Trades = []models.Trade{{
			ID:          "t1",
			InitiatorID: "u1",
			ReceiverID:  "u2",
			Product1ID:  "p1",
			Product2ID:  "p2",
			Status:      estadoTrade,
		}}
		return st, nil
	}))

	svc := NewRatingService(cfg, state, roble.NewClient(cfg.RobleConfig, log), log)
	app := fiber.New()
	svc.SetupRoutes(app)
	return &entorno{app: app, jwt: utils.NewJWTService(cfg.JWTSecret)}
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

func TestCalificarTruequeCompletado(t *testing.T) {
	e := nuevoEntorno(t, models.TradeCompleted)

	status, out := e.request(t, "POST", "/api/ratings/", "u1",
		`{"tradeId":"t1","rating":5,"comment":"Excelente intercambio"}`)
	require.Equal(t, fiber.StatusCreated, status)

	rating := out["rating"].(map[string]any)
	assert.Equal(t, "u2", rating["ratedUserId"])

	// No se puede calificar dos veces el mismo trueque
	status, out = e.request(t, "POST", "/api/ratings/", "u1",
		`{"tradeId":"t1","rating":4}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "Ya calificaste este trueque", out["error"])

	// El otro participante sí puede calificar
	status, _ = e.request(t, "POST", "/api/ratings/", "u2",
		`{"tradeId":"t1","rating":4}`)
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestSoloTruequesCompletados(t *testing.T) {
	e := nuevoEntorno(t, models.TradeAccepted)

	status, out := e.request(t, "POST", "/api/ratings/", "u1",
		`{"tradeId":"t1","rating":5}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Solo se pueden calificar trueques completados", out["error"])
}

func TestSoloParticipantes(t *testing.T) {
	e := nuevoEntorno(t, models.TradeCompleted)

	status, out := e.request(t, "POST", "/api/ratings/", "u3",
		`{"tradeId":"t1","rating":5}`)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Solo los participantes del trueque pueden calificar", out["error"])
}

func TestRangoDeCalificacion(t *testing.T) {
	e := nuevoEntorno(t, models.TradeCompleted)

	status, out := e.request(t, "POST", "/api/ratings/", "u1",
		`{"tradeId":"t1","rating":6}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "La calificación debe estar entre 1 y 5", out["error"])
}

func TestPromedioYEstado(t *testing.T) {
	e := nuevoEntorno(t, models.TradeCompleted)

	e.request(t, "POST", "/api/ratings/", "u1", `{"tradeId":"t1","rating":5}`)

	status, out := e.request(t, "GET", "/api/ratings/u2", "u1", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), out["count"])
	assert.Equal(t, float64(5), out["average"])

	// Estado de calificación del trueque
	status, out = e.request(t, "GET", "/api/ratings/trade/t1/status", "u1", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["rated"])

	status, out = e.request(t, "GET", "/api/ratings/trade/t1/status", "u2", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, out["rated"])
}
