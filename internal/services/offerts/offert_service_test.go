package offerts

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/roble"
	"github.com/swaply/swaply-api/internal/services/cloudinary"
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
		st.Users = []models.User{{ID: "u1", Name: "Ana", IsActive: true}}
		return st, nil
	}))

	robleClient := roble.NewClient(cfg.RobleConfig, log)
	uploader := cloudinary.NewCloudinaryService(cfg, log)

	svc := NewOffertService(cfg, state, robleClient, uploader, log)
	app := fiber.New()
	svc.SetupRoutes(app)

	return &entorno{app: app, state: state, jwt: utils.NewJWTService(cfg.JWTSecret)}
}

func (e *entorno) crearProducto(t *testing.T, campos map[string]string) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range campos {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/offerts/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	token, err := e.jwt.GenerateToken("u1", models.RoleUser)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return resp.StatusCode, out
}

func (e *entorno) request(t *testing.T, method, path, userID, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := e.jwt.GenerateToken(userID, models.RoleUser)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

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

func TestCrearProducto(t *testing.T) {
	e := nuevoEntorno(t)

	status, out := e.crearProducto(t, map[string]string{
		"title":       "Bicicleta",
		"description": "Bicicleta de montaña en buen estado",
		"category":    "deportes",
		"location":    "Barranquilla",
	})
	require.Equal(t, fiber.StatusCreated, status)

	product := out["product"].(map[string]any)
	assert.Equal(t, "Bicicleta", product["title"])
	assert.Equal(t, "published", product["status"])
	assert.Equal(t, true, product["available"])

	// El dueño gana la actividad de publicación
	st := e.state.Snapshot()
	require.Len(t, st.Products, 1)
	require.NotEmpty(t, st.Users[0].Activities)
	assert.Equal(t, "Producto publicado", st.Users[0].Activities[0].Title)
}

func TestCrearProductoCamposFaltantes(t *testing.T) {
	e := nuevoEntorno(t)

	status, out := e.crearProducto(t, map[string]string{"title": "Bicicleta"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Faltan los siguientes campos obligatorios: description, category", out["error"])
}

func TestCrearBorrador(t *testing.T) {
	e := nuevoEntorno(t)

	status, out := e.crearProducto(t, map[string]string{
		"title":       "Guitarra",
		"description": "Guitarra acústica",
		"category":    "música",
		"status":      "draft",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "draft", out["product"].(map[string]any)["status"])

	// Los borradores no salen en el listado público
	status, listado := e.request(t, "GET", "/api/offerts/", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(0), listado["count"])
}

func TestEditarYCambiarEstado(t *testing.T) {
	e := nuevoEntorno(t)
	_, out := e.crearProducto(t, map[string]string{
		"title":       "Guitarra",
		"description": "Guitarra acústica",
		"category":    "música",
	})
	productID := out["product"].(map[string]any)["id"].(string)

	status, out := e.request(t, "PUT", "/api/offerts/"+productID, "u1", `{"title":"Guitarra eléctrica"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Guitarra eléctrica", out["product"].(map[string]any)["title"])

	status, _ = e.request(t, "PUT", "/api/offerts/"+productID+"/estado", "u1", `{"status":"draft"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "draft", e.state.Snapshot().Products[0].Status)

	// Estado desconocido
	status, out = e.request(t, "PUT", "/api/offerts/"+productID+"/estado", "u1", `{"status":"vendido"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "El estado debe ser draft o published", out["error"])
}

func TestSoloElDuenoModifica(t *testing.T) {
	e := nuevoEntorno(t)
	_, out := e.crearProducto(t, map[string]string{
		"title":       "Guitarra",
		"description": "Guitarra acústica",
		"category":    "música",
	})
	productID := out["product"].(map[string]any)["id"].(string)

	status, _ := e.request(t, "PUT", "/api/offerts/"+productID, "u2", `{"title":"mía ahora"}`)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = e.request(t, "DELETE", "/api/offerts/"+productID, "u2", "")
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestBajaDeProducto(t *testing.T) {
	e := nuevoEntorno(t)
	_, out := e.crearProducto(t, map[string]string{
		"title":       "Guitarra",
		"description": "Guitarra acústica",
		"category":    "música",
	})
	productID := out["product"].(map[string]any)["id"].(string)

	status, _ := e.request(t, "DELETE", "/api/offerts/"+productID, "u1", "")
	require.Equal(t, fiber.StatusOK, status)

	// El producto no se borra, queda no disponible
	st := e.state.Snapshot()
	require.Len(t, st.Products, 1)
	assert.False(t, st.Products[0].Available)
	assert.Equal(t, models.ProductDraft, st.Products[0].Status)
}
