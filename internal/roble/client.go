// Package roble implementa el cliente del servicio de persistencia ROBLE:
// autenticación (login, refresh, registro directo) y operaciones de tabla
// (insert, read, update) sobre su API REST.
package roble

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
)

// ErrReautenticacionRequerida se devuelve cuando el token expiró y el intento
// de refresh tampoco fue aceptado. Quien llama debe iniciar sesión de nuevo;
// el cliente nunca reintenta más de una vez.
var ErrReautenticacionRequerida = errors.New("sesión de ROBLE expirada, se requiere autenticación nueva")

// Client habla con ROBLE. El par de tokens se comparte entre goroutines,
// protegido por el mutex.
type Client struct {
	httpClient *http.Client
	cfg        config.RobleConfig
	log        *zap.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// GetContext devuelve un contexto con timeout para las llamadas a ROBLE
func GetContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// NewClient crea el cliente con el refresh token inicial de la configuración
func NewClient(cfg config.RobleConfig, log *zap.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		cfg:          cfg,
		log:          log,
		refreshToken: cfg.RefreshToken,
	}
}

// LoginResponse es la respuesta de /login
type LoginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         map[string]any `json:"user"`
}

// Login autentica contra ROBLE y guarda el par de tokens para las
// operaciones de tabla siguientes
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp LoginResponse
	if err := c.postJSON(ctx, c.authURL("login"), "", body, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		c.refreshToken = resp.RefreshToken
	}
	c.mu.Unlock()

	return &resp, nil
}

// SignupDirect registra un usuario sin flujo de verificación de correo
func (c *Client) SignupDirect(ctx context.Context, email, password, name string) error {
	body := map[string]string{"email": email, "password": password, "name": name}
	return c.postJSON(ctx, c.authURL("signup-direct"), "", body, nil)
}

// refresh intercambia el refresh token por un access token nuevo
func (c *Client) refresh(ctx context.Context) error {
	c.mu.Lock()
	rt := c.refreshToken
	c.mu.Unlock()

	if rt == "" {
		return ErrReautenticacionRequerida
	}

	var resp LoginResponse
	err := c.postJSON(ctx, c.authURL("refresh-token"), "", map[string]string{"refreshToken": rt}, &resp)
	if err != nil {
		c.log.Warn("⚠️ Refresh de token ROBLE rechazado", zap.Error(err))
		return ErrReautenticacionRequerida
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		c.refreshToken = resp.RefreshToken
	}
	c.mu.Unlock()

	return nil
}

// Insert inserta registros en una tabla
func (c *Client) Insert(ctx context.Context, table string, records []map[string]any) error {
	body := map[string]any{"tableName": table, "records": records}
	return c.conReintento(ctx, func(token string) error {
		return c.postJSON(ctx, c.dbURL("insert"), token, body, nil)
	})
}

// Read lee registros de una tabla aplicando los filtros como query params
func (c *Client) Read(ctx context.Context, table string, filters map[string]string, out any) error {
	q := url.Values{}
	q.Set("tableName", table)
	for k, v := range filters {
		q.Set(k, v)
	}
	endpoint := c.dbURL("read") + "?" + q.Encode()

	return c.conReintento(ctx, func(token string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		return c.do(req, token, out)
	})
}

// Update actualiza el registro identificado por idColumn=idValue
func (c *Client) Update(ctx context.Context, table, idColumn, idValue string, updates map[string]any) error {
	body := map[string]any{
		"tableName": table,
		"idColumn":  idColumn,
		"idValue":   idValue,
		"updates":   updates,
	}
	return c.conReintento(ctx, func(token string) error {
		req, err := c.newJSONRequest(ctx, http.MethodPut, c.dbURL("update"), body)
		if err != nil {
			return err
		}
		return c.do(req, token, nil)
	})
}

// conReintento ejecuta la operación con el access token actual. Ante un 401
// intenta un único refresh y repite; si el segundo intento también falla con
// 401 devuelve ErrReautenticacionRequerida. Cualquier otro error se propaga
// sin reintentos.
func (c *Client) conReintento(ctx context.Context, op func(token string) error) error {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()

	err := op(token)
	if !errors.Is(err, errNoAutorizado) {
		return err
	}

	if err := c.refresh(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	token = c.accessToken
	c.mu.Unlock()

	err = op(token)
	if errors.Is(err, errNoAutorizado) {
		return ErrReautenticacionRequerida
	}
	return err
}

// errNoAutorizado marca internamente una respuesta 401
var errNoAutorizado = errors.New("roble: no autorizado")

func (c *Client) authURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.AuthBaseURL, c.cfg.DBName, path)
}

func (c *Client) dbURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.DBBaseURL, c.cfg.DBName, path)
}

func (c *Client) newJSONRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint, token string, body, out any) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	return c.do(req, token, out)
}

// do ejecuta la petición y decodifica la respuesta. Los errores de ROBLE
// llegan como JSON con un campo message (a veces anidado en una lista).
func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error llamando a ROBLE: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error leyendo respuesta de ROBLE: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return errNoAutorizado
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("roble respondió %d: %s", resp.StatusCode, extraerMensaje(data))
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("error decodificando respuesta de ROBLE: %w", err)
		}
	}
	return nil
}

// extraerMensaje saca el mensaje de error del cuerpo. ROBLE a veces devuelve
// message como string y a veces como lista de strings.
func extraerMensaje(data []byte) string {
	var single struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &single); err == nil && single.Message != "" {
		return single.Message
	}

	var multi struct {
		Message []string `json:"message"`
	}
	if err := json.Unmarshal(data, &multi); err == nil && len(multi.Message) > 0 {
		return multi.Message[0]
	}

	if len(data) > 0 {
		return string(data)
	}
	return "sin detalle"
}
