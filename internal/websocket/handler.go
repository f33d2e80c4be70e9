package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// El origen se valida en el proxy; aquí aceptamos cualquier origen
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler expone el endpoint de conexión WebSocket. El cliente se autentica
// con su JWT en el query param token.
func Handler(manager *Manager, jwtService *utils.JWTService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "falta el token", http.StatusUnauthorized)
			return
		}

		userID, err := jwtService.ExtractUserID(token)
		if err != nil {
			http.Error(w, "token inválido o expirado", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("⚠️ Error actualizando conexión a WebSocket", zap.Error(err))
			return
		}

		client := NewClient(userID, conn, manager)
		client.Start()

		// Confirmación inicial de conexión
		welcome, _ := json.Marshal(Event{
			Type:      EventConnected,
			UserID:    userID,
			Timestamp: time.Now(),
		})
		select {
		case client.send <- welcome:
		default:
		}
	}
}

// Serve arranca el servidor HTTP dedicado a WebSocket en la dirección dada
func Serve(addr string, manager *Manager, jwtService *utils.JWTService, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", Handler(manager, jwtService, log))

	log.Info("✅ Servidor WebSocket escuchando", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}
