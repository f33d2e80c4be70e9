package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Tiempo máximo de espera del pong del cliente
	pongWait = 60 * time.Second

	// Intervalo de envío de pings
	pingPeriod = (pongWait * 9) / 10

	// Tamaño máximo de mensaje entrante
	maxMessageSize = 512 * 1024 // 512KB

	// Tamaño del buffer de mensajes salientes
	writeBufferSize = 256
)

// Client representa una conexión WebSocket individual
type Client struct {
	ID        uuid.UUID
	UserID    string
	conn      *websocket.Conn
	send      chan []byte // Canal bufferizado de mensajes salientes
	manager   *Manager
	closeChan chan struct{}
	log       *zap.Logger
}

// NewClient crea una nueva instancia de Client
func NewClient(userID string, conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:        uuid.New(),
		UserID:    userID,
		conn:      conn,
		send:      make(chan []byte, writeBufferSize),
		manager:   manager,
		closeChan: make(chan struct{}),
		log:       manager.log,
	}
}

// Start registra el cliente y lanza las goroutines de lectura y escritura
func (c *Client) Start() {
	c.manager.AddClient(c)

	go c.readPump()
	go c.writePump()
}

// readPump procesa los mensajes entrantes del cliente
func (c *Client) readPump() {
	defer func() {
		c.manager.RemoveClient(c.ID)
		c.conn.Close()
		close(c.closeChan)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("⚠️ Cierre inesperado de WebSocket", zap.Error(err))
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// writePump envía los mensajes al cliente
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn("⚠️ Error escribiendo mensaje WebSocket", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closeChan:
			return
		}
	}
}

// handleIncomingMessage procesa los mensajes que manda el cliente
func (c *Client) handleIncomingMessage(message []byte) {
	var event Event
	if err := json.Unmarshal(message, &event); err != nil {
		c.log.Warn("⚠️ Evento WebSocket ilegible", zap.Error(err))
		return
	}

	// El userID del evento debe coincidir con el de la conexión para evitar
	// suplantación del remitente
	if event.UserID != "" && event.UserID != c.UserID {
		c.log.Warn("⚠️ userID del evento no coincide con la conexión",
			zap.String("event_user", event.UserID),
			zap.String("conn_user", c.UserID))
		return
	}

	event.UserID = c.UserID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	switch event.Type {
	case EventMessageRead:
		// El cliente confirma lectura de un mensaje; se reenvía al otro
		// participante si está conectado
		if event.ChatID != "" && event.MessageID != "" {
			c.manager.SendToUser(event.UserID, event)
		}
	default:
		c.log.Debug("Evento WebSocket sin manejador", zap.String("type", string(event.Type)))
	}
}
