// Package websocket mantiene las conexiones en tiempo real y el envío de
// eventos a los clientes conectados.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager es el administrador central de todas las conexiones WebSocket
type Manager struct {
	clients      map[uuid.UUID]*Client
	clientsMutex sync.RWMutex
	userClients  map[string]map[uuid.UUID]bool // userID -> map[clientID]bool
	userMutex    sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	log          *zap.Logger
}

// EventType define el tipo de evento WebSocket
type EventType string

const (
	EventTradeRequest   EventType = "trade_request"
	EventTradeAccepted  EventType = "trade_accepted"
	EventTradeRejected  EventType = "trade_rejected"
	EventTradeCancelled EventType = "trade_cancelled"
	EventAchievement    EventType = "achievement"
	EventNotification   EventType = "notification"
	EventNewMessage     EventType = "new_message"
	EventMessageRead    EventType = "message_read"
	EventUnreadCount    EventType = "unread_count"
	EventConnected      EventType = "connected"
)

// Event es la estructura del mensaje WebSocket
type Event struct {
	Type      EventType       `json:"type"`
	TradeID   string          `json:"trade_id,omitempty"`
	ChatID    string          `json:"chat_id,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewManager crea una nueva instancia de Manager
func NewManager(log *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]bool),
		ctx:         ctx,
		cancel:      cancel,
		log:         log,
	}
}

// AddClient registra un cliente nuevo
func (m *Manager) AddClient(client *Client) {
	m.clientsMutex.Lock()
	m.clients[client.ID] = client
	m.clientsMutex.Unlock()

	// Asociamos el cliente con su usuario
	m.userMutex.Lock()
	if _, exists := m.userClients[client.UserID]; !exists {
		m.userClients[client.UserID] = make(map[uuid.UUID]bool)
	}
	m.userClients[client.UserID][client.ID] = true
	m.userMutex.Unlock()

	m.log.Info("Cliente WebSocket conectado",
		zap.String("client_id", client.ID.String()),
		zap.String("user_id", client.UserID))
}

// RemoveClient elimina un cliente
func (m *Manager) RemoveClient(clientID uuid.UUID) {
	m.clientsMutex.RLock()
	client, exists := m.clients[clientID]
	m.clientsMutex.RUnlock()

	if !exists {
		return
	}

	userID := client.UserID

	m.userMutex.Lock()
	if clients, ok := m.userClients[userID]; ok {
		delete(clients, clientID)
		// Si era la última conexión del usuario, eliminamos su entrada
		if len(clients) == 0 {
			delete(m.userClients, userID)
		}
	}
	m.userMutex.Unlock()

	m.clientsMutex.Lock()
	delete(m.clients, clientID)
	m.clientsMutex.Unlock()

	m.log.Info("Cliente WebSocket desconectado",
		zap.String("client_id", clientID.String()),
		zap.String("user_id", userID))
}

// SendToUser envía un evento a todas las conexiones de un usuario. Si el
// usuario no está conectado el evento simplemente no se entrega: la
// notificación persistida en el feed sigue siendo la fuente de verdad.
func (m *Manager) SendToUser(userID string, event Event) {
	if userID == "" {
		return
	}

	m.userMutex.RLock()
	clientIDs, exists := m.userClients[userID]
	m.userMutex.RUnlock()

	if !exists || len(clientIDs) == 0 {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		m.log.Error("❌ Error serializando evento WebSocket", zap.Error(err))
		return
	}

	for clientID := range clientIDs {
		m.clientsMutex.RLock()
		client, exists := m.clients[clientID]
		m.clientsMutex.RUnlock()

		if !exists {
			continue
		}

		// Envío no bloqueante
		go func(c *Client) {
			select {
			case c.send <- eventJSON:
			default:
				// Canal lleno, el cliente no da abasto: cerramos la conexión
				m.log.Warn("⚠️ Canal de envío lleno, cerrando conexión",
					zap.String("client_id", c.ID.String()))
				c.conn.Close()
				m.RemoveClient(c.ID)
			}
		}(client)
	}
}

// BroadcastUnreadCount envía al usuario su número de notificaciones sin leer
func (m *Manager) BroadcastUnreadCount(userID string, unread int) {
	payload, _ := json.Marshal(map[string]int{"count": unread})

	m.SendToUser(userID, Event{
		Type:      EventUnreadCount,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// Shutdown cierra ordenadamente todas las conexiones
func (m *Manager) Shutdown() {
	m.cancel()

	m.clientsMutex.Lock()
	for _, client := range m.clients {
		client.conn.Close()
	}
	m.clients = make(map[uuid.UUID]*Client)
	m.clientsMutex.Unlock()

	m.userMutex.Lock()
	m.userClients = make(map[string]map[uuid.UUID]bool)
	m.userMutex.Unlock()
}
