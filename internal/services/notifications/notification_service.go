// Package notifications expone el feed de notificaciones: listado, marcado
// de lectura y resolución de clics hacia la entidad relacionada.
package notifications

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/store"
	"github.com/swaply/swaply-api/internal/trueque"
	"github.com/swaply/swaply-api/internal/utils"
	"github.com/swaply/swaply-api/internal/websocket"
)

// NotificationService es el servicio del feed de notificaciones
type NotificationService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	state      *store.AppState
	ws         *websocket.Manager
	log        *zap.Logger
}

// NewNotificationService crea una nueva instancia de NotificationService
func NewNotificationService(cfg *config.Config, state *store.AppState, ws *websocket.Manager, log *zap.Logger) *NotificationService {
	return &NotificationService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		state:      state,
		ws:         ws,
		log:        log,
	}
}

// GetNotifications devuelve el feed, más reciente primero
func (s *NotificationService) GetNotifications(c fiber.Ctx) error {
	st := s.state.Snapshot()
	return c.JSON(fiber.Map{
		"notifications": st.Notifications,
		"unreadCount":   trueque.NoLeidas(st),
	})
}

// MarkRead marca una notificación como leída. Es idempotente: repetir la
// operación o marcar una inexistente responde igual.
func (s *NotificationService) MarkRead(c fiber.Ctx) error {
	notifID := c.Params("id")

	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		return trueque.MarcarLeida(st, notifID), nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}

	s.emitirContador(c)
	return c.JSON(fiber.Map{"success": true})
}

// MarkAllRead marca todo el feed como leído
func (s *NotificationService) MarkAllRead(c fiber.Ctx) error {
	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		return trueque.MarcarTodasLeidas(st), nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}

	s.emitirContador(c)
	return c.JSON(fiber.Map{"success": true})
}

// Click marca la notificación como leída y resuelve hacia dónde navegar.
// Nunca falla: si la notificación o su entidad ya no existen, devuelve un
// destino vacío.
func (s *NotificationService) Click(c fiber.Ctx) error {
	notifID := c.Params("id")

	var clicked *models.Notification
	st := s.state.Snapshot()
	for i := range st.Notifications {
		if st.Notifications[i].ID == notifID {
			n := st.Notifications[i]
			clicked = &n
			break
		}
	}

	s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		return trueque.MarcarLeida(st, notifID), nil
	})
	s.emitirContador(c)

	if clicked == nil {
		return c.JSON(fiber.Map{"success": true, "target": fiber.Map{}})
	}

	target := fiber.Map{}
	switch clicked.Type {
	case models.NotifTradeRequest, models.NotifTradeAccepted,
		models.NotifTradeRejected, models.NotifTradeCancelled, models.NotifAchievement:
		if s.existeTrade(clicked.TradeID) {
			target = fiber.Map{"type": "trade", "tradeId": clicked.TradeID}
		}
	case models.NotifMessage:
		if clicked.MessageID != "" {
			target = fiber.Map{"type": "chat", "messageId": clicked.MessageID}
		}
	case models.NotifProduct:
		if s.existeProducto(clicked.ProductID) {
			target = fiber.Map{"type": "product", "productId": clicked.ProductID}
		}
	}

	return c.JSON(fiber.Map{"success": true, "target": target})
}

func (s *NotificationService) existeTrade(tradeID string) bool {
	if tradeID == "" {
		return false
	}
	for _, t := range s.state.Snapshot().Trades {
		if t.ID == tradeID {
			return true
		}
	}
	return false
}

func (s *NotificationService) existeProducto(productID string) bool {
	if productID == "" {
		return false
	}
	for _, p := range s.state.Snapshot().Products {
		if p.ID == productID {
			return true
		}
	}
	return false
}

// emitirContador empuja el contador de no leídas al usuario conectado
func (s *NotificationService) emitirContador(c fiber.Ctx) {
	userID, _ := c.Locals("userID").(string)
	if userID == "" {
		return
	}
	s.ws.BroadcastUnreadCount(userID, trueque.NoLeidas(s.state.Snapshot()))
}
