// Package chat maneja las conversaciones asociadas a trueques aceptados:
// listado, historial de mensajes y envío con entrega en tiempo real.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/store"
	"github.com/swaply/swaply-api/internal/trueque"
	"github.com/swaply/swaply-api/internal/utils"
	"github.com/swaply/swaply-api/internal/websocket"
)

// ChatService es el servicio de chats
type ChatService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	state      *store.AppState
	maquina    *trueque.Maquina
	ws         *websocket.Manager
	log        *zap.Logger
}

// NewChatService crea una nueva instancia de ChatService
func NewChatService(cfg *config.Config, state *store.AppState, ws *websocket.Manager, log *zap.Logger) *ChatService {
	return &ChatService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		state:      state,
		maquina:    trueque.NewMaquina(),
		ws:         ws,
		log:        log,
	}
}

// GetChats devuelve los chats donde participa el usuario, con el conteo de
// mensajes sin leer
func (s *ChatService) GetChats(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	var out []models.Chat
	for _, ch := range s.state.Chats() {
		if ch.SenderID != userID && ch.ReceiverID != userID {
			continue
		}
		unread := 0
		for _, m := range s.state.Messages(ch.ID) {
			if m.SenderID != userID && !m.IsRead {
				unread++
			}
		}
		ch.UnreadCount = unread
		out = append(out, ch)
	}

	return c.JSON(fiber.Map{"chats": out, "count": len(out)})
}

// GetMessages devuelve el historial del chat y marca como leídos los
// mensajes del otro participante
func (s *ChatService) GetMessages(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	chatID := c.Params("chatId")

	chat := s.buscarChat(chatID)
	if chat == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat no encontrado"})
	}
	if chat.SenderID != userID && chat.ReceiverID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No participas en este chat"})
	}

	var historial []models.Message
	err := s.state.UpdateChats(func(chats []models.Chat, messages []models.Message) ([]models.Chat, []models.Message, error) {
		out := make([]models.Message, len(messages))
		copy(out, messages)
		for i := range out {
			if out[i].ChatID != chatID {
				continue
			}
			if out[i].SenderID != userID {
				out[i].IsRead = true
			}
			historial = append(historial, out[i])
		}
		return chats, out, nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}

	return c.JSON(fiber.Map{"messages": historial, "count": len(historial)})
}

// SendMessage envía un mensaje al chat. El destinatario recibe el evento en
// tiempo real y una notificación en su feed.
func (s *ChatService) SendMessage(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	chatID := c.Params("chatId")

	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}
	texto := strings.TrimSpace(req.Text)
	if texto == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Faltan los siguientes campos obligatorios: text",
		})
	}

	chat := s.buscarChat(chatID)
	if chat == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat no encontrado"})
	}
	if chat.SenderID != userID && chat.ReceiverID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No participas en este chat"})
	}
	if !chat.IsActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "El chat está cerrado"})
	}

	destinatario := chat.SenderID
	if destinatario == userID {
		destinatario = chat.ReceiverID
	}

	now := time.Now()
	message := models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		SenderID:  userID,
		Text:      texto,
		CreatedAt: now,
	}

	err := s.state.UpdateChats(func(chats []models.Chat, messages []models.Message) ([]models.Chat, []models.Message, error) {
		out := make([]models.Chat, len(chats))
		copy(out, chats)
		for i := range out {
			if out[i].ID == chatID {
				out[i].LastMessageText = texto
				t := now
				out[i].LastMessageTime = &t
				out[i].UpdatedAt = now
			}
		}
		return out, append(messages, message), nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}

	// Notificación en el feed del destinatario
	var remitente string
	s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		for _, u := range st.Users {
			if u.ID == userID {
				remitente = u.Name
			}
		}
		st = s.maquina.AgregarNotificacion(st, models.Notification{
			Type:        models.NotifMessage,
			Title:       "Nuevo mensaje",
			Description: fmt.Sprintf("%s te envió un mensaje", remitente),
			UserID:      userID,
			MessageID:   message.ID,
		})
		return st, nil
	})

	// Entrega en tiempo real
	s.ws.SendToUser(destinatario, websocket.Event{
		Type:      websocket.EventNewMessage,
		ChatID:    chatID,
		MessageID: message.ID,
		UserID:    destinatario,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": message})
}

func (s *ChatService) buscarChat(chatID string) *models.Chat {
	for _, ch := range s.state.Chats() {
		if ch.ID == chatID {
			c := ch
			return &c
		}
	}
	return nil
}
