// Package trueques expone la API del ciclo de vida de los trueques. Los
// handlers validan la petición, aplican la transición sobre el estado y
// despachan los efectos (auditoría, WebSocket, chat) con el resultado.
package trueques

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/services/audit"
	"github.com/swaply/swaply-api/internal/store"
	"github.com/swaply/swaply-api/internal/trueque"
	"github.com/swaply/swaply-api/internal/utils"
	"github.com/swaply/swaply-api/internal/websocket"
)

// TruequeService es el servicio de gestión de trueques
type TruequeService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	state      *store.AppState
	maquina    *trueque.Maquina
	audit      *audit.AuditService
	ws         *websocket.Manager
	log        *zap.Logger
}

// NewTruequeService crea una nueva instancia de TruequeService
func NewTruequeService(cfg *config.Config, state *store.AppState, auditSvc *audit.AuditService, ws *websocket.Manager, log *zap.Logger) *TruequeService {
	return &TruequeService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		state:      state,
		maquina:    trueque.NewMaquina(),
		audit:      auditSvc,
		ws:         ws,
		log:        log,
	}
}

// CreateTrueque crea una propuesta de intercambio
func (s *TruequeService) CreateTrueque(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	var req struct {
		ProductID        string `json:"productId"`
		OfferedProductID string `json:"offeredProductId"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}
	if req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Faltan los siguientes campos obligatorios: productId",
		})
	}

	var created models.Trade
	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		// No se puede proponer sobre un producto propio
		for _, p := range st.Products {
			if p.ID == req.ProductID && p.OwnerUserID == userID {
				return st, errPropuestaPropia
			}
		}
		next, trade, err := s.maquina.Proponer(st, userID, req.ProductID, req.OfferedProductID)
		if err != nil {
			return st, err
		}
		created = trade
		return next, nil
	})
	if err != nil {
		return s.errorDeTransicion(c, err)
	}

	s.audit.Record(created)
	s.notificar(created.ReceiverID, websocket.EventTradeRequest, created.ID)

	s.log.Info("Propuesta de trueque creada",
		zap.String("trade_id", created.ID),
		zap.String("initiator", created.InitiatorID),
		zap.String("receiver", created.ReceiverID))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"trade":   s.enriquecer(created),
	})
}

// ConfirmTrueque acepta o rechaza una propuesta pendiente según la acción
func (s *TruequeService) ConfirmTrueque(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	tradeID := c.Params("tradeId")

	var req struct {
		Accion string `json:"accion"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}
	if req.Accion != "aceptar" && req.Accion != "rechazar" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "La acción debe ser aceptar o rechazar",
		})
	}

	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		if req.Accion == "aceptar" {
			return s.maquina.Aceptar(st, userID, tradeID)
		}
		return s.maquina.Rechazar(st, userID, tradeID)
	})
	if err != nil {
		return s.errorDeTransicion(c, err)
	}

	trade := s.buscarTrade(tradeID)
	if trade == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Trueque no encontrado"})
	}

	s.audit.Record(*trade)

	if req.Accion == "aceptar" {
		s.notificar(trade.InitiatorID, websocket.EventTradeAccepted, tradeID)
		s.crearChat(*trade)
	} else {
		s.notificar(trade.InitiatorID, websocket.EventTradeRejected, tradeID)
	}

	return c.JSON(fiber.Map{"success": true, "trade": s.enriquecer(*trade)})
}

// CancelTrueque cancela una propuesta pendiente del iniciador
func (s *TruequeService) CancelTrueque(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	tradeID := c.Params("tradeId")

	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		return s.maquina.Cancelar(st, userID, tradeID)
	})
	if err != nil {
		return s.errorDeTransicion(c, err)
	}

	trade := s.buscarTrade(tradeID)
	if trade == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Trueque no encontrado"})
	}

	s.audit.Record(*trade)
	s.notificar(trade.ReceiverID, websocket.EventTradeCancelled, tradeID)

	return c.JSON(fiber.Map{"success": true, "trade": s.enriquecer(*trade)})
}

// CompleteTrueque cierra un trueque aceptado. Si el trueque no está aceptado
// la operación no cambia nada y responde 400.
func (s *TruequeService) CompleteTrueque(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	tradeID := c.Params("tradeId")

	changed := false
	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		next, ok, err := s.maquina.Confirmar(st, userID, tradeID)
		if err != nil {
			return st, err
		}
		changed = ok
		return next, nil
	})
	if err != nil {
		return s.errorDeTransicion(c, err)
	}
	if !changed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "El trueque no está listo para cierre",
		})
	}

	trade := s.buscarTrade(tradeID)
	if trade == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Trueque no encontrado"})
	}

	s.audit.Record(*trade)
	s.notificar(trade.InitiatorID, websocket.EventAchievement, tradeID)
	s.notificar(trade.ReceiverID, websocket.EventAchievement, tradeID)

	s.log.Info("Trueque completado", zap.String("trade_id", tradeID))

	return c.JSON(fiber.Map{"success": true, "trade": s.enriquecer(*trade)})
}

// GetMyTrueques devuelve los trueques donde participa el usuario
func (s *TruequeService) GetMyTrueques(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	role := c.Query("role") // initiator, receiver o vacío para ambos

	st := s.state.Snapshot()
	var out []models.Trade
	for _, t := range st.Trades {
		switch role {
		case "initiator":
			if t.InitiatorID != userID {
				continue
			}
		case "receiver":
			if t.ReceiverID != userID {
				continue
			}
		default:
			if t.InitiatorID != userID && t.ReceiverID != userID {
				continue
			}
		}
		out = append(out, s.enriquecer(t))
	}

	return c.JSON(fiber.Map{"trades": out, "count": len(out)})
}

// GetCompletados devuelve los trueques completados del usuario
func (s *TruequeService) GetCompletados(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	st := s.state.Snapshot()
	var out []models.Trade
	for _, t := range st.Trades {
		if t.Status != models.TradeCompleted {
			continue
		}
		if t.InitiatorID != userID && t.ReceiverID != userID {
			continue
		}
		out = append(out, s.enriquecer(t))
	}

	return c.JSON(fiber.Map{"trades": out, "count": len(out)})
}

var errPropuestaPropia = errors.New("no puedes proponer un intercambio sobre tu propio producto")

// errorDeTransicion traduce los errores de la máquina a respuestas HTTP
func (s *TruequeService) errorDeTransicion(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, trueque.ErrTruequeNoEncontrado),
		errors.Is(err, trueque.ErrProductoNoEncontrado),
		errors.Is(err, trueque.ErrUsuarioNoEncontrado):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, trueque.ErrNoAutorizado):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, trueque.ErrEstadoInvalido), errors.Is(err, errPropuestaPropia):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		s.log.Error("❌ Error procesando trueque", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}
}

// buscarTrade localiza el trueque en el snapshot actual
func (s *TruequeService) buscarTrade(tradeID string) *models.Trade {
	st := s.state.Snapshot()
	for i := range st.Trades {
		if st.Trades[i].ID == tradeID {
			t := st.Trades[i]
			return &t
		}
	}
	return nil
}

// enriquecer adjunta productos y usuarios a la respuesta del trueque
func (s *TruequeService) enriquecer(t models.Trade) models.Trade {
	st := s.state.Snapshot()
	for i := range st.Products {
		switch st.Products[i].ID {
		case t.Product1ID:
			p := st.Products[i]
			t.Product1 = &p
		case t.Product2ID:
			p := st.Products[i]
			t.Product2 = &p
		}
	}
	for i := range st.Users {
		switch st.Users[i].ID {
		case t.InitiatorID:
			u := st.Users[i]
			t.Initiator = &u
		case t.ReceiverID:
			u := st.Users[i]
			t.Receiver = &u
		}
	}
	for _, ch := range s.state.Chats() {
		if ch.TradeID == t.ID {
			t.ChatID = ch.ID
			break
		}
	}
	return t
}

// notificar empuja el evento por WebSocket y actualiza el contador de no
// leídas del destinatario
func (s *TruequeService) notificar(userID string, tipo websocket.EventType, tradeID string) {
	s.ws.SendToUser(userID, websocket.Event{
		Type:    tipo,
		TradeID: tradeID,
		UserID:  userID,
	})
	s.ws.BroadcastUnreadCount(userID, trueque.NoLeidas(s.state.Snapshot()))
}

// crearChat abre la conversación entre los participantes cuando la propuesta
// se acepta. Si ya existe un chat para el trueque no se duplica.
func (s *TruequeService) crearChat(t models.Trade) {
	now := time.Now()
	err := s.state.UpdateChats(func(chats []models.Chat, messages []models.Message) ([]models.Chat, []models.Message, error) {
		for _, ch := range chats {
			if ch.TradeID == t.ID {
				return chats, messages, nil
			}
		}
		chat := models.Chat{
			ID:         uuid.NewString(),
			TradeID:    t.ID,
			SenderID:   t.InitiatorID,
			ReceiverID: t.ReceiverID,
			CreatedAt:  now,
			UpdatedAt:  now,
			IsActive:   true,
		}
		return append([]models.Chat{chat}, chats...), messages, nil
	})
	if err != nil {
		s.log.Error("❌ Error creando chat del trueque", zap.String("trade_id", t.ID), zap.Error(err))
	}
}
