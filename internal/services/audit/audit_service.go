// Package audit registra el ciclo de vida de los trueques en la tabla
// auditoria de ROBLE y expone su consulta.
package audit

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/roble"
	"github.com/swaply/swaply-api/internal/utils"
)

const tablaAuditoria = "auditoria"

// AuditService consulta y escribe la auditoría de trueques
type AuditService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	roble      *roble.Client
	log        *zap.Logger
}

// NewAuditService crea una nueva instancia de AuditService
func NewAuditService(cfg *config.Config, robleClient *roble.Client, log *zap.Logger) *AuditService {
	return &AuditService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		roble:      robleClient,
		log:        log,
	}
}

// Record inserta un evento de auditoría. Un fallo de auditoría no debe
// tumbar la operación principal: se registra y se sigue.
func (s *AuditService) Record(trade models.Trade) {
	ctx, cancel := roble.GetContext()
	defer cancel()

	record := map[string]any{
		"usuario":   trade.InitiatorID,
		"propuesto": trade.ReceiverID,
		"ofertaA":   trade.Product2ID,
		"ofertaB":   trade.Product1ID,
		"estado":    trade.Status,
		"fecha":     time.Now().UTC().Format(time.RFC3339),
		"tradeId":   trade.ID,
	}

	if err := s.roble.Insert(ctx, tablaAuditoria, []map[string]any{record}); err != nil {
		s.log.Error("❌ Error registrando auditoría de trueque",
			zap.String("trade_id", trade.ID),
			zap.String("estado", trade.Status),
			zap.Error(err))
		return
	}

	s.log.Info("Auditoría registrada",
		zap.String("trade_id", trade.ID),
		zap.String("estado", trade.Status))
}

// GetAuditoria devuelve los registros de auditoría del usuario autenticado
func (s *AuditService) GetAuditoria(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	ctx, cancel := roble.GetContext()
	defer cancel()

	var records []map[string]any
	err := s.roble.Read(ctx, tablaAuditoria, map[string]string{"usuario": userID}, &records)
	if err != nil {
		s.log.Error("❌ Error consultando auditoría", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "No se pudo consultar la auditoría",
		})
	}

	return c.JSON(fiber.Map{"registros": records})
}

// UpdateAuditoria actualiza el estado de un registro de auditoría
func (s *AuditService) UpdateAuditoria(c fiber.Ctx) error {
	var req struct {
		TradeID string `json:"tradeId"`
		Estado  string `json:"estado"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}

	ctx, cancel := roble.GetContext()
	defer cancel()

	err := s.roble.Update(ctx, tablaAuditoria, "tradeId", req.TradeID, map[string]any{
		"estado": req.Estado,
		"fecha":  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.Error("❌ Error actualizando auditoría", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "No se pudo actualizar la auditoría",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}
