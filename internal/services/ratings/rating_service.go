// Package ratings maneja las calificaciones entre participantes de trueques
// completados. Las calificaciones se guardan en la tabla calificaciones de
// ROBLE.
package ratings

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/roble"
	"github.com/swaply/swaply-api/internal/store"
	"github.com/swaply/swaply-api/internal/trueque"
	"github.com/swaply/swaply-api/internal/utils"
)

const tablaCalificaciones = "calificaciones"

// RatingService es el servicio de calificaciones
type RatingService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	state      *store.AppState
	maquina    *trueque.Maquina
	roble      *roble.Client
	log        *zap.Logger
}

// NewRatingService crea una nueva instancia de RatingService
func NewRatingService(cfg *config.Config, state *store.AppState, robleClient *roble.Client, log *zap.Logger) *RatingService {
	return &RatingService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		state:      state,
		maquina:    trueque.NewMaquina(),
		roble:      robleClient,
		log:        log,
	}
}

// registroCalificacion es la fila de la tabla calificaciones en ROBLE
type registroCalificacion struct {
	ID          string `json:"_id"`
	TradeID     string `json:"tradeId"`
	RaterUserID string `json:"raterUserId"`
	RatedUserID string `json:"ratedUserId"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
	CreatedAt   string `json:"createdAt"`
}

func (r registroCalificacion) comoModelo() models.Rating {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return models.Rating{
		ID:          r.ID,
		TradeID:     r.TradeID,
		RaterUserID: r.RaterUserID,
		RatedUserID: r.RatedUserID,
		Rating:      r.Rating,
		Comment:     r.Comment,
		CreatedAt:   created,
	}
}

// CreateRating califica al otro participante de un trueque completado
func (s *RatingService) CreateRating(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	var req struct {
		TradeID string `json:"tradeId"`
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "La calificación debe estar entre 1 y 5",
		})
	}

	// El trueque debe existir, estar completado y el usuario debe ser
	// participante
	var trade *models.Trade
	for _, t := range s.state.Snapshot().Trades {
		if t.ID == req.TradeID {
			tt := t
			trade = &tt
			break
		}
	}
	if trade == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Trueque no encontrado"})
	}
	if trade.Status != models.TradeCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Solo se pueden calificar trueques completados",
		})
	}

	var ratedUserID string
	switch userID {
	case trade.InitiatorID:
		ratedUserID = trade.ReceiverID
	case trade.ReceiverID:
		ratedUserID = trade.InitiatorID
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Solo los participantes del trueque pueden calificar",
		})
	}

	ctx, cancel := roble.GetContext()
	defer cancel()

	// Una calificación por participante por trueque
	var existentes []registroCalificacion
	err := s.roble.Read(ctx, tablaCalificaciones, map[string]string{
		"tradeId":     req.TradeID,
		"raterUserId": userID,
	}, &existentes)
	if err != nil {
		s.log.Error("❌ Error consultando calificaciones", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudo validar la calificación"})
	}
	if len(existentes) > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Ya calificaste este trueque",
		})
	}

	rating := models.Rating{
		ID:          uuid.NewString(),
		TradeID:     req.TradeID,
		RaterUserID: userID,
		RatedUserID: ratedUserID,
		Rating:      req.Rating,
		Comment:     req.Comment,
		CreatedAt:   time.Now(),
	}

	err = s.roble.Insert(ctx, tablaCalificaciones, []map[string]any{{
		"_id":         rating.ID,
		"tradeId":     rating.TradeID,
		"raterUserId": rating.RaterUserID,
		"ratedUserId": rating.RatedUserID,
		"rating":      rating.Rating,
		"comment":     rating.Comment,
		"createdAt":   rating.CreatedAt.UTC().Format(time.RFC3339),
	}})
	if err != nil {
		s.log.Error("❌ Error guardando calificación", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudo guardar la calificación"})
	}

	// Notificación al calificado y actividad del calificador
	s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		rated := ""
		for _, u := range st.Users {
			if u.ID == ratedUserID {
				rated = u.Name
			}
		}
		st = s.maquina.AgregarNotificacion(st, models.Notification{
			Type:        models.NotifSystem,
			Title:       "Nueva calificación",
			Description: fmt.Sprintf("Recibiste una calificación de %d estrellas", req.Rating),
			UserID:      userID,
			TradeID:     req.TradeID,
		})
		st = s.maquina.AgregarActividad(st, userID, models.Activity{
			Type:        models.ActivityRating,
			Title:       "Calificación enviada",
			Description: fmt.Sprintf("Calificaste a %s con %d estrellas", rated, req.Rating),
		})
		return st, nil
	})

	s.log.Info("Calificación registrada",
		zap.String("trade_id", req.TradeID),
		zap.String("rater", userID),
		zap.Int("rating", req.Rating))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "rating": rating})
}

// GetUserRatings devuelve las calificaciones recibidas por un usuario y su
// promedio
func (s *RatingService) GetUserRatings(c fiber.Ctx) error {
	ratedUserID := c.Params("userId")

	ctx, cancel := roble.GetContext()
	defer cancel()

	var registros []registroCalificacion
	err := s.roble.Read(ctx, tablaCalificaciones, map[string]string{
		"ratedUserId": ratedUserID,
	}, &registros)
	if err != nil {
		s.log.Error("❌ Error consultando calificaciones", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudieron consultar las calificaciones"})
	}

	ratings := make([]models.Rating, 0, len(registros))
	for _, r := range registros {
		ratings = append(ratings, r.comoModelo())
	}

	// Se adjunta el nombre del calificador cuando está en el estado local
	st := s.state.Snapshot()
	for i := range ratings {
		for j := range st.Users {
			if st.Users[j].ID == ratings[i].RaterUserID {
				u := st.Users[j]
				ratings[i].Rater = &u
			}
		}
	}

	promedio := 0.0
	for _, r := range ratings {
		promedio += float64(r.Rating)
	}
	if len(ratings) > 0 {
		promedio /= float64(len(ratings))
	}

	return c.JSON(fiber.Map{
		"ratings": ratings,
		"count":   len(ratings),
		"average": promedio,
	})
}

// GetTradeRatingStatus indica si el usuario autenticado ya calificó el trueque
func (s *RatingService) GetTradeRatingStatus(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	tradeID := c.Params("tradeId")

	ctx, cancel := roble.GetContext()
	defer cancel()

	var existentes []registroCalificacion
	err := s.roble.Read(ctx, tablaCalificaciones, map[string]string{
		"tradeId":     tradeID,
		"raterUserId": userID,
	}, &existentes)
	if err != nil {
		s.log.Error("❌ Error consultando calificaciones", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudo consultar el estado"})
	}

	return c.JSON(fiber.Map{"rated": len(existentes) > 0})
}
