// Package trueque implementa la máquina de estados del ciclo de vida de un
// trueque. Todas las transiciones son funciones puras sobre un snapshot
// Estado: reciben el estado actual y devuelven el nuevo estado junto con las
// notificaciones y actividades derivadas, sin tocar red ni almacenamiento.
package trueque

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swaply/swaply-api/internal/models"
)

// Errores de transición
var (
	ErrUsuarioNoEncontrado  = errors.New("usuario no encontrado")
	ErrProductoNoEncontrado = errors.New("producto no encontrado")
	ErrTruequeNoEncontrado  = errors.New("trueque no encontrado")
	ErrEstadoInvalido       = errors.New("el trueque no está en un estado que permita esta acción")
	ErrNoAutorizado         = errors.New("el usuario no puede ejecutar esta acción sobre el trueque")
)

// Estado agrupa todo lo que observan y producen las transiciones.
// Las notificaciones y los trueques se ordenan del más reciente al más
// antiguo; las actividades viven dentro de cada usuario.
type Estado struct {
	Users         []models.User         `json:"users"`
	Products      []models.Product      `json:"products"`
	Trades        []models.Trade        `json:"trades"`
	Notifications []models.Notification `json:"notifications"`
}

// Maquina ejecuta las transiciones. Now y NewID son inyectables para que
// las pruebas sean deterministas.
type Maquina struct {
	Now   func() time.Time
	NewID func() string
}

// NewMaquina crea una máquina con reloj y generador de IDs reales
func NewMaquina() *Maquina {
	return &Maquina{
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// Proponer crea un trueque en estado pending. Genera una notificación
// trade_request accionable para el dueño del producto solicitado y una
// actividad "Propuesta enviada" para el iniciador. El producto ofrecido es
// opcional: una propuesta sin producto expresa solo interés.
func (m *Maquina) Proponer(st Estado, actorID, productID, offeredProductID string) (Estado, models.Trade, error) {
	actor := buscarUsuario(st.Users, actorID)
	if actor == nil {
		return st, models.Trade{}, ErrUsuarioNoEncontrado
	}

	product := buscarProducto(st.Products, productID)
	if product == nil {
		return st, models.Trade{}, ErrProductoNoEncontrado
	}

	var offered *models.Product
	if offeredProductID != "" {
		offered = buscarProducto(st.Products, offeredProductID)
		if offered == nil {
			return st, models.Trade{}, ErrProductoNoEncontrado
		}
	}

	now := m.Now()
	trade := models.Trade{
		ID:          m.NewID(),
		User1ID:     actorID,
		User2ID:     product.OwnerUserID,
		Product1ID:  offeredProductID,
		Product2ID:  productID,
		Status:      models.TradePending,
		CreatedAt:   now,
		InitiatorID: actorID,
		ReceiverID:  product.OwnerUserID,
	}
	st.Trades = append([]models.Trade{trade}, st.Trades...)

	notifDesc := fmt.Sprintf("%s está interesado en tu producto %q", actor.Name, product.Title)
	actDesc := fmt.Sprintf("Mostraste interés en %q", product.Title)
	if offered != nil {
		notifDesc = fmt.Sprintf("%s quiere intercambiar %q por tu producto %q", actor.Name, offered.Title, product.Title)
		actDesc = fmt.Sprintf("Propusiste intercambiar %q por %q", offered.Title, product.Title)
	}

	st.Notifications = append([]models.Notification{{
		ID:          m.NewID(),
		Type:        models.NotifTradeRequest,
		Title:       "Nueva propuesta de intercambio",
		Description: notifDesc,
		Time:        now,
		Read:        false,
		ProductID:   productID,
		UserID:      actorID,
		TradeID:     trade.ID,
		Actionable:  true,
	}}, st.Notifications...)

	st = m.agregarActividad(st, actorID, models.Activity{
		Type:        models.ActivityTrade,
		Title:       "Propuesta enviada",
		Description: actDesc,
		ProductID:   productID,
	})

	return st, trade, nil
}

// Aceptar pasa un trueque pending a accepted. Solo el receptor puede
// aceptar. Notifica al iniciador, resuelve la solicitud original y agrega
// la actividad del receptor.
func (m *Maquina) Aceptar(st Estado, actorID, tradeID string) (Estado, error) {
	trade := buscarTrueque(st.Trades, tradeID)
	if trade == nil {
		return st, ErrTruequeNoEncontrado
	}
	if trade.ReceiverID != actorID {
		return st, ErrNoAutorizado
	}
	if trade.Status != models.TradePending {
		return st, ErrEstadoInvalido
	}

	actor := buscarUsuario(st.Users, actorID)
	if actor == nil {
		return st, ErrUsuarioNoEncontrado
	}

	st.Trades = cambiarEstado(st.Trades, tradeID, models.TradeAccepted)

	p1 := buscarProducto(st.Products, trade.Product1ID)
	p2 := buscarProducto(st.Products, trade.Product2ID)

	desc := "Tu propuesta de intercambio fue aceptada"
	actDesc := "Aceptaste una propuesta de intercambio"
	if p1 != nil && p2 != nil {
		desc = fmt.Sprintf("%s aceptó tu propuesta de intercambiar %q por %q", actor.Name, p1.Title, p2.Title)
		actDesc = fmt.Sprintf("Aceptaste intercambiar %q por %q", p2.Title, p1.Title)
	}

	st.Notifications = append([]models.Notification{{
		ID:          m.NewID(),
		Type:        models.NotifTradeAccepted,
		Title:       "Propuesta aceptada",
		Description: desc,
		Time:        m.Now(),
		UserID:      actorID,
		TradeID:     tradeID,
	}}, st.Notifications...)

	st.Notifications = resolverSolicitud(st.Notifications, tradeID)

	st = m.agregarActividad(st, actorID, models.Activity{
		Type:        models.ActivityTrade,
		Title:       "Propuesta aceptada",
		Description: actDesc,
	})

	return st, nil
}

// Rechazar pasa un trueque pending a rejected. Solo el receptor puede
// rechazar.
func (m *Maquina) Rechazar(st Estado, actorID, tradeID string) (Estado, error) {
	trade := buscarTrueque(st.Trades, tradeID)
	if trade == nil {
		return st, ErrTruequeNoEncontrado
	}
	if trade.ReceiverID != actorID {
		return st, ErrNoAutorizado
	}
	if trade.Status != models.TradePending {
		return st, ErrEstadoInvalido
	}

	actor := buscarUsuario(st.Users, actorID)
	if actor == nil {
		return st, ErrUsuarioNoEncontrado
	}

	st.Trades = cambiarEstado(st.Trades, tradeID, models.TradeRejected)

	p1 := buscarProducto(st.Products, trade.Product1ID)
	p2 := buscarProducto(st.Products, trade.Product2ID)

	desc := "Tu propuesta de intercambio fue rechazada"
	actDesc := "Rechazaste una propuesta de intercambio"
	if p1 != nil && p2 != nil {
		desc = fmt.Sprintf("%s rechazó tu propuesta de intercambiar %q por %q", actor.Name, p1.Title, p2.Title)
		actDesc = fmt.Sprintf("Rechazaste intercambiar %q por %q", p2.Title, p1.Title)
	}

	st.Notifications = append([]models.Notification{{
		ID:          m.NewID(),
		Type:        models.NotifTradeRejected,
		Title:       "Propuesta rechazada",
		Description: desc,
		Time:        m.Now(),
		UserID:      actorID,
		TradeID:     tradeID,
	}}, st.Notifications...)

	st.Notifications = resolverSolicitud(st.Notifications, tradeID)

	st = m.agregarActividad(st, actorID, models.Activity{
		Type:        models.ActivityTrade,
		Title:       "Propuesta rechazada",
		Description: actDesc,
	})

	return st, nil
}

// Cancelar pasa un trueque pending a cancelled. Solo el iniciador puede
// cancelar su propuesta; se notifica al receptor.
func (m *Maquina) Cancelar(st Estado, actorID, tradeID string) (Estado, error) {
	trade := buscarTrueque(st.Trades, tradeID)
	if trade == nil {
		return st, ErrTruequeNoEncontrado
	}
	if trade.InitiatorID != actorID {
		return st, ErrNoAutorizado
	}
	if trade.Status != models.TradePending {
		return st, ErrEstadoInvalido
	}

	actor := buscarUsuario(st.Users, actorID)
	if actor == nil {
		return st, ErrUsuarioNoEncontrado
	}

	st.Trades = cambiarEstado(st.Trades, tradeID, models.TradeCancelled)

	p1 := buscarProducto(st.Products, trade.Product1ID)
	p2 := buscarProducto(st.Products, trade.Product2ID)

	desc := "Una propuesta de intercambio fue cancelada"
	actDesc := "Cancelaste una propuesta de intercambio"
	if p1 != nil && p2 != nil {
		desc = fmt.Sprintf("%s canceló su propuesta de intercambiar %q por %q", actor.Name, p1.Title, p2.Title)
		actDesc = fmt.Sprintf("Cancelaste tu propuesta de intercambiar %q por %q", p1.Title, p2.Title)
	}

	st.Notifications = append([]models.Notification{{
		ID:          m.NewID(),
		Type:        models.NotifTradeCancelled,
		Title:       "Propuesta cancelada",
		Description: desc,
		Time:        m.Now(),
		UserID:      actorID,
		TradeID:     tradeID,
	}}, st.Notifications...)

	st.Notifications = resolverSolicitud(st.Notifications, tradeID)

	st = m.agregarActividad(st, actorID, models.Activity{
		Type:        models.ActivityTrade,
		Title:       "Propuesta cancelada",
		Description: actDesc,
	})

	return st, nil
}

// Confirmar cierra un trueque accepted como completed. Solo los participantes
// pueden cerrar. Sobre cualquier otro estado es un no-op: devuelve el estado
// sin cambios y changed=false. Al completar, ambos productos dejan de estar
// disponibles y se genera una notificación de logro.
func (m *Maquina) Confirmar(st Estado, actorID, tradeID string) (Estado, bool, error) {
	trade := buscarTrueque(st.Trades, tradeID)
	if trade == nil {
		return st, false, ErrTruequeNoEncontrado
	}
	if trade.InitiatorID != actorID && trade.ReceiverID != actorID {
		return st, false, ErrNoAutorizado
	}
	if trade.Status != models.TradeAccepted {
		return st, false, nil
	}

	st.Trades = cambiarEstado(st.Trades, tradeID, models.TradeCompleted)

	p1 := buscarProducto(st.Products, trade.Product1ID)
	p2 := buscarProducto(st.Products, trade.Product2ID)

	desc := "¡Has completado un intercambio exitosamente!"
	if p1 != nil && p2 != nil {
		desc = fmt.Sprintf("Intercambio completado: %q por %q", p1.Title, p2.Title)
	}

	st.Notifications = append([]models.Notification{{
		ID:          m.NewID(),
		Type:        models.NotifAchievement,
		Title:       "Intercambio completado",
		Description: desc,
		Time:        m.Now(),
		TradeID:     tradeID,
	}}, st.Notifications...)

	// Los productos intercambiados salen de circulación
	st.Products = marcarNoDisponible(st.Products, trade.Product1ID)
	st.Products = marcarNoDisponible(st.Products, trade.Product2ID)

	st = m.agregarActividad(st, actorID, models.Activity{
		Type:        models.ActivityTrade,
		Title:       "Intercambio completado",
		Description: "Completaste un intercambio exitosamente",
	})

	return st, true, nil
}

// agregarActividad antepone una actividad al historial del usuario,
// conservando como máximo models.MaxActivities entradas
func (m *Maquina) agregarActividad(st Estado, userID string, act models.Activity) Estado {
	act.ID = m.NewID()
	act.Date = m.Now()

	users := make([]models.User, len(st.Users))
	copy(users, st.Users)
	for i := range users {
		if users[i].ID != userID {
			continue
		}
		activities := append([]models.Activity{act}, users[i].Activities...)
		if len(activities) > models.MaxActivities {
			activities = activities[:models.MaxActivities]
		}
		users[i].Activities = activities
	}
	st.Users = users
	return st
}

// resolverSolicitud marca la notificación trade_request del trueque como
// leída y no accionable
func resolverSolicitud(notifs []models.Notification, tradeID string) []models.Notification {
	out := make([]models.Notification, len(notifs))
	copy(out, notifs)
	for i := range out {
		if out[i].TradeID == tradeID && out[i].Type == models.NotifTradeRequest {
			out[i].Read = true
			out[i].Actionable = false
		}
	}
	return out
}

func cambiarEstado(trades []models.Trade, tradeID, status string) []models.Trade {
	out := make([]models.Trade, len(trades))
	copy(out, trades)
	for i := range out {
		if out[i].ID == tradeID {
			out[i].Status = status
		}
	}
	return out
}

func marcarNoDisponible(products []models.Product, productID string) []models.Product {
	if productID == "" {
		return products
	}
	out := make([]models.Product, len(products))
	copy(out, products)
	for i := range out {
		if out[i].ID == productID {
			out[i].Available = false
		}
	}
	return out
}

func buscarUsuario(users []models.User, id string) *models.User {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}

func buscarProducto(products []models.Product, id string) *models.Product {
	for i := range products {
		if products[i].ID == id {
			return &products[i]
		}
	}
	return nil
}

func buscarTrueque(trades []models.Trade, id string) *models.Trade {
	for i := range trades {
		if trades[i].ID == id {
			return &trades[i]
		}
	}
	return nil
}
