package models

import "time"

// Tipos de notificación
const (
	NotifMessage        = "message"
	NotifTrade          = "trade"
	NotifAchievement    = "achievement"
	NotifSystem         = "system"
	NotifProduct        = "product"
	NotifTradeRequest   = "trade_request"
	NotifTradeAccepted  = "trade_accepted"
	NotifTradeRejected  = "trade_rejected"
	NotifTradeCancelled = "trade_cancelled"
)

// Notification representa una entrada del panel de notificaciones.
// Solo las trade_request son accionables, y dejan de serlo cuando el
// trueque asociado se resuelve.
type Notification struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
	Read        bool      `json:"read"`
	ProductID   string    `json:"productId,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	MessageID   string    `json:"messageId,omitempty"`
	TradeID     string    `json:"tradeId,omitempty"`
	Actionable  bool      `json:"actionable,omitempty"`
}
