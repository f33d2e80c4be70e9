package models

import "time"

// Estados del ciclo de vida de un trueque.
// pending → {accepted, rejected, cancelled}; accepted → completed.
// rejected, cancelled y completed son terminales.
const (
	TradePending   = "pending"
	TradeAccepted  = "accepted"
	TradeRejected  = "rejected"
	TradeCompleted = "completed"
	TradeCancelled = "cancelled"
)

// Trade representa una propuesta de intercambio entre dos productos
type Trade struct {
	ID          string    `json:"id"`
	User1ID     string    `json:"user1Id"`
	User2ID     string    `json:"user2Id"`
	Product1ID  string    `json:"product1Id"` // producto ofrecido por el iniciador (puede ser vacío)
	Product2ID  string    `json:"product2Id"` // producto solicitado
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	InitiatorID string    `json:"initiatorId"`
	ReceiverID  string    `json:"receiverId"`

	// Campos adicionales para la API
	Product1  *Product `json:"product1,omitempty"`
	Product2  *Product `json:"product2,omitempty"`
	Initiator *User    `json:"initiator,omitempty"`
	Receiver  *User    `json:"receiver,omitempty"`
	ChatID    string   `json:"chatId,omitempty"`
}

// IsTerminal indica si el estado no admite más transiciones
func IsTerminal(status string) bool {
	return status == TradeRejected || status == TradeCancelled || status == TradeCompleted
}
