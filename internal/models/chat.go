package models

import "time"

// Chat representa una conversación entre dos usuarios, normalmente
// asociada a un trueque aceptado.
type Chat struct {
	ID              string     `json:"id"`
	TradeID         string     `json:"tradeId,omitempty"`
	SenderID        string     `json:"senderId"`
	ReceiverID      string     `json:"receiverId"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	LastMessageText string     `json:"lastMessageText,omitempty"`
	LastMessageTime *time.Time `json:"lastMessageTime,omitempty"`
	IsActive        bool       `json:"isActive"`

	// Campos adicionales para la API
	UnreadCount int `json:"unreadCount,omitempty"`
}

// Message representa un mensaje dentro de un chat
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}
