package models

import "time"

// Tipos de actividad
const (
	ActivityTrade   = "trade"
	ActivityProduct = "product"
	ActivityRating  = "rating"
	ActivityMessage = "message"
)

// MaxActivities limita el historial de actividad por usuario
const MaxActivities = 20

// Activity representa una entrada del historial de un usuario
type Activity struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	ProductID   string    `json:"productId,omitempty"`
	UserID      string    `json:"userId,omitempty"`
}
