package models

import "time"

// Rating representa una calificación entre participantes de un trueque completado
type Rating struct {
	ID          string    `json:"id"`
	TradeID     string    `json:"tradeId"`
	RaterUserID string    `json:"raterUserId"`
	RatedUserID string    `json:"ratedUserId"`
	Rating      int       `json:"rating"` // 1..5
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	// Campos adicionales para la API
	Rater *User `json:"rater,omitempty"`
}
