package models

import "time"

// Estados de producto
const (
	ProductDraft     = "draft"
	ProductPublished = "published"
)

// MaxProductImages limita las imágenes por producto
const MaxProductImages = 3

// Product representa un producto publicado para trueque
type Product struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	OwnerUserID     string    `json:"ownerUserId"`
	Status          string    `json:"status"` // draft, published
	Available       bool      `json:"available"`
	Images          []string  `json:"images"`
	TradeConditions string    `json:"tradeConditions"`
	Location        string    `json:"location"`
	CreatedAt       time.Time `json:"createdAt"`
}
