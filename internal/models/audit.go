package models

import "time"

// AuditRecord representa un evento del ciclo de vida de un trueque
// registrado en la tabla auditoria de ROBLE.
type AuditRecord struct {
	Usuario   string    `json:"usuario"`
	Propuesto string    `json:"propuesto"`
	OfertaA   string    `json:"ofertaA"`
	OfertaB   string    `json:"ofertaB,omitempty"`
	Estado    string    `json:"estado"`
	Fecha     time.Time `json:"fecha"`
}
