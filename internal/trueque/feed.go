package trueque

import "github.com/swaply/swaply-api/internal/models"

// MarcarLeida marca una notificación como leída. Es idempotente: marcar una
// notificación ya leída o inexistente no cambia nada más.
func MarcarLeida(st Estado, notifID string) Estado {
	out := make([]models.Notification, len(st.Notifications))
	copy(out, st.Notifications)
	for i := range out {
		if out[i].ID == notifID {
			out[i].Read = true
		}
	}
	st.Notifications = out
	return st
}

// MarcarTodasLeidas marca todas las notificaciones como leídas
func MarcarTodasLeidas(st Estado) Estado {
	out := make([]models.Notification, len(st.Notifications))
	copy(out, st.Notifications)
	for i := range out {
		out[i].Read = true
	}
	st.Notifications = out
	return st
}

// NoLeidas cuenta las notificaciones sin leer
func NoLeidas(st Estado) int {
	count := 0
	for _, n := range st.Notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// AgregarNotificacion antepone una notificación al feed
func (m *Maquina) AgregarNotificacion(st Estado, n models.Notification) Estado {
	n.ID = m.NewID()
	n.Time = m.Now()
	st.Notifications = append([]models.Notification{n}, st.Notifications...)
	return st
}

// AgregarActividad antepone una actividad al historial del usuario,
// respetando el tope de models.MaxActivities
func (m *Maquina) AgregarActividad(st Estado, userID string, act models.Activity) Estado {
	return m.agregarActividad(st, userID, act)
}
