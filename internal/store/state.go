package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/trueque"
)

// AppState es el contenedor del estado en memoria del servicio. Todas las
// mutaciones pasan por Update, que persiste el resultado en el Store antes de
// soltar el lock: si el proceso muere, el archivo refleja el último estado
// confirmado.
type AppState struct {
	mu sync.RWMutex

	est      trueque.Estado
	chats    []models.Chat
	messages []models.Message
	current  *models.User
	theme    string
	color    string

	store *Store
	log   *zap.Logger
}

// NewAppState crea el contenedor vacío sobre el store dado
func NewAppState(s *Store, log *zap.Logger) *AppState {
	return &AppState{store: s, log: log}
}

// Rehydrate carga el estado guardado. Las claves ausentes o corruptas dejan
// su sección vacía; una sesión guardada de un usuario desactivado no se
// restaura.
func (a *AppState) Rehydrate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ok, err := a.store.Get(KeyUsers, &a.est.Users); err != nil {
		return err
	} else if !ok {
		a.est.Users = nil
	}
	if ok, err := a.store.Get(KeyProducts, &a.est.Products); err != nil {
		return err
	} else if !ok {
		a.est.Products = nil
	}
	if ok, err := a.store.Get(KeyTrades, &a.est.Trades); err != nil {
		return err
	} else if !ok {
		a.est.Trades = nil
	}
	if ok, err := a.store.Get(KeyNotifications, &a.est.Notifications); err != nil {
		return err
	} else if !ok {
		a.est.Notifications = nil
	}
	if ok, err := a.store.Get(KeyChats, &a.chats); err != nil {
		return err
	} else if !ok {
		a.chats = nil
	}
	if ok, err := a.store.Get(KeyMessages, &a.messages); err != nil {
		return err
	} else if !ok {
		a.messages = nil
	}

	var current models.User
	if ok, err := a.store.Get(KeyCurrentUser, &current); err != nil {
		return err
	} else if ok {
		if current.IsActive {
			a.current = &current
		} else {
			// Un usuario desactivado no recupera su sesión
			a.log.Warn("⚠️ Sesión guardada de usuario desactivado, descartada",
				zap.String("user_id", current.ID))
			_ = a.store.Delete(KeyCurrentUser)
		}
	}

	a.store.Get(KeyTheme, &a.theme)
	a.store.Get(KeyThemeColor, &a.color)

	a.log.Info("✅ Estado local rehidratado",
		zap.Int("users", len(a.est.Users)),
		zap.Int("products", len(a.est.Products)),
		zap.Int("trades", len(a.est.Trades)))

	return nil
}

// Snapshot devuelve una copia superficial del estado de trueques. Las
// transiciones de la máquina son copy-on-write, así que el snapshot es seguro
// de leer fuera del lock.
func (a *AppState) Snapshot() trueque.Estado {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.est
}

// Update aplica la función de transición bajo el lock y persiste el estado
// resultante. Si fn devuelve error, el estado no cambia.
func (a *AppState) Update(fn func(trueque.Estado) (trueque.Estado, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next, err := fn(a.est)
	if err != nil {
		return err
	}
	a.est = next
	a.persistEstado()
	return nil
}

// persistEstado escribe las secciones del estado de trueques. Se llama con el
// lock tomado.
func (a *AppState) persistEstado() {
	if err := a.store.Put(KeyUsers, a.est.Users); err != nil {
		a.log.Error("❌ Error persistiendo usuarios", zap.Error(err))
	}
	if err := a.store.Put(KeyProducts, a.est.Products); err != nil {
		a.log.Error("❌ Error persistiendo productos", zap.Error(err))
	}
	if err := a.store.Put(KeyTrades, a.est.Trades); err != nil {
		a.log.Error("❌ Error persistiendo trueques", zap.Error(err))
	}
	if err := a.store.Put(KeyNotifications, a.est.Notifications); err != nil {
		a.log.Error("❌ Error persistiendo notificaciones", zap.Error(err))
	}

	// Los favoritos se derivan de los usuarios pero se guardan aparte para
	// poder restaurarlos aunque la lista de usuarios venga de ROBLE
	favorites := make(map[string][]string)
	for _, u := range a.est.Users {
		if len(u.Favorites) > 0 {
			favorites[u.ID] = u.Favorites
		}
	}
	if err := a.store.Put(KeyFavorites, favorites); err != nil {
		a.log.Error("❌ Error persistiendo favoritos", zap.Error(err))
	}
}

// Chats devuelve una copia de la lista de chats
func (a *AppState) Chats() []models.Chat {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Chat, len(a.chats))
	copy(out, a.chats)
	return out
}

// Messages devuelve una copia de los mensajes del chat
func (a *AppState) Messages(chatID string) []models.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []models.Message
	for _, m := range a.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// UpdateChats aplica la función sobre chats y mensajes bajo el lock y
// persiste el resultado
func (a *AppState) UpdateChats(fn func(chats []models.Chat, messages []models.Message) ([]models.Chat, []models.Message, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	chats, messages, err := fn(a.chats, a.messages)
	if err != nil {
		return err
	}
	a.chats = chats
	a.messages = messages

	if err := a.store.Put(KeyChats, a.chats); err != nil {
		a.log.Error("❌ Error persistiendo chats", zap.Error(err))
	}
	if err := a.store.Put(KeyMessages, a.messages); err != nil {
		a.log.Error("❌ Error persistiendo mensajes", zap.Error(err))
	}
	return nil
}

// CurrentUser devuelve la sesión restaurada, si la hay
func (a *AppState) CurrentUser() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return nil
	}
	u := *a.current
	return &u
}

// SetCurrentUser guarda (o limpia, con nil) la sesión activa
func (a *AppState) SetCurrentUser(u *models.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = u
	if u == nil {
		_ = a.store.Delete(KeyCurrentUser)
		return
	}
	if err := a.store.Put(KeyCurrentUser, u); err != nil {
		a.log.Error("❌ Error persistiendo sesión", zap.Error(err))
	}
}

// Theme devuelve el tema y color guardados
func (a *AppState) Theme() (string, string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.theme, a.color
}

// SetTheme guarda las preferencias de tema
func (a *AppState) SetTheme(theme, color string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.theme = theme
	a.color = color
	if err := a.store.Put(KeyTheme, theme); err != nil {
		a.log.Error("❌ Error persistiendo tema", zap.Error(err))
	}
	if err := a.store.Put(KeyThemeColor, color); err != nil {
		a.log.Error("❌ Error persistiendo color de tema", zap.Error(err))
	}
}
