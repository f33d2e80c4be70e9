package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/trueque"
)

func abrirStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swaply.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestPutGet(t *testing.T) {
	s, _ := abrirStore(t)

	users := []models.User{
		{ID: "u1", Name: "Ana", Email: "ana@swaply.com", IsActive: true},
	}
	require.NoError(t, s.Put(KeyUsers, users))

	var out []models.User
	ok, err := s.Get(KeyUsers, &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, users, out)

	// Clave inexistente
	ok, err = s.Get("no-existe", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRehydrateRoundTrip(t *testing.T) {
	s, _ := abrirStore(t)
	log := zap.NewNop()

	st := NewAppState(s, log)
	require.NoError(t, st.Rehydrate())

	// Estado vacío al arrancar sin datos
	snap := st.Snapshot()
	assert.Empty(t, snap.Users)
	assert.Empty(t, snap.Trades)

	// Una mutación se persiste y sobrevive una rehidratación nueva
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := st.Update(func(est trueque.Estado) (trueque.Estado, error) {
		est.Users = []models.User{{ID: "u1", Name: "Ana", JoinedDate: now, IsActive: true, Favorites: []string{"p1"}}}
		est.Products = []models.Product{{ID: "p1", Title: "Bicicleta", OwnerUserID: "u1", Available: true}}
		return est, nil
	})
	require.NoError(t, err)

	st2 := NewAppState(s, log)
	require.NoError(t, st2.Rehydrate())
	snap = st2.Snapshot()
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "Ana", snap.Users[0].Name)
	assert.Equal(t, []string{"p1"}, snap.Users[0].Favorites)
	require.Len(t, snap.Products, 1)
	assert.True(t, snap.Products[0].Available)

	// Los favoritos también quedan bajo su propia clave
	var favs map[string][]string
	ok, err := s.Get(KeyFavorites, &favs)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"p1"}, favs["u1"])
}

func TestUpdateConErrorNoPersiste(t *testing.T) {
	s, _ := abrirStore(t)
	st := NewAppState(s, zap.NewNop())
	require.NoError(t, st.Rehydrate())

	err := st.Update(func(est trueque.Estado) (trueque.Estado, error) {
		est.Users = []models.User{{ID: "u1"}}
		return est, trueque.ErrUsuarioNoEncontrado
	})
	assert.Error(t, err)
	assert.Empty(t, st.Snapshot().Users)
}

func TestSesionDeUsuarioDesactivadoNoSeRestaura(t *testing.T) {
	s, _ := abrirStore(t)
	log := zap.NewNop()

	st := NewAppState(s, log)
	require.NoError(t, st.Rehydrate())
	st.SetCurrentUser(&models.User{ID: "u1", Name: "Ana", IsActive: false})

	st2 := NewAppState(s, log)
	require.NoError(t, st2.Rehydrate())
	assert.Nil(t, st2.CurrentUser())

	// Un usuario activo sí se restaura
	st2.SetCurrentUser(&models.User{ID: "u2", Name: "Carlos", IsActive: true})
	st3 := NewAppState(s, log)
	require.NoError(t, st3.Rehydrate())
	require.NotNil(t, st3.CurrentUser())
	assert.Equal(t, "u2", st3.CurrentUser().ID)
}

func TestValorCorruptoSeTrataComoAusente(t *testing.T) {
	s, _ := abrirStore(t)

	// Escribir un valor que no es el JSON esperado
	require.NoError(t, s.Put(KeyUsers, "esto no es una lista"))

	var out []models.User
	ok, err := s.Get(KeyUsers, &out)
	require.NoError(t, err)
	assert.False(t, ok)

	st := NewAppState(s, zap.NewNop())
	require.NoError(t, st.Rehydrate())
	assert.Empty(t, st.Snapshot().Users)
}

func TestTemaPersistido(t *testing.T) {
	s, _ := abrirStore(t)
	log := zap.NewNop()

	st := NewAppState(s, log)
	require.NoError(t, st.Rehydrate())
	st.SetTheme("dark", "verde")

	st2 := NewAppState(s, log)
	require.NoError(t, st2.Rehydrate())
	theme, color := st2.Theme()
	assert.Equal(t, "dark", theme)
	assert.Equal(t, "verde", color)
}
