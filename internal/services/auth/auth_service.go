// Package auth implementa registro, inicio de sesión y recuperación de
// contraseña. Las credenciales viven en la tabla usuarios de ROBLE; la
// verificación de contraseña es local con bcrypt.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/roble"
	"github.com/swaply/swaply-api/internal/store"
	"github.com/swaply/swaply-api/internal/trueque"
	"github.com/swaply/swaply-api/internal/utils"
)

const tablaUsuarios = "usuarios"

// AuthService es el servicio de autenticación
type AuthService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	state      *store.AppState
	maquina    *trueque.Maquina
	roble      *roble.Client
	log        *zap.Logger
}

// NewAuthService crea una nueva instancia de AuthService
func NewAuthService(cfg *config.Config, state *store.AppState, robleClient *roble.Client, log *zap.Logger) *AuthService {
	return &AuthService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		state:      state,
		maquina:    trueque.NewMaquina(),
		roble:      robleClient,
		log:        log,
	}
}

// registroUsuario es el registro de la tabla usuarios en ROBLE
type registroUsuario struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	City          string `json:"city"`
	PasswordHash  string `json:"passwordHash"`
	IsActive      bool   `json:"isActive"`
	EmailVerified bool   `json:"emailVerified"`
	JoinedDate    string `json:"joinedDate"`
}

// Register registra un usuario nuevo
func (s *AuthService) Register(c fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		City     string `json:"city"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Password) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "La contraseña debe tener al menos 6 caracteres",
		})
	}

	// El correo no puede estar tomado, ni localmente ni en ROBLE
	for _, u := range s.state.Snapshot().Users {
		if strings.EqualFold(u.Email, email) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "El correo ya está registrado"})
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		s.log.Error("❌ Error generando hash de contraseña", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}

	user := models.User{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		Email:      email,
		Role:       models.RoleUser,
		City:       strings.TrimSpace(req.City),
		JoinedDate: time.Now(),
		IsActive:   true,
	}

	ctx, cancel := roble.GetContext()
	defer cancel()

	// Alta en ROBLE: cuenta de autenticación y registro de perfil
	if err := s.roble.SignupDirect(ctx, email, req.Password, user.Name); err != nil {
		s.log.Warn("⚠️ Registro directo en ROBLE falló, se continúa con el perfil local",
			zap.String("email", email), zap.Error(err))
	}
	record := registroUsuario{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		City:         user.City,
		PasswordHash: hash,
		IsActive:     true,
		JoinedDate:   user.JoinedDate.UTC().Format(time.RFC3339),
	}
	if err := s.roble.Insert(ctx, tablaUsuarios, []map[string]any{{
		"_id":           record.ID,
		"name":          record.Name,
		"email":         record.Email,
		"role":          record.Role,
		"city":          record.City,
		"passwordHash":  record.PasswordHash,
		"isActive":      record.IsActive,
		"emailVerified": false,
		"joinedDate":    record.JoinedDate,
	}}); err != nil {
		s.log.Error("❌ Error guardando usuario en ROBLE", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudo completar el registro"})
	}

	err = s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		st.Users = append(st.Users, user)
		st = s.maquina.AgregarNotificacion(st, models.Notification{
			Type:        models.NotifSystem,
			Title:       "¡Bienvenido a Swaply!",
			Description: fmt.Sprintf("Hola %s, tu cuenta fue creada exitosamente", user.Name),
			UserID:      user.ID,
		})
		return st, nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error generando la sesión"})
	}

	// Sin servicio de correo, el token de verificación viaja en la respuesta
	verificationToken, err := s.jwtService.GenerateVerificationToken(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}

	s.log.Info("✅ Usuario registrado", zap.String("user_id", user.ID), zap.String("email", email))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":           true,
		"token":             token,
		"user":              user,
		"verificationToken": verificationToken,
	})
}

// Verify marca el correo del usuario como verificado. La operación es
// idempotente: verificar un correo ya verificado responde igual.
func (s *AuthService) Verify(c fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}

	userID, err := s.jwtService.ExtractVerificationUserID(req.Token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token de verificación inválido o expirado"})
	}

	err = s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		users := make([]models.User, len(st.Users))
		copy(users, st.Users)
		for i := range users {
			if users[i].ID == userID {
				users[i].EmailVerified = true
				st.Users = users
				return st, nil
			}
		}
		return st, trueque.ErrUsuarioNoEncontrado
	})
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Usuario no encontrado"})
	}

	ctx, cancel := roble.GetContext()
	defer cancel()
	if err := s.roble.Update(ctx, tablaUsuarios, "_id", userID, map[string]any{"emailVerified": true}); err != nil {
		s.log.Error("❌ Error replicando verificación a ROBLE", zap.Error(err))
	}

	s.log.Info("✅ Correo verificado", zap.String("user_id", userID))
	return c.JSON(fiber.Map{"success": true})
}

// ResendVerification emite un token de verificación nuevo. La respuesta es
// uniforme para no revelar si el correo existe.
func (s *AuthService) ResendVerification(c fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := roble.GetContext()
	defer cancel()

	var records []registroUsuario
	if err := s.roble.Read(ctx, tablaUsuarios, map[string]string{"email": email}, &records); err != nil {
		s.log.Error("❌ Error consultando usuario en ROBLE", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudo procesar la solicitud"})
	}

	if len(records) == 0 || records[0].EmailVerified {
		return c.JSON(fiber.Map{"success": true})
	}

	verificationToken, err := s.jwtService.GenerateVerificationToken(records[0].ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}

	return c.JSON(fiber.Map{"success": true, "verificationToken": verificationToken})
}

// Login inicia sesión verificando la contraseña contra el hash guardado
func (s *AuthService) Login(c fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := roble.GetContext()
	defer cancel()

	var records []registroUsuario
	if err := s.roble.Read(ctx, tablaUsuarios, map[string]string{"email": email}, &records); err != nil {
		s.log.Error("❌ Error consultando usuario en ROBLE", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudo validar la sesión"})
	}
	if len(records) == 0 || !utils.CheckPassword(records[0].PasswordHash, req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Credenciales inválidas"})
	}

	record := records[0]
	if !record.IsActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "La cuenta está desactivada"})
	}

	// Si el usuario no está en el estado local (sesión en otro equipo, por
	// ejemplo) se incorpora desde ROBLE
	user := s.asegurarUsuarioLocal(record)

	token, err := s.jwtService.GenerateToken(user.ID, user.Role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error generando la sesión"})
	}

	s.state.SetCurrentUser(&user)
	s.log.Info("✅ Sesión iniciada", zap.String("user_id", user.ID))

	return c.JSON(fiber.Map{"success": true, "token": token, "user": user})
}

// Logout limpia la sesión guardada
func (s *AuthService) Logout(c fiber.Ctx) error {
	s.state.SetCurrentUser(nil)
	return c.JSON(fiber.Map{"success": true})
}

// Session devuelve la sesión restaurada del almacenamiento local, si existe
func (s *AuthService) Session(c fiber.Ctx) error {
	user := s.state.CurrentUser()
	if user == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No hay sesión guardada"})
	}
	return c.JSON(fiber.Map{"user": user})
}

// ForgotPassword emite un token de restablecimiento. Sin servicio de correo,
// el token se devuelve en la respuesta.
func (s *AuthService) ForgotPassword(c fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := roble.GetContext()
	defer cancel()

	var records []registroUsuario
	if err := s.roble.Read(ctx, tablaUsuarios, map[string]string{"email": email}, &records); err != nil {
		s.log.Error("❌ Error consultando usuario en ROBLE", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudo procesar la solicitud"})
	}

	// Siempre se responde igual para no revelar si el correo existe
	if len(records) == 0 {
		return c.JSON(fiber.Map{"success": true})
	}

	resetToken, err := s.jwtService.GenerateResetToken(records[0].ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}

	return c.JSON(fiber.Map{"success": true, "resetToken": resetToken})
}

// ResetPassword cambia la contraseña usando un token de restablecimiento
func (s *AuthService) ResetPassword(c fiber.Ctx) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}
	if len(req.Password) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "La contraseña debe tener al menos 6 caracteres",
		})
	}

	userID, err := s.jwtService.ExtractResetUserID(req.Token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token de restablecimiento inválido o expirado"})
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}

	ctx, cancel := roble.GetContext()
	defer cancel()
	if err := s.roble.Update(ctx, tablaUsuarios, "_id", userID, map[string]any{"passwordHash": hash}); err != nil {
		s.log.Error("❌ Error actualizando contraseña en ROBLE", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudo actualizar la contraseña"})
	}

	s.log.Info("✅ Contraseña restablecida", zap.String("user_id", userID))
	return c.JSON(fiber.Map{"success": true})
}

// asegurarUsuarioLocal incorpora el registro de ROBLE al estado local si el
// usuario aún no está, y devuelve el usuario local
func (s *AuthService) asegurarUsuarioLocal(record registroUsuario) models.User {
	var out models.User
	s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		for _, u := range st.Users {
			if u.ID == record.ID {
				out = u
				return st, nil
			}
		}
		joined, _ := time.Parse(time.RFC3339, record.JoinedDate)
		out = models.User{
			ID:            record.ID,
			Name:          record.Name,
			Email:         record.Email,
			Role:          record.Role,
			City:          record.City,
			JoinedDate:    joined,
			IsActive:      record.IsActive,
			EmailVerified: record.EmailVerified,
		}
		st.Users = append(st.Users, out)
		return st, nil
	})
	return out
}
