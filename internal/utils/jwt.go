package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTService se encarga de crear y validar tokens JWT
type JWTService struct {
	secretKey string
}

// NewJWTService crea una nueva instancia de JWTService
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{secretKey: secretKey}
}

// GenerateToken crea un token JWT de sesión con el ID y rol del usuario
func (s *JWTService) GenerateToken(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// GenerateResetToken crea un token corto para restablecer la contraseña
func (s *JWTService) GenerateResetToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"purpose": "password_reset",
		"exp":     time.Now().Add(30 * time.Minute).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// GenerateVerificationToken crea un token para verificar el correo
func (s *JWTService) GenerateVerificationToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"purpose": "email_verification",
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken verifica la firma y vigencia del token
func (s *JWTService) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("método de firma inesperado")
		}
		return []byte(s.secretKey), nil
	})
}

// ExtractClaims valida el token y devuelve sus claims
func (s *JWTService) ExtractClaims(tokenString string) (jwt.MapClaims, error) {
	token, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("token inválido")
	}
	return claims, nil
}

// ExtractUserID valida el token y devuelve el user_id de sus claims
func (s *JWTService) ExtractUserID(tokenString string) (string, error) {
	claims, err := s.ExtractClaims(tokenString)
	if err != nil {
		return "", err
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errors.New("token sin user_id")
	}
	return userID, nil
}

// ExtractResetUserID valida un token de restablecimiento y devuelve el usuario
func (s *JWTService) ExtractResetUserID(tokenString string) (string, error) {
	return s.extractPurposeUserID(tokenString, "password_reset", "el token no es de restablecimiento")
}

// ExtractVerificationUserID valida un token de verificación de correo y
// devuelve el usuario
func (s *JWTService) ExtractVerificationUserID(tokenString string) (string, error) {
	return s.extractPurposeUserID(tokenString, "email_verification", "el token no es de verificación")
}

func (s *JWTService) extractPurposeUserID(tokenString, purpose, mensaje string) (string, error) {
	claims, err := s.ExtractClaims(tokenString)
	if err != nil {
		return "", err
	}
	if p, _ := claims["purpose"].(string); p != purpose {
		return "", errors.New(mensaje)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errors.New("token sin user_id")
	}
	return userID, nil
}
