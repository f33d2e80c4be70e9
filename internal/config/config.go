package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config estructura de configuración
type Config struct {
	Port             string
	JWTSecret        string
	AppEnv           string
	RecaptchaSecret  string
	StorePath        string
	WSAddr           string
	NLPModelURL      string
	RobleConfig      RobleConfig
	CloudinaryConfig CloudinaryConfig
}

// RobleConfig contiene la configuración del servicio de persistencia ROBLE
type RobleConfig struct {
	AuthBaseURL  string
	DBBaseURL    string
	DBName       string
	APIKey       string
	RefreshToken string
}

// CloudinaryConfig contiene la configuración para Cloudinary
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadFolder string
}

// LoadConfig carga las variables desde .env
func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️ Archivo .env no encontrado, usando variables de entorno")
	}

	robleConfig := RobleConfig{
		AuthBaseURL:  getEnv("ROBLE_AUTH_URL", "https://roble-api.openlab.uninorte.edu.co/auth"),
		DBBaseURL:    getEnv("ROBLE_DB_URL", "https://roble-api.openlab.uninorte.edu.co/database"),
		DBName:       getEnv("ROBLE_DB_NAME", ""),
		APIKey:       getEnv("ROBLE_API_KEY", ""),
		RefreshToken: getEnv("ROBLE_REFRESH_TOKEN", ""),
	}

	cloudinaryConfig := CloudinaryConfig{
		CloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		APIKey:       getEnv("CLOUDINARY_API_KEY", ""),
		APISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
		UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "swaply"),
	}

	cfg := &Config{
		Port:             getEnv("PORT", "3000"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		AppEnv:           getEnv("APP_ENV", "production"),
		RecaptchaSecret:  getEnv("RECAPTCHA_SECRET_KEY", ""),
		StorePath:        getEnv("STORE_PATH", "swaply.db"),
		WSAddr:           getEnv("WS_ADDR", ":3001"),
		NLPModelURL:      getEnv("NLP_MODEL_URL", "http://localhost:5000"),
		RobleConfig:      robleConfig,
		CloudinaryConfig: cloudinaryConfig,
	}

	if cfg.JWTSecret == "" || cfg.RobleConfig.DBName == "" {
		log.Fatal("❌ Error: faltan variables de entorno obligatorias (JWT_SECRET, ROBLE_DB_NAME)")
	}

	return cfg
}

// getEnv obtiene una variable de entorno o usa el valor por defecto
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
