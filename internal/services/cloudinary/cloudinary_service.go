// Package cloudinary maneja la subida de imágenes de productos: firma de
// subidas directas desde el cliente y subida desde el servidor.
package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/utils"
)

// CloudinaryService provee los métodos para trabajar con Cloudinary
type CloudinaryService struct {
	cfg          *config.Config
	jwtService   *utils.JWTService
	uploadFolder string
	client       *cloudinary.Cloudinary
	log          *zap.Logger
}

// NewCloudinaryService crea una nueva instancia de CloudinaryService. Si las
// credenciales no están configuradas, la subida desde el servidor queda
// deshabilitada pero la firma sigue funcionando.
func NewCloudinaryService(cfg *config.Config, log *zap.Logger) *CloudinaryService {
	s := &CloudinaryService{
		cfg:          cfg,
		jwtService:   utils.NewJWTService(cfg.JWTSecret),
		uploadFolder: cfg.CloudinaryConfig.UploadFolder,
		log:          log,
	}

	if cfg.CloudinaryConfig.CloudName != "" {
		client, err := cloudinary.NewFromParams(
			cfg.CloudinaryConfig.CloudName,
			cfg.CloudinaryConfig.APIKey,
			cfg.CloudinaryConfig.APISecret,
		)
		if err != nil {
			log.Error("❌ Error inicializando Cloudinary", zap.Error(err))
		} else {
			s.client = client
		}
	} else {
		log.Warn("⚠️ Cloudinary no configurado, subida de imágenes deshabilitada")
	}

	return s
}

// GenerateSignature crea la firma SHA-1 que Cloudinary espera
func (s *CloudinaryService) GenerateSignature(params map[string]string) string {
	var keys []string
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var signParts []string
	for _, k := range keys {
		signParts = append(signParts, fmt.Sprintf("%s=%s", k, params[k]))
	}
	signatureString := strings.Join(signParts, "&")

	// El API secret va al final de la cadena
	signatureString += s.cfg.CloudinaryConfig.APISecret

	h := sha1.New()
	h.Write([]byte(signatureString))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateUploadParams devuelve los parámetros firmados para que el cliente
// suba imágenes directamente a Cloudinary
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	productID := c.Query("product_id")
	if productID == "" {
		productID = uuid.New().String()
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	params := map[string]string{
		"timestamp": timestamp,
		"folder":    s.uploadFolder,
	}
	signature := s.GenerateSignature(params)

	return c.JSON(fiber.Map{
		"timestamp":  timestamp,
		"signature":  signature,
		"folder":     s.uploadFolder,
		"api_key":    s.cfg.CloudinaryConfig.APIKey,
		"cloud_name": s.cfg.CloudinaryConfig.CloudName,
		"product_id": productID,
	})
}

// UploadImage sube un archivo de imagen desde el servidor y devuelve la URL
func (s *CloudinaryService) UploadImage(ctx context.Context, file *multipart.FileHeader, productID string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("cloudinary no está configurado")
	}

	f, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("error abriendo archivo: %w", err)
	}
	defer f.Close()

	resp, err := s.client.Upload.Upload(ctx, f, uploader.UploadParams{
		Folder:   s.uploadFolder,
		PublicID: fmt.Sprintf("%s_%s", productID, uuid.New().String()[:8]),
	})
	if err != nil {
		return "", fmt.Errorf("error subiendo imagen: %w", err)
	}

	return resp.SecureURL, nil
}
