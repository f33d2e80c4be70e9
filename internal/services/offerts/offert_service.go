// Package offerts expone la API de productos: creación con imágenes,
// edición, cambio de estado y baja. Los cambios se aplican al estado local y
// se replican a la tabla productos de ROBLE.
package offerts

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
	"github.com/swaply/swaply-api/internal/services/cloudinary"
	"github.com/swaply/swaply-api/internal/store"
	"github.com/swaply/swaply-api/internal/trueque"
	"github.com/swaply/swaply-api/internal/utils"
)

const tablaProductos = "productos"

// OffertService es el servicio de gestión de productos
type OffertService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	state      *store.AppState
	maquina    *trueque.Maquina
	roble      *roble.Client
	uploader   *cloudinary.CloudinaryService
	log        *zap.Logger
}

// NewOffertService crea una nueva instancia de OffertService
func NewOffertService(cfg *config.Config, state *store.AppState, robleClient *roble.Client, uploader *cloudinary.CloudinaryService, log *zap.Logger) *OffertService {
	return &OffertService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		state:      state,
		maquina:    trueque.NewMaquina(),
		roble:      robleClient,
		uploader:   uploader,
		log:        log,
	}
}

// GetOfferts devuelve los productos publicados y disponibles
func (s *OffertService) GetOfferts(c fiber.Ctx) error {
	st := s.state.Snapshot()

	category := c.Query("category")
	search := strings.ToLower(c.Query("search"))

	var out []models.Product
	for _, p := range st.Products {
		if p.Status != models.ProductPublished || !p.Available {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}

	return c.JSON(fiber.Map{"products": out, "count": len(out)})
}

// GetMyOfferts devuelve todos los productos del usuario, borradores incluidos
func (s *OffertService) GetMyOfferts(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	st := s.state.Snapshot()
	var out []models.Product
	for _, p := range st.Products {
		if p.OwnerUserID == userID {
			out = append(out, p)
		}
	}

	return c.JSON(fiber.Map{"products": out, "count": len(out)})
}

// GetOffert devuelve un producto por ID
func (s *OffertService) GetOffert(c fiber.Ctx) error {
	productID := c.Params("id")

	st := s.state.Snapshot()
	for _, p := range st.Products {
		if p.ID == productID {
			return c.JSON(fiber.Map{"product": p})
		}
	}

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Producto no encontrado"})
}

// OffertCreate crea un producto desde un formulario multipart. Acepta hasta
// tres imágenes en el campo images.
func (s *OffertService) OffertCreate(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Se esperaba un formulario multipart"})
	}

	valor := func(campo string) string {
		if vals := form.Value[campo]; len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}

	// El formulario multipart se valida aquí, con el mismo formato de
	// mensaje que el middleware de campos
	var missing []string
	for _, campo := range []string{"title", "description", "category"} {
		if valor(campo) == "" {
			missing = append(missing, campo)
		}
	}
	if len(missing) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Faltan los siguientes campos obligatorios: %s", strings.Join(missing, ", ")),
		})
	}

	status := valor("status")
	if status != models.ProductDraft {
		status = models.ProductPublished
	}

	product := models.Product{
		ID:              uuid.NewString(),
		Title:           valor("title"),
		Description:     valor("description"),
		Category:        valor("category"),
		OwnerUserID:     userID,
		Status:          status,
		Available:       true,
		TradeConditions: valor("tradeConditions"),
		Location:        valor("location"),
		CreatedAt:       time.Now(),
	}

	ctx, cancel := roble.GetContext()
	defer cancel()

	// Subida de imágenes, máximo tres
	files := form.File["images"]
	if len(files) > models.MaxProductImages {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Máximo %d imágenes por producto", models.MaxProductImages),
		})
	}
	for _, file := range files {
		url, err := s.uploader.UploadImage(ctx, file, product.ID)
		if err != nil {
			s.log.Error("❌ Error subiendo imagen de producto", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudo subir la imagen"})
		}
		product.Images = append(product.Images, url)
	}

	err = s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		st.Products = append([]models.Product{product}, st.Products...)
		st = s.maquina.AgregarActividad(st, userID, models.Activity{
			Type:        models.ActivityProduct,
			Title:       "Producto publicado",
			Description: fmt.Sprintf("Publicaste %q", product.Title),
			ProductID:   product.ID,
		})
		return st, nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error guardando el producto"})
	}

	// Réplica a ROBLE; un fallo no revierte la creación local
	if err := s.roble.Insert(ctx, tablaProductos, []map[string]any{s.comoRegistro(product)}); err != nil {
		s.log.Error("❌ Error replicando producto a ROBLE", zap.String("product_id", product.ID), zap.Error(err))
	}

	s.log.Info("Producto creado", zap.String("product_id", product.ID), zap.String("owner", userID))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "product": product})
}

// OffertUpdate edita los campos del producto. Solo el dueño puede editar.
func (s *OffertService) OffertUpdate(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	productID := c.Params("id")

	var req struct {
		Title           *string `json:"title"`
		Description     *string `json:"description"`
		Category        *string `json:"category"`
		TradeConditions *string `json:"tradeConditions"`
		Location        *string `json:"location"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}

	var updated *models.Product
	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		products := make([]models.Product, len(st.Products))
		copy(products, st.Products)
		for i := range products {
			if products[i].ID != productID {
				continue
			}
			if products[i].OwnerUserID != userID {
				return st, errNoEsDueno
			}
			if req.Title != nil {
				products[i].Title = *req.Title
			}
			if req.Description != nil {
				products[i].Description = *req.Description
			}
			if req.Category != nil {
				products[i].Category = *req.Category
			}
			if req.TradeConditions != nil {
				products[i].TradeConditions = *req.TradeConditions
			}
			if req.Location != nil {
				products[i].Location = *req.Location
			}
			p := products[i]
			updated = &p
			st.Products = products
			return st, nil
		}
		return st, errProductoNoExiste
	})
	if err != nil {
		return s.errorDeProducto(c, err)
	}

	ctx, cancel := roble.GetContext()
	defer cancel()
	if err := s.roble.Update(ctx, tablaProductos, "_id", productID, s.comoRegistro(*updated)); err != nil {
		s.log.Error("❌ Error replicando edición a ROBLE", zap.String("product_id", productID), zap.Error(err))
	}

	return c.JSON(fiber.Map{"success": true, "product": updated})
}

// EditEstado cambia el producto entre draft y published
func (s *OffertService) EditEstado(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	productID := c.Params("id")

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Formato de datos inválido"})
	}
	if req.Status != models.ProductDraft && req.Status != models.ProductPublished {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "El estado debe ser draft o published",
		})
	}

	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		products := make([]models.Product, len(st.Products))
		copy(products, st.Products)
		for i := range products {
			if products[i].ID != productID {
				continue
			}
			if products[i].OwnerUserID != userID {
				return st, errNoEsDueno
			}
			products[i].Status = req.Status
			st.Products = products
			return st, nil
		}
		return st, errProductoNoExiste
	})
	if err != nil {
		return s.errorDeProducto(c, err)
	}

	ctx, cancel := roble.GetContext()
	defer cancel()
	if err := s.roble.Update(ctx, tablaProductos, "_id", productID, map[string]any{"status": req.Status}); err != nil {
		s.log.Error("❌ Error replicando estado a ROBLE", zap.String("product_id", productID), zap.Error(err))
	}

	return c.JSON(fiber.Map{"success": true})
}

// DelateOffert retira un producto. No se elimina del historial: se marca no
// disponible para que los trueques pasados sigan siendo coherentes.
func (s *OffertService) DelateOffert(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	productID := c.Params("id")

	err := s.state.Update(func(st trueque.Estado) (trueque.Estado, error) {
		products := make([]models.Product, len(st.Products))
		copy(products, st.Products)
		for i := range products {
			if products[i].ID != productID {
				continue
			}
			if products[i].OwnerUserID != userID {
				return st, errNoEsDueno
			}
			products[i].Available = false
			products[i].Status = models.ProductDraft
			st.Products = products
			return st, nil
		}
		return st, errProductoNoExiste
	})
	if err != nil {
		return s.errorDeProducto(c, err)
	}

	ctx, cancel := roble.GetContext()
	defer cancel()
	if err := s.roble.Update(ctx, tablaProductos, "_id", productID, map[string]any{
		"available": false,
		"status":    models.ProductDraft,
	}); err != nil {
		s.log.Error("❌ Error replicando baja a ROBLE", zap.String("product_id", productID), zap.Error(err))
	}

	return c.JSON(fiber.Map{"success": true})
}

var (
	errNoEsDueno        = fmt.Errorf("solo el dueño puede modificar el producto")
	errProductoNoExiste = fmt.Errorf("producto no encontrado")
)

func (s *OffertService) errorDeProducto(c fiber.Ctx, err error) error {
	switch err {
	case errNoEsDueno:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errProductoNoExiste:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		s.log.Error("❌ Error procesando producto", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno"})
	}
}

// comoRegistro aplana el producto al formato de la tabla de ROBLE
func (s *OffertService) comoRegistro(p models.Product) map[string]any {
	return map[string]any{
		"_id":             p.ID,
		"title":           p.Title,
		"description":     p.Description,
		"category":        p.Category,
		"ownerUserId":     p.OwnerUserID,
		"status":          p.Status,
		"available":       p.Available,
		"images":          strings.Join(p.Images, ","),
		"tradeConditions": p.TradeConditions,
		"location":        p.Location,
		"createdAt":       p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
