package main

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/logger"
	"github.com/swaply/swaply-api/internal/roble"
	"github.com/swaply/swaply-api/internal/services/admin"
	"github.com/swaply/swaply-api/internal/services/audit"
	"github.com/swaply/swaply-api/internal/services/auth"
	"github.com/swaply/swaply-api/internal/services/chat"
	"github.com/swaply/swaply-api/internal/services/cloudinary"
	"github.com/swaply/swaply-api/internal/services/notifications"
	"github.com/swaply/swaply-api/internal/services/offerts"
	"github.com/swaply/swaply-api/internal/services/ratings"
	"github.com/swaply/swaply-api/internal/services/search"
	"github.com/swaply/swaply-api/internal/services/trueques"
	"github.com/swaply/swaply-api/internal/services/users"
	"github.com/swaply/swaply-api/internal/store"
	"github.com/swaply/swaply-api/internal/utils"
	"github.com/swaply/swaply-api/internal/websocket"
)

func main() {
	// Cargamos la configuración
	cfg := config.LoadConfig()

	zlog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("❌ Error inicializando el logger: %v", err)
	}
	defer zlog.Sync()

	// Abrimos el almacenamiento local y rehidratamos el estado
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		zlog.Fatal("❌ Error abriendo el almacenamiento local", zap.Error(err))
	}
	defer st.Close()

	state := store.NewAppState(st, zlog)
	if err := state.Rehydrate(); err != nil {
		zlog.Fatal("❌ Error rehidratando el estado", zap.Error(err))
	}

	// Cliente de ROBLE
	robleClient := roble.NewClient(cfg.RobleConfig, zlog)

	// Servidor WebSocket en su propio puerto
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	wsManager := websocket.NewManager(zlog)
	defer wsManager.Shutdown()
	go func() {
		if err := websocket.Serve(cfg.WSAddr, wsManager, jwtService, zlog); err != nil {
			zlog.Error("❌ Servidor WebSocket detenido", zap.Error(err))
		}
	}()

	// Creamos la aplicación Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Swaply API",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Recaptcha-Token"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Servicios
	auditService := audit.NewAuditService(cfg, robleClient, zlog)
	cloudinaryService := cloudinary.NewCloudinaryService(cfg, zlog)

	auth.NewAuthService(cfg, state, robleClient, zlog).SetupRoutes(app)
	offerts.NewOffertService(cfg, state, robleClient, cloudinaryService, zlog).SetupRoutes(app)
	trueques.NewTruequeService(cfg, state, auditService, wsManager, zlog).SetupRoutes(app)
	ratings.NewRatingService(cfg, state, robleClient, zlog).SetupRoutes(app)
	notifications.NewNotificationService(cfg, state, wsManager, zlog).SetupRoutes(app)
	users.NewUserService(cfg, state, robleClient, zlog).SetupRoutes(app)
	chat.NewChatService(cfg, state, wsManager, zlog).SetupRoutes(app)
	search.NewSearchService(cfg, state, zlog).SetupRoutes(app)
	admin.NewAdminService(cfg, state, robleClient, zlog).SetupRoutes(app)
	auditService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)

	zlog.Info("✅ Swaply API escuchando", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("❌ Servidor detenido", zap.Error(err))
	}
}

// errorHandler maneja los errores de Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
