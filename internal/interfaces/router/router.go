package router

import (
	"strings"

	"armory-backend/internal/application/assets"
	"armory-backend/internal/application/assignments"
	"armory-backend/internal/application/audit"
	authsvc "armory-backend/internal/application/auth"
	"armory-backend/internal/application/expenditures"
	healthsvc "armory-backend/internal/application/health"
	"armory-backend/internal/application/purchases"
	"armory-backend/internal/application/transfers"
	usersvc "armory-backend/internal/application/user"
	"armory-backend/internal/config"
	"armory-backend/internal/constants"
	"armory-backend/internal/infrastructure/database"
	assethandler "armory-backend/internal/interfaces/handlers/assets"
	assignhandler "armory-backend/internal/interfaces/handlers/assignments"
	audithandler "armory-backend/internal/interfaces/handlers/audit"
	authhandler "armory-backend/internal/interfaces/handlers/auth"
	exphandler "armory-backend/internal/interfaces/handlers/expenditures"
	healthhandler "armory-backend/internal/interfaces/handlers/health"
	purchasehandler "armory-backend/internal/interfaces/handlers/purchases"
	transferhandler "armory-backend/internal/interfaces/handlers/transfers"
	userhandler "armory-backend/internal/interfaces/handlers/user"
	"armory-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CreateApp opens the database and Redis from cfg and mounts every route.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	rdb, err := middleware.NewRedis(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := database.AutoMigrate(db); err != nil {
				return nil, nil, nil, err
			}
		}
	} else {
		log.Warn().Msg("router: DATABASE_URL not set, only health and auth routes are mounted")
	}
	return New(cfg, db, rdb), db, rdb, nil
}

// New builds the Fiber app over existing clients. db may be nil, in which
// case the ledger routes are not mounted.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(recover.New())
	app.Use(middleware.Tracing())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffixes: strings.Split(cfg.FrontendURLEndsWith, ","),
		DevPassword:     cfg.DevPassword,
		AllowLocalhost:  cfg.Env != "production",
	}))
	app.Use(middleware.Session(rdb))
	app.Use(middleware.BearerAuth(cfg.JWTSecret))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.RouteLogger())

	healthHandlers := &healthhandler.Handlers{
		Service:        &healthsvc.Service{DB: db, Rdb: rdb},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/errors", healthHandlers.Errors)
	app.Get("/health/reset", healthHandlers.Reset)

	var recorder audit.Recorder = audit.Nop{}
	var auditService *audit.Service
	if db != nil {
		auditService = &audit.Service{DB: db, Rdb: rdb}
		recorder = auditService
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	var finder authsvc.UserFinder
	if db != nil {
		finder = &authsvc.GormUserFinder{DB: db}
	}
	authHandlers := &authhandler.Handlers{
		UserFinder: finder,
		Rdb:        rdb,
		Config:     sessionCfg,
		Token: authhandler.TokenConfig{
			Secret:        cfg.JWTSecret,
			Issuer:        cfg.JWTIssuer,
			ExpiryMinutes: cfg.JWTExpiryMinutes,
		},
		Audit: recorder,
	}
	v1 := app.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	if db == nil {
		return app
	}

	can := middleware.AuthorizePermission

	userHandlers := &userhandler.Handlers{Service: &usersvc.Service{DB: db, Rdb: rdb, Audit: recorder}}
	users := v1.Group("/users", middleware.RequireAuth(), can(constants.ManageUsers))
	users.Post("/", userHandlers.CreateUser)
	users.Get("/", userHandlers.ListUsers)
	users.Get("/:id", userHandlers.ViewUser)
	users.Patch("/:id/role", userHandlers.UpdateRole)

	assetHandlers := &assethandler.Handlers{Service: &assets.Service{DB: db, Audit: recorder}}
	assetGroup := v1.Group("/assets", middleware.RequireAuth())
	assetGroup.Post("/", can(constants.ManageAssets), assetHandlers.Create)
	assetGroup.Get("/", can(constants.ViewAssets), assetHandlers.List)
	assetGroup.Get("/summary", can(constants.ViewAssets), assetHandlers.Summary)
	assetGroup.Get("/:id", can(constants.ViewAssets), assetHandlers.Get)
	assetGroup.Patch("/:id/opening-balance", can(constants.ManageAssets), assetHandlers.UpdateOpening)
	assetGroup.Delete("/:id", can(constants.DeleteAsset), assetHandlers.Delete)

	purchaseHandlers := &purchasehandler.Handlers{Service: &purchases.Service{DB: db, Audit: recorder}}
	purchaseGroup := v1.Group("/purchases", middleware.RequireAuth())
	purchaseGroup.Post("/", can(constants.CreatePurchase), purchaseHandlers.Create)
	purchaseGroup.Get("/", can(constants.ViewPurchases), purchaseHandlers.List)
	purchaseGroup.Get("/:id", can(constants.ViewPurchases), purchaseHandlers.Get)
	purchaseGroup.Post("/:id/deliver", can(constants.DeliverPurchase), purchaseHandlers.Deliver)
	purchaseGroup.Post("/:id/cancel", can(constants.CancelPurchase), purchaseHandlers.Cancel)

	transferHandlers := &transferhandler.Handlers{Service: &transfers.Service{DB: db, Audit: recorder}}
	transferGroup := v1.Group("/transfers", middleware.RequireAuth())
	transferGroup.Post("/", can(constants.CreateTransfer), transferHandlers.Create)
	transferGroup.Get("/", can(constants.ViewTransfers), transferHandlers.List)
	transferGroup.Post("/recover", can(constants.RecoverTransfers), transferHandlers.Recover)
	transferGroup.Get("/:id", can(constants.ViewTransfers), transferHandlers.Get)
	transferGroup.Post("/:id/approve", can(constants.ApproveTransfer), transferHandlers.Approve)
	transferGroup.Post("/:id/cancel", can(constants.CancelTransfer), transferHandlers.Cancel)

	assignmentHandlers := &assignhandler.Handlers{Service: &assignments.Service{DB: db, Audit: recorder}}
	assignmentGroup := v1.Group("/assignments", middleware.RequireAuth())
	assignmentGroup.Post("/", can(constants.CreateAssignment), assignmentHandlers.Create)
	assignmentGroup.Get("/", can(constants.ViewAssignments), assignmentHandlers.List)
	assignmentGroup.Get("/:id", can(constants.ViewAssignments), assignmentHandlers.Get)
	assignmentGroup.Post("/:id/return", can(constants.ReturnAssignment), assignmentHandlers.Return)
	assignmentGroup.Patch("/:id/status", can(constants.ChangeAssignmentStatus), assignmentHandlers.SetStatus)

	expenditureHandlers := &exphandler.Handlers{Service: &expenditures.Service{DB: db, Audit: recorder}}
	expenditureGroup := v1.Group("/expenditures", middleware.RequireAuth())
	expenditureGroup.Post("/", can(constants.CreateExpenditure), expenditureHandlers.Create)
	expenditureGroup.Get("/", can(constants.ViewExpenditures), expenditureHandlers.List)
	expenditureGroup.Get("/:id", can(constants.ViewExpenditures), expenditureHandlers.Get)
	expenditureGroup.Delete("/:id", can(constants.DeleteExpenditure), expenditureHandlers.Delete)

	auditHandlers := &audithandler.Handlers{Service: auditService}
	auditGroup := v1.Group("/audit", middleware.RequireAuth(), can(constants.ViewAuditLogs))
	auditGroup.Get("/logs", auditHandlers.Logs)
	auditGroup.Get("/recent", auditHandlers.Recent)

	return app
}
