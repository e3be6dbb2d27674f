package v1

import (
	"github.com/gin-gonic/gin"

	"pharmadesk/internal/app"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/internal/infrastructure/http/v1/handlers"
	"pharmadesk/internal/infrastructure/http/v1/middleware"
	"pharmadesk/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// DB is used by health checks
	DB handlers.Database

	// Services are the domain services behind the API
	Services *app.Services

	// Idempotency stores X-Idempotency-Key responses; nil disables the middleware
	Idempotency middleware.IdempotencyStore

	// Logger for request logging
	Logger *logger.Logger

	// Version is reported by /health/info
	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Operator())
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	registerAPIRoutes(api, cfg.Services)

	return router
}

func registerAPIRoutes(api *gin.RouterGroup, svc *app.Services) {
	base := handlers.NewBaseHandler()
	stockHandler := handlers.NewStockHandler(base, svc.Stock)

	inv := api.Group("/inventory")
	registerInventory(inv.Group("/medicines"), handlers.NewMedicineHandler(base, svc.Medicines), stockHandler, inventory.KindMedicine)
	registerInventory(inv.Group("/chemicals"), handlers.NewChemicalHandler(base, svc.Chemicals), stockHandler, inventory.KindChemical)
	registerInventory(inv.Group("/equipment"), handlers.NewEquipmentHandler(base, svc.Equipment), stockHandler, inventory.KindEquipment)

	api.GET("/stock/movements", stockHandler.ListMovements)

	orderHandler := handlers.NewOrderHandler(base, svc.Orders)
	orders := api.Group("/orders")
	RegisterRecordRoutes(orders, orderHandler)
	RegisterActions(orders, map[string]gin.HandlerFunc{
		"approve": orderHandler.Approve,
		"receive": orderHandler.Receive,
		"cancel":  orderHandler.Cancel,
	})

	RegisterRecordRoutes(api.Group("/patients"), handlers.NewPatientHandler(base, svc.Patients))

	prescriptionHandler := handlers.NewPrescriptionHandler(base, svc.Prescriptions)
	prescriptions := api.Group("/prescriptions")
	RegisterRecordRoutes(prescriptions, prescriptionHandler)
	RegisterActions(prescriptions, map[string]gin.HandlerFunc{
		"dispense": prescriptionHandler.Dispense,
		"cancel":   prescriptionHandler.Cancel,
	})

	sequenceHandler := handlers.NewSequenceHandler(base, svc.Sequences, svc.Audit)
	sequences := api.Group("/sequences")
	{
		sequences.GET("", sequenceHandler.List)
		sequences.POST("/sync", sequenceHandler.Sync)
		sequences.GET("/:name", sequenceHandler.Get)
		sequences.PUT("/:name", sequenceHandler.Set)
		sequences.GET("/:name/events", sequenceHandler.Events)
	}

	auditHandler := handlers.NewAuditHandler(base, svc.Audit)
	api.GET("/audit/:entityType/:id", auditHandler.History)
}

func registerInventory(group *gin.RouterGroup, h RecordRouteHandler, stockHandler *handlers.StockHandler, kind inventory.Kind) {
	RegisterRecordRoutes(group, h)
	group.POST("/:id/adjust", stockHandler.Adjust(kind))
}
